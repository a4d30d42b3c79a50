package memory

import (
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestAppendFailure(t *testing.T) {
	l := New(t.TempDir())
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	err := l.AppendFailure(Failure{
		At: at, Family: "test", Category: "test_failure", Severity: "medium",
		Signature: "test/test_failure:0123456789ab", Count: 2,
		Excerpt: "--- FAIL: TestX\n", Fix: "Read the failing assertion.",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := l.AppendFailure(Failure{At: at, Family: "build", Signature: "build/unclassified:ffffffffffff", Count: 1}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(l.FailuresPath())
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	for _, want := range []string{
		"## 2026-03-01T09:30:00Z test: test_failure (medium)",
		"- Signature: `test/test_failure:0123456789ab` (seen 2 times)",
		"- Fix: Read the failing assertion.",
		"```\n--- FAIL: TestX\n```",
		"## 2026-03-01T09:30:00Z build: unclassified\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("failures.md missing %q:\n%s", want, got)
		}
	}
	if strings.Index(got, "test: test_failure") > strings.Index(got, "build: unclassified") {
		t.Error("entries not in append order")
	}
}

func TestAppendFailureConcurrent(t *testing.T) {
	l := New(t.TempDir())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.AppendFailure(Failure{At: time.Now(), Family: "test", Signature: "s", Count: 1}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(l.FailuresPath())
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "## "); n != 20 {
		t.Errorf("entries = %d, want 20", n)
	}
}
