package hook

import (
	"encoding/json"
	"io"
	"strings"
)

// Permission decisions a gating hook may answer with.
const (
	DecisionAllow = "allow"
	DecisionDeny  = "deny"
	DecisionAsk   = "ask"
)

// ExitBlock is the exit code that tells the host to block the gated action.
const ExitBlock = 2

// Response is the JSON object written to stdout.
type Response struct {
	Continue           bool          `json:"continue"`
	SystemMessage      string        `json:"systemMessage,omitempty"`
	HookSpecificOutput *HookSpecific `json:"hookSpecificOutput,omitempty"`
}

// HookSpecific carries per-event directives.
type HookSpecific struct {
	HookEventName            string `json:"hookEventName"`
	PermissionDecision       string `json:"permissionDecision,omitempty"`
	PermissionDecisionReason string `json:"permissionDecisionReason,omitempty"`
	AdditionalContext        string `json:"additionalContext,omitempty"`
}

// Continue is the response of a hook with nothing to say.
func Continue() Response {
	return Response{Continue: true}
}

// ExitCode is 0 unless the response denies a gated action.
func (r Response) ExitCode() int {
	if r.HookSpecificOutput != nil && r.HookSpecificOutput.PermissionDecision == DecisionDeny {
		return ExitBlock
	}
	return 0
}

// Write encodes r as a single JSON line.
func (r Response) Write(w io.Writer) error {
	return json.NewEncoder(w).Encode(r)
}

// messages accumulates the lines of the system message.
type messages []string

func (m *messages) add(s string) {
	if s = strings.TrimSpace(s); s != "" {
		*m = append(*m, s)
	}
}

func (m messages) String() string {
	return strings.Join(m, "\n")
}
