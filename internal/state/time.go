package state

import "time"

// timeNow is swapped out by tests that assert on timestamps.
var timeNow = time.Now
