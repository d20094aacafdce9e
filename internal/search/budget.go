package search

import (
	"context"
	"time"
)

// checkStride is how many iterations pass between context and deadline
// checks. The check itself costs more than a quadgram score of short text.
const checkStride = 256

// Budget bounds a single run.
type Budget struct {
	Iterations int
	Deadline   time.Time // zero means none
}

// Exhausted reports whether iteration i (zero-based) should not run. The
// context and deadline are consulted on the first iteration and every
// checkStride iterations after it.
func (b Budget) Exhausted(ctx context.Context, i int) bool {
	if i >= b.Iterations {
		return true
	}
	if i%checkStride != 0 {
		return false
	}
	if ctx.Err() != nil {
		return true
	}
	return !b.Deadline.IsZero() && !time.Now().Before(b.Deadline)
}
