package harvest

import (
	"math/rand"
	"time"
)

// Backoff is the single escalating-delay policy shared by navigation retries
// and post-challenge cool-downs.
type Backoff struct {
	Base        time.Duration
	Max         time.Duration
	MaxAttempts int
}

// Delay returns the wait before retrying the given 1-based attempt: base
// doubled per attempt, jittered, never above Max.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := b.Base << (attempt - 1)
	if d > b.Max || d <= 0 {
		d = b.Max
	}
	jitter := time.Duration(rand.Int63n(int64(d)/5 + 1))
	if d+jitter > b.Max {
		return b.Max
	}
	return d + jitter
}
