package indexer

import (
	"math/rand"
	"time"
)

const (
	backoffBase = 2 * time.Second
	backoffCap  = 30 * time.Second
)

// backoffDelay returns a full-jitter exponential backoff delay for the
// given retry attempt (0-indexed): a value uniformly drawn from
// [0, min(cap, base*2^attempt)).
func backoffDelay(attempt int) time.Duration {
	d := backoffBase
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= backoffCap {
			d = backoffCap
			break
		}
	}
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d)))
}
