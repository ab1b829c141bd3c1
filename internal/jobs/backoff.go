package jobs

import (
	"time"

	"github.com/hibiken/asynq"
)

// ExponentialBackoff returns a retry delay function that doubles the delay
// on each attempt: base, 2*base, 4*base, ... The attempt number n is
// 1-based (the first retry after the first failure sees n=1).
func ExponentialBackoff(base time.Duration) asynq.RetryDelayFunc {
	return func(n int, _ error, _ *asynq.Task) time.Duration {
		if n < 1 {
			n = 1
		}
		return base << (n - 1)
	}
}
