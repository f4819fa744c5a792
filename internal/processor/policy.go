package processor

import "time"

const (
	defaultSendTimeout       = 15 * time.Second
	defaultTimeoutRetryDelay = 500 * time.Millisecond
	defaultFailureRetryDelay = 1000 * time.Millisecond
)

// RetryPolicy decides how long an attempt may take and when a failed cycle
// is retried. A timeout retries sooner than a send failure: the server was
// reachable but slow, whereas a failed send usually means the connection is
// being rebuilt.
//
// MaxConsecutiveFailures of zero retries for as long as the queue is not empty.
type RetryPolicy struct {
	SendTimeout            time.Duration
	TimeoutRetryDelay      time.Duration
	FailureRetryDelay      time.Duration
	MaxConsecutiveFailures int
}

func DefaultRetryPolicy() RetryPolicy {
	return normalizePolicy(RetryPolicy{})
}

func normalizePolicy(p RetryPolicy) RetryPolicy {
	if p.SendTimeout <= 0 {
		p.SendTimeout = defaultSendTimeout
	}
	if p.TimeoutRetryDelay <= 0 {
		p.TimeoutRetryDelay = defaultTimeoutRetryDelay
	}
	if p.FailureRetryDelay <= 0 {
		p.FailureRetryDelay = defaultFailureRetryDelay
	}
	if p.MaxConsecutiveFailures < 0 {
		p.MaxConsecutiveFailures = 0
	}
	return p
}
