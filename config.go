package claimflow

import "time"

// Config holds execution defaults for the workflow engine.
type Config struct {
	// DefaultMaxRetries is the per-step attempt budget applied to step
	// definitions that do not set their own.
	DefaultMaxRetries int

	// DefaultStepTimeout is the per-attempt deadline applied to step
	// definitions that do not set their own.
	DefaultStepTimeout time.Duration

	// RetryBaseDelay is the backoff base: attempt n sleeps
	// RetryBaseDelay * 2^(n-1) before the next attempt.
	RetryBaseDelay time.Duration

	// RetryMaxDelay caps the backoff delay between attempts.
	RetryMaxDelay time.Duration

	// MaxWorkflowRetries bounds the workflow-level resume-and-retry
	// counter. This is distinct from the per-step attempt budget.
	MaxWorkflowRetries int

	// ResumeConcurrency is the maximum number of interrupted workflows
	// resumed in parallel by ResumeAll.
	ResumeConcurrency int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DefaultMaxRetries:  3,
		DefaultStepTimeout: 300 * time.Second,
		RetryBaseDelay:     1 * time.Second,
		RetryMaxDelay:      1 * time.Minute,
		MaxWorkflowRetries: 3,
		ResumeConcurrency:  10,
	}
}
