package resilience

import (
	"time"

	"github.com/sells-group/profile-cli/internal/model"
)

// DLQEntry is a build that exhausted its queue retries.
type DLQEntry struct {
	ID           string             `json:"id"`
	Request      model.BuildRequest `json:"request"`
	Error        string             `json:"error"`
	ErrorType    string             `json:"error_type"` // "transient" or "permanent"
	FailedStep   string             `json:"failed_step,omitempty"`
	RetryCount   int                `json:"retry_count"`
	MaxRetries   int                `json:"max_retries"`
	NextRetryAt  time.Time          `json:"next_retry_at"`
	CreatedAt    time.Time          `json:"created_at"`
	LastFailedAt time.Time          `json:"last_failed_at"`
}

// DLQFilter narrows a dead letter listing.
type DLQFilter struct {
	ErrorType string `json:"error_type,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// CanRetry reports whether the entry still has retry budget.
func (e *DLQEntry) CanRetry() bool {
	return e.RetryCount < e.MaxRetries
}

// ClassifyError returns "transient" or "permanent".
func ClassifyError(err error) string {
	if IsTransient(err) {
		return "transient"
	}
	return "permanent"
}
