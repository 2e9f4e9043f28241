package model

import "fmt"

// SourceError is a classified failure carried inside a result.
type SourceError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// FetchStats summarizes one adapter call.
type FetchStats struct {
	Fetched    int   `json:"fetched"`
	Kept       int   `json:"kept"`
	DurationMs int64 `json:"duration_ms"`
	Attempts   int   `json:"attempts"`
}

// DataSourceResult is what every adapter returns. Failure is data: Success is
// false and Error is set.
type DataSourceResult struct {
	Source     SourceType       `json:"source"`
	Success    bool             `json:"success"`
	Skipped    bool             `json:"skipped,omitempty"`
	SkipReason string           `json:"skip_reason,omitempty"`
	Items      []NormalizedItem `json:"items,omitempty"`
	Error      *SourceError     `json:"error,omitempty"`
	Stats      FetchStats       `json:"stats"`
}

// Failed reports whether the result counts as a source failure.
func (r DataSourceResult) Failed() bool {
	return !r.Success && !r.Skipped
}

// OK builds a successful result.
func OK(src SourceType, items []NormalizedItem) DataSourceResult {
	return DataSourceResult{
		Source:  src,
		Success: true,
		Items:   items,
		Stats:   FetchStats{Fetched: len(items), Kept: len(items)},
	}
}

// Fail builds a failed result.
func Fail(src SourceType, kind ErrorKind, format string, args ...any) DataSourceResult {
	return DataSourceResult{
		Source: src,
		Error:  &SourceError{Kind: kind, Message: fmt.Sprintf(format, args...)},
	}
}

// Skip builds a result for a source whose precondition said no.
func Skip(src SourceType, reason string) DataSourceResult {
	return DataSourceResult{Source: src, Success: true, Skipped: true, SkipReason: reason}
}

// Rejection describes one item refused by QA.
type Rejection struct {
	URLHash    string     `json:"url_hash"`
	URL        string     `json:"url"`
	Source     SourceType `json:"source"`
	Kind       ErrorKind  `json:"kind"`
	Reason     string     `json:"reason"`
	Confidence float64    `json:"confidence"`
}

// Fix describes one repaired issue.
type Fix struct {
	URLHash string `json:"url_hash"`
	Issue   string `json:"issue"`
}

// QAReport summarizes a QA pass over a batch.
type QAReport struct {
	Approved   int         `json:"approved"`
	Fixed      int         `json:"fixed"`
	Rejected   int         `json:"rejected"`
	Updated    int         `json:"updated"`
	Unchanged  int         `json:"unchanged"`
	Rejections []Rejection `json:"rejections,omitempty"`
	Fixes      []Fix       `json:"fixes,omitempty"`
}
