package resilience

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/sells-group/profile-cli/internal/model"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit", NewTransientError(errors.New("x"), 429), true},
		{"wrapped explicit", fmt.Errorf("call: %w", NewTransientError(errors.New("x"), 500)), true},
		{"api source error", &model.SourceError{Kind: model.KindAPI}, true},
		{"validation source error", &model.SourceError{Kind: model.KindValidation}, false},
		{"conn reset", fmt.Errorf("dial: %w", syscall.ECONNRESET), true},
		{"pattern", errors.New("read tcp: i/o timeout"), true},
		{"permanent", errors.New("404 not found"), false},
		{"validation", NewValidationError(errors.New("bad json")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		if !IsTransientHTTPStatus(code) {
			t.Errorf("expected HTTP %d to be transient", code)
		}
	}
	for _, code := range []int{200, 400, 401, 403, 404, 422} {
		if IsTransientHTTPStatus(code) {
			t.Errorf("expected HTTP %d to NOT be transient", code)
		}
	}
}

func TestKind(t *testing.T) {
	if k := Kind(NewValidationError(errors.New("x"))); k != model.KindValidation {
		t.Errorf("got %s", k)
	}
	if k := Kind(fmt.Errorf("wrap: %w", &model.SourceError{Kind: model.KindCostGuard})); k != model.KindCostGuard {
		t.Errorf("got %s", k)
	}
	if k := Kind(context.DeadlineExceeded); k != model.KindAPI {
		t.Errorf("got %s", k)
	}
}

func TestDLQEntry_CanRetry(t *testing.T) {
	e := DLQEntry{RetryCount: 2, MaxRetries: 3}
	if !e.CanRetry() {
		t.Error("expected retry budget left")
	}
	e.RetryCount = 3
	if e.CanRetry() {
		t.Error("expected retry budget exhausted")
	}
}

func TestClassifyError(t *testing.T) {
	if got := ClassifyError(NewTransientError(errors.New("x"), 503)); got != "transient" {
		t.Errorf("got %q", got)
	}
	if got := ClassifyError(errors.New("nope")); got != "permanent" {
		t.Errorf("got %q", got)
	}
}
