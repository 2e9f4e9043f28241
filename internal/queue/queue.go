// Package queue runs person builds asynchronously, either on an in-process
// bounded pool or as Temporal workflows.
package queue

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/pipeline"
	"github.com/sells-group/profile-cli/internal/resilience"
)

// Step names recorded on dead letters.
const (
	StepBuild    = "build"
	StepPlan     = "plan"
	StepFinalize = "finalize"
)

// Queue accepts build requests for asynchronous execution.
type Queue interface {
	// Enqueue schedules req and returns a job id.
	Enqueue(ctx context.Context, req model.BuildRequest) (string, error)
	// Close stops accepting work and waits for in-flight builds.
	Close() error
}

// Builder runs one complete build.
type Builder interface {
	Build(ctx context.Context, req model.BuildRequest) (*pipeline.BuildResult, error)
}

// Steps are the individually retryable stages of a build.
type Steps interface {
	Plan(ctx context.Context, req model.BuildRequest) (*pipeline.BuildPlan, error)
	FetchSource(ctx context.Context, bp *pipeline.BuildPlan, entry pipeline.PlanEntry) model.DataSourceResult
	Finalize(ctx context.Context, bp *pipeline.BuildPlan, results []model.DataSourceResult) (*pipeline.BuildResult, error)
}

// DeadLetters records builds that exhausted their retries.
type DeadLetters interface {
	EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error
	RemoveDLQ(ctx context.Context, id string) error
}

// ValidateRequest rejects requests no build could ever satisfy.
func ValidateRequest(req model.BuildRequest) error {
	if strings.TrimSpace(req.PersonID) == "" {
		return eris.New("queue: build request has no personId")
	}
	for _, l := range req.OfficialLinks {
		if l.URL == "" {
			return eris.Errorf("queue: official link %q has no url", l.Type)
		}
	}
	return nil
}

// DLQRetries is the re-enqueue budget of a transient dead letter. Permanent
// failures get none.
const DLQRetries = 3

// DLQRetryDelay is the wait before a dead letter is due for re-enqueue.
const DLQRetryDelay = time.Hour

// DeadLetterID keys a dead letter by failed step and person, so repeated
// failures of one build update a single entry.
func DeadLetterID(step, personID string) string {
	return step + ":" + personID
}

// clearDeadLetters drops every dead letter of personID after a build
// succeeds.
func clearDeadLetters(ctx context.Context, dlq DeadLetters, personID string) {
	if dlq == nil {
		return
	}
	for _, step := range []string{StepBuild, StepPlan, StepFinalize} {
		if err := dlq.RemoveDLQ(ctx, DeadLetterID(step, personID)); err != nil {
			zap.L().Warn("queue: clear dead letter",
				zap.String("person_id", personID), zap.String("step", step), zap.Error(err))
		}
	}
}

func newDLQEntry(id string, req model.BuildRequest, step, errType, msg string) resilience.DLQEntry {
	now := time.Now().UTC()
	maxRetries := 0
	if errType == "transient" {
		maxRetries = DLQRetries
	}
	return resilience.DLQEntry{
		ID:           id,
		Request:      req,
		Error:        msg,
		ErrorType:    errType,
		FailedStep:   step,
		MaxRetries:   maxRetries,
		NextRetryAt:  now.Add(DLQRetryDelay),
		CreatedAt:    now,
		LastFailedAt: now,
	}
}
