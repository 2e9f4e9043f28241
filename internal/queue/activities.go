package queue

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.temporal.io/sdk/temporal"

	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/pipeline"
	"github.com/sells-group/profile-cli/internal/resilience"
)

// invalidRequest is the application error type of requests no retry can fix.
const invalidRequest = "invalid_request"

// DeadLetterInput describes a workflow step that exhausted its retries.
type DeadLetterInput struct {
	Request  model.BuildRequest `json:"request"`
	Step     string             `json:"step"`
	Error    string             `json:"error"`
	Attempts int                `json:"attempts"`
	// Permanent marks a failure no retry can fix.
	Permanent bool `json:"permanent,omitempty"`
}

// Activities adapts the pipeline steps to Temporal activities.
type Activities struct {
	steps Steps
	dlq   DeadLetters
}

// NewActivities creates the activity set registered on a worker.
func NewActivities(steps Steps, dlq DeadLetters) *Activities {
	return &Activities{steps: steps, dlq: dlq}
}

// PlanBuild seeds the person and routes its sources.
func (a *Activities) PlanBuild(ctx context.Context, req model.BuildRequest) (*pipeline.BuildPlan, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), invalidRequest, err)
	}
	bp, err := a.steps.Plan(ctx, req)
	var ve *resilience.ValidationError
	if errors.As(err, &ve) {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), invalidRequest, err)
	}
	return bp, err
}

// FetchSource runs one adapter. Adapter failures are returned as data; only
// cancellation surfaces as an error so Temporal retries the step.
func (a *Activities) FetchSource(ctx context.Context, bp *pipeline.BuildPlan, entry pipeline.PlanEntry) (model.DataSourceResult, error) {
	res := a.steps.FetchSource(ctx, bp, entry)
	if err := ctx.Err(); err != nil {
		return res, eris.Wrapf(err, "queue: fetch %s", entry.Source)
	}
	return res, nil
}

// Finalize persists and scores the build. Item bodies are dropped from the
// returned results to keep workflow history small.
func (a *Activities) Finalize(ctx context.Context, bp *pipeline.BuildPlan, results []model.DataSourceResult) (*pipeline.BuildResult, error) {
	res, err := a.steps.Finalize(ctx, bp, results)
	if err != nil {
		return nil, err
	}
	clearDeadLetters(ctx, a.dlq, bp.PersonID)
	trimmed := make([]model.DataSourceResult, len(res.Results))
	for i, r := range res.Results {
		r.Items = nil
		trimmed[i] = r
	}
	res.Results = trimmed
	return res, nil
}

// DeadLetter stores a failed build for later inspection.
func (a *Activities) DeadLetter(ctx context.Context, in DeadLetterInput) error {
	if a.dlq == nil {
		return nil
	}
	errType := "transient"
	if in.Permanent || ValidateRequest(in.Request) != nil {
		errType = "permanent"
	}
	return a.dlq.EnqueueDLQ(ctx, newDLQEntry(DeadLetterID(in.Step, in.Request.PersonID), in.Request, in.Step, errType, in.Error))
}
