package queue

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/pipeline"
)

const (
	defaultMaxAttempts     = 3
	defaultSourceFanOut    = 4
	activityStartToClose   = 10 * time.Minute
	activityInitialBackoff = 2 * time.Second
)

// BuildInput is the workflow argument.
type BuildInput struct {
	Request     model.BuildRequest `json:"request"`
	MaxAttempts int                `json:"max_attempts"`
	MaxSources  int                `json:"max_sources"`
}

// BuildWorkflow runs Plan, one FetchSource activity per enabled source and
// Finalize. Every step is idempotent so Temporal may retry it. A source whose
// activity exhausts its retries becomes a failed result instead of failing
// the workflow.
func BuildWorkflow(ctx workflow.Context, in BuildInput) (*pipeline.BuildResult, error) {
	attempts := in.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	fanOut := in.MaxSources
	if fanOut <= 0 {
		fanOut = defaultSourceFanOut
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: activityStartToClose,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    activityInitialBackoff,
			BackoffCoefficient: 2,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    int32(attempts),
		},
	})
	log := workflow.GetLogger(ctx)

	var a *Activities
	var bp pipeline.BuildPlan
	if err := workflow.ExecuteActivity(ctx, a.PlanBuild, in.Request).Get(ctx, &bp); err != nil {
		return nil, deadLetter(ctx, in, StepPlan, attempts, err)
	}

	enabled := bp.Plan.Enabled()
	results := make([]model.DataSourceResult, len(enabled))
	sel := workflow.NewSelector(ctx)
	pending := 0
	for i, entry := range enabled {
		if pending >= fanOut {
			sel.Select(ctx)
			pending--
		}
		f := workflow.ExecuteActivity(ctx, a.FetchSource, &bp, entry)
		sel.AddFuture(f, func(f workflow.Future) {
			if err := f.Get(ctx, &results[i]); err != nil {
				log.Warn("queue: source step exhausted retries", "source", string(entry.Source), "error", err)
				results[i] = model.Fail(entry.Source, model.KindAPI, "%v", err)
				results[i].Stats.Attempts = attempts
			}
		})
		pending++
	}
	for ; pending > 0; pending-- {
		sel.Select(ctx)
	}

	var res pipeline.BuildResult
	if err := workflow.ExecuteActivity(ctx, a.Finalize, &bp, results).Get(ctx, &res); err != nil {
		return nil, deadLetter(ctx, in, StepFinalize, attempts, err)
	}
	log.Info("queue: build workflow finished", "person_id", res.PersonID, "status", string(res.Status))
	return &res, nil
}

// deadLetter records the failure and returns cause so the workflow fails.
func deadLetter(ctx workflow.Context, in BuildInput, step string, attempts int, cause error) error {
	dctx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	var a *Activities
	var appErr *temporal.ApplicationError
	permanent := errors.As(cause, &appErr) && appErr.Type() == invalidRequest
	err := workflow.ExecuteActivity(dctx, a.DeadLetter, DeadLetterInput{
		Request:   in.Request,
		Step:      step,
		Error:     cause.Error(),
		Attempts:  attempts,
		Permanent: permanent,
	}).Get(dctx, nil)
	if err != nil {
		workflow.GetLogger(ctx).Error("queue: dead letter not recorded", "error", err)
	}
	return cause
}
