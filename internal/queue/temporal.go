package queue

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/config"
	"github.com/sells-group/profile-cli/internal/model"
)

// WorkflowID is the per-person workflow id. Starting a build for a person
// whose build is still running attaches to the running workflow.
func WorkflowID(personID string) string {
	return "person-build-" + personID
}

// Dial connects to the Temporal frontend described by cfg.
func Dial(cfg config.QueueConfig) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Host,
		Namespace: cfg.Namespace,
		Logger:    NewLogger(zap.L()),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "queue: dial temporal at %s", cfg.Host)
	}
	return c, nil
}

// TemporalQueue starts one BuildWorkflow per request.
type TemporalQueue struct {
	client      client.Client
	taskQueue   string
	maxAttempts int
	maxSources  int
}

// NewTemporal creates a queue over an existing client. The queue owns the
// client and closes it on Close.
func NewTemporal(c client.Client, cfg config.QueueConfig, maxSources int) *TemporalQueue {
	return &TemporalQueue{
		client:      c,
		taskQueue:   cfg.TaskQueue,
		maxAttempts: cfg.MaxAttempts,
		maxSources:  maxSources,
	}
}

// Enqueue starts the build workflow and returns its run id.
func (q *TemporalQueue) Enqueue(ctx context.Context, req model.BuildRequest) (string, error) {
	if err := ValidateRequest(req); err != nil {
		return "", err
	}
	run, err := q.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        WorkflowID(req.PersonID),
		TaskQueue: q.taskQueue,
	}, BuildWorkflow, BuildInput{
		Request:     req,
		MaxAttempts: q.maxAttempts,
		MaxSources:  q.maxSources,
	})
	if err != nil {
		return "", eris.Wrapf(err, "queue: start workflow for %s", req.PersonID)
	}
	zap.L().Info("queue: build workflow started",
		zap.String("person_id", req.PersonID),
		zap.String("workflow_id", run.GetID()),
		zap.String("run_id", run.GetRunID()),
	)
	return fmt.Sprintf("%s/%s", run.GetID(), run.GetRunID()), nil
}

// Close closes the client.
func (q *TemporalQueue) Close() error {
	q.client.Close()
	return nil
}

// NewWorker registers the build workflow and activities on the task queue.
// Activity slots are sized so every running build can fan out fully.
func NewWorker(c client.Client, cfg config.QueueConfig, maxSources int, acts *Activities) worker.Worker {
	builds := cfg.MaxConcurrentBuilds
	if builds <= 0 {
		builds = 1
	}
	if maxSources <= 0 {
		maxSources = defaultSourceFanOut
	}
	w := worker.New(c, cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     builds * maxSources,
		MaxConcurrentWorkflowTaskExecutionSize: builds,
	})
	w.RegisterWorkflow(BuildWorkflow)
	w.RegisterActivity(acts)
	return w
}
