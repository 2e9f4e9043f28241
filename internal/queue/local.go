package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/resilience"
)

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("queue: closed")

type job struct {
	id  string
	req model.BuildRequest
}

// LocalQueue runs builds on a fixed pool of goroutines. Failed builds are
// retried with backoff and dead-lettered once the attempt budget is spent.
type LocalQueue struct {
	builder Builder
	dlq     DeadLetters
	retry   resilience.RetryConfig
	jobs    chan job
	ctx     context.Context
	cancel  context.CancelFunc
	g       *errgroup.Group

	mu     sync.RWMutex
	closed bool
}

// NewLocal starts workers build workers. maxAttempts counts the first try.
func NewLocal(builder Builder, dlq DeadLetters, workers, maxAttempts int) *LocalQueue {
	if workers <= 0 {
		workers = 1
	}
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = maxAttempts
	retry.InitialBackoff = 2 * time.Second
	retry.ShouldRetry = func(err error) bool {
		var ve *resilience.ValidationError
		return !errors.As(err, &ve)
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &LocalQueue{
		builder: builder,
		dlq:     dlq,
		retry:   retry,
		jobs:    make(chan job, workers*4),
		ctx:     ctx,
		cancel:  cancel,
		g:       &errgroup.Group{},
	}
	for range workers {
		q.g.Go(func() error {
			for j := range q.jobs {
				q.run(j)
			}
			return nil
		})
	}
	return q
}

// Enqueue hands req to the pool. It blocks while the buffer is full.
func (q *LocalQueue) Enqueue(ctx context.Context, req model.BuildRequest) (string, error) {
	if err := ValidateRequest(req); err != nil {
		return "", err
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return "", ErrClosed
	}

	j := job{id: uuid.New().String(), req: req}
	select {
	case q.jobs <- j:
		zap.L().Debug("queue: build enqueued", zap.String("job_id", j.id), zap.String("person_id", req.PersonID))
		return j.id, nil
	case <-ctx.Done():
		return "", eris.Wrap(ctx.Err(), "queue: enqueue")
	}
}

// Close drains queued jobs and waits for the workers to exit.
func (q *LocalQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	err := q.g.Wait()
	q.cancel()
	return err
}

func (q *LocalQueue) run(j job) {
	log := zap.L().With(zap.String("job_id", j.id), zap.String("person_id", j.req.PersonID))

	retry := q.retry
	retry.OnRetry = resilience.RetryLogger("queue", StepBuild)

	attempts := 0
	res, err := resilience.DoVal(q.ctx, retry, func(ctx context.Context) (model.PersonStatus, error) {
		attempts++
		r, err := q.builder.Build(ctx, j.req)
		if err != nil {
			return "", err
		}
		return r.Status, nil
	})
	if err == nil {
		log.Info("queue: build finished", zap.String("status", string(res)), zap.Int("attempts", attempts))
		clearDeadLetters(context.WithoutCancel(q.ctx), q.dlq, j.req.PersonID)
		return
	}

	log.Error("queue: build failed", zap.Error(err), zap.Int("attempts", attempts))
	if q.dlq == nil {
		return
	}
	entry := newDLQEntry(DeadLetterID(StepBuild, j.req.PersonID), j.req, StepBuild, resilience.ClassifyError(err), err.Error())
	// The queue context may already be cancelled on shutdown.
	if dlqErr := q.dlq.EnqueueDLQ(context.WithoutCancel(q.ctx), entry); dlqErr != nil {
		log.Error("queue: dead letter not recorded", zap.Error(dlqErr))
	}
}
