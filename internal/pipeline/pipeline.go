// Package pipeline routes, fetches, verifies and persists one person build.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/profile-cli/internal/career"
	"github.com/sells-group/profile-cli/internal/config"
	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/qa"
	"github.com/sells-group/profile-cli/internal/resilience"
	"github.com/sells-group/profile-cli/internal/scorer"
	"github.com/sells-group/profile-cli/internal/source"
	"github.com/sells-group/profile-cli/internal/store"
)

// BuildPlan is the output of the Plan step. It is passed by value between
// steps so a queue runtime can serialize it.
type BuildPlan struct {
	PersonID  string              `json:"person_id"`
	Context   model.PersonContext `json:"context"`
	Plan      Plan                `json:"plan"`
	StartedAt time.Time           `json:"started_at"`
}

// BuildResult summarizes a finished build.
type BuildResult struct {
	PersonID     string                   `json:"person_id"`
	Status       model.PersonStatus       `json:"status"`
	Completeness int                      `json:"completeness"`
	Score        scorer.Breakdown         `json:"score"`
	QA           model.QAReport           `json:"qa"`
	Career       career.Summary           `json:"career"`
	Persisted    int                      `json:"persisted"`
	PersistFails int                      `json:"persist_fails"`
	Results      []model.DataSourceResult `json:"results"`
	Duration     time.Duration            `json:"duration"`
}

// Pipeline orchestrates plan, fetch, QA, persistence, career and scoring.
type Pipeline struct {
	cfg      *config.Config
	store    store.Store
	registry *source.Registry
	router   *Router
	qa       *qa.Stage
	career   *career.Builder
	scorer   *scorer.Scorer
	breakers *resilience.SourceBreakers
	retry    resilience.RetryConfig
	now      func() time.Time
}

// New creates a Pipeline with all dependencies.
func New(
	cfg *config.Config,
	st store.Store,
	registry *source.Registry,
	stage *qa.Stage,
	builder *career.Builder,
	sc *scorer.Scorer,
) *Pipeline {
	retry := resilience.FromRetryConfig(cfg.Pipeline.RetryAttempts, cfg.Pipeline.RetryBackoffMs, 0)
	retry.ShouldRetry = func(err error) bool {
		return !errors.Is(err, resilience.ErrCircuitOpen) && resilience.Kind(err).Retryable()
	}

	return &Pipeline{
		cfg:      cfg,
		store:    st,
		registry: registry,
		router:   NewRouter(cfg.Pipeline.ConfidenceThreshold, registry.Sources()...),
		qa:       stage,
		career:   builder,
		scorer:   sc,
		breakers: resilience.NewSourceBreakers(resilience.FromCircuitConfig(cfg.Pipeline.BreakerThreshold, cfg.Pipeline.BreakerResetSecs)),
		retry:    retry,
		now:      time.Now,
	}
}

// Build runs every step inline: Plan, a bounded fan-out of FetchSource over
// the enabled sources, then Finalize.
func (p *Pipeline) Build(ctx context.Context, req model.BuildRequest) (*BuildResult, error) {
	bp, err := p.Plan(ctx, req)
	if err != nil {
		return nil, err
	}

	enabled := bp.Plan.Enabled()
	results := make([]model.DataSourceResult, len(enabled))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxConcurrentSources())
	for i, entry := range enabled {
		g.Go(func() error {
			results[i] = p.FetchSource(gCtx, bp, entry)
			return nil
		})
	}
	_ = g.Wait()

	return p.Finalize(ctx, bp, results)
}

// Plan seeds the person from req, marks it building and routes its sources.
func (p *Pipeline) Plan(ctx context.Context, req model.BuildRequest) (*BuildPlan, error) {
	if req.PersonID == "" {
		return nil, resilience.NewValidationError(eris.New("pipeline: build request has no person id"))
	}
	log := zap.L().With(zap.String("person_id", req.PersonID))

	person, err := p.store.GetPerson(ctx, req.PersonID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load person")
	}
	if person == nil {
		if req.PersonName == "" {
			return nil, resilience.NewValidationError(
				eris.Errorf("pipeline: person %s not found and request has no name", req.PersonID))
		}
		person = &model.Person{}
	}
	req.ApplyTo(person)
	if err := p.store.UpsertPerson(ctx, person); err != nil {
		return nil, eris.Wrap(err, "pipeline: upsert person")
	}
	if err := p.store.UpdatePersonStatus(ctx, person.ID, model.PersonStatusBuilding); err != nil {
		return nil, eris.Wrap(err, "pipeline: mark building")
	}

	pc := model.NewPersonContext(person, req.ForceRefresh)
	plan := p.router.Route(pc)

	log.Info("pipeline: planned build",
		zap.Int("enabled", len(plan.Enabled())),
		zap.Int("sources", len(plan.Entries)),
		zap.Bool("force_refresh", req.ForceRefresh),
	)
	return &BuildPlan{
		PersonID:  person.ID,
		Context:   pc,
		Plan:      plan,
		StartedAt: p.now().UTC(),
	}, nil
}

// FetchSource runs one adapter behind its circuit breaker, retrying only
// API errors. It never returns an error: failure is carried in the result.
func (p *Pipeline) FetchSource(ctx context.Context, bp *BuildPlan, entry PlanEntry) model.DataSourceResult {
	src := entry.Source
	log := zap.L().With(zap.String("person_id", bp.PersonID), zap.String("source", string(src)))

	adapter, ok := p.registry.Get(src)
	if !ok {
		return model.Skip(src, "no adapter registered")
	}
	params := source.NewParams(bp.Context).ForSource(src)
	params.NameFallback = entry.NameFallback
	params.MaxResults = p.cfg.Pipeline.MaxResults
	if !adapter.ShouldFetch(params) {
		log.Debug("pipeline: source precondition not met")
		return model.Skip(src, "precondition not met")
	}

	if secs := p.cfg.Pipeline.SourceTimeoutSecs; secs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(secs)*time.Second)
		defer cancel()
	}

	start := time.Now()
	retry := p.retry
	retry.OnRetry = resilience.RetryLogger(string(src), "fetch")
	breaker := p.breakers.Get(src)

	attempts := 0
	var last model.DataSourceResult
	_, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (model.DataSourceResult, error) {
		return resilience.ExecuteVal(ctx, breaker, func(ctx context.Context) (model.DataSourceResult, error) {
			attempts++
			last = adapter.Fetch(ctx, params)
			if last.Failed() {
				if last.Error == nil {
					last.Error = &model.SourceError{Kind: model.KindAPI, Message: "adapter failed without error"}
				}
				return last, last.Error
			}
			return last, nil
		})
	})

	res := last
	if errors.Is(err, resilience.ErrCircuitOpen) && attempts == 0 {
		res = model.Fail(src, model.KindAPI, "circuit breaker open")
	} else if err != nil && !res.Failed() {
		// The context ended before the adapter produced a result.
		res = model.Fail(src, resilience.Kind(err), "%v", err)
	}
	if res.Failed() && res.Error == nil {
		res.Error = &model.SourceError{Kind: resilience.Kind(err), Message: "no result"}
	}
	res.Source = src
	res.Stats.Attempts = attempts
	res.Stats.DurationMs = time.Since(start).Milliseconds()

	if res.Failed() {
		log.Warn("pipeline: source failed",
			zap.String("kind", string(res.Error.Kind)),
			zap.String("error", res.Error.Message),
			zap.Int("attempts", attempts),
		)
	} else {
		log.Info("pipeline: source fetched",
			zap.Int("items", len(res.Items)),
			zap.Int64("duration_ms", res.Stats.DurationMs),
		)
	}
	return res
}

// Finalize merges results, runs QA, persists items, builds the career graph,
// rescores the person and sets its status. On error the person is marked
// error so it does not stay building.
func (p *Pipeline) Finalize(ctx context.Context, bp *BuildPlan, results []model.DataSourceResult) (_ *BuildResult, err error) {
	log := zap.L().With(zap.String("person_id", bp.PersonID))
	out := &BuildResult{PersonID: bp.PersonID, Results: results}
	defer func() {
		if err != nil {
			p.markFailed(ctx, bp.PersonID, err)
		}
	}()

	var items []model.NormalizedItem
	fetched := make(map[model.SourceType]time.Time)
	attempted, failures := 0, 0
	for _, r := range results {
		if r.Skipped {
			continue
		}
		attempted++
		if r.Failed() {
			failures++
			continue
		}
		fetched[r.Source] = bp.StartedAt
		items = append(items, r.Items...)
	}

	stored, err := p.store.ItemHashes(ctx, bp.PersonID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load item hashes")
	}
	outcome := p.qa.Run(qa.Input{
		Person:    bp.Context,
		Items:     items,
		Stored:    stored,
		Threshold: bp.Plan.Threshold,
	})
	out.QA = outcome.Report

	var events []model.CareerEvent
	persist := append(append([]model.NormalizedItem(nil), outcome.Approved...), outcome.Updated...)
	for i := range persist {
		it := &persist[i]
		it.PersonID = bp.PersonID
		if err := p.store.UpsertItem(ctx, it); err != nil {
			out.PersistFails++
			log.Warn("pipeline: item not persisted",
				zap.String("url_hash", it.URLHash),
				zap.String("source", string(it.Source)),
				zap.Error(err),
			)
			continue
		}
		out.Persisted++
		if it.IsCareer() {
			events = append(events, it.Payload.Career.Events...)
		}
	}

	if len(events) > 0 {
		sum, err := p.career.Build(ctx, bp.PersonID, events)
		if err != nil {
			log.Error("pipeline: career build failed", zap.Error(err))
		}
		out.Career = sum
	}

	person, err := p.store.GetPerson(ctx, bp.PersonID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: reload person")
	}
	if person == nil {
		return nil, eris.Errorf("pipeline: person %s disappeared during build", bp.PersonID)
	}
	if person.LastFetchedAt == nil {
		person.LastFetchedAt = make(map[model.SourceType]time.Time, len(fetched))
	}
	for src, ts := range fetched {
		person.LastFetchedAt[src] = ts
	}
	score, err := p.scorer.ScorePerson(ctx, p.store, person)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: score person")
	}
	out.Score = score
	out.Completeness = score.Total
	out.Status = resolveStatus(attempted, failures)

	if err := p.store.FinishBuild(ctx, bp.PersonID, out.Status, out.Completeness, fetched); err != nil {
		return nil, eris.Wrap(err, "pipeline: finish build")
	}
	out.Duration = p.now().UTC().Sub(bp.StartedAt)

	log.Info("pipeline: build complete",
		zap.String("status", string(out.Status)),
		zap.Int("completeness", out.Completeness),
		zap.Int("attempted", attempted),
		zap.Int("failures", failures),
		zap.Int("approved", out.QA.Approved),
		zap.Int("fixed", out.QA.Fixed),
		zap.Int("rejected", out.QA.Rejected),
		zap.Int("persisted", out.Persisted),
	)
	return out, nil
}

// markFailed moves a person out of building after a failed finalize. It runs
// detached from ctx, which may be the reason the build failed.
func (p *Pipeline) markFailed(ctx context.Context, personID string, cause error) {
	if err := p.store.UpdatePersonStatus(context.WithoutCancel(ctx), personID, model.PersonStatusError); err != nil {
		zap.L().Error("pipeline: mark build failed",
			zap.String("person_id", personID),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
	}
}

// resolveStatus maps source failures onto a person status. Skipped sources
// do not count as attempted.
func resolveStatus(attempted, failures int) model.PersonStatus {
	switch {
	case failures == 0:
		return model.PersonStatusReady
	case failures*2 < attempted:
		return model.PersonStatusPartial
	default:
		return model.PersonStatusError
	}
}

func (p *Pipeline) maxConcurrentSources() int {
	if n := p.cfg.Pipeline.MaxConcurrentSources; n > 0 {
		return n
	}
	return 4
}
