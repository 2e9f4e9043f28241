package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/career"
	"github.com/sells-group/profile-cli/internal/config"
	"github.com/sells-group/profile-cli/internal/fetcher"
	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/pipeline"
	"github.com/sells-group/profile-cli/internal/qa"
	"github.com/sells-group/profile-cli/internal/queue"
	"github.com/sells-group/profile-cli/internal/scorer"
	"github.com/sells-group/profile-cli/internal/source"
	"github.com/sells-group/profile-cli/internal/store"
	anthropicpkg "github.com/sells-group/profile-cli/pkg/anthropic"
	"github.com/sells-group/profile-cli/pkg/jina"
	"github.com/sells-group/profile-cli/pkg/perplexity"
)

const defaultSQLitePath = "profile.db"

func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	switch c.Store.Driver {
	case "sqlite":
		dsn := c.Store.DatabaseURL
		if dsn == "" {
			dsn = defaultSQLitePath
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, c.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: c.Store.MaxConns,
			MinConns: c.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
}

// profileEnv holds the store, scorer and pipeline needed by the build,
// serve, worker and refresh commands.
type profileEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Scorer   *scorer.Scorer
}

// Close releases resources held by the environment.
func (pe *profileEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initEnv opens and migrates the store, builds the API clients, the source
// registry and the Pipeline. Callers should defer env.Close().
func initEnv(ctx context.Context, c *config.Config) (*profileEnv, error) {
	st, err := initStore(ctx, c)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	p, sc, err := newPipeline(c, st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return &profileEnv{Store: st, Pipeline: p, Scorer: sc}, nil
}

// newPipeline wires every pipeline dependency on top of st.
func newPipeline(c *config.Config, st store.Store) (*pipeline.Pipeline, *scorer.Scorer, error) {
	deps := sourceDeps(c)

	registry, err := source.NewDefaultRegistry(deps)
	if err != nil {
		return nil, nil, eris.Wrap(err, "build source registry")
	}

	lex, err := qa.LoadLexicon(c.QA.LexiconPath)
	if err != nil {
		return nil, nil, err
	}

	var opts []career.Option
	if c.Career.Locale != "" {
		tag, err := career.ParseLocale(c.Career.Locale)
		if err != nil {
			return nil, nil, err
		}
		if deps.Anthropic != nil {
			modelName := c.Career.Model
			if modelName == "" {
				modelName = c.Anthropic.HaikuModel
			}
			opts = append(opts, career.WithTranslator(career.NewAnthropicTranslator(deps.Anthropic, modelName), tag))
			zap.L().Info("career localization enabled", zap.String("locale", tag.String()))
		} else {
			zap.L().Warn("career locale set without anthropic key, localization disabled")
		}
	}

	sc := scorer.New(c.Scorer)
	p := pipeline.New(c, st, registry, qa.NewStage(qa.NewVerifier(lex)), career.NewBuilder(st, opts...), sc)
	return p, sc, nil
}

// sourceDeps builds the shared adapter collaborators. Clients whose key is
// missing stay nil so their adapters skip.
func sourceDeps(c *config.Config) source.Deps {
	d := source.Deps{
		HTTP: fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			Timeout: time.Duration(c.Pipeline.SourceTimeoutSecs) * time.Second,
		}),
		Keys: source.Credentials{
			GitHubToken:  c.GitHub.Token,
			YouTubeKey:   c.YouTube.Key,
			XBearerToken: c.X.Token,
			OpenAlexMail: c.OpenAlex.Mailto,
		},
		BaseURLs:           baseURLs(c),
		KnowledgeModel:     c.Anthropic.HaikuModel,
		FallbackConfidence: c.Pipeline.FallbackConfidence,
	}

	if c.Jina.Key != "" {
		opts := []jina.Option{}
		if c.Jina.BaseURL != "" {
			opts = append(opts, jina.WithReaderBaseURL(c.Jina.BaseURL))
		}
		if c.Jina.SearchBaseURL != "" {
			opts = append(opts, jina.WithSearchBaseURL(c.Jina.SearchBaseURL))
		}
		d.Jina = jina.NewClient(c.Jina.Key, opts...)
	} else {
		zap.L().Debug("PROFILE_JINA_KEY not set, web_search disabled")
	}

	if c.Perplexity.Key != "" {
		d.Perplexity = perplexity.NewClient(c.Perplexity.Key,
			perplexity.WithBaseURL(c.Perplexity.BaseURL),
			perplexity.WithModel(c.Perplexity.Model),
		)
	} else {
		zap.L().Debug("PROFILE_PERPLEXITY_KEY not set, web_qa disabled")
	}

	if c.Anthropic.Key != "" {
		d.Anthropic = anthropicpkg.NewClient(c.Anthropic.Key, anthropicpkg.WithHTTPClient(&http.Client{Timeout: 2 * time.Minute}))
	} else {
		zap.L().Debug("PROFILE_ANTHROPIC_KEY not set, knowledge disabled")
	}
	return d
}

func baseURLs(c *config.Config) map[model.SourceType]string {
	out := map[model.SourceType]string{}
	set := func(src model.SourceType, u string) {
		if u != "" {
			out[src] = u
		}
	}
	set(model.SourceWikidata, c.Wikidata.BaseURL)
	set(model.SourceEncyclopedia, c.Wikipedia.BaseURL)
	set(model.SourceGitHub, c.GitHub.BaseURL)
	set(model.SourceYouTube, c.YouTube.BaseURL)
	set(model.SourcePodcast, c.Podcast.BaseURL)
	set(model.SourceScholar, c.OpenAlex.BaseURL)
	set(model.SourceSocial, c.X.BaseURL)
	return out
}

// initQueue returns the queue selected by config. The local queue runs
// builds on env's pipeline in this process.
func initQueue(c *config.Config, env *profileEnv) (queue.Queue, error) {
	switch c.Queue.Driver {
	case "temporal":
		tc, err := queue.Dial(c.Queue)
		if err != nil {
			return nil, err
		}
		return queue.NewTemporal(tc, c.Queue, c.Pipeline.MaxConcurrentSources), nil
	case "", "local":
		return queue.NewLocal(env.Pipeline, env.Store, c.Queue.MaxConcurrentBuilds, c.Queue.MaxAttempts), nil
	default:
		return nil, eris.Errorf("unsupported queue driver: %s", c.Queue.Driver)
	}
}
