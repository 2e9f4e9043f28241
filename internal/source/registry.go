package source

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/profile-cli/internal/fetcher"
	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/pkg/anthropic"
	"github.com/sells-group/profile-cli/pkg/jina"
	"github.com/sells-group/profile-cli/pkg/perplexity"
)

// Credentials holds per-source API keys. An empty key disables the source
// through its ShouldFetch check.
type Credentials struct {
	GitHubToken  string
	YouTubeKey   string
	XBearerToken string
	OpenAlexMail string
}

// Deps are the shared collaborators handed to every factory.
type Deps struct {
	HTTP       fetcher.Fetcher
	Jina       jina.Client
	Anthropic  anthropic.Client
	Perplexity perplexity.Client
	Keys       Credentials
	// BaseURLs overrides upstream endpoints, e.g. for mirrors or tests.
	BaseURLs           map[model.SourceType]string
	KnowledgeModel     string
	FallbackConfidence int
}

func (d Deps) baseURL(src model.SourceType, def string) string {
	if u := d.BaseURLs[src]; u != "" {
		return u
	}
	return def
}

// Factory builds one adapter from the shared deps.
type Factory func(d Deps) Adapter

// DefaultFactories returns a factory for every supported source.
func DefaultFactories() []Factory {
	return []Factory{
		func(d Deps) Adapter { return NewWikidata(d.HTTP, d.baseURL(model.SourceWikidata, wikidataBaseURL)) },
		func(d Deps) Adapter { return NewEncyclopedia(d.HTTP, d.BaseURLs[model.SourceEncyclopedia]) },
		func(d Deps) Adapter {
			return NewGitHub(d.HTTP, d.baseURL(model.SourceGitHub, githubBaseURL), d.Keys.GitHubToken)
		},
		func(d Deps) Adapter {
			return NewYouTube(d.HTTP, d.baseURL(model.SourceYouTube, youtubeBaseURL), d.Keys.YouTubeKey)
		},
		func(d Deps) Adapter { return NewPodcast(d.HTTP, d.baseURL(model.SourcePodcast, podcastBaseURL)) },
		func(d Deps) Adapter {
			return NewScholar(d.HTTP, d.baseURL(model.SourceScholar, openAlexBaseURL), d.Keys.OpenAlexMail)
		},
		func(d Deps) Adapter { return NewWebSearch(d.Jina) },
		func(d Deps) Adapter {
			return NewSocial(d.HTTP, d.baseURL(model.SourceSocial, xBaseURL), d.Keys.XBearerToken, d.FallbackConfidence)
		},
		func(d Deps) Adapter { return NewKnowledge(d.Anthropic, d.KnowledgeModel) },
		func(d Deps) Adapter { return NewWebQA(d.Perplexity) },
	}
}

// Registry is a static dispatch table from source to adapter. It is built
// once at startup and never mutated afterwards.
type Registry struct {
	adapters map[model.SourceType]Adapter
}

// NewRegistry builds a registry from factories. Two factories producing the
// same source is an error.
func NewRegistry(d Deps, factories ...Factory) (*Registry, error) {
	r := &Registry{adapters: make(map[model.SourceType]Adapter, len(factories))}
	for _, f := range factories {
		a := f(d)
		if a == nil {
			continue
		}
		src := a.Source()
		if !src.Valid() {
			return nil, eris.Errorf("source: unknown source type %q", src)
		}
		if _, dup := r.adapters[src]; dup {
			return nil, eris.Errorf("source: duplicate adapter for %s", src)
		}
		r.adapters[src] = a
	}
	return r, nil
}

// NewDefaultRegistry builds the registry with every supported adapter.
func NewDefaultRegistry(d Deps) (*Registry, error) {
	return NewRegistry(d, DefaultFactories()...)
}

// Get returns the adapter for src.
func (r *Registry) Get(src model.SourceType) (Adapter, bool) {
	a, ok := r.adapters[src]
	return a, ok
}

// Sources lists registered sources in priority order.
func (r *Registry) Sources() []model.SourceType {
	order := make(map[model.SourceType]int)
	for i, s := range model.AllSources() {
		order[s] = i
	}
	out := make([]model.SourceType, 0, len(r.adapters))
	for s := range r.adapters {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return order[out[i]] < order[out[j]] })
	return out
}

// Len returns the number of registered adapters.
func (r *Registry) Len() int {
	return len(r.adapters)
}
