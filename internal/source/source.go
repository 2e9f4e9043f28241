// Package source holds one adapter per upstream. Every adapter turns raw API
// responses into model.NormalizedItem values and reports failure as data in
// its model.DataSourceResult.
package source

import (
	"context"
	"strings"
	"time"

	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/normalize"
	"github.com/sells-group/profile-cli/internal/resilience"
)

// Confidence levels assigned at fetch time (0-100).
const (
	ConfidenceOfficial = 100
	ConfidenceHigh     = 80
	ConfidenceDefault  = 60
	ConfidenceLow      = 50
)

const (
	defaultMaxResults = 20
	maxTextRunes      = 20000
)

// Params is the input to a single adapter call.
type Params struct {
	Person       model.PersonContext
	Since        *time.Time
	ForceRefresh bool
	Handle       string
	ChannelID    string
	ExternalID   string
	QID          string
	SeedDomains  []string
	MaxResults   int
	NameFallback bool
}

// NewParams derives the default hints for a person.
func NewParams(pc model.PersonContext) Params {
	return Params{
		Person:       pc,
		ForceRefresh: pc.ForceRefresh,
		QID:          pc.QID,
		ExternalID:   pc.ORCID,
		SeedDomains:  pc.SeedDomains,
	}
}

// ForSource fills the source-specific hints and the incremental window.
func (p Params) ForSource(src model.SourceType) Params {
	switch src {
	case model.SourceGitHub:
		p.Handle = p.Person.GitHubHandle
	case model.SourceSocial:
		p.Handle = p.Person.XHandle
	case model.SourceYouTube:
		p.ChannelID = p.Person.YouTubeID
	case model.SourceScholar:
		p.ExternalID = p.Person.ORCID
	}
	if !p.ForceRefresh {
		if ts, ok := p.Person.LastFetchedAt[src]; ok && !ts.IsZero() {
			since := ts
			p.Since = &since
		}
	}
	return p
}

func (p Params) limit() int {
	if p.MaxResults > 0 {
		return p.MaxResults
	}
	return defaultMaxResults
}

// since returns the incremental cutoff unless a full refresh was asked for.
func (p Params) since() *time.Time {
	if p.ForceRefresh {
		return nil
	}
	return p.Since
}

// Adapter fetches one upstream for one person.
type Adapter interface {
	Source() model.SourceType
	// ShouldFetch is a cheap precondition check; no I/O.
	ShouldFetch(p Params) bool
	// Fetch never returns an error; failures are carried in the result.
	Fetch(ctx context.Context, p Params) model.DataSourceResult
}

// itemSpec is the adapter-facing input to newItem.
type itemSpec struct {
	url         string
	title       string
	text        string
	author      string
	publishedAt *time.Time
	official    bool
	confidence  int
	payload     model.Payload
}

// newItem builds a NormalizedItem with canonical URL and fingerprints.
func newItem(src model.SourceType, p Params, s itemSpec) model.NormalizedItem {
	canonical := normalize.CanonicalURL(s.url)
	text := normalize.Truncate(strings.TrimSpace(s.text), maxTextRunes)
	title := strings.TrimSpace(s.title)
	return model.NormalizedItem{
		PersonID:    p.Person.PersonID,
		Source:      src,
		URL:         canonical,
		URLHash:     normalize.URLHash(canonical),
		ContentHash: normalize.ContentHash(title, text),
		Title:       title,
		Text:        text,
		Author:      strings.TrimSpace(s.author),
		PublishedAt: s.publishedAt,
		FetchedAt:   time.Now().UTC(),
		IsOfficial:  s.official,
		Confidence:  s.confidence,
		Payload:     s.payload,
	}
}

// run times fn and converts its outcome into a result.
func run(ctx context.Context, src model.SourceType, fn func(ctx context.Context) ([]model.NormalizedItem, int, error)) model.DataSourceResult {
	start := time.Now()
	items, fetched, err := fn(ctx)
	var res model.DataSourceResult
	if err != nil {
		res = model.Fail(src, resilience.Kind(err), "%v", err)
	} else {
		res = model.OK(src, items)
	}
	res.Stats.Fetched = fetched
	res.Stats.Kept = len(items)
	res.Stats.DurationMs = time.Since(start).Milliseconds()
	res.Stats.Attempts = 1
	return res
}

// parseTime accepts the timestamp layouts the upstreams use.
func parseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02",
		"2006-01",
		"2006",
		time.RFC1123Z,
		time.RFC1123,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"Mon, 2 Jan 2006 15:04:05 MST",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}

func before(t *time.Time, cutoff *time.Time) bool {
	return t != nil && cutoff != nil && !t.After(*cutoff)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func firstTime(ts ...*time.Time) *time.Time {
	for _, t := range ts {
		if t != nil {
			return t
		}
	}
	return nil
}
