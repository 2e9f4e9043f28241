// Package scorer computes a person's completeness score from breadth-of-data
// signals.
package scorer

import (
	"context"
	"math"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/profile-cli/internal/config"
	"github.com/sells-group/profile-cli/internal/model"
)

// Category caps. They sum to 100.
const (
	BasicInfoMax       = 30.0
	OfficialLinksMax   = 20.0
	ContentRichnessMax = 30.0
	FreshnessMax       = 20.0
)

// DefaultFreshnessDecay is the freshness points lost per week without update.
const DefaultFreshnessDecay = 2.5

const (
	basicFieldPoints   = 7.5
	verifiedXPoints    = 10.0
	githubLinkPoints   = 5.0
	websiteLinkPoints  = 5.0
	contentPerCategory = 6.0
)

// contentTargets is the item count at which a content category is full.
var contentTargets = map[string]int{
	"posts":  10,
	"videos": 5,
	"repos":  3,
	"papers": 5,
	"cards":  10,
}

// contentCategory maps a source to its content richness bucket. Podcast
// items feed no bucket.
var contentCategory = map[model.SourceType]string{
	model.SourceSocial:       "posts",
	model.SourceYouTube:      "videos",
	model.SourceGitHub:       "repos",
	model.SourceScholar:      "papers",
	model.SourceEncyclopedia: "cards",
	model.SourceWikidata:     "cards",
	model.SourceWebSearch:    "cards",
	model.SourceKnowledge:    "cards",
	model.SourceWebQA:        "cards",
}

// Breakdown is the per-category result of a scoring pass.
type Breakdown struct {
	BasicInfo       float64        `json:"basic_info"`
	OfficialLinks   float64        `json:"official_links"`
	ContentRichness float64        `json:"content_richness"`
	Freshness       float64        `json:"freshness"`
	Total           int            `json:"total"`
	Grade           string         `json:"grade"`
	ContentCounts   map[string]int `json:"content_counts"`
	DaysSinceUpdate float64        `json:"days_since_update"`
}

// DefaultScorerConfig returns a config.ScorerConfig with the standard decay.
func DefaultScorerConfig() config.ScorerConfig {
	return config.ScorerConfig{FreshnessDecayPerWeek: DefaultFreshnessDecay}
}

// ItemCounter returns the number of stored items per source for a person.
type ItemCounter interface {
	CountItems(ctx context.Context, personID string) (map[model.SourceType]int, error)
}

// Scorer computes completeness scores.
type Scorer struct {
	cfg config.ScorerConfig
	now func() time.Time
}

// New creates a Scorer. A negative decay falls back to the default.
func New(cfg config.ScorerConfig) *Scorer {
	if cfg.FreshnessDecayPerWeek < 0 {
		cfg.FreshnessDecayPerWeek = DefaultFreshnessDecay
	}
	return &Scorer{cfg: cfg, now: time.Now}
}

// ScorePerson loads item counts from store and scores p.
func (s *Scorer) ScorePerson(ctx context.Context, store ItemCounter, p *model.Person) (Breakdown, error) {
	counts, err := store.CountItems(ctx, p.ID)
	if err != nil {
		return Breakdown{}, eris.Wrapf(err, "scorer: count items for %s", p.ID)
	}
	return s.Score(p, counts), nil
}

// Score computes the breakdown for p given its stored item counts.
func (s *Scorer) Score(p *model.Person, counts map[model.SourceType]int) Breakdown {
	b := Breakdown{
		BasicInfo:     scoreBasicInfo(p),
		OfficialLinks: scoreOfficialLinks(p),
		ContentCounts: bucketCounts(counts),
	}
	b.ContentRichness = scoreContent(b.ContentCounts)

	if last := lastUpdate(p); !last.IsZero() {
		b.DaysSinceUpdate = math.Max(0, s.now().Sub(last).Hours()/24)
		b.Freshness = math.Max(0, FreshnessMax-b.DaysSinceUpdate/7*s.cfg.FreshnessDecayPerWeek)
	}

	b.Total = int(math.Round(b.BasicInfo + b.OfficialLinks + b.ContentRichness + b.Freshness))
	b.Grade = Grade(b.Total)
	return b
}

// Grade maps a total to a letter band.
func Grade(total int) string {
	switch {
	case total >= 90:
		return "A"
	case total >= 70:
		return "B"
	case total >= 50:
		return "C"
	case total >= 30:
		return "D"
	default:
		return "F"
	}
}

func scoreBasicInfo(p *model.Person) float64 {
	var score float64
	if p.AvatarURL != "" {
		score += basicFieldPoints
	}
	if p.Description != "" {
		score += basicFieldPoints
	}
	if len(p.Occupations) > 0 {
		score += basicFieldPoints
	}
	if len(p.Organizations) > 0 {
		score += basicFieldPoints
	}
	return score
}

func scoreOfficialLinks(p *model.Person) float64 {
	var score float64
	if l, ok := p.Link(model.LinkX); ok && l.Handle != "" {
		score += verifiedXPoints
	}
	if _, ok := p.Link(model.LinkGitHub); ok {
		score += githubLinkPoints
	}
	if _, ok := p.Link(model.LinkWebsite); ok {
		score += websiteLinkPoints
	}
	return score
}

func bucketCounts(counts map[model.SourceType]int) map[string]int {
	out := make(map[string]int, len(contentTargets))
	for name := range contentTargets {
		out[name] = 0
	}
	for src, n := range counts {
		if name, ok := contentCategory[src]; ok {
			out[name] += n
		}
	}
	return out
}

func scoreContent(buckets map[string]int) float64 {
	var score float64
	for name, target := range contentTargets {
		score += math.Min(float64(buckets[name])/float64(target), 1) * contentPerCategory
	}
	return score
}

// lastUpdate is the most recent successful source fetch, or UpdatedAt when
// nothing was fetched yet.
func lastUpdate(p *model.Person) time.Time {
	var last time.Time
	for _, ts := range p.LastFetchedAt {
		if ts.After(last) {
			last = ts
		}
	}
	if last.IsZero() {
		return p.UpdatedAt
	}
	return last
}
