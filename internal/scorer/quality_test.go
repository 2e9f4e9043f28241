package scorer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/profile-cli/internal/config"
	"github.com/sells-group/profile-cli/internal/model"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestScorer(decay float64) *Scorer {
	s := New(config.ScorerConfig{FreshnessDecayPerWeek: decay})
	s.now = func() time.Time { return fixedNow }
	return s
}

func basicPerson() *model.Person {
	return &model.Person{
		ID:            "p-1",
		Name:          "Jane Doe",
		AvatarURL:     "https://img.example.com/jane.png",
		Description:   "Engineer",
		Occupations:   []string{"engineer"},
		Organizations: []string{"Acme"},
		UpdatedAt:     fixedNow.AddDate(0, 0, -30),
	}
}

func TestScoreBasicInfoOnly(t *testing.T) {
	t.Parallel()

	b := newTestScorer(DefaultFreshnessDecay).Score(basicPerson(), nil)
	assert.InDelta(t, 30, b.BasicInfo, 0.001)
	assert.Zero(t, b.OfficialLinks)
	assert.Zero(t, b.ContentRichness)
	assert.InDelta(t, 9.29, b.Freshness, 0.01)
	assert.Equal(t, 39, b.Total)
	assert.Equal(t, "D", b.Grade)
}

func TestScoreFullProfile(t *testing.T) {
	t.Parallel()

	p := basicPerson()
	p.OfficialLinks = []model.OfficialLink{
		{Type: model.LinkX, URL: "https://x.com/janedoe", Handle: "janedoe"},
		{Type: model.LinkGitHub, URL: "https://github.com/jdoe"},
		{Type: model.LinkWebsite, URL: "https://janedoe.dev"},
	}
	p.LastFetchedAt = map[model.SourceType]time.Time{model.SourceGitHub: fixedNow}

	counts := map[model.SourceType]int{
		model.SourceSocial:       25,
		model.SourceYouTube:      5,
		model.SourceGitHub:       7,
		model.SourceScholar:      6,
		model.SourceEncyclopedia: 1,
		model.SourceWikidata:     1,
		model.SourceWebSearch:    12,
		model.SourcePodcast:      40,
	}
	b := newTestScorer(DefaultFreshnessDecay).Score(p, counts)
	assert.InDelta(t, 20, b.OfficialLinks, 0.001)
	assert.InDelta(t, 30, b.ContentRichness, 0.001)
	assert.InDelta(t, 20, b.Freshness, 0.001)
	assert.Equal(t, 100, b.Total)
	assert.Equal(t, "A", b.Grade)
	assert.Equal(t, 14, b.ContentCounts["cards"])
}

func TestScorePartialContent(t *testing.T) {
	t.Parallel()

	p := &model.Person{ID: "p-2", Name: "John Roe"}
	p.OfficialLinks = []model.OfficialLink{{Type: model.LinkX, URL: "https://x.com/jroe"}}

	b := newTestScorer(DefaultFreshnessDecay).Score(p, map[model.SourceType]int{
		model.SourceSocial: 5,
		model.SourceGitHub: 1,
	})
	assert.Zero(t, b.OfficialLinks, "x link without handle is not verified")
	assert.InDelta(t, 3+2, b.ContentRichness, 0.001)
	assert.Zero(t, b.Freshness, "no update time means no freshness")
	assert.Equal(t, 5, b.Total)
	assert.Equal(t, "F", b.Grade)
}

func TestScoreFreshnessDecay(t *testing.T) {
	t.Parallel()

	p := &model.Person{ID: "p-3", UpdatedAt: fixedNow.AddDate(0, 0, -14)}
	assert.InDelta(t, 15, newTestScorer(2.5).Score(p, nil).Freshness, 0.001)
	assert.InDelta(t, 18, newTestScorer(1).Score(p, nil).Freshness, 0.001)
	assert.InDelta(t, 20, newTestScorer(0).Score(p, nil).Freshness, 0.001)

	p.UpdatedAt = fixedNow.AddDate(-1, 0, 0)
	assert.Zero(t, newTestScorer(2.5).Score(p, nil).Freshness)
}

func TestScoreUsesLatestFetch(t *testing.T) {
	t.Parallel()

	p := &model.Person{
		UpdatedAt: fixedNow.AddDate(0, -6, 0),
		LastFetchedAt: map[model.SourceType]time.Time{
			model.SourceWikidata: fixedNow.AddDate(0, 0, -70),
			model.SourceGitHub:   fixedNow.AddDate(0, 0, -7),
		},
	}
	b := newTestScorer(2.5).Score(p, nil)
	assert.InDelta(t, 7, b.DaysSinceUpdate, 0.001)
	assert.InDelta(t, 17.5, b.Freshness, 0.001)
}

func TestGrade(t *testing.T) {
	t.Parallel()

	tests := []struct {
		total int
		want  string
	}{
		{100, "A"}, {90, "A"}, {89, "B"}, {70, "B"}, {69, "C"},
		{50, "C"}, {49, "D"}, {30, "D"}, {29, "F"}, {0, "F"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Grade(tt.total), "total %d", tt.total)
	}
}

func TestNewNegativeDecayFallsBack(t *testing.T) {
	t.Parallel()

	s := New(config.ScorerConfig{FreshnessDecayPerWeek: -3})
	assert.InDelta(t, DefaultFreshnessDecay, s.cfg.FreshnessDecayPerWeek, 0.001)
	assert.InDelta(t, DefaultFreshnessDecay, DefaultScorerConfig().FreshnessDecayPerWeek, 0.001)
}

type countStub struct {
	counts map[model.SourceType]int
	err    error
}

func (c countStub) CountItems(context.Context, string) (map[model.SourceType]int, error) {
	return c.counts, c.err
}

func TestScorePerson(t *testing.T) {
	t.Parallel()

	s := newTestScorer(DefaultFreshnessDecay)
	b, err := s.ScorePerson(context.Background(), countStub{counts: map[model.SourceType]int{model.SourceYouTube: 5}}, basicPerson())
	require.NoError(t, err)
	assert.InDelta(t, 6, b.ContentRichness, 0.001)

	_, err = s.ScorePerson(context.Background(), countStub{err: errors.New("db down")}, basicPerson())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scorer: count items")
}
