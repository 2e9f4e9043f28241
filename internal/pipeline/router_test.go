package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/profile-cli/internal/model"
)

func janeDoeContext() model.PersonContext {
	return model.PersonContext{
		PersonID:    "p-1",
		Name:        "Jane Doe",
		Occupations: []string{"engineer"},
		QID:         "Q999",
	}
}

func enabledSources(p Plan) []model.SourceType {
	var out []model.SourceType
	for _, e := range p.Enabled() {
		out = append(out, e.Source)
	}
	return out
}

func TestRouteJaneDoe(t *testing.T) {
	plan := NewRouter(0.6).Route(janeDoeContext())

	assert.InDelta(t, 0.6, plan.Threshold, 0.001)
	assert.Equal(t, []model.SourceType{
		model.SourceWikidata,
		model.SourceEncyclopedia,
		model.SourceWebSearch,
		model.SourceSocial,
		model.SourcePodcast,
	}, enabledSources(plan))

	scholar, ok := plan.Entry(model.SourceScholar)
	require.True(t, ok)
	assert.False(t, scholar.Enabled)
	assert.Equal(t, ReasonMissingIdentifier, scholar.Reason)

	github, _ := plan.Entry(model.SourceGitHub)
	assert.False(t, github.Enabled)
	assert.Equal(t, ReasonMissingHandle, github.Reason)

	social, _ := plan.Entry(model.SourceSocial)
	assert.True(t, social.NameFallback)

	knowledge, _ := plan.Entry(model.SourceKnowledge)
	assert.False(t, knowledge.Enabled)
	assert.Equal(t, "COST_GUARD", knowledge.Reason)
}

func TestRouteOrdering(t *testing.T) {
	plan := NewRouter(0.6).Route(janeDoeContext())
	require.Len(t, plan.Entries, len(model.AllSources()))

	seenDisabled := false
	last := 0
	for _, e := range plan.Entries {
		if !e.Enabled {
			if !seenDisabled {
				last = 0
			}
			seenDisabled = true
		} else {
			assert.False(t, seenDisabled, "enabled entries come first")
		}
		assert.Greater(t, e.Priority, last)
		last = e.Priority
	}
}

func TestRouteFullyIdentified(t *testing.T) {
	pc := janeDoeContext()
	pc.ORCID = "0000-0002-1825-0097"
	pc.GitHubHandle = "jdoe"
	pc.XHandle = "janedoe"
	pc.YouTubeID = "UC123"
	pc.ForceRefresh = true

	plan := NewRouter(0.7).Route(pc)
	assert.Len(t, plan.Enabled(), len(model.AllSources()))

	social, _ := plan.Entry(model.SourceSocial)
	assert.False(t, social.NameFallback)
	assert.Equal(t, ReasonIdentified, social.Reason)
}

func TestRouteSubset(t *testing.T) {
	plan := NewRouter(0.6, model.SourcePodcast, model.SourceGitHub).Route(janeDoeContext())
	require.Len(t, plan.Entries, 2)
	assert.Equal(t, model.SourcePodcast, plan.Entries[0].Source)
	assert.False(t, plan.Entries[1].Enabled)

	_, ok := plan.Entry(model.SourceWikidata)
	assert.False(t, ok)
}
