package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/scorer"
)

func TestRenderScoreTable(t *testing.T) {
	t.Parallel()

	p := &model.Person{ID: "p-1", Name: "Jane Doe"}
	b := scorer.Breakdown{
		BasicInfo:       22.5,
		OfficialLinks:   5,
		ContentRichness: 8.4,
		Freshness:       20,
		Total:           56,
		Grade:           "C",
		ContentCounts:   map[string]int{"repos": 2, "cards": 4},
	}
	out := renderScoreTable(p, b)

	for _, want := range []string{
		"Jane Doe (p-1)",
		"Basic info", "22.5",
		"Official links", "5.0",
		"Content richness", "8.4",
		"Freshness", "20.0",
		"repos", "cards",
		"56 (C)",
	} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "cards"), strings.Index(out, "repos"))
}

func TestFormatPoints(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0.0", formatPoints(0))
	assert.Equal(t, "7.5", formatPoints(7.5))
	assert.Equal(t, "8.3", formatPoints(8.333))
}
