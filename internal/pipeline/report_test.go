package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/profile-cli/internal/career"
	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/scorer"
)

func TestFormatReport(t *testing.T) {
	ok := model.OK(model.SourceWikidata, make([]model.NormalizedItem, 2))
	ok.Stats.DurationMs = 120
	failed := model.Fail(model.SourceWebSearch, model.KindAPI, "status 503")
	failed.Stats.Attempts = 3

	res := &BuildResult{
		PersonID:     "p-1",
		Status:       model.PersonStatusPartial,
		Completeness: 42,
		Score:        scorer.Breakdown{Grade: "C"},
		Persisted:    2,
		PersistFails: 1,
		Duration:     1500 * time.Millisecond,
		Results: []model.DataSourceResult{
			ok,
			failed,
			model.Skip(model.SourceGitHub, "precondition not met"),
		},
		QA: model.QAReport{
			Approved: 2,
			Rejected: 3,
			Rejections: []model.Rejection{
				{Reason: "negative:sports"},
				{Reason: "low_confidence:0.50"},
				{Reason: "low_confidence:0.55"},
			},
		},
		Career: career.Summary{Events: 2, OrgsCreated: 1, RolesInserted: 2},
	}

	report := FormatReport("Jane Doe", res)

	assert.Contains(t, report, "# Build Report: Jane Doe")
	assert.Contains(t, report, "Status: partial")
	assert.Contains(t, report, "Completeness: 42 (C)")
	assert.Contains(t, report, "Items persisted: 2 (1 failed)")
	assert.Contains(t, report, "wikidata: 2 items (120ms)")
	assert.Contains(t, report, "web_search: failed after 3 attempts")
	assert.Contains(t, report, "API_ERROR: status 503")
	assert.Contains(t, report, "github: skipped (precondition not met)")
	assert.Contains(t, report, "low_confidence: 2")
	assert.Contains(t, report, "negative:sports: 1")
	assert.Contains(t, report, "Roles inserted: 2")
}

func TestFormatReportEmpty(t *testing.T) {
	report := FormatReport("", &BuildResult{PersonID: "p-2", Status: model.PersonStatusReady})

	assert.Contains(t, report, "# Build Report: p-2")
	assert.Contains(t, report, "No sources ran.")
	assert.Contains(t, report, "No career events.")
}
