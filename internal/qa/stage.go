package qa

import (
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/normalize"
)

const (
	maxTextRunes  = 20000
	maxTitleRunes = 80
)

// Fix identifiers recorded in the report.
const (
	FixPublishedAt = "missing_published_at"
	FixTitle       = "empty_title"
	FixTruncated   = "text_truncated"
	FixURL         = "url_canonicalized"
)

// Input is one QA batch.
type Input struct {
	Person model.PersonContext
	Items  []model.NormalizedItem
	// Stored maps url hash to content hash for items already persisted.
	Stored    map[string]string
	Threshold float64
}

// Outcome splits a batch by what the caller must persist.
type Outcome struct {
	// Approved are new items to insert, repaired where needed.
	Approved []model.NormalizedItem
	// Updated are stored items whose content changed.
	Updated []model.NormalizedItem
	Report  model.QAReport
}

// Stage runs dedupe, repair and verification over a batch.
type Stage struct {
	verifier *Verifier
}

// NewStage creates a QA stage.
func NewStage(v *Verifier) *Stage {
	return &Stage{verifier: v}
}

// Run classifies every item in the batch.
func (s *Stage) Run(in Input) Outcome {
	threshold := in.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	var out Outcome
	fixes := make(map[string][]string)
	var order []string
	batch := make(map[string]model.NormalizedItem)

	for _, it := range in.Items {
		if strings.TrimSpace(it.URL) == "" {
			out.Report.Rejected++
			out.Report.Rejections = append(out.Report.Rejections, model.Rejection{
				Source: it.Source,
				Kind:   model.KindValidation,
				Reason: "empty_url",
			})
			continue
		}
		applied := repair(&it)

		prev, seen := batch[it.URLHash]
		if !seen {
			order = append(order, it.URLHash)
		} else if prev.IsOfficial && !it.IsOfficial {
			continue
		}
		batch[it.URLHash] = it
		fixes[it.URLHash] = applied
	}

	for _, hash := range order {
		it := batch[hash]
		if stored, ok := in.Stored[hash]; ok {
			if stored == it.ContentHash {
				out.Report.Unchanged++
				continue
			}
			out.Report.Updated++
			out.Updated = append(out.Updated, it)
			continue
		}

		verdict := s.verifier.Verify(in.Person, it, threshold)
		if !verdict.Accepted {
			out.Report.Rejected++
			out.Report.Rejections = append(out.Report.Rejections, model.Rejection{
				URLHash:    hash,
				URL:        it.URL,
				Source:     it.Source,
				Kind:       model.KindIdentityRejected,
				Reason:     verdict.Reason,
				Confidence: verdict.Score,
			})
			zap.L().Debug("qa: item rejected",
				zap.String("person_id", in.Person.PersonID),
				zap.String("source", string(it.Source)),
				zap.String("url_hash", hash),
				zap.String("reason", verdict.Reason),
			)
			continue
		}

		if !it.IsOfficial {
			it.Confidence = int(math.Round(verdict.Score * 100))
		}
		if applied := fixes[hash]; len(applied) > 0 {
			out.Report.Fixed++
			for _, f := range applied {
				out.Report.Fixes = append(out.Report.Fixes, model.Fix{URLHash: hash, Issue: f})
			}
		} else {
			out.Report.Approved++
		}
		out.Approved = append(out.Approved, it)
	}
	return out
}

// repair fixes cheap issues in place and returns the fixes applied.
func repair(it *model.NormalizedItem) []string {
	var applied []string
	if canonical := normalize.CanonicalURL(it.URL); canonical != it.URL {
		it.URL = canonical
		applied = append(applied, FixURL)
	}
	if hash := normalize.URLHash(it.URL); hash != it.URLHash {
		it.URLHash = hash
	}
	if it.PublishedAt == nil && !it.FetchedAt.IsZero() {
		ts := it.FetchedAt
		it.PublishedAt = &ts
		applied = append(applied, FixPublishedAt)
	}
	if strings.TrimSpace(it.Title) == "" && strings.TrimSpace(it.Text) != "" {
		it.Title = strings.TrimSpace(normalize.Truncate(strings.TrimSpace(it.Text), maxTitleRunes))
		applied = append(applied, FixTitle)
	}
	if truncated := normalize.Truncate(it.Text, maxTextRunes); truncated != it.Text {
		it.Text = truncated
		applied = append(applied, FixTruncated)
	}
	if len(applied) > 0 {
		it.ContentHash = normalize.ContentHash(it.Title, it.Text)
	}
	return applied
}
