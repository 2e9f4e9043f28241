package qa

import (
	"fmt"
	"math"
	"strings"

	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/normalize"
)

// Signal weights on the 0-1 scale.
const (
	baseScore        = 0.5
	weightIdentifier = 0.40
	weightOrg        = 0.15
	weightOccupation = 0.10
	weightPositive   = 0.05
	weightNegative   = -0.30
	weightAuthor     = 0.10
)

// DefaultThreshold is the acceptance threshold for non-official items.
const DefaultThreshold = 0.6

// Verdict is the outcome of verifying one item.
type Verdict struct {
	Score    float64  `json:"score"`
	Accepted bool     `json:"accepted"`
	Reason   string   `json:"reason,omitempty"`
	Signals  []string `json:"signals,omitempty"`
}

// Verifier scores how likely an item is about the target person rather than
// a namesake.
type Verifier struct {
	lex *Lexicon
}

// NewVerifier creates a verifier over lex.
func NewVerifier(lex *Lexicon) *Verifier {
	return &Verifier{lex: lex}
}

// Verify scores it against pc. Official items are accepted without scoring.
func (v *Verifier) Verify(pc model.PersonContext, it model.NormalizedItem, threshold float64) Verdict {
	if it.IsOfficial {
		return Verdict{Score: 1, Accepted: true, Signals: []string{"official"}}
	}

	body := newText(it.Title + "\n" + it.Text)
	score := baseScore
	var signals []string
	var reason string

	identified := false
	for _, id := range []string{pc.QID, pc.ORCID} {
		if id != "" && body.hasPhrase(id) {
			score += weightIdentifier
			signals = append(signals, "identifier")
			identified = true
			break
		}
	}
	for _, org := range pc.Organizations {
		if body.hasPhrase(org) {
			score += weightOrg
			signals = append(signals, "organization")
			break
		}
	}
	for _, occ := range pc.Occupations {
		if body.hasPhrase(occ) {
			score += weightOccupation
			signals = append(signals, "occupation")
			break
		}
	}
	if v.lex.positiveMatch(body) {
		score += weightPositive
		signals = append(signals, "positive")
	}
	// Only an identifier literal outweighs a negative category.
	if cat, ok := v.lex.negativeMatch(body); ok {
		score += weightNegative
		signals = append(signals, "negative:"+cat)
		if !identified {
			reason = "negative:" + cat
		}
	}
	if author := normalize.Compact(it.Author); author != "" {
		for _, name := range pc.Names() {
			if n := normalize.Compact(name); n != "" && strings.Contains(author, n) {
				score += weightAuthor
				signals = append(signals, "author")
				break
			}
		}
	}

	score = math.Round(math.Max(0, math.Min(1, score))*100) / 100
	if reason == "" && score < threshold {
		reason = fmt.Sprintf("low_confidence:%.2f", score)
	}
	return Verdict{Score: score, Accepted: reason == "", Reason: reason, Signals: signals}
}
