package pipeline

import (
	"sort"

	"github.com/sells-group/profile-cli/internal/model"
)

// Reasons recorded on plan entries.
const (
	ReasonMissingIdentifier = "missing identifier"
	ReasonMissingHandle     = "missing handle"
	ReasonNameFallback      = "name fallback"
	ReasonAlwaysOn          = "always enabled"
	ReasonIdentified        = "identified"
)

// sourcePriority orders sources inside a plan. Lower runs first.
var sourcePriority = map[model.SourceType]int{
	model.SourceWikidata:     1,
	model.SourceEncyclopedia: 2,
	model.SourceGitHub:       3,
	model.SourceYouTube:      4,
	model.SourceScholar:      5,
	model.SourceWebSearch:    6,
	model.SourceSocial:       7,
	model.SourcePodcast:      8,
	model.SourceKnowledge:    9,
	model.SourceWebQA:        10,
}

// PlanEntry is the router's decision for one source.
type PlanEntry struct {
	Source       model.SourceType `json:"source"`
	Priority     int              `json:"priority"`
	Enabled      bool             `json:"enabled"`
	NameFallback bool             `json:"name_fallback,omitempty"`
	Reason       string           `json:"reason"`
}

// Plan is the ordered routing decision plus the QA threshold for
// non-official items.
type Plan struct {
	Entries   []PlanEntry `json:"entries"`
	Threshold float64     `json:"threshold"`
}

// Enabled returns the entries that should run, in priority order.
func (p Plan) Enabled() []PlanEntry {
	var out []PlanEntry
	for _, e := range p.Entries {
		if e.Enabled {
			out = append(out, e)
		}
	}
	return out
}

// Entry returns the plan entry for src.
func (p Plan) Entry(src model.SourceType) (PlanEntry, bool) {
	for _, e := range p.Entries {
		if e.Source == src {
			return e, true
		}
	}
	return PlanEntry{}, false
}

// Router decides which sources run for a person. Pure Go, no I/O.
type Router struct {
	threshold float64
	sources   []model.SourceType
}

// NewRouter creates a router over the given sources. With no sources it
// routes every known source.
func NewRouter(threshold float64, sources ...model.SourceType) *Router {
	if len(sources) == 0 {
		sources = model.AllSources()
	}
	return &Router{threshold: threshold, sources: sources}
}

// Route builds the plan for pc. Enabled entries come first, each group in
// ascending priority.
func (r *Router) Route(pc model.PersonContext) Plan {
	plan := Plan{Threshold: r.threshold}
	for _, src := range r.sources {
		e := PlanEntry{Source: src, Priority: sourcePriority[src]}
		e.Enabled, e.NameFallback, e.Reason = decide(src, pc)
		plan.Entries = append(plan.Entries, e)
	}
	sort.SliceStable(plan.Entries, func(i, j int) bool {
		a, b := plan.Entries[i], plan.Entries[j]
		if a.Enabled != b.Enabled {
			return a.Enabled
		}
		return a.Priority < b.Priority
	})
	return plan
}

// decide applies the routing rules for one source; the first rule that
// matches wins.
func decide(src model.SourceType, pc model.PersonContext) (enabled, fallback bool, reason string) {
	switch src {
	case model.SourceScholar:
		if pc.ORCID == "" {
			return false, false, ReasonMissingIdentifier
		}
		return true, false, ReasonIdentified
	case model.SourceWikidata:
		if pc.QID == "" {
			return false, false, ReasonMissingIdentifier
		}
		return true, false, ReasonIdentified
	case model.SourceGitHub:
		if pc.GitHubHandle == "" {
			return false, false, ReasonMissingHandle
		}
		return true, false, ReasonIdentified
	case model.SourceYouTube:
		if pc.YouTubeID == "" {
			return false, false, ReasonMissingHandle
		}
		return true, false, ReasonIdentified
	case model.SourceSocial:
		if pc.XHandle == "" {
			return true, true, ReasonNameFallback
		}
		return true, false, ReasonIdentified
	case model.SourceKnowledge, model.SourceWebQA:
		if !pc.ForceRefresh {
			return false, false, string(model.KindCostGuard)
		}
		return true, false, "force refresh"
	default:
		return true, false, ReasonAlwaysOn
	}
}
