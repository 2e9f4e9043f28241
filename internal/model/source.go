package model

// SourceType identifies an upstream content source. The set is closed.
type SourceType string

const (
	SourceWikidata     SourceType = "wikidata"
	SourceEncyclopedia SourceType = "encyclopedia"
	SourceGitHub       SourceType = "github"
	SourceYouTube      SourceType = "youtube"
	SourcePodcast      SourceType = "podcast"
	SourceScholar      SourceType = "scholar"
	SourceWebSearch    SourceType = "web_search"
	SourceSocial       SourceType = "social"
	SourceKnowledge    SourceType = "knowledge"
	SourceWebQA        SourceType = "web_qa"
)

// AllSources lists every source in default priority order.
func AllSources() []SourceType {
	return []SourceType{
		SourceWikidata,
		SourceEncyclopedia,
		SourceGitHub,
		SourceScholar,
		SourceYouTube,
		SourceSocial,
		SourceWebSearch,
		SourcePodcast,
		SourceWebQA,
		SourceKnowledge,
	}
}

// Valid reports whether s is a known source.
func (s SourceType) Valid() bool {
	for _, known := range AllSources() {
		if s == known {
			return true
		}
	}
	return false
}

// ErrorKind classifies a failure or a non-success outcome.
type ErrorKind string

const (
	// KindAPI is a network or HTTP failure; retryable.
	KindAPI ErrorKind = "API_ERROR"
	// KindValidation is a malformed upstream payload; not retryable.
	KindValidation ErrorKind = "VALIDATION_ERROR"
	// KindIdentityRejected is a QA rejection outcome.
	KindIdentityRejected ErrorKind = "IDENTITY_REJECTED"
	// KindCostGuard marks a source skipped by routing policy.
	KindCostGuard ErrorKind = "COST_GUARD"
)

// Retryable reports whether the kind is worth another attempt.
func (k ErrorKind) Retryable() bool {
	return k == KindAPI
}
