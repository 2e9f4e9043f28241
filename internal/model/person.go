package model

import (
	"strings"
	"time"
)

// PersonStatus represents the lifecycle state of a profile.
type PersonStatus string

const (
	PersonStatusPending  PersonStatus = "pending"
	PersonStatusBuilding PersonStatus = "building"
	PersonStatusReady    PersonStatus = "ready"
	PersonStatusPartial  PersonStatus = "partial"
	PersonStatusError    PersonStatus = "error"
	PersonStatusDeleted  PersonStatus = "deleted"
)

// LinkType names the kind of an official link.
type LinkType string

const (
	LinkWebsite   LinkType = "website"
	LinkBlog      LinkType = "blog"
	LinkX         LinkType = "x"
	LinkGitHub    LinkType = "github"
	LinkYouTube   LinkType = "youtube"
	LinkORCID     LinkType = "orcid"
	LinkLinkedIn  LinkType = "linkedin"
	LinkPodcast   LinkType = "podcast"
	LinkWikipedia LinkType = "wikipedia"
)

// OfficialLink is a channel, handle or site owned by the person.
type OfficialLink struct {
	Type   LinkType `json:"type"`
	URL    string   `json:"url"`
	Handle string   `json:"handle,omitempty"`
}

// Person is a profile subject.
type Person struct {
	ID            string                   `json:"id"`
	Name          string                   `json:"name"`
	EnglishName   string                   `json:"english_name,omitempty"`
	Aliases       []string                 `json:"aliases,omitempty"`
	Description   string                   `json:"description,omitempty"`
	AvatarURL     string                   `json:"avatar_url,omitempty"`
	Occupations   []string                 `json:"occupations,omitempty"`
	Organizations []string                 `json:"organizations,omitempty"`
	OfficialLinks []OfficialLink           `json:"official_links,omitempty"`
	QID           string                   `json:"qid,omitempty"`
	ORCID         string                   `json:"orcid,omitempty"`
	Status        PersonStatus             `json:"status"`
	Completeness  int                      `json:"completeness"`
	LastFetchedAt map[SourceType]time.Time `json:"last_fetched_at,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

// Link returns the first official link of the given type.
func (p *Person) Link(t LinkType) (OfficialLink, bool) {
	for _, l := range p.OfficialLinks {
		if l.Type == t {
			return l, true
		}
	}
	return OfficialLink{}, false
}

// AddAliases appends aliases that are not already present. Comparison is
// case-insensitive and the first spelling seen wins.
func (p *Person) AddAliases(aliases ...string) {
	p.Aliases = UniqueStrings(append(p.Aliases, aliases...))
}

// UniqueStrings trims, drops empties and removes case-insensitive duplicates
// while keeping input order.
func UniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		k := strings.ToLower(s)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}

// BuildRequest is the trigger event consumed by the orchestrator.
type BuildRequest struct {
	PersonID      string         `json:"personId"`
	PersonName    string         `json:"personName"`
	EnglishName   string         `json:"englishName,omitempty"`
	QID           string         `json:"qid"`
	ORCID         string         `json:"orcid,omitempty"`
	OfficialLinks []OfficialLink `json:"officialLinks"`
	Aliases       []string       `json:"aliases"`
	ForceRefresh  bool           `json:"forceRefresh,omitempty"`
}

// ApplyTo merges the seed fields of the request into p. Empty request fields
// never clear existing values.
func (r BuildRequest) ApplyTo(p *Person) {
	if p.ID == "" {
		p.ID = r.PersonID
	}
	if r.PersonName != "" {
		p.Name = r.PersonName
	}
	if r.EnglishName != "" {
		p.EnglishName = r.EnglishName
	}
	if r.QID != "" {
		p.QID = r.QID
	}
	if r.ORCID != "" {
		p.ORCID = r.ORCID
	}
	p.AddAliases(r.Aliases...)
	for _, l := range r.OfficialLinks {
		if !hasLink(p.OfficialLinks, l) {
			p.OfficialLinks = append(p.OfficialLinks, l)
		}
	}
}

func hasLink(links []OfficialLink, l OfficialLink) bool {
	for _, existing := range links {
		if existing.Type == l.Type && strings.EqualFold(existing.URL, l.URL) {
			return true
		}
	}
	return false
}
