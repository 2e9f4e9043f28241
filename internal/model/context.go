package model

import (
	"net/url"
	"strings"
	"time"
)

// PersonContext is the identity snapshot handed to the router, adapters and
// the verifier. It is derived from a Person and never written back.
type PersonContext struct {
	PersonID      string
	Name          string
	EnglishName   string
	Aliases       []string
	Occupations   []string
	Organizations []string
	XHandle       string
	GitHubHandle  string
	YouTubeID     string
	SeedDomains   []string
	WikipediaURL  string
	QID           string
	ORCID         string
	ForceRefresh  bool
	LastFetchedAt map[SourceType]time.Time
}

// NewPersonContext parses official links into handles and seed domains.
func NewPersonContext(p *Person, force bool) PersonContext {
	pc := PersonContext{
		PersonID:      p.ID,
		Name:          p.Name,
		EnglishName:   p.EnglishName,
		Aliases:       append([]string(nil), p.Aliases...),
		Occupations:   append([]string(nil), p.Occupations...),
		Organizations: append([]string(nil), p.Organizations...),
		QID:           strings.TrimSpace(p.QID),
		ORCID:         strings.TrimSpace(p.ORCID),
		ForceRefresh:  force,
		LastFetchedAt: make(map[SourceType]time.Time, len(p.LastFetchedAt)),
	}
	for k, v := range p.LastFetchedAt {
		pc.LastFetchedAt[k] = v
	}

	var domains []string
	for _, l := range p.OfficialLinks {
		switch l.Type {
		case LinkX:
			if pc.XHandle == "" {
				pc.XHandle = handleOf(l, "x.com", "twitter.com")
			}
		case LinkGitHub:
			if pc.GitHubHandle == "" {
				pc.GitHubHandle = handleOf(l, "github.com")
			}
		case LinkYouTube:
			if pc.YouTubeID == "" {
				pc.YouTubeID = youtubeChannel(l)
			}
		case LinkORCID:
			if pc.ORCID == "" {
				pc.ORCID = lastSegment(l.URL)
			}
		case LinkWikipedia:
			if pc.WikipediaURL == "" {
				pc.WikipediaURL = strings.TrimSpace(l.URL)
			}
		case LinkWebsite, LinkBlog:
			if d := hostOf(l.URL); d != "" {
				domains = append(domains, d)
			}
		}
	}
	pc.SeedDomains = UniqueStrings(domains)
	return pc
}

// Names returns the canonical name, english name and aliases, deduplicated.
func (pc PersonContext) Names() []string {
	all := append([]string{pc.Name, pc.EnglishName}, pc.Aliases...)
	return UniqueStrings(all)
}

// SearchName prefers the english name for latin-script upstreams.
func (pc PersonContext) SearchName() string {
	if pc.EnglishName != "" {
		return pc.EnglishName
	}
	return pc.Name
}

func handleOf(l OfficialLink, hosts ...string) string {
	if h := strings.TrimPrefix(strings.TrimSpace(l.Handle), "@"); h != "" {
		return h
	}
	u, err := url.Parse(l.URL)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	matched := false
	for _, h := range hosts {
		if host == h {
			matched = true
			break
		}
	}
	if !matched {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return ""
	}
	return strings.TrimPrefix(parts[0], "@")
}

func youtubeChannel(l OfficialLink) string {
	if h := strings.TrimSpace(l.Handle); h != "" {
		return h
	}
	u, err := url.Parse(l.URL)
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	switch {
	case len(parts) >= 2 && parts[0] == "channel":
		return parts[1]
	case len(parts) >= 1 && strings.HasPrefix(parts[0], "@"):
		return parts[0]
	}
	return ""
}

func lastSegment(raw string) string {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if i := strings.LastIndex(raw, "/"); i >= 0 {
		return raw[i+1:]
	}
	return raw
}

func hostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
