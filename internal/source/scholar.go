package source

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/profile-cli/internal/fetcher"
	"github.com/sells-group/profile-cli/internal/model"
)

const openAlexBaseURL = "https://api.openalex.org"

type openAlexWorks struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string           `json:"id"`
	DOI                   string           `json:"doi"`
	DisplayName           string           `json:"display_name"`
	PublicationDate       string           `json:"publication_date"`
	PublicationYear       int              `json:"publication_year"`
	CitedByCount          int              `json:"cited_by_count"`
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
	PrimaryLocation       struct {
		Source *struct {
			DisplayName string `json:"display_name"`
		} `json:"source"`
	} `json:"primary_location"`
	Authorships []struct {
		Author struct {
			DisplayName string `json:"display_name"`
			ORCID       string `json:"orcid"`
		} `json:"author"`
	} `json:"authorships"`
}

// Scholar lists works attributed to the person's ORCID in OpenAlex. Items
// are official since the ORCID disambiguates the author.
type Scholar struct {
	http    fetcher.Fetcher
	baseURL string
	mailto  string
}

// NewScholar creates the academic-index adapter. mailto opts into the
// polite pool when set.
func NewScholar(f fetcher.Fetcher, baseURL, mailto string) *Scholar {
	return &Scholar{http: f, baseURL: strings.TrimRight(baseURL, "/"), mailto: mailto}
}

func (s *Scholar) Source() model.SourceType { return model.SourceScholar }

func (s *Scholar) ShouldFetch(p Params) bool {
	return s.http != nil && orcidID(p.ExternalID) != ""
}

// orcidID strips any URL prefix from an ORCID.
func orcidID(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.LastIndex(raw, "/"); i >= 0 {
		raw = raw[i+1:]
	}
	return raw
}

func (s *Scholar) Fetch(ctx context.Context, p Params) model.DataSourceResult {
	return run(ctx, model.SourceScholar, func(ctx context.Context) ([]model.NormalizedItem, int, error) {
		orcid := orcidID(p.ExternalID)
		filter := "author.orcid:" + orcid
		if since := p.since(); since != nil {
			filter += ",from_publication_date:" + since.Format("2006-01-02")
		}
		q := url.Values{}
		q.Set("filter", filter)
		q.Set("sort", "publication_date:desc")
		q.Set("per-page", strconv.Itoa(min(p.limit(), 200)))
		if s.mailto != "" {
			q.Set("mailto", s.mailto)
		}

		var resp openAlexWorks
		if err := s.http.GetJSON(ctx, s.baseURL+"/works?"+q.Encode(), nil, &resp); err != nil {
			return nil, 0, eris.Wrapf(err, "scholar: list works for %s", orcid)
		}

		items := make([]model.NormalizedItem, 0, len(resp.Results))
		for _, w := range resp.Results {
			link := firstNonEmpty(w.DOI, w.ID)
			if link == "" || w.DisplayName == "" {
				continue
			}
			authors := make([]string, 0, len(w.Authorships))
			for _, a := range w.Authorships {
				authors = append(authors, a.Author.DisplayName)
			}
			venue := ""
			if w.PrimaryLocation.Source != nil {
				venue = w.PrimaryLocation.Source.DisplayName
			}
			items = append(items, newItem(model.SourceScholar, p, itemSpec{
				url:         link,
				title:       w.DisplayName,
				text:        rebuildAbstract(w.AbstractInvertedIndex),
				author:      strings.Join(authors, ", "),
				publishedAt: parseTime(w.PublicationDate),
				official:    true,
				confidence:  ConfidenceOfficial,
				payload: model.Payload{Kind: model.PayloadPaper, Paper: &model.PaperPayload{
					DOI:       strings.TrimPrefix(w.DOI, "https://doi.org/"),
					Venue:     venue,
					Year:      w.PublicationYear,
					Citations: w.CitedByCount,
					Authors:   authors,
				}},
			}))
		}
		return items, len(resp.Results), nil
	})
}

// rebuildAbstract restores plain text from OpenAlex's inverted index.
func rebuildAbstract(idx map[string][]int) string {
	if len(idx) == 0 {
		return ""
	}
	type pos struct {
		at   int
		word string
	}
	var words []pos
	for w, positions := range idx {
		for _, at := range positions {
			words = append(words, pos{at, w})
		}
	}
	sort.Slice(words, func(i, j int) bool { return words[i].at < words[j].at })
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = w.word
	}
	return strings.Join(out, " ")
}
