package source

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/normalize"
	"github.com/sells-group/profile-cli/pkg/jina"
)

// maxSiteSearches bounds the per-seed-domain searches.
const maxSiteSearches = 2

// WebSearch runs a general web search for the person plus one site-scoped
// search per seed domain. Hits on a seed domain are official.
type WebSearch struct {
	client jina.Client
}

// NewWebSearch creates the web search adapter.
func NewWebSearch(c jina.Client) *WebSearch {
	return &WebSearch{client: c}
}

func (w *WebSearch) Source() model.SourceType { return model.SourceWebSearch }

func (w *WebSearch) ShouldFetch(p Params) bool {
	return w.client != nil && strings.TrimSpace(p.Person.SearchName()) != ""
}

// query adds the first occupation or organization to narrow namesakes.
func query(pc model.PersonContext) string {
	q := `"` + pc.SearchName() + `"`
	hints := append(append([]string(nil), pc.Organizations...), pc.Occupations...)
	if hint := firstNonEmpty(hints...); hint != "" {
		q += " " + hint
	}
	return q
}

func (w *WebSearch) Fetch(ctx context.Context, p Params) model.DataSourceResult {
	return run(ctx, model.SourceWebSearch, func(ctx context.Context) ([]model.NormalizedItem, int, error) {
		limit := p.limit()
		resp, err := w.client.Search(ctx, query(p.Person), jina.WithCount(limit))
		if err != nil {
			return nil, 0, eris.Wrap(err, "web_search: search")
		}
		results := resp.Data

		seeds := p.SeedDomains
		if len(seeds) == 0 {
			seeds = p.Person.SeedDomains
		}
		for i, domain := range seeds {
			if i >= maxSiteSearches {
				break
			}
			site, err := w.client.Search(ctx, p.Person.SearchName(), jina.WithSite(domain), jina.WithCount(limit))
			if err != nil {
				return nil, len(results), eris.Wrapf(err, "web_search: site search %s", domain)
			}
			results = append(results, site.Data...)
		}

		items := make([]model.NormalizedItem, 0, len(results))
		for _, r := range results {
			if r.URL == "" {
				continue
			}
			official := onSeedDomain(r.URL, seeds)
			confidence := ConfidenceDefault
			if official {
				confidence = ConfidenceOfficial
			}
			domain := normalize.Domain(r.URL)
			items = append(items, newItem(model.SourceWebSearch, p, itemSpec{
				url:         r.URL,
				title:       r.Title,
				text:        firstNonEmpty(r.Content, r.Description),
				publishedAt: parseTime(r.Date),
				official:    official,
				confidence:  confidence,
				payload: model.Payload{Kind: model.PayloadArticle, Article: &model.ArticlePayload{
					Domain: domain,
				}},
			}))
		}
		return items, len(results), nil
	})
}

func onSeedDomain(rawURL string, seeds []string) bool {
	d := normalize.Domain(rawURL)
	if d == "" {
		return false
	}
	for _, s := range seeds {
		s = strings.ToLower(strings.TrimPrefix(s, "www."))
		if d == s || strings.HasSuffix(d, "."+s) {
			return true
		}
	}
	return false
}
