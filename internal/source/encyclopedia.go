package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/profile-cli/internal/fetcher"
	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/normalize"
)

type wikiSummary struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Extract     string `json:"extract"`
	Lang        string `json:"lang"`
	Timestamp   string `json:"timestamp"`
	Thumbnail   struct {
		Source string `json:"source"`
	} `json:"thumbnail"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// Encyclopedia looks up the person's Wikipedia summary. Names containing CJK
// script go to the Chinese edition, everything else to English.
type Encyclopedia struct {
	http fetcher.Fetcher
	// baseURL overrides https://{lang}.wikipedia.org when set.
	baseURL string
}

// NewEncyclopedia creates the encyclopedia adapter.
func NewEncyclopedia(f fetcher.Fetcher, baseURL string) *Encyclopedia {
	return &Encyclopedia{http: f, baseURL: strings.TrimRight(baseURL, "/")}
}

func (e *Encyclopedia) Source() model.SourceType { return model.SourceEncyclopedia }

func (e *Encyclopedia) ShouldFetch(p Params) bool {
	return e.http != nil && strings.TrimSpace(p.Person.Name) != ""
}

// lookup picks the edition and page title. A linked Wikipedia page wins.
func lookup(p Params) (lang, title string, official bool) {
	if link := p.Person.WikipediaURL; strings.Contains(link, "wikipedia.org/wiki/") {
		if u, err := url.Parse(link); err == nil {
			lang = strings.SplitN(u.Hostname(), ".", 2)[0]
			return lang, strings.TrimPrefix(u.Path, "/wiki/"), true
		}
	}
	if normalize.HasCJK(p.Person.Name) {
		return "zh", p.Person.Name, false
	}
	return "en", p.Person.SearchName(), false
}

func (e *Encyclopedia) Fetch(ctx context.Context, p Params) model.DataSourceResult {
	return run(ctx, model.SourceEncyclopedia, func(ctx context.Context) ([]model.NormalizedItem, int, error) {
		lang, title, official := lookup(p)
		base := e.baseURL
		if base == "" {
			base = fmt.Sprintf("https://%s.wikipedia.org", lang)
		}
		endpoint := base + "/api/rest_v1/page/summary/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))

		var sum wikiSummary
		if err := e.http.GetJSON(ctx, endpoint, http.Header{"Accept-Language": {lang}}, &sum); err != nil {
			var se *fetcher.StatusError
			if errors.As(err, &se) && se.Code == http.StatusNotFound {
				return nil, 0, nil
			}
			return nil, 0, eris.Wrap(err, "encyclopedia: get summary")
		}
		if sum.Type == "disambiguation" || strings.TrimSpace(sum.Extract) == "" {
			return nil, 1, nil
		}

		pageURL := sum.ContentURLs.Desktop.Page
		if pageURL == "" {
			pageURL = fmt.Sprintf("https://%s.wikipedia.org/wiki/%s", lang, url.PathEscape(strings.ReplaceAll(sum.Title, " ", "_")))
		}
		confidence := ConfidenceHigh
		if official {
			confidence = ConfidenceOfficial
		}
		item := newItem(model.SourceEncyclopedia, p, itemSpec{
			url:         pageURL,
			title:       sum.Title,
			text:        firstNonEmpty(sum.Description+"\n"+sum.Extract, sum.Extract),
			publishedAt: parseTime(sum.Timestamp),
			official:    official,
			confidence:  confidence,
			payload: model.Payload{Kind: model.PayloadArticle, Article: &model.ArticlePayload{
				Lang:     firstNonEmpty(sum.Lang, lang),
				Domain:   normalize.Domain(pageURL),
				ImageURL: sum.Thumbnail.Source,
			}},
		})
		return []model.NormalizedItem{item}, 1, nil
	})
}
