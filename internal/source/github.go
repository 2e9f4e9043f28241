package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/profile-cli/internal/fetcher"
	"github.com/sells-group/profile-cli/internal/model"
)

const githubBaseURL = "https://api.github.com"

type ghRepo struct {
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	HTMLURL     string `json:"html_url"`
	Description string `json:"description"`
	Language    string `json:"language"`
	Stars       int    `json:"stargazers_count"`
	Forks       int    `json:"forks_count"`
	Fork        bool   `json:"fork"`
	Archived    bool   `json:"archived"`
	PushedAt    string `json:"pushed_at"`
	CreatedAt   string `json:"created_at"`
	Owner       struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// GitHub lists public repositories of the person's linked account. Every
// item is official since it is fetched by the linked handle.
type GitHub struct {
	http    fetcher.Fetcher
	baseURL string
	token   string
}

// NewGitHub creates the code-hosting adapter. The token is optional.
func NewGitHub(f fetcher.Fetcher, baseURL, token string) *GitHub {
	return &GitHub{http: f, baseURL: strings.TrimRight(baseURL, "/"), token: token}
}

func (g *GitHub) Source() model.SourceType { return model.SourceGitHub }

func (g *GitHub) ShouldFetch(p Params) bool {
	return g.http != nil && p.Handle != ""
}

func (g *GitHub) header() http.Header {
	h := http.Header{"X-GitHub-Api-Version": {"2022-11-28"}, "Accept": {"application/vnd.github+json"}}
	if g.token != "" {
		h.Set("Authorization", "Bearer "+g.token)
	}
	return h
}

func (g *GitHub) Fetch(ctx context.Context, p Params) model.DataSourceResult {
	return run(ctx, model.SourceGitHub, func(ctx context.Context) ([]model.NormalizedItem, int, error) {
		perPage := min(p.limit(), 100)
		endpoint := fmt.Sprintf("%s/users/%s/repos?type=owner&sort=pushed&per_page=%d",
			g.baseURL, url.PathEscape(p.Handle), perPage)

		var repos []ghRepo
		if err := g.http.GetJSON(ctx, endpoint, g.header(), &repos); err != nil {
			return nil, 0, eris.Wrapf(err, "github: list repos for %s", p.Handle)
		}

		cutoff := p.since()
		var items []model.NormalizedItem
		for _, r := range repos {
			if r.Fork || r.HTMLURL == "" {
				continue
			}
			pushed := parseTime(r.PushedAt)
			// Repos come sorted by push time, so nothing after this is newer.
			if before(pushed, cutoff) {
				break
			}
			text := r.Description
			if r.Language != "" {
				text = strings.TrimSpace(text + "\nLanguage: " + r.Language)
			}
			items = append(items, newItem(model.SourceGitHub, p, itemSpec{
				url:         r.HTMLURL,
				title:       firstNonEmpty(r.FullName, r.Name),
				text:        text,
				author:      r.Owner.Login,
				publishedAt: firstTime(pushed, parseTime(r.CreatedAt)),
				official:    true,
				confidence:  ConfidenceOfficial,
				payload: model.Payload{Kind: model.PayloadRepo, Repo: &model.RepoPayload{
					Owner:    r.Owner.Login,
					Name:     r.Name,
					Language: r.Language,
					Stars:    r.Stars,
					Forks:    r.Forks,
					Fork:     r.Fork,
				}},
			}))
		}
		return items, len(repos), nil
	})
}
