package source

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/profile-cli/internal/fetcher"
	"github.com/sells-group/profile-cli/internal/model"
)

const (
	xBaseURL = "https://api.x.com"
	// DefaultFallbackConfidence applies to posts found by name rather than handle.
	DefaultFallbackConfidence = 40
)

type xSearchResponse struct {
	Data []struct {
		ID            string `json:"id"`
		Text          string `json:"text"`
		AuthorID      string `json:"author_id"`
		CreatedAt     string `json:"created_at"`
		PublicMetrics struct {
			LikeCount    int `json:"like_count"`
			RetweetCount int `json:"retweet_count"`
		} `json:"public_metrics"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
			Name     string `json:"name"`
		} `json:"users"`
	} `json:"includes"`
	Meta struct {
		ResultCount int `json:"result_count"`
	} `json:"meta"`
}

// Social searches recent X posts from the person's handle, or by quoted name
// when no handle is linked.
type Social struct {
	http               fetcher.Fetcher
	baseURL            string
	bearer             string
	fallbackConfidence int
}

// NewSocial creates the social-post adapter. A non-positive
// fallbackConfidence selects DefaultFallbackConfidence.
func NewSocial(f fetcher.Fetcher, baseURL, bearer string, fallbackConfidence int) *Social {
	if fallbackConfidence <= 0 {
		fallbackConfidence = DefaultFallbackConfidence
	}
	return &Social{
		http:               f,
		baseURL:            strings.TrimRight(baseURL, "/"),
		bearer:             bearer,
		fallbackConfidence: fallbackConfidence,
	}
}

func (s *Social) Source() model.SourceType { return model.SourceSocial }

func (s *Social) ShouldFetch(p Params) bool {
	if s.http == nil || s.bearer == "" {
		return false
	}
	return p.Handle != "" || (p.NameFallback && p.Person.SearchName() != "")
}

func (s *Social) Fetch(ctx context.Context, p Params) model.DataSourceResult {
	return run(ctx, model.SourceSocial, func(ctx context.Context) ([]model.NormalizedItem, int, error) {
		fallback := p.Handle == ""
		var query string
		if fallback {
			query = `"` + p.Person.SearchName() + `" -is:retweet`
		} else {
			query = "from:" + strings.TrimPrefix(p.Handle, "@") + " -is:retweet"
		}

		q := url.Values{}
		q.Set("query", query)
		q.Set("max_results", strconv.Itoa(max(10, min(p.limit(), 100))))
		q.Set("tweet.fields", "created_at,public_metrics,author_id")
		q.Set("expansions", "author_id")
		q.Set("user.fields", "username,name")
		if since := p.since(); since != nil {
			q.Set("start_time", since.UTC().Format(time.RFC3339))
		}
		header := http.Header{}
		header.Set("Authorization", "Bearer "+s.bearer)

		var resp xSearchResponse
		if err := s.http.GetJSON(ctx, s.baseURL+"/2/tweets/search/recent?"+q.Encode(), header, &resp); err != nil {
			return nil, 0, eris.Wrap(err, "social: search recent posts")
		}

		users := make(map[string]string, len(resp.Includes.Users))
		for _, u := range resp.Includes.Users {
			users[u.ID] = u.Username
		}

		confidence := ConfidenceDefault
		if fallback {
			confidence = s.fallbackConfidence
		}
		items := make([]model.NormalizedItem, 0, len(resp.Data))
		for _, t := range resp.Data {
			if t.ID == "" {
				continue
			}
			handle := firstNonEmpty(users[t.AuthorID], p.Handle)
			link := "https://x.com/i/status/" + t.ID
			if handle != "" {
				link = "https://x.com/" + handle + "/status/" + t.ID
			}
			items = append(items, newItem(model.SourceSocial, p, itemSpec{
				url:         link,
				title:       firstLine(t.Text),
				text:        t.Text,
				author:      handle,
				publishedAt: parseTime(t.CreatedAt),
				official:    !fallback,
				confidence:  confidence,
				payload: model.Payload{Kind: model.PayloadPost, Post: &model.PostPayload{
					PostID:       t.ID,
					Handle:       handle,
					Likes:        t.PublicMetrics.LikeCount,
					Reposts:      t.PublicMetrics.RetweetCount,
					NameFallback: fallback,
				}},
			}))
		}
		return items, len(resp.Data), nil
	})
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len([]rune(s)) > 120 {
		s = string([]rune(s)[:120])
	}
	return s
}
