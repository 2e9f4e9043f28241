package source

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/profile-cli/internal/fetcher"
	"github.com/sells-group/profile-cli/internal/model"
)

const youtubeBaseURL = "https://www.googleapis.com/youtube/v3"

type ytSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			PublishedAt  string `json:"publishedAt"`
			ChannelID    string `json:"channelId"`
			ChannelTitle string `json:"channelTitle"`
			Title        string `json:"title"`
			Description  string `json:"description"`
			Thumbnails   map[string]struct {
				URL string `json:"url"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

type ytChannelsResponse struct {
	Items []struct {
		ID string `json:"id"`
	} `json:"items"`
}

// YouTube lists recent uploads of the person's linked channel.
type YouTube struct {
	http    fetcher.Fetcher
	baseURL string
	apiKey  string
}

// NewYouTube creates the video adapter.
func NewYouTube(f fetcher.Fetcher, baseURL, apiKey string) *YouTube {
	return &YouTube{http: f, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

func (y *YouTube) Source() model.SourceType { return model.SourceYouTube }

func (y *YouTube) ShouldFetch(p Params) bool {
	return y.http != nil && y.apiKey != "" && p.ChannelID != ""
}

func (y *YouTube) Fetch(ctx context.Context, p Params) model.DataSourceResult {
	return run(ctx, model.SourceYouTube, func(ctx context.Context) ([]model.NormalizedItem, int, error) {
		channelID, err := y.resolveChannel(ctx, p.ChannelID)
		if err != nil {
			return nil, 0, err
		}
		if channelID == "" {
			return nil, 0, nil
		}

		q := url.Values{}
		q.Set("part", "snippet")
		q.Set("channelId", channelID)
		q.Set("type", "video")
		q.Set("order", "date")
		q.Set("maxResults", strconv.Itoa(min(p.limit(), 50)))
		q.Set("key", y.apiKey)
		if since := p.since(); since != nil {
			q.Set("publishedAfter", since.UTC().Format(time.RFC3339))
		}

		var resp ytSearchResponse
		if err := y.http.GetJSON(ctx, y.baseURL+"/search?"+q.Encode(), nil, &resp); err != nil {
			return nil, 0, eris.Wrapf(err, "youtube: search channel %s", channelID)
		}

		items := make([]model.NormalizedItem, 0, len(resp.Items))
		for _, v := range resp.Items {
			if v.ID.VideoID == "" {
				continue
			}
			s := v.Snippet
			thumb := ""
			for _, size := range []string{"high", "medium", "default"} {
				if t, ok := s.Thumbnails[size]; ok {
					thumb = t.URL
					break
				}
			}
			items = append(items, newItem(model.SourceYouTube, p, itemSpec{
				url:         "https://www.youtube.com/watch?v=" + v.ID.VideoID,
				title:       s.Title,
				text:        s.Description,
				author:      s.ChannelTitle,
				publishedAt: parseTime(s.PublishedAt),
				official:    s.ChannelID == "" || s.ChannelID == channelID,
				confidence:  ConfidenceOfficial,
				payload: model.Payload{Kind: model.PayloadVideo, Video: &model.VideoPayload{
					VideoID:      v.ID.VideoID,
					ChannelID:    firstNonEmpty(s.ChannelID, channelID),
					ChannelTitle: s.ChannelTitle,
					Thumbnail:    thumb,
				}},
			}))
		}
		return items, len(resp.Items), nil
	})
}

// resolveChannel turns an @handle into a channel id. Ids pass through.
func (y *YouTube) resolveChannel(ctx context.Context, ref string) (string, error) {
	if !strings.HasPrefix(ref, "@") {
		return ref, nil
	}
	q := url.Values{}
	q.Set("part", "id")
	q.Set("forHandle", ref)
	q.Set("key", y.apiKey)

	var resp ytChannelsResponse
	if err := y.http.GetJSON(ctx, y.baseURL+"/channels?"+q.Encode(), nil, &resp); err != nil {
		return "", eris.Wrapf(err, "youtube: resolve handle %s", ref)
	}
	if len(resp.Items) == 0 {
		return "", nil
	}
	return resp.Items[0].ID, nil
}
