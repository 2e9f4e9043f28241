package source

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/fetcher"
	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/normalize"
)

const (
	podcastBaseURL = "https://itunes.apple.com"
	// maxFeeds bounds how many show feeds are scanned for guest episodes.
	maxFeeds = 3
	// maxFeedItems bounds how many episodes are read per feed.
	maxFeedItems = 200
)

type itunesResponse struct {
	ResultCount int            `json:"resultCount"`
	Results     []itunesResult `json:"results"`
}

type itunesResult struct {
	CollectionID      int64  `json:"collectionId"`
	CollectionName    string `json:"collectionName"`
	ArtistName        string `json:"artistName"`
	FeedURL           string `json:"feedUrl"`
	CollectionViewURL string `json:"collectionViewUrl"`
	TrackCount        int    `json:"trackCount"`
	ReleaseDate       string `json:"releaseDate"`
	PrimaryGenreName  string `json:"primaryGenreName"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	PubDate     string `xml:"pubDate"`
	Description string `xml:"description"`
	Enclosure   struct {
		URL string `xml:"url,attr"`
	} `xml:"enclosure"`
}

// Podcast searches the iTunes directory for shows by or about the person and
// scans the top feeds for episodes that name them.
type Podcast struct {
	http    fetcher.Fetcher
	baseURL string
}

// NewPodcast creates the podcast adapter.
func NewPodcast(f fetcher.Fetcher, baseURL string) *Podcast {
	return &Podcast{http: f, baseURL: strings.TrimRight(baseURL, "/")}
}

func (pc *Podcast) Source() model.SourceType { return model.SourcePodcast }

func (pc *Podcast) ShouldFetch(p Params) bool {
	return pc.http != nil && strings.TrimSpace(p.Person.SearchName()) != ""
}

func (pc *Podcast) Fetch(ctx context.Context, p Params) model.DataSourceResult {
	return run(ctx, model.SourcePodcast, func(ctx context.Context) ([]model.NormalizedItem, int, error) {
		name := p.Person.SearchName()
		q := url.Values{}
		q.Set("term", name)
		q.Set("media", "podcast")
		q.Set("entity", "podcast")
		q.Set("limit", strconv.Itoa(min(p.limit(), 50)))

		var resp itunesResponse
		if err := pc.http.GetJSON(ctx, pc.baseURL+"/search?"+q.Encode(), nil, &resp); err != nil {
			return nil, 0, eris.Wrap(err, "podcast: search directory")
		}

		var items []model.NormalizedItem
		fetched := len(resp.Results)
		names := p.Person.Names()
		feeds := 0
		for _, show := range resp.Results {
			if show.CollectionViewURL == "" {
				continue
			}
			hostedBy := mentionsAny(show.ArtistName, names)
			if hostedBy || mentionsAny(show.CollectionName, names) {
				items = append(items, newItem(model.SourcePodcast, p, itemSpec{
					url:         show.CollectionViewURL,
					title:       show.CollectionName,
					text:        strings.TrimSpace(show.CollectionName + " by " + show.ArtistName + "\n" + show.PrimaryGenreName),
					author:      show.ArtistName,
					publishedAt: parseTime(show.ReleaseDate),
					confidence:  ConfidenceDefault,
					payload:     podcastPayload(show),
				}))
			}

			if show.FeedURL == "" || feeds >= maxFeeds {
				continue
			}
			feeds++
			episodes, err := pc.episodes(ctx, show.FeedURL)
			if err != nil {
				// A broken feed only loses its guest episodes.
				zap.L().Debug("podcast: feed read failed", zap.String("feed", show.FeedURL), zap.Error(err))
				continue
			}
			fetched += len(episodes)
			cutoff := p.since()
			for _, ep := range episodes {
				if !mentionsAny(ep.Title+" "+ep.Description, names) {
					continue
				}
				published := parseTime(ep.PubDate)
				if before(published, cutoff) {
					continue
				}
				link := firstNonEmpty(ep.Link, ep.Enclosure.URL, ep.GUID)
				if !strings.HasPrefix(link, "http") {
					continue
				}
				items = append(items, newItem(model.SourcePodcast, p, itemSpec{
					url:         link,
					title:       ep.Title,
					text:        stripTags(ep.Description),
					author:      show.ArtistName,
					publishedAt: published,
					confidence:  ConfidenceDefault,
					payload:     podcastPayload(show),
				}))
			}
		}
		return items, fetched, nil
	})
}

func (pc *Podcast) episodes(ctx context.Context, feedURL string) ([]rssItem, error) {
	body, err := pc.http.Get(ctx, feedURL, nil)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck
	return fetcher.DecodeXMLElements[rssItem](ctx, body, "item", maxFeedItems)
}

func podcastPayload(show itunesResult) model.Payload {
	return model.Payload{Kind: model.PayloadPodcast, Podcast: &model.PodcastPayload{
		CollectionID: show.CollectionID,
		Collection:   show.CollectionName,
		Artist:       show.ArtistName,
		FeedURL:      show.FeedURL,
		EpisodeCount: show.TrackCount,
	}}
}

func mentionsAny(text string, names []string) bool {
	for _, n := range names {
		if normalize.ContainsFold(text, n) {
			return true
		}
	}
	return false
}

// stripTags drops HTML markup from feed descriptions.
func stripTags(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '<':
			depth++
		case r == '>' && depth > 0:
			depth--
			b.WriteRune(' ')
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
