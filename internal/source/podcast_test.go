package source

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Tech Talks</title>
<item><title>Episode 12: Jane Doe on compilers</title><link>https://techtalks.fm/12</link>
 <pubDate>Mon, 02 Mar 2026 10:00:00 +0000</pubDate><description><![CDATA[<p>We talk with <b>Jane Doe</b>.</p>]]></description></item>
<item><title>Episode 11: Someone else</title><link>https://techtalks.fm/11</link>
 <pubDate>Mon, 23 Feb 2026 10:00:00 +0000</pubDate><description>Nothing here</description></item>
</channel></rss>`

func TestPodcastFetch(t *testing.T) {
	t.Parallel()

	var base string
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			assert.Equal(t, "Jane Doe", r.URL.Query().Get("term"))
			assert.Equal(t, "podcast", r.URL.Query().Get("media"))
			fmt.Fprintf(w, `{"resultCount":2,"results":[
				{"collectionId":1,"collectionName":"The Jane Doe Show","artistName":"Jane Doe",
				 "collectionViewUrl":"https://podcasts.apple.com/podcast/id1","trackCount":30},
				{"collectionId":2,"collectionName":"Tech Talks","artistName":"Tech FM",
				 "feedUrl":"%s/feed.xml","collectionViewUrl":"https://podcasts.apple.com/podcast/id2"}]}`, base)
		case "/feed.xml":
			_, _ = w.Write([]byte(feedXML))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	base = srv.URL

	res := NewPodcast(newTestFetcher(), srv.URL).Fetch(context.Background(), NewParams(testPerson()))
	require.True(t, res.Success, "%+v", res.Error)
	require.Len(t, res.Items, 2)

	show := res.Items[0]
	assert.Equal(t, "https://podcasts.apple.com/podcast/id1", show.URL)
	assert.False(t, show.IsOfficial)
	require.NotNil(t, show.Payload.Podcast)
	assert.Equal(t, 30, show.Payload.Podcast.EpisodeCount)

	ep := res.Items[1]
	assert.Equal(t, "https://techtalks.fm/12", ep.URL)
	assert.Equal(t, "We talk with Jane Doe .", ep.Text)
	assert.Equal(t, "Tech Talks", ep.Payload.Podcast.Collection)
	assert.Equal(t, 4, res.Stats.Fetched)
}

func TestPodcastBrokenFeedIsSkipped(t *testing.T) {
	t.Parallel()

	var base string
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/feed.xml" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprintf(w, `{"resultCount":1,"results":[{"collectionId":2,"collectionName":"Jane Doe Weekly",
			"artistName":"Jane Doe","feedUrl":"%s/feed.xml","collectionViewUrl":"https://podcasts.apple.com/podcast/id2"}]}`, base)
	})
	base = srv.URL

	res := NewPodcast(newTestFetcher(), srv.URL).Fetch(context.Background(), NewParams(testPerson()))
	require.True(t, res.Success)
	assert.Len(t, res.Items, 1)
}

func TestStripTags(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a b c", stripTags("<p>a</p><br/>b   c"))
	assert.Equal(t, "plain", stripTags("plain"))
}
