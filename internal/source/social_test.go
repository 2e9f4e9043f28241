package source

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/profile-cli/internal/model"
)

const xSearchJSON = `{"data":[
 {"id":"101","text":"Shipped a new release\nmore details","author_id":"u1","created_at":"2026-03-01T12:00:00.000Z",
  "public_metrics":{"like_count":12,"retweet_count":3}}],
 "includes":{"users":[{"id":"u1","username":"janedoe","name":"Jane Doe"}]},
 "meta":{"result_count":1}}`

func TestSocialFetchByHandle(t *testing.T) {
	t.Parallel()

	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/tweets/search/recent", r.URL.Path)
		assert.Equal(t, "from:janedoe -is:retweet", r.URL.Query().Get("query"))
		assert.Equal(t, "20", r.URL.Query().Get("max_results"))
		assert.Equal(t, "Bearer x-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(xSearchJSON))
	})

	pc := testPerson()
	pc.XHandle = "janedoe"
	p := NewParams(pc).ForSource(model.SourceSocial)

	a := NewSocial(newTestFetcher(), srv.URL, "x-token", 0)
	require.True(t, a.ShouldFetch(p))

	res := a.Fetch(context.Background(), p)
	require.True(t, res.Success, "%+v", res.Error)
	require.Len(t, res.Items, 1)

	it := res.Items[0]
	assert.Equal(t, "https://x.com/janedoe/status/101", it.URL)
	assert.Equal(t, "Shipped a new release", it.Title)
	assert.True(t, it.IsOfficial)
	assert.Equal(t, ConfidenceDefault, it.Confidence)
	require.NotNil(t, it.Payload.Post)
	assert.Equal(t, 12, it.Payload.Post.Likes)
	assert.False(t, it.Payload.Post.NameFallback)
}

func TestSocialNameFallback(t *testing.T) {
	t.Parallel()

	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, `"Jane Doe" -is:retweet`, r.URL.Query().Get("query"))
		_, _ = w.Write([]byte(xSearchJSON))
	})

	p := NewParams(testPerson()).ForSource(model.SourceSocial)
	p.NameFallback = true

	a := NewSocial(newTestFetcher(), srv.URL, "x-token", 35)
	require.True(t, a.ShouldFetch(p))

	res := a.Fetch(context.Background(), p)
	require.True(t, res.Success, "%+v", res.Error)
	require.Len(t, res.Items, 1)
	assert.False(t, res.Items[0].IsOfficial)
	assert.Equal(t, 35, res.Items[0].Confidence)
	assert.True(t, res.Items[0].Payload.Post.NameFallback)
}

func TestSocialShouldFetch(t *testing.T) {
	t.Parallel()

	p := NewParams(testPerson())
	assert.False(t, NewSocial(newTestFetcher(), xBaseURL, "tok", 0).ShouldFetch(p), "no handle and no fallback")
	p.Handle = "janedoe"
	assert.False(t, NewSocial(newTestFetcher(), xBaseURL, "", 0).ShouldFetch(p), "no bearer token")
	assert.Equal(t, DefaultFallbackConfidence, NewSocial(nil, xBaseURL, "", 0).fallbackConfidence)
}

func TestSocialRateLimited(t *testing.T) {
	t.Parallel()

	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	p := NewParams(testPerson())
	p.Handle = "janedoe"
	res := NewSocial(newTestFetcher(), srv.URL, "tok", 0).Fetch(context.Background(), p)
	assert.False(t, res.Success)
	assert.Equal(t, model.KindAPI, res.Error.Kind)
	assert.True(t, res.Error.Kind.Retryable())
}
