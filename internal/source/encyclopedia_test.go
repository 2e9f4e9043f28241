package source

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/profile-cli/internal/model"
)

func TestEncyclopediaLookup(t *testing.T) {
	t.Parallel()

	p := NewParams(testPerson())
	lang, title, official := lookup(p)
	assert.Equal(t, "en", lang)
	assert.Equal(t, "Jane Doe", title)
	assert.False(t, official)

	p.Person.Name = "张三"
	p.Person.EnglishName = "Zhang San"
	lang, title, _ = lookup(p)
	assert.Equal(t, "zh", lang)
	assert.Equal(t, "张三", title)

	p.Person.WikipediaURL = "https://de.wikipedia.org/wiki/Zhang_San"
	lang, title, official = lookup(p)
	assert.Equal(t, "de", lang)
	assert.Equal(t, "Zhang_San", title)
	assert.True(t, official)
}

func TestEncyclopediaFetch(t *testing.T) {
	t.Parallel()

	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/rest_v1/page/summary/Jane_Doe", r.URL.Path)
		_, _ = w.Write([]byte(`{"type":"standard","title":"Jane Doe","description":"American engineer",
			"extract":"Jane Doe is an engineer at Acme.","lang":"en","timestamp":"2025-06-01T00:00:00Z",
			"thumbnail":{"source":"https://upload.wikimedia.org/jane.jpg"},
			"content_urls":{"desktop":{"page":"https://en.wikipedia.org/wiki/Jane_Doe"}}}`))
	})

	res := NewEncyclopedia(newTestFetcher(), srv.URL).Fetch(context.Background(), NewParams(testPerson()))
	require.True(t, res.Success, "%+v", res.Error)
	require.Len(t, res.Items, 1)

	it := res.Items[0]
	assert.Equal(t, "https://en.wikipedia.org/wiki/Jane_Doe", it.URL)
	assert.Contains(t, it.Text, "engineer at Acme")
	assert.False(t, it.IsOfficial)
	assert.Equal(t, ConfidenceHigh, it.Confidence)
	require.NotNil(t, it.Payload.Article)
	assert.Equal(t, "en", it.Payload.Article.Lang)
	assert.Equal(t, "en.wikipedia.org", it.Payload.Article.Domain)
	assert.Equal(t, model.PayloadArticle, it.Payload.Kind)
}

func TestEncyclopediaNotFoundIsEmpty(t *testing.T) {
	t.Parallel()

	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	res := NewEncyclopedia(newTestFetcher(), srv.URL).Fetch(context.Background(), NewParams(testPerson()))
	assert.True(t, res.Success)
	assert.Empty(t, res.Items)
}

func TestEncyclopediaDisambiguation(t *testing.T) {
	t.Parallel()

	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"type":"disambiguation","title":"Jane Doe","extract":"Jane Doe may refer to:"}`))
	})

	res := NewEncyclopedia(newTestFetcher(), srv.URL).Fetch(context.Background(), NewParams(testPerson()))
	assert.True(t, res.Success)
	assert.Empty(t, res.Items)
	assert.Equal(t, 1, res.Stats.Fetched)
}
