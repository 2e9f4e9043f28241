package source

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/profile-cli/internal/model"
)

func TestScholarFetch(t *testing.T) {
	t.Parallel()

	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/works", r.URL.Path)
		assert.Equal(t, "author.orcid:0000-0001-2345-6789,from_publication_date:2025-06-01", q.Get("filter"))
		assert.Equal(t, "me@example.com", q.Get("mailto"))
		_, _ = w.Write([]byte(`{"results":[
			{"id":"https://openalex.org/W1","doi":"https://doi.org/10.1000/xyz","display_name":"On Compilers",
			 "publication_date":"2025-09-10","publication_year":2025,"cited_by_count":7,
			 "abstract_inverted_index":{"We":[0],"study":[1],"compilers":[2]},
			 "primary_location":{"source":{"display_name":"PLDI"}},
			 "authorships":[{"author":{"display_name":"Jane Doe"}},{"author":{"display_name":"John Roe"}}]},
			{"id":"","doi":"","display_name":"no link"}]}`))
	})

	pc := testPerson()
	pc.ORCID = "https://orcid.org/0000-0001-2345-6789"
	pc.LastFetchedAt[model.SourceScholar] = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	p := NewParams(pc).ForSource(model.SourceScholar)

	a := NewScholar(newTestFetcher(), srv.URL, "me@example.com")
	require.True(t, a.ShouldFetch(p))

	res := a.Fetch(context.Background(), p)
	require.True(t, res.Success, "%+v", res.Error)
	require.Len(t, res.Items, 1)

	it := res.Items[0]
	assert.Equal(t, "https://doi.org/10.1000/xyz", it.URL)
	assert.Equal(t, "We study compilers", it.Text)
	assert.Equal(t, "Jane Doe, John Roe", it.Author)
	assert.True(t, it.IsOfficial)
	require.NotNil(t, it.Payload.Paper)
	assert.Equal(t, "10.1000/xyz", it.Payload.Paper.DOI)
	assert.Equal(t, "PLDI", it.Payload.Paper.Venue)
	assert.Equal(t, 7, it.Payload.Paper.Citations)
}

func TestScholarShouldFetchNeedsORCID(t *testing.T) {
	t.Parallel()

	a := NewScholar(newTestFetcher(), openAlexBaseURL, "")
	assert.False(t, a.ShouldFetch(NewParams(testPerson())))
}

func TestRebuildAbstract(t *testing.T) {
	t.Parallel()

	idx := map[string][]int{"the": {0, 3}, "cat": {1}, "saw": {2}, "dog": {4}}
	assert.Equal(t, "the cat saw the dog", rebuildAbstract(idx))
	assert.Empty(t, rebuildAbstract(nil))
}
