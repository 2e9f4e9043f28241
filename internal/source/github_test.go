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

const ghReposJSON = `[
 {"name":"tool","full_name":"jdoe/tool","html_url":"https://github.com/jdoe/tool","description":"A tool","language":"Go",
  "stargazers_count":42,"forks_count":3,"fork":false,"pushed_at":"2026-03-01T00:00:00Z","owner":{"login":"jdoe"}},
 {"name":"fork","full_name":"jdoe/fork","html_url":"https://github.com/jdoe/fork","fork":true,
  "pushed_at":"2026-02-01T00:00:00Z","owner":{"login":"jdoe"}},
 {"name":"old","full_name":"jdoe/old","html_url":"https://github.com/jdoe/old","fork":false,
  "pushed_at":"2020-01-01T00:00:00Z","owner":{"login":"jdoe"}}
]`

func TestGitHubFetch(t *testing.T) {
	t.Parallel()

	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/jdoe/repos", r.URL.Path)
		assert.Equal(t, "pushed", r.URL.Query().Get("sort"))
		assert.Equal(t, "Bearer gh-token", r.Header.Get("Authorization"))
		assert.Equal(t, "2022-11-28", r.Header.Get("X-GitHub-Api-Version"))
		_, _ = w.Write([]byte(ghReposJSON))
	})

	a := NewGitHub(newTestFetcher(), srv.URL, "gh-token")
	pc := testPerson()
	pc.GitHubHandle = "jdoe"
	p := NewParams(pc).ForSource(model.SourceGitHub)
	require.True(t, a.ShouldFetch(p))

	res := a.Fetch(context.Background(), p)
	require.True(t, res.Success, "%+v", res.Error)
	assert.Equal(t, 3, res.Stats.Fetched)
	require.Len(t, res.Items, 2, "forks are skipped")

	it := res.Items[0]
	assert.Equal(t, "https://github.com/jdoe/tool", it.URL)
	assert.True(t, it.IsOfficial)
	assert.Equal(t, ConfidenceOfficial, it.Confidence)
	assert.Contains(t, it.Text, "Language: Go")
	require.NotNil(t, it.Payload.Repo)
	assert.Equal(t, 42, it.Payload.Repo.Stars)
}

func TestGitHubIncrementalStopsAtCutoff(t *testing.T) {
	t.Parallel()

	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(ghReposJSON))
	})

	pc := testPerson()
	pc.GitHubHandle = "jdoe"
	pc.LastFetchedAt[model.SourceGitHub] = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p := NewParams(pc).ForSource(model.SourceGitHub)

	res := NewGitHub(newTestFetcher(), srv.URL, "").Fetch(context.Background(), p)
	require.True(t, res.Success)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "https://github.com/jdoe/tool", res.Items[0].URL)
}

func TestGitHubShouldFetchNeedsHandle(t *testing.T) {
	t.Parallel()

	a := NewGitHub(newTestFetcher(), githubBaseURL, "")
	assert.False(t, a.ShouldFetch(NewParams(testPerson()).ForSource(model.SourceGitHub)))
}

func TestGitHubUserNotFound(t *testing.T) {
	t.Parallel()

	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	})

	p := NewParams(testPerson())
	p.Handle = "ghost"
	res := NewGitHub(newTestFetcher(), srv.URL, "").Fetch(context.Background(), p)
	assert.False(t, res.Success)
	require.NotNil(t, res.Error)
	assert.Contains(t, res.Error.Message, "github: list repos for ghost")
}
