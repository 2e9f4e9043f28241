package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/scorer"
	"github.com/sells-group/profile-cli/internal/store"
)

type fakeQueue struct {
	mu     sync.Mutex
	reqs   []model.BuildRequest
	err    error
	closed bool
	// onEnqueue runs for every accepted request, like a worker picking it up.
	onEnqueue func(req model.BuildRequest)
}

func (f *fakeQueue) Enqueue(_ context.Context, req model.BuildRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.reqs = append(f.reqs, req)
	if f.onEnqueue != nil {
		f.onEnqueue(req)
	}
	return "job-" + req.PersonID, nil
}

func (f *fakeQueue) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeQueue) requests() []model.BuildRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.BuildRequest(nil), f.reqs...)
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "cmd.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newTestServer(t *testing.T) (http.Handler, store.Store, *fakeQueue) {
	t.Helper()
	st := newTestStore(t)
	q := &fakeQueue{}
	s := &server{store: st, queue: q, scorer: scorer.New(scorer.DefaultScorerConfig())}
	return newRouter(s, []string{"*"}), st, q
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHealth(t *testing.T) {
	t.Parallel()
	h, _, _ := newTestServer(t)

	rec, out := doRequest(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", out["status"])
}

func TestHealthDegraded(t *testing.T) {
	t.Parallel()
	h, st, _ := newTestServer(t)
	require.NoError(t, st.Close())

	rec, out := doRequest(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", out["status"])
}

func TestCreateBuildNewPerson(t *testing.T) {
	t.Parallel()
	h, st, q := newTestServer(t)

	body := `{"personId":"p-1","personName":"Jane Doe","qid":"Q1","aliases":["J. Doe"],
		"officialLinks":[{"type":"github","url":"https://github.com/janedoe"}]}`
	rec, out := doRequest(t, h, http.MethodPost, "/v1/builds", body)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "accepted", out["status"])
	assert.Equal(t, "p-1", out["person_id"])
	assert.Equal(t, "job-p-1", out["job_id"])

	reqs := q.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Jane Doe", reqs[0].PersonName)

	p, err := st.GetPerson(context.Background(), "p-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Jane Doe", p.Name)
	assert.Equal(t, "Q1", p.QID)
	assert.Equal(t, []string{"J. Doe"}, p.Aliases)
	assert.Equal(t, model.PersonStatusPending, p.Status)
	require.Len(t, p.OfficialLinks, 1)
}

func TestCreateBuildExistingPersonWithoutName(t *testing.T) {
	t.Parallel()
	h, st, q := newTestServer(t)
	require.NoError(t, st.UpsertPerson(context.Background(), &model.Person{ID: "p-1", Name: "Jane Doe"}))

	rec, _ := doRequest(t, h, http.MethodPost, "/v1/builds", `{"personId":"p-1","forceRefresh":true}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	reqs := q.requests()
	require.Len(t, reqs, 1)
	assert.True(t, reqs[0].ForceRefresh)

	p, err := st.GetPerson(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", p.Name)
}

func TestCreateBuildRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"personId":`},
		{"missing person id", `{"personName":"Jane Doe"}`},
		{"new person without name", `{"personId":"p-new"}`},
		{"official link without url", `{"personId":"p-1","personName":"Jane","officialLinks":[{"type":"github"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h, _, q := newTestServer(t)

			rec, out := doRequest(t, h, http.MethodPost, "/v1/builds", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, out["error"])
			assert.Empty(t, q.requests())
		})
	}
}

func TestCreateBuildQueueUnavailable(t *testing.T) {
	t.Parallel()
	h, _, q := newTestServer(t)
	q.err = errors.New("temporal down")

	rec, out := doRequest(t, h, http.MethodPost, "/v1/builds", `{"personId":"p-1","personName":"Jane Doe"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "queue unavailable", out["error"])
}

func TestGetPerson(t *testing.T) {
	t.Parallel()
	h, st, _ := newTestServer(t)

	rec, _ := doRequest(t, h, http.MethodGet, "/v1/persons/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, st.UpsertPerson(context.Background(), &model.Person{
		ID:          "p-1",
		Name:        "Jane Doe",
		Description: "Roboticist",
		Occupations: []string{"engineer"},
	}))

	rec, out := doRequest(t, h, http.MethodGet, "/v1/persons/p-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	person, ok := out["person"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Jane Doe", person["name"])

	score, ok := out["score"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, score, "total")
	assert.Contains(t, score, "grade")
	assert.Greater(t, score["basic_info"], 0.0)
}

func TestListPersons(t *testing.T) {
	t.Parallel()
	h, st, _ := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, st.UpsertPerson(ctx, &model.Person{ID: "p-1", Name: "Jane Doe"}))
	require.NoError(t, st.UpsertPerson(ctx, &model.Person{ID: "p-2", Name: "John Roe", Status: model.PersonStatusReady}))

	rec, out := doRequest(t, h, http.MethodGet, "/v1/persons?name=jane", "")
	require.Equal(t, http.StatusOK, rec.Code)
	persons := out["persons"].([]any)
	require.Len(t, persons, 1)
	assert.Equal(t, "p-1", persons[0].(map[string]any)["id"])

	_, out = doRequest(t, h, http.MethodGet, "/v1/persons?status=ready", "")
	assert.Len(t, out["persons"].([]any), 1)

	_, out = doRequest(t, h, http.MethodGet, "/v1/persons?status=error", "")
	assert.Empty(t, out["persons"].([]any))
}

func TestListItemsAndRoles(t *testing.T) {
	t.Parallel()
	h, st, _ := newTestServer(t)
	require.NoError(t, st.UpsertPerson(context.Background(), &model.Person{ID: "p-1", Name: "Jane Doe"}))

	rec, out := doRequest(t, h, http.MethodGet, "/v1/persons/p-1/items", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, out["items"].([]any))

	rec, _ = doRequest(t, h, http.MethodGet, "/v1/persons/p-1/items?source=myspace", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doRequest(t, h, http.MethodGet, "/v1/persons/p-1/items?source=github", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, out = doRequest(t, h, http.MethodGet, "/v1/persons/p-1/roles", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, out["roles"].([]any))

	rec, _ = doRequest(t, h, http.MethodGet, "/v1/persons/nobody/roles", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAtoiDefault(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 50, atoiDefault("", 50))
	assert.Equal(t, 50, atoiDefault("abc", 50))
	assert.Equal(t, 50, atoiDefault("-3", 50))
	assert.Equal(t, 7, atoiDefault("7", 50))
}
