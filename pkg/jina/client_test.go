package jina

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "Ada Lovelace", r.URL.Query().Get("q"))
		assert.Equal(t, "example.com", r.URL.Query().Get("site"))
		assert.Equal(t, "2", r.URL.Query().Get("count"))

		_ = json.NewEncoder(w).Encode(SearchResponse{Code: 200, Data: []SearchResult{
			{Title: "One", URL: "https://example.com/1"},
			{Title: "Two", URL: "https://example.com/2"},
			{Title: "Three", URL: "https://example.com/3"},
		}})
	}))
	defer srv.Close()

	c := NewClient("test-key", WithSearchBaseURL(srv.URL))
	got, err := c.Search(context.Background(), "Ada Lovelace", WithSite("example.com"), WithCount(2))
	require.NoError(t, err)
	require.Len(t, got.Data, 2)
	assert.Equal(t, "One", got.Data[0].Title)
}

func TestSearch_NoResults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient("k", WithSearchBaseURL(srv.URL))
	got, err := c.Search(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, got.Data)
}

func TestSearch_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(SearchResponse{Code: 200, Data: []SearchResult{{Title: "ok"}}})
	}))
	defer srv.Close()

	c := NewClient("k", WithSearchBaseURL(srv.URL), WithRetry(3, time.Millisecond))
	got, err := c.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, got.Data, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSearch_ExhaustedRetries(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("k", WithSearchBaseURL(srv.URL), WithRetry(2, time.Millisecond))
	_, err := c.Search(context.Background(), "q")
	require.Error(t, err)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
}

func TestSearch_ClientError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad key"))
	}))
	defer srv.Close()

	c := NewClient("k", WithSearchBaseURL(srv.URL))
	_, err := c.Search(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestRead_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/https://ada.dev/about", r.URL.Path)
		assert.Equal(t, "markdown", r.Header.Get("X-Return-Format"))
		_ = json.NewEncoder(w).Encode(ReadResponse{Code: 200, Data: ReadData{Title: "About", Content: "# About"}})
	}))
	defer srv.Close()

	c := NewClient("k", WithReaderBaseURL(srv.URL))
	got, err := c.Read(context.Background(), "https://ada.dev/about")
	require.NoError(t, err)
	assert.Equal(t, "About", got.Data.Title)
	assert.Equal(t, "# About", got.Data.Content)
}

func TestRead_MalformedJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	c := NewClient("k", WithReaderBaseURL(srv.URL))
	_, err := c.Read(context.Background(), "https://ada.dev")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}
