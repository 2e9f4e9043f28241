package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/resilience"
)

func deadLetter(id string, errType string, retries, maxRetries int, next time.Time) resilience.DLQEntry {
	now := time.Now().UTC()
	return resilience.DLQEntry{
		ID:           id,
		Request:      model.BuildRequest{PersonID: "person-" + id, PersonName: "Jane Doe"},
		Error:        "upstream unavailable",
		ErrorType:    errType,
		FailedStep:   "build",
		RetryCount:   retries,
		MaxRetries:   maxRetries,
		NextRetryAt:  next,
		CreatedAt:    now,
		LastFailedAt: now,
	}
}

func TestRetryDeadLetters(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()
	past := time.Now().UTC().Add(-time.Minute)

	for _, e := range []resilience.DLQEntry{
		deadLetter("due", "transient", 0, 3, past),
		deadLetter("later", "transient", 0, 3, time.Now().UTC().Add(time.Hour)),
		deadLetter("spent", "transient", 3, 3, past),
		deadLetter("fatal", "permanent", 0, 0, past),
	} {
		require.NoError(t, st.EnqueueDLQ(ctx, e))
	}

	q := &fakeQueue{}
	n, err := retryDeadLetters(ctx, st, q, resilience.DLQFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	reqs := q.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "person-due", reqs[0].PersonID)

	left, err := st.ListDLQ(ctx, resilience.DLQFilter{})
	require.NoError(t, err)
	require.Len(t, left, 4)
	byID := make(map[string]resilience.DLQEntry, len(left))
	for _, e := range left {
		byID[e.ID] = e
	}
	due := byID["due"]
	assert.Equal(t, 1, due.RetryCount)
	assert.True(t, due.NextRetryAt.After(time.Now()))
	assert.Equal(t, 3, byID["spent"].RetryCount)

	// A second pass finds nothing due.
	n, err = retryDeadLetters(ctx, st, q, resilience.DLQFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRetryDeadLettersFilter(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()
	past := time.Now().UTC().Add(-time.Minute)

	require.NoError(t, st.EnqueueDLQ(ctx, deadLetter("a", "transient", 0, 3, past)))
	require.NoError(t, st.EnqueueDLQ(ctx, deadLetter("b", "permanent", 0, 1, past)))

	q := &fakeQueue{}
	n, err := retryDeadLetters(ctx, st, q, resilience.DLQFilter{ErrorType: "permanent"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, q.requests(), 1)
	assert.Equal(t, "person-b", q.requests()[0].PersonID)
}

func TestRetryDeadLettersEnqueueFailure(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.EnqueueDLQ(ctx, deadLetter("due", "transient", 0, 3, time.Now().UTC().Add(-time.Minute))))

	q := &fakeQueue{err: errors.New("queue closed")}
	n, err := retryDeadLetters(ctx, st, q, resilience.DLQFilter{})
	require.Error(t, err)
	assert.Zero(t, n)

	left, err := st.ListDLQ(ctx, resilience.DLQFilter{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, 1, left[0].RetryCount, "the attempt spends budget")
}

func TestRenderDLQTable(t *testing.T) {
	t.Parallel()

	e := deadLetter("dlq-1", "transient", 1, 3, time.Now())
	e.Error = "fetch wikidata: connection reset by peer while reading the entity document for this person"
	out := renderDLQTable([]resilience.DLQEntry{e})

	assert.Contains(t, out, "dlq-1")
	assert.Contains(t, out, "person-dlq-1")
	assert.Contains(t, out, "1/3")
	assert.Contains(t, out, "…")
	assert.NotContains(t, out, "for this person")
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "héll…", truncate("héllo wörld", 5))
}
