package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/profile-cli/internal/config"
	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/queue"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: filepath.Join(t.TempDir(), "env.db"),
		},
		Queue: config.QueueConfig{
			Driver:              "local",
			MaxConcurrentBuilds: 2,
			MaxAttempts:         3,
		},
		Pipeline: config.PipelineConfig{
			ConfidenceThreshold:  0.6,
			FallbackConfidence:   40,
			MaxConcurrentSources: 4,
			SourceTimeoutSecs:    5,
			MaxResults:           10,
		},
		Scorer: config.ScorerConfig{FreshnessDecayPerWeek: 2.5},
	}
}

func TestInitStore(t *testing.T) {
	t.Parallel()

	c := testConfig(t)
	st, err := initStore(context.Background(), c)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	require.NoError(t, st.Ping(context.Background()))
	require.NoError(t, st.Close())

	c.Store.Driver = "mysql"
	_, err = initStore(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestInitEnv(t *testing.T) {
	t.Parallel()

	env, err := initEnv(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Store)
	assert.NotNil(t, env.Pipeline)
	assert.NotNil(t, env.Scorer)
}

func TestInitEnvBadLexicon(t *testing.T) {
	t.Parallel()

	c := testConfig(t)
	c.QA.LexiconPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := initEnv(context.Background(), c)
	require.Error(t, err)
}

func TestBaseURLs(t *testing.T) {
	t.Parallel()

	c := &config.Config{}
	assert.Empty(t, baseURLs(c))

	c.Wikidata.BaseURL = "http://wd.test"
	c.GitHub.BaseURL = "http://gh.test"
	c.OpenAlex.BaseURL = "http://oa.test"
	assert.Equal(t, map[model.SourceType]string{
		model.SourceWikidata: "http://wd.test",
		model.SourceGitHub:   "http://gh.test",
		model.SourceScholar:  "http://oa.test",
	}, baseURLs(c))
}

func TestSourceDepsSkipsMissingKeys(t *testing.T) {
	t.Parallel()

	c := testConfig(t)
	d := sourceDeps(c)
	assert.NotNil(t, d.HTTP)
	assert.Nil(t, d.Jina)
	assert.Nil(t, d.Perplexity)
	assert.Nil(t, d.Anthropic)
	assert.Equal(t, 40, d.FallbackConfidence)

	c.Jina.Key = "jina-key"
	c.Perplexity.Key = "pplx-key"
	c.Anthropic.Key = "sk-ant"
	c.GitHub.Token = "ghp"
	d = sourceDeps(c)
	assert.NotNil(t, d.Jina)
	assert.NotNil(t, d.Perplexity)
	assert.NotNil(t, d.Anthropic)
	assert.Equal(t, "ghp", d.Keys.GitHubToken)
}

func TestInitQueue(t *testing.T) {
	t.Parallel()

	c := testConfig(t)
	env, err := initEnv(context.Background(), c)
	require.NoError(t, err)
	defer env.Close()

	q, err := initQueue(c, env)
	require.NoError(t, err)
	assert.IsType(t, &queue.LocalQueue{}, q)
	require.NoError(t, q.Close())

	c.Queue.Driver = "sqs"
	_, err = initQueue(c, env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported queue driver")
}
