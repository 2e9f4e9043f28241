package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/profile-cli/pkg/perplexity"
	perplexitymocks "github.com/sells-group/profile-cli/pkg/perplexity/mocks"
)

func TestWebQAFetch(t *testing.T) {
	t.Parallel()

	client := perplexitymocks.NewMockClient(t)
	client.On("ChatCompletion", mock.Anything, mock.MatchedBy(func(req perplexity.ChatCompletionRequest) bool {
		return len(req.Messages) == 2 && req.Messages[0].Role == "system" &&
			req.SearchRecencyFilter == "" && len(req.SearchDomainFilter) == 1
	})).Return(&perplexity.ChatCompletionResponse{
		Model:     "sonar",
		Choices:   []perplexity.Choice{{Message: perplexity.Message{Role: "assistant", Content: " Jane Doe is CTO of Acme. "}}},
		Citations: []string{"https://acme.com/team"},
	}, nil).Once()

	pc := testPerson()
	pc.SeedDomains = []string{"janedoe.dev"}
	a := NewWebQA(client)
	p := NewParams(pc)
	require.True(t, a.ShouldFetch(p))

	res := a.Fetch(context.Background(), p)
	require.True(t, res.Success, "%+v", res.Error)
	require.Len(t, res.Items, 1)

	it := res.Items[0]
	assert.Equal(t, "Jane Doe is CTO of Acme.", it.Text)
	assert.False(t, it.IsOfficial)
	require.NotNil(t, it.Payload.Answer)
	assert.Equal(t, []string{"https://acme.com/team"}, it.Payload.Answer.Citations)
	assert.Equal(t, "sonar", it.Payload.Answer.Model)
	assert.Contains(t, it.URL, "/persons/p-1/answer?q=")
}

func TestWebQAEmptyAnswer(t *testing.T) {
	t.Parallel()

	client := perplexitymocks.NewMockClient(t)
	client.On("ChatCompletion", mock.Anything, mock.Anything).
		Return(&perplexity.ChatCompletionResponse{}, nil).Once()

	res := NewWebQA(client).Fetch(context.Background(), NewParams(testPerson()))
	assert.True(t, res.Success)
	assert.Empty(t, res.Items)
}
