package career

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/sells-group/profile-cli/pkg/anthropic"
	anthropicmocks "github.com/sells-group/profile-cli/pkg/anthropic/mocks"
)

func reply(s string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: s}},
		Usage:   anthropic.TokenUsage{InputTokens: 40, OutputTokens: 20},
	}
}

func TestAnthropicTranslator(t *testing.T) {
	t.Parallel()

	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == defaultTranslateModel &&
			strings.Contains(req.System, "Simplified Chinese") &&
			req.Messages[0].Content == `["Acme","Chief Technology Officer"]`
	})).Return(reply("Here you go:\n```json\n[\"阿克米\", \"首席技术官\"]\n```"), nil).Once()

	got, err := NewAnthropicTranslator(client, "").Translate(context.Background(),
		[]string{"Acme", "Chief Technology Officer"}, language.SimplifiedChinese)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Acme": "阿克米", "Chief Technology Officer": "首席技术官"}, got)
}

func TestAnthropicTranslatorErrors(t *testing.T) {
	t.Parallel()

	t.Run("length mismatch", func(t *testing.T) {
		client := anthropicmocks.NewMockClient(t)
		client.On("CreateMessage", mock.Anything, mock.Anything).Return(reply(`["阿克米"]`), nil).Once()

		_, err := NewAnthropicTranslator(client, "").Translate(context.Background(), []string{"Acme", "CTO"}, language.Japanese)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "returned 1 strings for 2 inputs")
	})

	t.Run("api error", func(t *testing.T) {
		client := anthropicmocks.NewMockClient(t)
		client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("overloaded")).Once()

		_, err := NewAnthropicTranslator(client, "").Translate(context.Background(), []string{"Acme"}, language.Japanese)
		require.Error(t, err)
	})

	t.Run("no input skips the call", func(t *testing.T) {
		client := anthropicmocks.NewMockClient(t)
		got, err := NewAnthropicTranslator(client, "").Translate(context.Background(), nil, language.Japanese)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestParseLocale(t *testing.T) {
	t.Parallel()

	tag, err := ParseLocale("")
	require.NoError(t, err)
	assert.Equal(t, language.Und, tag)

	tag, err = ParseLocale("zh-Hans")
	require.NoError(t, err)
	assert.True(t, isCJKLocale(tag))

	tag, err = ParseLocale("de")
	require.NoError(t, err)
	assert.False(t, isCJKLocale(tag))

	_, err = ParseLocale("not a locale!")
	assert.Error(t, err)
}
