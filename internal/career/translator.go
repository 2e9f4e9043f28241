package career

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/sells-group/profile-cli/pkg/anthropic"
)

const (
	defaultTranslateModel = "claude-haiku-4-5-20251001"
	translateMaxTokens    = 4096
)

// Translator localizes a batch of short strings such as organization names
// and job titles. The result maps each input to its translation; inputs it
// could not translate may be absent.
type Translator interface {
	Translate(ctx context.Context, texts []string, target language.Tag) (map[string]string, error)
}

// AnthropicTranslator translates through the Messages API in one call per batch.
type AnthropicTranslator struct {
	client anthropic.Client
	model  string
}

// NewAnthropicTranslator creates a translator.
func NewAnthropicTranslator(c anthropic.Client, modelName string) *AnthropicTranslator {
	if modelName == "" {
		modelName = defaultTranslateModel
	}
	return &AnthropicTranslator{client: c, model: modelName}
}

// ParseLocale validates a BCP 47 locale. An empty string yields language.Und.
func ParseLocale(s string) (language.Tag, error) {
	if s == "" {
		return language.Und, nil
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.Und, eris.Wrapf(err, "career: invalid locale %q", s)
	}
	return tag, nil
}

func (t *AnthropicTranslator) Translate(ctx context.Context, texts []string, target language.Tag) (map[string]string, error) {
	if len(texts) == 0 {
		return map[string]string{}, nil
	}
	input, err := json.Marshal(texts)
	if err != nil {
		return nil, eris.Wrap(err, "career: marshal translation input")
	}

	lang := display.English.Languages().Name(target)
	system := fmt.Sprintf(`Translate each string of the JSON array into %s (%s). These are organization names and job titles: use the official %s name where one exists.
Reply with a JSON array of the same length and order, and nothing else.`, lang, target, lang)

	resp, err := t.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     t.model,
		MaxTokens: translateMaxTokens,
		System:    system,
		Messages:  []anthropic.Message{{Role: "user", Content: string(input)}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "career: translate")
	}
	resp.Usage.LogCost(t.model, "career_translate")

	var out []string
	if err := anthropic.DecodeJSON(resp, &out); err != nil {
		return nil, eris.Wrap(err, "career: decode translation")
	}
	if len(out) != len(texts) {
		return nil, eris.Errorf("career: translation returned %d strings for %d inputs", len(out), len(texts))
	}
	result := make(map[string]string, len(texts))
	for i, src := range texts {
		if out[i] != "" {
			result[src] = out[i]
		}
	}
	return result, nil
}
