package source

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/normalize"
	"github.com/sells-group/profile-cli/pkg/perplexity"
)

const (
	webQABaseURL = "https://webqa.invalid/persons/"
	webQASystem  = "Answer concisely with verifiable facts about the named person. Cite sources. If the person cannot be identified, say so."
)

// WebQA asks a search-grounded model a precise question about the person and
// keeps the answer with its citations.
type WebQA struct {
	client perplexity.Client
}

// NewWebQA creates the precision web Q&A adapter.
func NewWebQA(c perplexity.Client) *WebQA {
	return &WebQA{client: c}
}

func (w *WebQA) Source() model.SourceType { return model.SourceWebQA }

func (w *WebQA) ShouldFetch(p Params) bool {
	return w.client != nil && p.Person.Name != ""
}

func (w *WebQA) Fetch(ctx context.Context, p Params) model.DataSourceResult {
	return run(ctx, model.SourceWebQA, func(ctx context.Context) ([]model.NormalizedItem, int, error) {
		question := biographyQuestion(p.Person) + " Summarize their current role and recent public activity."
		req := perplexity.ChatCompletionRequest{
			Messages: []perplexity.Message{
				{Role: "system", Content: webQASystem},
				{Role: "user", Content: question},
			},
		}
		if p.since() != nil {
			req.SearchRecencyFilter = "month"
		}
		if len(p.SeedDomains) > 0 {
			req.SearchDomainFilter = p.SeedDomains
		}

		resp, err := w.client.ChatCompletion(ctx, req)
		if err != nil {
			return nil, 0, eris.Wrap(err, "web_qa: chat completion")
		}
		answer := strings.TrimSpace(resp.Text())
		if answer == "" {
			return nil, 1, nil
		}

		q := url.Values{}
		q.Set("q", normalize.ContentHash(question, ""))
		item := newItem(model.SourceWebQA, p, itemSpec{
			url:        webQABaseURL + url.PathEscape(p.Person.PersonID) + "/answer?" + q.Encode(),
			title:      p.Person.Name,
			text:       answer,
			confidence: ConfidenceDefault,
			payload: model.Payload{Kind: model.PayloadAnswer, Answer: &model.AnswerPayload{
				Question:  question,
				Model:     resp.Model,
				Citations: resp.Citations,
			}},
		})
		return []model.NormalizedItem{item}, 1, nil
	})
}
