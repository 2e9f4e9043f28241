package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/resilience"
	"github.com/sells-group/profile-cli/pkg/anthropic"
)

const (
	defaultKnowledgeModel = "claude-haiku-4-5-20251001"
	knowledgeMaxTokens    = 2048
	// knowledgeBaseURL roots the synthetic URLs of generated items.
	knowledgeBaseURL = "https://knowledge.invalid/persons/"
)

const knowledgeSystem = `You are a careful biographer. Answer only with facts you are confident about.
Reply with a single JSON object and nothing else:
{"summary": string, "occupations": [string],
 "career": [{"type": "education"|"career"|"award", "organization": string, "role": string, "start": "YYYY[-MM[-DD]]", "end": "YYYY[-MM[-DD]]"}]}
Use empty strings for unknown dates. If you do not know the person, return {"summary": "", "occupations": [], "career": []}.`

type biography struct {
	Summary     string   `json:"summary"`
	Occupations []string `json:"occupations"`
	Career      []struct {
		Type         string `json:"type"`
		Organization string `json:"organization"`
		Role         string `json:"role"`
		Start        string `json:"start"`
		End          string `json:"end"`
	} `json:"career"`
}

// Knowledge asks a language model for a short biography. It is the fallback
// when structured sources are thin, so its items carry low confidence.
type Knowledge struct {
	client anthropic.Client
	model  string
}

// NewKnowledge creates the generic-knowledge adapter.
func NewKnowledge(c anthropic.Client, modelName string) *Knowledge {
	if modelName == "" {
		modelName = defaultKnowledgeModel
	}
	return &Knowledge{client: c, model: modelName}
}

func (k *Knowledge) Source() model.SourceType { return model.SourceKnowledge }

func (k *Knowledge) ShouldFetch(p Params) bool {
	return k.client != nil && p.Person.Name != ""
}

func (k *Knowledge) Fetch(ctx context.Context, p Params) model.DataSourceResult {
	return run(ctx, model.SourceKnowledge, func(ctx context.Context) ([]model.NormalizedItem, int, error) {
		question := biographyQuestion(p.Person)
		resp, err := k.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     k.model,
			MaxTokens: knowledgeMaxTokens,
			System:    knowledgeSystem,
			Messages:  []anthropic.Message{{Role: "user", Content: question}},
		})
		if err != nil {
			return nil, 0, eris.Wrap(err, "knowledge: create message")
		}
		resp.Usage.LogCost(k.model, "knowledge")

		var bio biography
		if err := anthropic.DecodeJSON(resp, &bio); err != nil {
			return nil, 1, resilience.NewValidationError(eris.Wrap(err, "knowledge: decode biography"))
		}
		if strings.TrimSpace(bio.Summary) == "" && len(bio.Career) == 0 {
			return nil, 1, nil
		}

		root := knowledgeBaseURL + url.PathEscape(p.Person.PersonID)
		items := []model.NormalizedItem{newItem(model.SourceKnowledge, p, itemSpec{
			url:        root + "/biography",
			title:      p.Person.Name,
			text:       strings.TrimSpace(bio.Summary + "\n" + strings.Join(bio.Occupations, ", ")),
			confidence: ConfidenceLow,
			payload: model.Payload{Kind: model.PayloadAnswer, Answer: &model.AnswerPayload{
				Question: question,
				Model:    k.model,
			}},
		})}

		var events []model.CareerEvent
		for _, c := range bio.Career {
			org := strings.TrimSpace(c.Organization)
			if org == "" {
				continue
			}
			events = append(events, model.CareerEvent{
				Type:         eventType(c.Type),
				Organization: org,
				Role:         strings.TrimSpace(c.Role),
				StartDate:    parseTime(c.Start),
				EndDate:      parseTime(c.End),
				Confidence:   ConfidenceLow,
				Source:       model.SourceKnowledge,
			})
		}
		if len(events) > 0 {
			items = append(items, newItem(model.SourceKnowledge, p, itemSpec{
				url:        root + "/career",
				title:      p.Person.Name + " career",
				text:       careerSummary(events),
				confidence: ConfidenceLow,
				payload: model.Payload{Kind: model.PayloadCareer, Career: &model.CareerPayload{
					Events: events,
				}},
			}))
		}
		return items, 1, nil
	})
}

func biographyQuestion(pc model.PersonContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Who is %s?", pc.Name)
	if pc.EnglishName != "" && pc.EnglishName != pc.Name {
		fmt.Fprintf(&b, " Also known as %s.", pc.EnglishName)
	}
	if len(pc.Occupations) > 0 {
		fmt.Fprintf(&b, " Occupation: %s.", strings.Join(pc.Occupations, ", "))
	}
	if len(pc.Organizations) > 0 {
		fmt.Fprintf(&b, " Affiliated with: %s.", strings.Join(pc.Organizations, ", "))
	}
	return b.String()
}

func eventType(s string) model.CareerEventType {
	switch model.CareerEventType(strings.ToLower(strings.TrimSpace(s))) {
	case model.EventEducation:
		return model.EventEducation
	case model.EventAward:
		return model.EventAward
	default:
		return model.EventCareer
	}
}
