package source

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/profile-cli/internal/fetcher"
	"github.com/sells-group/profile-cli/internal/model"
)

const wikidataBaseURL = "https://www.wikidata.org"

// Wikidata properties used for career events.
const (
	propEmployer    = "P108"
	propEducatedAt  = "P69"
	propAward       = "P166"
	propImage       = "P18"
	propStartTime   = "P580"
	propEndTime     = "P582"
	propPointInTime = "P585"
	propPosition    = "P39"
	propAcademicDeg = "P512"
	propRole        = "P2868"
)

var wikidataLangs = []string{"en", "zh"}

type wdEntities struct {
	Entities map[string]wdEntity `json:"entities"`
}

type wdEntity struct {
	ID           string                   `json:"id"`
	Missing      *string                  `json:"missing,omitempty"`
	Labels       map[string]wdText        `json:"labels"`
	Descriptions map[string]wdText        `json:"descriptions"`
	Aliases      map[string][]wdText      `json:"aliases"`
	Claims       map[string][]wdStatement `json:"claims"`
}

type wdText struct {
	Value string `json:"value"`
}

type wdStatement struct {
	Mainsnak   wdSnak              `json:"mainsnak"`
	Qualifiers map[string][]wdSnak `json:"qualifiers"`
	Rank       string              `json:"rank"`
}

type wdSnak struct {
	Snaktype  string `json:"snaktype"`
	Datavalue struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	} `json:"datavalue"`
}

// entityID returns the QID of a wikibase-entityid snak.
func (s wdSnak) entityID() string {
	if s.Datavalue.Type != "wikibase-entityid" {
		return ""
	}
	var v struct {
		ID string `json:"id"`
	}
	if json.Unmarshal(s.Datavalue.Value, &v) != nil {
		return ""
	}
	return v.ID
}

// timeValue parses a time snak, e.g. "+2019-03-00T00:00:00Z".
func (s wdSnak) timeValue() *time.Time {
	if s.Datavalue.Type != "time" {
		return nil
	}
	var v struct {
		Time      string `json:"time"`
		Precision int    `json:"precision"`
	}
	if json.Unmarshal(s.Datavalue.Value, &v) != nil {
		return nil
	}
	return parseWikidataTime(v.Time)
}

func (s wdSnak) stringValue() string {
	if s.Datavalue.Type != "string" {
		return ""
	}
	var v string
	if json.Unmarshal(s.Datavalue.Value, &v) != nil {
		return ""
	}
	return v
}

func parseWikidataTime(raw string) *time.Time {
	raw = strings.TrimPrefix(raw, "+")
	if len(raw) < 10 || strings.HasPrefix(raw, "-") {
		return nil
	}
	date := raw[:10]
	date = strings.Replace(date, "-00-", "-01-", 1)
	if strings.HasSuffix(date, "-00") {
		date = date[:8] + "01"
	}
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil
	}
	return &t
}

// Wikidata fetches the person's entity by QID and derives career events from
// employer, education and award claims.
type Wikidata struct {
	http    fetcher.Fetcher
	baseURL string
}

// NewWikidata creates the knowledge-graph adapter.
func NewWikidata(f fetcher.Fetcher, baseURL string) *Wikidata {
	return &Wikidata{http: f, baseURL: strings.TrimRight(baseURL, "/")}
}

func (w *Wikidata) Source() model.SourceType { return model.SourceWikidata }

func (w *Wikidata) ShouldFetch(p Params) bool {
	return w.http != nil && strings.HasPrefix(strings.ToUpper(p.QID), "Q")
}

func (w *Wikidata) Fetch(ctx context.Context, p Params) model.DataSourceResult {
	return run(ctx, model.SourceWikidata, func(ctx context.Context) ([]model.NormalizedItem, int, error) {
		qid := strings.ToUpper(strings.TrimSpace(p.QID))
		entities, err := w.getEntities(ctx, []string{qid}, "labels|descriptions|aliases|claims")
		if err != nil {
			return nil, 0, err
		}
		ent, ok := entities[qid]
		if !ok || ent.Missing != nil {
			return nil, 0, nil
		}

		items := []model.NormalizedItem{w.entityItem(p, ent)}

		events, refs := careerClaims(ent)
		if len(events) == 0 {
			return items, 1, nil
		}
		labels, err := w.labels(ctx, refs)
		if err != nil {
			return nil, 1, eris.Wrap(err, "wikidata: resolve career labels")
		}
		for i := range events {
			e := &events[i]
			e.Organization = labels[e.OrganizationID]
			if e.Role != "" {
				e.Role = labels[e.Role]
			}
		}
		events = dropUnnamed(events)
		if len(events) > 0 {
			items = append(items, newItem(model.SourceWikidata, p, itemSpec{
				url:        wikidataBaseURL + "/wiki/Special:EntityData/" + qid + ".json",
				title:      firstText(ent.Labels) + " career",
				text:       careerSummary(events),
				official:   true,
				confidence: ConfidenceOfficial,
				payload:    model.Payload{Kind: model.PayloadCareer, Career: &model.CareerPayload{Events: events}},
			}))
		}
		return items, 1, nil
	})
}

func (w *Wikidata) getEntities(ctx context.Context, ids []string, props string) (map[string]wdEntity, error) {
	q := url.Values{}
	q.Set("action", "wbgetentities")
	q.Set("format", "json")
	q.Set("ids", strings.Join(ids, "|"))
	q.Set("props", props)
	q.Set("languages", strings.Join(wikidataLangs, "|"))

	var resp wdEntities
	if err := w.http.GetJSON(ctx, w.baseURL+"/w/api.php?"+q.Encode(), nil, &resp); err != nil {
		return nil, eris.Wrap(err, "wikidata: get entities")
	}
	return resp.Entities, nil
}

// labels resolves QIDs to labels in batches of 50, the API's id limit.
func (w *Wikidata) labels(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	for start := 0; start < len(ids); start += 50 {
		end := min(start+50, len(ids))
		ents, err := w.getEntities(ctx, ids[start:end], "labels")
		if err != nil {
			return nil, err
		}
		for id, e := range ents {
			out[id] = firstText(e.Labels)
		}
	}
	return out, nil
}

func (w *Wikidata) entityItem(p Params, ent wdEntity) model.NormalizedItem {
	var aliases []string
	for _, lang := range wikidataLangs {
		for _, a := range ent.Aliases[lang] {
			aliases = append(aliases, a.Value)
		}
		if l, ok := ent.Labels[lang]; ok {
			aliases = append(aliases, l.Value)
		}
	}
	var image string
	for _, st := range ent.Claims[propImage] {
		if f := st.Mainsnak.stringValue(); f != "" {
			image = "https://commons.wikimedia.org/wiki/Special:FilePath/" + url.PathEscape(strings.ReplaceAll(f, " ", "_"))
			break
		}
	}
	label := firstText(ent.Labels)
	desc := firstText(ent.Descriptions)
	return newItem(model.SourceWikidata, p, itemSpec{
		url:        wikidataBaseURL + "/wiki/" + ent.ID,
		title:      label,
		text:       desc,
		official:   true,
		confidence: ConfidenceOfficial,
		payload: model.Payload{Kind: model.PayloadEntity, Entity: &model.EntityPayload{
			QID:         ent.ID,
			Label:       label,
			Description: desc,
			Aliases:     model.UniqueStrings(aliases),
			ImageURL:    image,
		}},
	})
}

// careerClaims returns raw events keyed by organization QID, plus every QID
// whose label is needed.
func careerClaims(ent wdEntity) ([]model.CareerEvent, []string) {
	var events []model.CareerEvent
	seen := make(map[string]bool)
	var refs []string
	ref := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			refs = append(refs, id)
		}
	}

	for _, c := range []struct {
		prop string
		typ  model.CareerEventType
	}{
		{propEmployer, model.EventCareer},
		{propEducatedAt, model.EventEducation},
		{propAward, model.EventAward},
	} {
		for _, st := range ent.Claims[c.prop] {
			if st.Rank == "deprecated" {
				continue
			}
			orgID := st.Mainsnak.entityID()
			if orgID == "" {
				continue
			}
			ref(orgID)
			e := model.CareerEvent{
				Type:           c.typ,
				OrganizationID: orgID,
				StartDate:      qualifierTime(st, propStartTime),
				EndDate:        qualifierTime(st, propEndTime),
				Confidence:     ConfidenceOfficial,
				Source:         model.SourceWikidata,
			}
			if c.typ == model.EventAward {
				e.StartDate = qualifierTime(st, propPointInTime)
			}
			for _, rp := range []string{propPosition, propRole, propAcademicDeg} {
				if qs := st.Qualifiers[rp]; len(qs) > 0 {
					if id := qs[0].entityID(); id != "" {
						e.Role = id
						ref(id)
						break
					}
				}
			}
			events = append(events, e)
		}
	}
	return events, refs
}

func qualifierTime(st wdStatement, prop string) *time.Time {
	for _, q := range st.Qualifiers[prop] {
		if t := q.timeValue(); t != nil {
			return t
		}
	}
	return nil
}

func dropUnnamed(events []model.CareerEvent) []model.CareerEvent {
	out := events[:0]
	for _, e := range events {
		if strings.TrimSpace(e.Organization) == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}

func careerSummary(events []model.CareerEvent) string {
	var b strings.Builder
	for _, e := range events {
		b.WriteString(string(e.Type))
		b.WriteString(": ")
		b.WriteString(e.Organization)
		if e.Role != "" {
			b.WriteString(" (" + e.Role + ")")
		}
		if e.StartDate != nil {
			b.WriteString(" from " + e.StartDate.Format("2006-01"))
		}
		if e.EndDate != nil {
			b.WriteString(" to " + e.EndDate.Format("2006-01"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func firstText(m map[string]wdText) string {
	for _, lang := range wikidataLangs {
		if v, ok := m[lang]; ok && v.Value != "" {
			return v.Value
		}
	}
	for _, v := range m {
		return v.Value
	}
	return ""
}
