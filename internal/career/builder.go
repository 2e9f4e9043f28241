// Package career reconciles raw career events into organizations and
// person-role edges.
package career

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/normalize"
)

// MatchThreshold is the token overlap, relative to the shorter name, at which
// two organization names are treated as the same organization.
const MatchThreshold = 0.5

// genericTokens carry no identity on their own: "Stanford University" and
// "Harvard University" must not match on "university".
var genericTokens = map[string]bool{
	"the": true, "of": true, "and": true, "for": true, "at": true, "de": true,
	"inc": true, "corp": true, "corporation": true, "co": true, "company": true,
	"ltd": true, "llc": true, "gmbh": true, "group": true, "holdings": true,
	"university": true, "college": true, "institute": true, "school": true,
	"lab": true, "labs": true, "laboratory": true, "research": true, "center": true,
	"大": true, "学": true, "院": true, "公": true, "司": true, "集": true,
	"团": true, "研": true, "究": true, "所": true, "中": true, "心": true,
}

// educationKeywords mark an organization as a university.
var educationKeywords = []string{
	"university", "college", "institute of technology", "school", "academy", "polytechnic",
	"universität", "université", "universidad", "大学", "学院", "研究生院",
}

// Store is the persistence the builder needs.
type Store interface {
	GetOrganizationByExternalID(ctx context.Context, externalID string) (*model.Organization, error)
	FindOrganizationByNameKey(ctx context.Context, nameKey string) (*model.Organization, error)
	ListOrganizations(ctx context.Context) ([]model.Organization, error)
	CreateOrganization(ctx context.Context, org *model.Organization) error
	SetOrganizationLocalizedName(ctx context.Context, id, name string) error
	ListRoles(ctx context.Context, personID string) ([]model.PersonRole, error)
	InsertRole(ctx context.Context, role *model.PersonRole) error
	UpdateRole(ctx context.Context, role *model.PersonRole) error
}

// Summary counts what one Build call changed.
type Summary struct {
	Events           int `json:"events"`
	OrgsCreated      int `json:"orgs_created"`
	RolesInserted    int `json:"roles_inserted"`
	RolesUpdated     int `json:"roles_updated"`
	RolesUnchanged   int `json:"roles_unchanged"`
	Skipped          int `json:"skipped"`
	TranslationsUsed int `json:"translations_used"`
}

// Option configures a Builder.
type Option func(*Builder)

// WithTranslator enables localization into locale. language.Und disables it.
func WithTranslator(t Translator, locale language.Tag) Option {
	return func(b *Builder) {
		b.translator = t
		b.locale = locale
	}
}

// Builder resolves organizations and upserts roles.
type Builder struct {
	store      Store
	translator Translator
	locale     language.Tag
}

// NewBuilder creates a career graph builder.
func NewBuilder(s Store, opts ...Option) *Builder {
	b := &Builder{store: s, locale: language.Und}
	for _, o := range opts {
		o(b)
	}
	return b
}

// buildState is per-call scratch space.
type buildState struct {
	personID     string
	orgs         []model.Organization
	roles        []model.PersonRole
	translations map[string]string
	summary      Summary
}

// Build reconciles events for one person. A failing event is logged and
// skipped; only failures to load existing state abort the call.
func (b *Builder) Build(ctx context.Context, personID string, events []model.CareerEvent) (Summary, error) {
	st := &buildState{personID: personID}
	st.summary.Events = len(events)
	if len(events) == 0 {
		return st.summary, nil
	}

	orgs, err := b.store.ListOrganizations(ctx)
	if err != nil {
		return st.summary, eris.Wrap(err, "career: list organizations")
	}
	st.orgs = orgs
	roles, err := b.store.ListRoles(ctx, personID)
	if err != nil {
		return st.summary, eris.Wrap(err, "career: list roles")
	}
	st.roles = roles
	st.translations = b.translate(ctx, events)
	st.summary.TranslationsUsed = len(st.translations)

	for _, ev := range events {
		if err := b.apply(ctx, st, ev); err != nil {
			st.summary.Skipped++
			zap.L().Warn("career: event skipped",
				zap.String("person_id", personID),
				zap.String("organization", ev.Organization),
				zap.String("source", string(ev.Source)),
				zap.Error(err),
			)
		}
	}
	return st.summary, nil
}

func (b *Builder) apply(ctx context.Context, st *buildState, ev model.CareerEvent) error {
	if strings.TrimSpace(ev.Organization) == "" && ev.OrganizationID == "" {
		return eris.New("career: event has no organization")
	}
	org, err := b.resolveOrganization(ctx, st, ev)
	if err != nil {
		return err
	}
	return b.upsertRole(ctx, st, org, ev)
}

// resolveOrganization tries the external id, then the name key, then fuzzy
// name matching, and finally creates the organization.
func (b *Builder) resolveOrganization(ctx context.Context, st *buildState, ev model.CareerEvent) (*model.Organization, error) {
	if ev.OrganizationID != "" {
		for i := range st.orgs {
			if st.orgs[i].ExternalID == ev.OrganizationID {
				return &st.orgs[i], nil
			}
		}
		org, err := b.store.GetOrganizationByExternalID(ctx, ev.OrganizationID)
		if err != nil {
			return nil, eris.Wrapf(err, "career: organization by external id %s", ev.OrganizationID)
		}
		if org != nil {
			st.orgs = append(st.orgs, *org)
			return org, nil
		}
	}

	key := normalize.Compact(ev.Organization)
	if key != "" {
		org, err := b.store.FindOrganizationByNameKey(ctx, key)
		if err != nil {
			return nil, eris.Wrapf(err, "career: organization by name %s", ev.Organization)
		}
		if org != nil {
			return org, nil
		}
		for i := range st.orgs {
			if sameOrganization(st.orgs[i].Name, ev.Organization) {
				return &st.orgs[i], nil
			}
		}
	}

	org := &model.Organization{
		Name:       strings.TrimSpace(ev.Organization),
		Type:       inferType(ev),
		ExternalID: ev.OrganizationID,
		NameKey:    key,
	}
	if org.Name == "" {
		org.Name = ev.OrganizationID
		org.NameKey = normalize.Compact(org.Name)
	}
	if loc := st.translations[org.Name]; loc != "" {
		org.LocalizedName = loc
	}
	if err := b.store.CreateOrganization(ctx, org); err != nil {
		return nil, eris.Wrapf(err, "career: create organization %s", org.Name)
	}
	st.orgs = append(st.orgs, *org)
	st.summary.OrgsCreated++
	return org, nil
}

// sameOrganization reports whether two names denote one organization: equal
// compact keys, or distinctive token overlap of at least MatchThreshold.
func sameOrganization(a, b string) bool {
	if normalize.Compact(a) == normalize.Compact(b) {
		return true
	}
	ta, tb := distinctive(a), distinctive(b)
	if len(ta) == 0 || len(tb) == 0 {
		return false
	}
	return normalize.TokenOverlap(strings.Join(ta, " "), strings.Join(tb, " ")) >= MatchThreshold
}

func distinctive(s string) []string {
	var out []string
	for _, t := range normalize.Tokens(s) {
		if !genericTokens[t] {
			out = append(out, t)
		}
	}
	return out
}

func inferType(ev model.CareerEvent) model.OrgType {
	if ev.Type == model.EventAward {
		return model.OrgOther
	}
	name := normalize.Fold(ev.Organization)
	for _, kw := range educationKeywords {
		if strings.Contains(name, kw) {
			return model.OrgUniversity
		}
	}
	if ev.Type == model.EventEducation {
		return model.OrgUniversity
	}
	return model.OrgCompany
}

// upsertRole applies the date-merge rules against the person's existing roles.
func (b *Builder) upsertRole(ctx context.Context, st *buildState, org *model.Organization, ev model.CareerEvent) error {
	role := strings.TrimSpace(ev.Role)
	if role == "" && ev.Type == model.EventAward {
		role = "award"
	}
	if org.LocalizedName == "" {
		if loc := st.translations[org.Name]; loc != "" {
			if err := b.store.SetOrganizationLocalizedName(ctx, org.ID, loc); err != nil {
				zap.L().Debug("career: set localized name failed", zap.String("org_id", org.ID), zap.Error(err))
			} else {
				org.LocalizedName = loc
			}
		}
	}

	var sameRole []int
	for i, r := range st.roles {
		if r.OrganizationID == org.ID && normalize.Fold(r.Role) == normalize.Fold(role) {
			sameRole = append(sameRole, i)
		}
	}

	for _, i := range sameRole {
		existing := &st.roles[i]
		if !sameDate(existing.StartDate, ev.StartDate) {
			continue
		}
		if existing.EndDate == nil && ev.EndDate != nil {
			return b.update(ctx, st, existing, nil, ev)
		}
		st.summary.RolesUnchanged++
		return nil
	}

	if ev.StartDate != nil {
		for _, i := range sameRole {
			existing := &st.roles[i]
			if existing.StartDate == nil && ev.Confidence >= existing.Confidence {
				return b.update(ctx, st, existing, ev.StartDate, ev)
			}
		}
	} else {
		for _, i := range sameRole {
			existing := &st.roles[i]
			if existing.StartDate == nil {
				continue
			}
			if existing.EndDate == nil && ev.EndDate != nil {
				return b.update(ctx, st, existing, nil, ev)
			}
			st.summary.RolesUnchanged++
			return nil
		}
	}

	r := model.PersonRole{
		PersonID:       st.personID,
		OrganizationID: org.ID,
		Role:           role,
		LocalizedRole:  st.translations[role],
		StartDate:      ev.StartDate,
		EndDate:        ev.EndDate,
		Source:         ev.Source,
		Confidence:     ev.Confidence,
	}
	if err := b.store.InsertRole(ctx, &r); err != nil {
		return eris.Wrapf(err, "career: insert role %s at %s", role, org.Name)
	}
	st.roles = append(st.roles, r)
	st.summary.RolesInserted++
	return nil
}

// update fills start (when given) and a missing end date on existing.
func (b *Builder) update(ctx context.Context, st *buildState, existing *model.PersonRole, start *time.Time, ev model.CareerEvent) error {
	next := *existing
	if start != nil {
		next.StartDate = start
		next.Source = ev.Source
		next.Confidence = ev.Confidence
	}
	if next.EndDate == nil && ev.EndDate != nil {
		next.EndDate = ev.EndDate
	}
	if next.LocalizedRole == "" {
		next.LocalizedRole = st.translations[next.Role]
	}
	if err := b.store.UpdateRole(ctx, &next); err != nil {
		return eris.Wrapf(err, "career: update role %s", existing.ID)
	}
	*existing = next
	st.summary.RolesUpdated++
	return nil
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.UTC().Format(time.DateOnly) == b.UTC().Format(time.DateOnly)
}

// translate localizes every distinct organization name and role whose script
// differs from the target locale. Failures fall back to no translations.
func (b *Builder) translate(ctx context.Context, events []model.CareerEvent) map[string]string {
	out := make(map[string]string)
	if b.translator == nil || b.locale == language.Und {
		return out
	}
	wantCJK := isCJKLocale(b.locale)
	seen := make(map[string]bool)
	var texts []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] || normalize.HasCJK(s) == wantCJK {
			return
		}
		seen[s] = true
		texts = append(texts, s)
	}
	for _, ev := range events {
		add(ev.Organization)
		add(ev.Role)
	}
	if len(texts) == 0 {
		return out
	}

	got, err := b.translator.Translate(ctx, texts, b.locale)
	if err != nil {
		zap.L().Warn("career: translation failed, keeping source names",
			zap.String("locale", b.locale.String()),
			zap.Int("texts", len(texts)),
			zap.Error(err),
		)
		return out
	}
	return got
}

func isCJKLocale(tag language.Tag) bool {
	base, _ := tag.Base()
	switch base.String() {
	case "zh", "ja", "ko":
		return true
	}
	return false
}
