package store

import (
	"encoding/json"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rotisserie/eris"

	"github.com/sells-group/profile-cli/internal/model"
)

type scannable interface {
	Scan(dest ...any) error
}

var personColumns = []string{
	"id", "name", "english_name", "aliases", "description", "avatar_url",
	"occupations", "organizations", "official_links", "qid", "orcid",
	"status", "completeness", "last_fetched_at", "created_at", "updated_at",
}

var itemColumns = []string{
	"id", "person_id", "source", "url", "url_hash", "content_hash", "title",
	"text", "author", "published_at", "fetched_at", "is_official", "confidence", "payload",
}

var orgColumns = []string{
	"id", "name", "localized_name", "type", "external_id", "name_key", "created_at",
}

var roleColumns = []string{
	"id", "person_id", "organization_id", "role", "localized_role", "start_date",
	"end_date", "source", "confidence", "updated_at",
}

// personQuery builds the ListPersons select. Deleted persons are hidden
// unless asked for by status.
func personQuery(f PersonFilter, ph sq.PlaceholderFormat) (string, []any, error) {
	q := sq.Select(personColumns...).From("persons").OrderBy("updated_at ASC", "id ASC")
	if f.Status != "" {
		q = q.Where(sq.Eq{"status": string(f.Status)})
	} else {
		q = q.Where(sq.NotEq{"status": string(model.PersonStatusDeleted)})
	}
	if f.Name != "" {
		q = q.Where(sq.Like{"LOWER(name)": "%" + strings.ToLower(f.Name) + "%"})
	}
	if !f.UpdatedBefore.IsZero() {
		q = q.Where(sq.Lt{"updated_at": f.UpdatedBefore.UTC()})
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	q = q.Limit(uint64(limit))
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}
	sqlStr, args, err := q.PlaceholderFormat(ph).ToSql()
	return sqlStr, args, eris.Wrap(err, "store: build person query")
}

// itemQuery builds the ListItems select; an empty source lists all sources.
func itemQuery(personID string, source model.SourceType, ph sq.PlaceholderFormat) (string, []any, error) {
	q := sq.Select(itemColumns...).From("items").
		Where(sq.Eq{"person_id": personID}).
		OrderBy("fetched_at DESC", "url_hash ASC")
	if source != "" {
		q = q.Where(sq.Eq{"source": string(source)})
	}
	sqlStr, args, err := q.PlaceholderFormat(ph).ToSql()
	return sqlStr, args, eris.Wrap(err, "store: build item query")
}

type personJSON struct {
	aliases, occupations, organizations, links, fetched []byte
}

func encodePerson(p *model.Person) (personJSON, error) {
	var out personJSON
	var err error
	if out.aliases, err = json.Marshal(nonNil(p.Aliases)); err != nil {
		return out, eris.Wrap(err, "store: marshal aliases")
	}
	if out.occupations, err = json.Marshal(nonNil(p.Occupations)); err != nil {
		return out, eris.Wrap(err, "store: marshal occupations")
	}
	if out.organizations, err = json.Marshal(nonNil(p.Organizations)); err != nil {
		return out, eris.Wrap(err, "store: marshal organizations")
	}
	links := p.OfficialLinks
	if links == nil {
		links = []model.OfficialLink{}
	}
	if out.links, err = json.Marshal(links); err != nil {
		return out, eris.Wrap(err, "store: marshal official links")
	}
	fetched := p.LastFetchedAt
	if fetched == nil {
		fetched = map[model.SourceType]time.Time{}
	}
	if out.fetched, err = json.Marshal(fetched); err != nil {
		return out, eris.Wrap(err, "store: marshal last fetched")
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func scanPerson(row scannable) (*model.Person, error) {
	var p model.Person
	var raw personJSON
	var status string
	err := row.Scan(&p.ID, &p.Name, &p.EnglishName, &raw.aliases, &p.Description, &p.AvatarURL,
		&raw.occupations, &raw.organizations, &raw.links, &p.QID, &p.ORCID,
		&status, &p.Completeness, &raw.fetched, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = model.PersonStatus(status)
	for _, f := range []struct {
		data []byte
		dst  any
	}{
		{raw.aliases, &p.Aliases},
		{raw.occupations, &p.Occupations},
		{raw.organizations, &p.Organizations},
		{raw.links, &p.OfficialLinks},
		{raw.fetched, &p.LastFetchedAt},
	} {
		if len(f.data) == 0 {
			continue
		}
		if err := json.Unmarshal(f.data, f.dst); err != nil {
			return nil, eris.Wrapf(err, "store: unmarshal person %s", p.ID)
		}
	}
	return &p, nil
}

func scanItem(row scannable) (*model.NormalizedItem, error) {
	var it model.NormalizedItem
	var source string
	var payload []byte
	err := row.Scan(&it.ID, &it.PersonID, &source, &it.URL, &it.URLHash, &it.ContentHash,
		&it.Title, &it.Text, &it.Author, &it.PublishedAt, &it.FetchedAt, &it.IsOfficial,
		&it.Confidence, &payload)
	if err != nil {
		return nil, err
	}
	it.Source = model.SourceType(source)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &it.Payload); err != nil {
			return nil, eris.Wrapf(err, "store: unmarshal payload %s", it.URLHash)
		}
	}
	return &it, nil
}

func scanOrganization(row scannable) (*model.Organization, error) {
	var o model.Organization
	var typ string
	var externalID *string
	if err := row.Scan(&o.ID, &o.Name, &o.LocalizedName, &typ, &externalID, &o.NameKey, &o.CreatedAt); err != nil {
		return nil, err
	}
	o.Type = model.OrgType(typ)
	if externalID != nil {
		o.ExternalID = *externalID
	}
	return &o, nil
}

func scanRole(row scannable) (*model.PersonRole, error) {
	var r model.PersonRole
	var source string
	err := row.Scan(&r.ID, &r.PersonID, &r.OrganizationID, &r.Role, &r.LocalizedRole,
		&r.StartDate, &r.EndDate, &source, &r.Confidence, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Source = model.SourceType(source)
	return &r, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
