package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/resilience"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS persons (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	english_name    TEXT NOT NULL DEFAULT '',
	aliases         TEXT NOT NULL DEFAULT '[]',
	description     TEXT NOT NULL DEFAULT '',
	avatar_url      TEXT NOT NULL DEFAULT '',
	occupations     TEXT NOT NULL DEFAULT '[]',
	organizations   TEXT NOT NULL DEFAULT '[]',
	official_links  TEXT NOT NULL DEFAULT '[]',
	qid             TEXT NOT NULL DEFAULT '',
	orcid           TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT 'pending',
	completeness    INTEGER NOT NULL DEFAULT 0,
	last_fetched_at TEXT NOT NULL DEFAULT '{}',
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_persons_status ON persons(status);
CREATE INDEX IF NOT EXISTS idx_persons_updated_at ON persons(updated_at);

CREATE TABLE IF NOT EXISTS items (
	id           TEXT PRIMARY KEY,
	person_id    TEXT NOT NULL REFERENCES persons(id) ON DELETE CASCADE,
	source       TEXT NOT NULL,
	url          TEXT NOT NULL,
	url_hash     TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	text         TEXT NOT NULL DEFAULT '',
	author       TEXT NOT NULL DEFAULT '',
	published_at DATETIME,
	fetched_at   DATETIME NOT NULL,
	is_official  BOOLEAN NOT NULL DEFAULT 0,
	confidence   INTEGER NOT NULL DEFAULT 0,
	payload      TEXT NOT NULL DEFAULT '{}',
	UNIQUE (person_id, url_hash)
);

CREATE INDEX IF NOT EXISTS idx_items_person_source ON items(person_id, source);

CREATE TABLE IF NOT EXISTS organizations (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	localized_name TEXT NOT NULL DEFAULT '',
	type           TEXT NOT NULL DEFAULT 'company',
	external_id    TEXT UNIQUE,
	name_key       TEXT NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_organizations_name_key ON organizations(name_key);

CREATE TABLE IF NOT EXISTS person_roles (
	id              TEXT PRIMARY KEY,
	person_id       TEXT NOT NULL REFERENCES persons(id) ON DELETE CASCADE,
	organization_id TEXT NOT NULL REFERENCES organizations(id),
	role            TEXT NOT NULL DEFAULT '',
	localized_role  TEXT NOT NULL DEFAULT '',
	start_date      DATETIME,
	end_date        DATETIME,
	source          TEXT NOT NULL,
	confidence      INTEGER NOT NULL DEFAULT 0,
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (person_id, organization_id, role, start_date)
);

CREATE INDEX IF NOT EXISTS idx_person_roles_person ON person_roles(person_id);

CREATE TABLE IF NOT EXISTS dead_letter_queue (
	id             TEXT PRIMARY KEY,
	request        TEXT NOT NULL,
	error          TEXT NOT NULL,
	error_type     TEXT NOT NULL DEFAULT 'transient',
	failed_step    TEXT NOT NULL DEFAULT '',
	retry_count    INTEGER NOT NULL DEFAULT 0,
	max_retries    INTEGER NOT NULL DEFAULT 3,
	next_retry_at  DATETIME NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	last_failed_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_dlq_next_retry ON dead_letter_queue(next_retry_at);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Persons ---

func (s *SQLiteStore) GetPerson(ctx context.Context, id string) (*model.Person, error) {
	query, args, err := sq.Select(personColumns...).From("persons").
		Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: build person query")
	}
	p, err := scanPerson(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get person %s", id)
	}
	return p, nil
}

func (s *SQLiteStore) UpsertPerson(ctx context.Context, p *model.Person) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = model.PersonStatusPending
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	raw, err := encodePerson(p)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO persons (id, name, english_name, aliases, description, avatar_url, occupations, organizations, official_links, qid, orcid, status, completeness, last_fetched_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name, english_name = excluded.english_name, aliases = excluded.aliases,
		   description = excluded.description, avatar_url = excluded.avatar_url,
		   occupations = excluded.occupations, organizations = excluded.organizations,
		   official_links = excluded.official_links, qid = excluded.qid, orcid = excluded.orcid,
		   updated_at = excluded.updated_at`,
		p.ID, p.Name, p.EnglishName, string(raw.aliases), p.Description, p.AvatarURL,
		string(raw.occupations), string(raw.organizations), string(raw.links), p.QID, p.ORCID,
		string(p.Status), p.Completeness, string(raw.fetched), p.CreatedAt, p.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: upsert person %s", p.ID)
}

func (s *SQLiteStore) UpdatePersonStatus(ctx context.Context, id string, status model.PersonStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE persons SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update person status %s", id)
	}
	return checkRowsAffected(res, "person", id)
}

func (s *SQLiteStore) FinishBuild(ctx context.Context, id string, status model.PersonStatus, completeness int, fetched map[model.SourceType]time.Time) error {
	if fetched == nil {
		fetched = map[model.SourceType]time.Time{}
	}
	fetchedJSON, err := json.Marshal(fetched)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal last fetched")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE persons SET status = ?, completeness = ?,
		   last_fetched_at = json_patch(COALESCE(last_fetched_at, '{}'), ?), updated_at = ?
		 WHERE id = ?`,
		string(status), completeness, string(fetchedJSON), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish build %s", id)
	}
	return checkRowsAffected(res, "person", id)
}

func (s *SQLiteStore) ListPersons(ctx context.Context, filter PersonFilter) ([]model.Person, error) {
	query, args, err := personQuery(filter, sq.Question)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list persons")
	}
	defer rows.Close() //nolint:errcheck

	var persons []model.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan person")
		}
		persons = append(persons, *p)
	}
	return persons, eris.Wrap(rows.Err(), "sqlite: list persons iterate")
}

// --- Items ---

func (s *SQLiteStore) ItemHashes(ctx context.Context, personID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url_hash, content_hash FROM items WHERE person_id = ?`, personID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: item hashes")
	}
	defer rows.Close() //nolint:errcheck

	hashes := make(map[string]string)
	for rows.Next() {
		var urlHash, contentHash string
		if err := rows.Scan(&urlHash, &contentHash); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan item hash")
		}
		hashes[urlHash] = contentHash
	}
	return hashes, eris.Wrap(rows.Err(), "sqlite: item hashes iterate")
}

func (s *SQLiteStore) UpsertItem(ctx context.Context, item *model.NormalizedItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	payload, err := json.Marshal(item.Payload)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal payload")
	}
	var id string
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO items (id, person_id, source, url, url_hash, content_hash, title, text, author, published_at, fetched_at, is_official, confidence, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (person_id, url_hash) DO UPDATE SET
		   source = excluded.source, url = excluded.url, content_hash = excluded.content_hash,
		   title = excluded.title, text = excluded.text, author = excluded.author,
		   published_at = COALESCE(excluded.published_at, items.published_at),
		   fetched_at = excluded.fetched_at, is_official = (items.is_official OR excluded.is_official),
		   confidence = excluded.confidence, payload = excluded.payload
		 RETURNING id`,
		item.ID, item.PersonID, string(item.Source), item.URL, item.URLHash, item.ContentHash,
		item.Title, item.Text, item.Author, utcPtr(item.PublishedAt), item.FetchedAt.UTC(),
		item.IsOfficial, item.Confidence, string(payload),
	).Scan(&id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert item %s", item.URLHash)
	}
	item.ID = id
	return nil
}

func (s *SQLiteStore) ListItems(ctx context.Context, personID string, source model.SourceType) ([]model.NormalizedItem, error) {
	query, args, err := itemQuery(personID, source, sq.Question)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list items")
	}
	defer rows.Close() //nolint:errcheck

	var items []model.NormalizedItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan item")
		}
		items = append(items, *it)
	}
	return items, eris.Wrap(rows.Err(), "sqlite: list items iterate")
}

func (s *SQLiteStore) CountItems(ctx context.Context, personID string) (map[model.SourceType]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, COUNT(*) FROM items WHERE person_id = ? GROUP BY source`, personID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count items")
	}
	defer rows.Close() //nolint:errcheck

	counts := make(map[model.SourceType]int)
	for rows.Next() {
		var src string
		var n int
		if err := rows.Scan(&src, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan item count")
		}
		counts[model.SourceType(src)] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: count items iterate")
}

// --- Organizations ---

func (s *SQLiteStore) GetOrganizationByExternalID(ctx context.Context, externalID string) (*model.Organization, error) {
	return s.getOrganization(ctx, "external_id", externalID)
}

func (s *SQLiteStore) FindOrganizationByNameKey(ctx context.Context, nameKey string) (*model.Organization, error) {
	return s.getOrganization(ctx, "name_key", nameKey)
}

func (s *SQLiteStore) getOrganization(ctx context.Context, column, value string) (*model.Organization, error) {
	query, args, err := sq.Select(orgColumns...).From("organizations").
		Where(sq.Eq{column: value}).OrderBy("created_at ASC").Limit(1).ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: build organization query")
	}
	o, err := scanOrganization(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get organization by %s", column)
	}
	return o, nil
}

func (s *SQLiteStore) ListOrganizations(ctx context.Context) ([]model.Organization, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, localized_name, type, external_id, name_key, created_at FROM organizations ORDER BY created_at ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list organizations")
	}
	defer rows.Close() //nolint:errcheck

	var orgs []model.Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan organization")
		}
		orgs = append(orgs, *o)
	}
	return orgs, eris.Wrap(rows.Err(), "sqlite: list organizations iterate")
}

func (s *SQLiteStore) CreateOrganization(ctx context.Context, org *model.Organization) error {
	if org.ID == "" {
		org.ID = uuid.New().String()
	}
	if org.CreatedAt.IsZero() {
		org.CreatedAt = time.Now().UTC()
	}
	var id string
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO organizations (id, name, localized_name, type, external_id, name_key, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (external_id) DO UPDATE SET name = organizations.name
		 RETURNING id`,
		org.ID, org.Name, org.LocalizedName, string(org.Type), nullableString(org.ExternalID), org.NameKey, org.CreatedAt,
	).Scan(&id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: create organization %s", org.Name)
	}
	org.ID = id
	return nil
}

func (s *SQLiteStore) SetOrganizationLocalizedName(ctx context.Context, id, name string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE organizations SET localized_name = ? WHERE id = ?`, name, id)
	return eris.Wrapf(err, "sqlite: set localized name %s", id)
}

// --- Roles ---

func (s *SQLiteStore) ListRoles(ctx context.Context, personID string) ([]model.PersonRole, error) {
	query, args, err := sq.Select(roleColumns...).From("person_roles").
		Where(sq.Eq{"person_id": personID}).
		OrderBy("start_date IS NULL", "start_date ASC", "id ASC").ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: build role query")
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list roles")
	}
	defer rows.Close() //nolint:errcheck

	var roles []model.PersonRole
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan role")
		}
		roles = append(roles, *r)
	}
	return roles, eris.Wrap(rows.Err(), "sqlite: list roles iterate")
}

func (s *SQLiteStore) InsertRole(ctx context.Context, role *model.PersonRole) error {
	if role.ID == "" {
		role.ID = uuid.New().String()
	}
	role.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO person_roles (id, person_id, organization_id, role, localized_role, start_date, end_date, source, confidence, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (person_id, organization_id, role, start_date) DO UPDATE SET
		   end_date = COALESCE(person_roles.end_date, excluded.end_date), updated_at = excluded.updated_at`,
		role.ID, role.PersonID, role.OrganizationID, role.Role, role.LocalizedRole,
		utcPtr(role.StartDate), utcPtr(role.EndDate), string(role.Source), role.Confidence, role.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert role %s", role.Role)
}

func (s *SQLiteStore) UpdateRole(ctx context.Context, role *model.PersonRole) error {
	role.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE person_roles SET
		   start_date = COALESCE(?, start_date), end_date = COALESCE(?, end_date),
		   localized_role = ?, source = ?, confidence = ?, updated_at = ?
		 WHERE id = ?`,
		utcPtr(role.StartDate), utcPtr(role.EndDate), role.LocalizedRole,
		string(role.Source), role.Confidence, role.UpdatedAt, role.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update role %s", role.ID)
	}
	return checkRowsAffected(res, "role", role.ID)
}

// --- Dead letter queue ---

func (s *SQLiteStore) EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error {
	reqJSON, err := json.Marshal(entry.Request)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal dlq request")
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.LastFailedAt.IsZero() {
		entry.LastFailedAt = now
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO dead_letter_queue
		 (id, request, error, error_type, failed_step, retry_count, max_retries, next_retry_at, created_at, last_failed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   error = excluded.error, error_type = excluded.error_type, failed_step = excluded.failed_step,
		   retry_count = MAX(dead_letter_queue.retry_count, excluded.retry_count),
		   max_retries = excluded.max_retries, next_retry_at = excluded.next_retry_at,
		   last_failed_at = excluded.last_failed_at`,
		entry.ID, string(reqJSON), entry.Error, entry.ErrorType,
		entry.FailedStep, entry.RetryCount, entry.MaxRetries,
		entry.NextRetryAt.UTC(), entry.CreatedAt.UTC(), entry.LastFailedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: enqueue dlq")
}

func (s *SQLiteStore) ListDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error) {
	q := sq.Select("id", "request", "error", "error_type", "failed_step", "retry_count",
		"max_retries", "next_retry_at", "created_at", "last_failed_at").
		From("dead_letter_queue").
		OrderBy("next_retry_at ASC")
	if filter.ErrorType != "" {
		q = q.Where(sq.Eq{"error_type": filter.ErrorType})
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query, args, err := q.Limit(uint64(limit)).ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: build dlq query")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list dlq")
	}
	defer rows.Close() //nolint:errcheck

	var entries []resilience.DLQEntry
	for rows.Next() {
		var e resilience.DLQEntry
		var reqJSON []byte
		if err := rows.Scan(&e.ID, &reqJSON, &e.Error, &e.ErrorType, &e.FailedStep,
			&e.RetryCount, &e.MaxRetries, &e.NextRetryAt, &e.CreatedAt, &e.LastFailedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dlq entry")
		}
		if err := json.Unmarshal(reqJSON, &e.Request); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal dlq request")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list dlq iterate")
}

func (s *SQLiteStore) RemoveDLQ(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM dead_letter_queue WHERE id = ?`, id)
	return eris.Wrap(err, "sqlite: remove dlq")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
