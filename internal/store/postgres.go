package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/profile-cli/internal/db"
	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	pgUpsertItem = `INSERT INTO items (id, person_id, source, url, url_hash, content_hash, title, text, author, published_at, fetched_at, is_official, confidence, payload)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (person_id, url_hash) DO UPDATE SET
	source = EXCLUDED.source, url = EXCLUDED.url, content_hash = EXCLUDED.content_hash,
	title = EXCLUDED.title, text = EXCLUDED.text, author = EXCLUDED.author,
	published_at = COALESCE(EXCLUDED.published_at, items.published_at),
	fetched_at = EXCLUDED.fetched_at, is_official = items.is_official OR EXCLUDED.is_official,
	confidence = EXCLUDED.confidence, payload = EXCLUDED.payload
RETURNING id`
	pgItemHashes = `SELECT url_hash, content_hash FROM items WHERE person_id = $1`
	pgGetPerson  = `SELECT id, name, english_name, aliases, description, avatar_url, occupations, organizations, official_links, qid, orcid, status, completeness, last_fetched_at, created_at, updated_at FROM persons WHERE id = $1`
)

// preparedStatements are prepared on each new connection.
var preparedStatements = map[string]string{
	"upsert_item": pgUpsertItem,
	"item_hashes": pgItemHashes,
	"get_person":  pgGetPerson,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS persons (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	english_name    TEXT NOT NULL DEFAULT '',
	aliases         JSONB NOT NULL DEFAULT '[]',
	description     TEXT NOT NULL DEFAULT '',
	avatar_url      TEXT NOT NULL DEFAULT '',
	occupations     JSONB NOT NULL DEFAULT '[]',
	organizations   JSONB NOT NULL DEFAULT '[]',
	official_links  JSONB NOT NULL DEFAULT '[]',
	qid             TEXT NOT NULL DEFAULT '',
	orcid           TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT 'pending',
	completeness    INTEGER NOT NULL DEFAULT 0,
	last_fetched_at JSONB NOT NULL DEFAULT '{}',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
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
	published_at TIMESTAMPTZ,
	fetched_at   TIMESTAMPTZ NOT NULL,
	is_official  BOOLEAN NOT NULL DEFAULT false,
	confidence   INTEGER NOT NULL DEFAULT 0,
	payload      JSONB NOT NULL DEFAULT '{}',
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
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_organizations_name_key ON organizations(name_key);

CREATE TABLE IF NOT EXISTS person_roles (
	id              TEXT PRIMARY KEY,
	person_id       TEXT NOT NULL REFERENCES persons(id) ON DELETE CASCADE,
	organization_id TEXT NOT NULL REFERENCES organizations(id),
	role            TEXT NOT NULL DEFAULT '',
	localized_role  TEXT NOT NULL DEFAULT '',
	start_date      DATE,
	end_date        DATE,
	source          TEXT NOT NULL,
	confidence      INTEGER NOT NULL DEFAULT 0,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (person_id, organization_id, role, start_date)
);

CREATE INDEX IF NOT EXISTS idx_person_roles_person ON person_roles(person_id);

CREATE TABLE IF NOT EXISTS dead_letter_queue (
	id             TEXT PRIMARY KEY,
	request        JSONB NOT NULL,
	error          TEXT NOT NULL,
	error_type     TEXT NOT NULL DEFAULT 'transient',
	failed_step    TEXT NOT NULL DEFAULT '',
	retry_count    INTEGER NOT NULL DEFAULT 0,
	max_retries    INTEGER NOT NULL DEFAULT 3,
	next_retry_at  TIMESTAMPTZ NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_failed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_dlq_next_retry ON dead_letter_queue(next_retry_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Persons ---

func (s *PostgresStore) GetPerson(ctx context.Context, id string) (*model.Person, error) {
	p, err := scanPerson(s.pool.QueryRow(ctx, pgGetPerson, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get person %s", id)
	}
	return p, nil
}

func (s *PostgresStore) UpsertPerson(ctx context.Context, p *model.Person) error {
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

	_, err = s.pool.Exec(ctx,
		`INSERT INTO persons (id, name, english_name, aliases, description, avatar_url, occupations, organizations, official_links, qid, orcid, status, completeness, last_fetched_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name, english_name = EXCLUDED.english_name, aliases = EXCLUDED.aliases,
		   description = EXCLUDED.description, avatar_url = EXCLUDED.avatar_url,
		   occupations = EXCLUDED.occupations, organizations = EXCLUDED.organizations,
		   official_links = EXCLUDED.official_links, qid = EXCLUDED.qid, orcid = EXCLUDED.orcid,
		   updated_at = EXCLUDED.updated_at`,
		p.ID, p.Name, p.EnglishName, raw.aliases, p.Description, p.AvatarURL,
		raw.occupations, raw.organizations, raw.links, p.QID, p.ORCID,
		string(p.Status), p.Completeness, raw.fetched, p.CreatedAt, p.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: upsert person %s", p.ID)
}

func (s *PostgresStore) UpdatePersonStatus(ctx context.Context, id string, status model.PersonStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE persons SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update person status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("person not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) FinishBuild(ctx context.Context, id string, status model.PersonStatus, completeness int, fetched map[model.SourceType]time.Time) error {
	if fetched == nil {
		fetched = map[model.SourceType]time.Time{}
	}
	fetchedJSON, err := json.Marshal(fetched)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal last fetched")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE persons SET status = $1, completeness = $2,
		   last_fetched_at = COALESCE(last_fetched_at, '{}'::jsonb) || $3::jsonb, updated_at = $4
		 WHERE id = $5`,
		string(status), completeness, fetchedJSON, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish build %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("person not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) ListPersons(ctx context.Context, filter PersonFilter) ([]model.Person, error) {
	query, args, err := personQuery(filter, sq.Dollar)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list persons")
	}
	defer rows.Close()

	var persons []model.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan person")
		}
		persons = append(persons, *p)
	}
	return persons, eris.Wrap(rows.Err(), "postgres: list persons iterate")
}

// --- Items ---

func (s *PostgresStore) ItemHashes(ctx context.Context, personID string) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, pgItemHashes, personID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: item hashes")
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var urlHash, contentHash string
		if err := rows.Scan(&urlHash, &contentHash); err != nil {
			return nil, eris.Wrap(err, "postgres: scan item hash")
		}
		hashes[urlHash] = contentHash
	}
	return hashes, eris.Wrap(rows.Err(), "postgres: item hashes iterate")
}

func (s *PostgresStore) UpsertItem(ctx context.Context, item *model.NormalizedItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	payload, err := json.Marshal(item.Payload)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal payload")
	}
	var id string
	err = s.pool.QueryRow(ctx, pgUpsertItem,
		item.ID, item.PersonID, string(item.Source), item.URL, item.URLHash, item.ContentHash,
		item.Title, item.Text, item.Author, utcPtr(item.PublishedAt), item.FetchedAt.UTC(),
		item.IsOfficial, item.Confidence, payload,
	).Scan(&id)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert item %s", item.URLHash)
	}
	item.ID = id
	return nil
}

func (s *PostgresStore) ListItems(ctx context.Context, personID string, source model.SourceType) ([]model.NormalizedItem, error) {
	query, args, err := itemQuery(personID, source, sq.Dollar)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list items")
	}
	defer rows.Close()

	var items []model.NormalizedItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan item")
		}
		items = append(items, *it)
	}
	return items, eris.Wrap(rows.Err(), "postgres: list items iterate")
}

func (s *PostgresStore) CountItems(ctx context.Context, personID string) (map[model.SourceType]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT source, COUNT(*) FROM items WHERE person_id = $1 GROUP BY source`, personID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count items")
	}
	defer rows.Close()

	counts := make(map[model.SourceType]int)
	for rows.Next() {
		var src string
		var n int
		if err := rows.Scan(&src, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan item count")
		}
		counts[model.SourceType(src)] = n
	}
	return counts, eris.Wrap(rows.Err(), "postgres: count items iterate")
}

// --- Organizations ---

func (s *PostgresStore) GetOrganizationByExternalID(ctx context.Context, externalID string) (*model.Organization, error) {
	return s.getOrganization(ctx, "external_id", externalID)
}

func (s *PostgresStore) FindOrganizationByNameKey(ctx context.Context, nameKey string) (*model.Organization, error) {
	return s.getOrganization(ctx, "name_key", nameKey)
}

func (s *PostgresStore) getOrganization(ctx context.Context, column, value string) (*model.Organization, error) {
	query, args, err := sq.Select(orgColumns...).From("organizations").
		Where(sq.Eq{column: value}).OrderBy("created_at ASC").Limit(1).
		PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build organization query")
	}
	o, err := scanOrganization(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get organization by %s", column)
	}
	return o, nil
}

func (s *PostgresStore) ListOrganizations(ctx context.Context) ([]model.Organization, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, localized_name, type, external_id, name_key, created_at FROM organizations ORDER BY created_at ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list organizations")
	}
	defer rows.Close()

	var orgs []model.Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan organization")
		}
		orgs = append(orgs, *o)
	}
	return orgs, eris.Wrap(rows.Err(), "postgres: list organizations iterate")
}

// CreateOrganization inserts org. When another row already holds the same
// external id, org takes that row's id instead.
func (s *PostgresStore) CreateOrganization(ctx context.Context, org *model.Organization) error {
	if org.ID == "" {
		org.ID = uuid.New().String()
	}
	if org.CreatedAt.IsZero() {
		org.CreatedAt = time.Now().UTC()
	}
	var id string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO organizations (id, name, localized_name, type, external_id, name_key, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (external_id) DO UPDATE SET name = organizations.name
		 RETURNING id`,
		org.ID, org.Name, org.LocalizedName, string(org.Type), nullableString(org.ExternalID), org.NameKey, org.CreatedAt,
	).Scan(&id)
	if err != nil {
		return eris.Wrapf(err, "postgres: create organization %s", org.Name)
	}
	org.ID = id
	return nil
}

func (s *PostgresStore) SetOrganizationLocalizedName(ctx context.Context, id, name string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE organizations SET localized_name = $1 WHERE id = $2`, name, id)
	return eris.Wrapf(err, "postgres: set localized name %s", id)
}

// --- Roles ---

func (s *PostgresStore) ListRoles(ctx context.Context, personID string) ([]model.PersonRole, error) {
	query, args, err := sq.Select(roleColumns...).From("person_roles").
		Where(sq.Eq{"person_id": personID}).
		OrderBy("start_date ASC NULLS LAST", "id ASC").
		PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build role query")
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list roles")
	}
	defer rows.Close()

	var roles []model.PersonRole
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan role")
		}
		roles = append(roles, *r)
	}
	return roles, eris.Wrap(rows.Err(), "postgres: list roles iterate")
}

// InsertRole inserts a tenure. A concurrent insert of the same key only fills
// a missing end date.
func (s *PostgresStore) InsertRole(ctx context.Context, role *model.PersonRole) error {
	if role.ID == "" {
		role.ID = uuid.New().String()
	}
	role.UpdatedAt = time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO person_roles (id, person_id, organization_id, role, localized_role, start_date, end_date, source, confidence, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (person_id, organization_id, role, start_date) DO UPDATE SET
		   end_date = COALESCE(person_roles.end_date, EXCLUDED.end_date), updated_at = EXCLUDED.updated_at`,
		role.ID, role.PersonID, role.OrganizationID, role.Role, role.LocalizedRole,
		utcPtr(role.StartDate), utcPtr(role.EndDate), string(role.Source), role.Confidence, role.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: insert role %s", role.Role)
}

// UpdateRole writes role by id. Null dates never overwrite stored dates.
func (s *PostgresStore) UpdateRole(ctx context.Context, role *model.PersonRole) error {
	role.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE person_roles SET
		   start_date = COALESCE($1, start_date), end_date = COALESCE($2, end_date),
		   localized_role = $3, source = $4, confidence = $5, updated_at = $6
		 WHERE id = $7`,
		utcPtr(role.StartDate), utcPtr(role.EndDate), role.LocalizedRole,
		string(role.Source), role.Confidence, role.UpdatedAt, role.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update role %s", role.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("role not found: %s", role.ID)
	}
	return nil
}

// --- Dead letter queue ---

func (s *PostgresStore) EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error {
	reqJSON, err := json.Marshal(entry.Request)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal dlq request")
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

	_, err = s.pool.Exec(ctx,
		`INSERT INTO dead_letter_queue
		 (id, request, error, error_type, failed_step, retry_count, max_retries, next_retry_at, created_at, last_failed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		   error = $3, error_type = $4, failed_step = $5,
		   retry_count = GREATEST(dead_letter_queue.retry_count, $6), max_retries = $7,
		   next_retry_at = $8, last_failed_at = $10`,
		entry.ID, reqJSON, entry.Error, entry.ErrorType,
		entry.FailedStep, entry.RetryCount, entry.MaxRetries,
		entry.NextRetryAt, entry.CreatedAt, entry.LastFailedAt,
	)
	return eris.Wrap(err, "postgres: enqueue dlq")
}

func (s *PostgresStore) ListDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error) {
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
	query, args, err := q.Limit(uint64(limit)).PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build dlq query")
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list dlq")
	}
	defer rows.Close()

	var entries []resilience.DLQEntry
	for rows.Next() {
		var e resilience.DLQEntry
		var reqJSON []byte
		if err := rows.Scan(&e.ID, &reqJSON, &e.Error, &e.ErrorType, &e.FailedStep,
			&e.RetryCount, &e.MaxRetries, &e.NextRetryAt, &e.CreatedAt, &e.LastFailedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan dlq entry")
		}
		if err := json.Unmarshal(reqJSON, &e.Request); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal dlq request")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list dlq iterate")
}

func (s *PostgresStore) RemoveDLQ(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM dead_letter_queue WHERE id = $1`, id)
	return eris.Wrap(err, "postgres: remove dlq")
}
