package store

import (
	"context"
	"time"

	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/resilience"
)

// PersonFilter specifies criteria for listing persons.
type PersonFilter struct {
	Status        model.PersonStatus `json:"status,omitempty"`
	Name          string             `json:"name,omitempty"`
	UpdatedBefore time.Time          `json:"updated_before,omitempty"`
	Limit         int                `json:"limit,omitempty"`
	Offset        int                `json:"offset,omitempty"`
}

// Store defines the persistence interface for the profile pipeline. Lookups
// return nil, nil when nothing matches. All writes are upserts keyed by
// natural identity.
type Store interface {
	// Persons
	GetPerson(ctx context.Context, id string) (*model.Person, error)
	UpsertPerson(ctx context.Context, p *model.Person) error
	UpdatePersonStatus(ctx context.Context, id string, status model.PersonStatus) error
	FinishBuild(ctx context.Context, id string, status model.PersonStatus, completeness int, fetched map[model.SourceType]time.Time) error
	ListPersons(ctx context.Context, filter PersonFilter) ([]model.Person, error)

	// Items
	ItemHashes(ctx context.Context, personID string) (map[string]string, error)
	UpsertItem(ctx context.Context, item *model.NormalizedItem) error
	ListItems(ctx context.Context, personID string, source model.SourceType) ([]model.NormalizedItem, error)
	CountItems(ctx context.Context, personID string) (map[model.SourceType]int, error)

	// Organizations
	GetOrganizationByExternalID(ctx context.Context, externalID string) (*model.Organization, error)
	FindOrganizationByNameKey(ctx context.Context, nameKey string) (*model.Organization, error)
	ListOrganizations(ctx context.Context) ([]model.Organization, error)
	CreateOrganization(ctx context.Context, org *model.Organization) error
	SetOrganizationLocalizedName(ctx context.Context, id, name string) error

	// Roles
	ListRoles(ctx context.Context, personID string) ([]model.PersonRole, error)
	InsertRole(ctx context.Context, role *model.PersonRole) error
	UpdateRole(ctx context.Context, role *model.PersonRole) error

	// Dead letter queue. EnqueueDLQ upserts by id and never lowers
	// retry_count.
	EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error
	ListDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error)
	RemoveDLQ(ctx context.Context, id string) error

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}
