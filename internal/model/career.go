package model

import "time"

// OrgType classifies an organization.
type OrgType string

const (
	OrgCompany    OrgType = "company"
	OrgUniversity OrgType = "university"
	OrgOther      OrgType = "other"
)

// Organization is a normalized employer, school or awarding body.
// ExternalID is unique when present.
type Organization struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	LocalizedName string    `json:"localized_name,omitempty"`
	Type          OrgType   `json:"type"`
	ExternalID    string    `json:"external_id,omitempty"`
	NameKey       string    `json:"name_key"`
	CreatedAt     time.Time `json:"created_at"`
}

// PersonRole is a tenure edge between a person and an organization.
// (PersonID, OrganizationID, Role, StartDate) identifies it.
type PersonRole struct {
	ID             string     `json:"id"`
	PersonID       string     `json:"person_id"`
	OrganizationID string     `json:"organization_id"`
	Role           string     `json:"role"`
	LocalizedRole  string     `json:"localized_role,omitempty"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	Source         SourceType `json:"source"`
	Confidence     int        `json:"confidence"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CareerEventType classifies a raw career event.
type CareerEventType string

const (
	EventEducation CareerEventType = "education"
	EventCareer    CareerEventType = "career"
	EventAward     CareerEventType = "award"
)

// CareerEvent is a raw, unreconciled biographical event.
type CareerEvent struct {
	Type           CareerEventType `json:"type"`
	Organization   string          `json:"organization"`
	OrganizationID string          `json:"organization_id,omitempty"`
	Role           string          `json:"role"`
	StartDate      *time.Time      `json:"start_date,omitempty"`
	EndDate        *time.Time      `json:"end_date,omitempty"`
	Confidence     int             `json:"confidence"`
	Source         SourceType      `json:"source"`
}
