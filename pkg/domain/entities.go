// Package domain defines the care entities, update variants and change
// records shared by the carecore store, services and storage adapters.
package domain

import (
	"strings"
	"time"
)

// EntityType identifies the kind of record held in the entity store.
type EntityType string

// Supported entity type identifiers used in Change records, deletion plans and
// document collections.
const (
	// EntityRecipient identifies a care recipient profile.
	EntityRecipient EntityType = "recipient"
	// EntityCollection identifies a content category owned by a recipient.
	EntityCollection EntityType = "collection"
	// EntitySet identifies an image+audio pair owned by a collection.
	EntitySet EntityType = "set"
	// EntityContact identifies an emergency contact owned by a recipient.
	EntityContact EntityType = "emergency_contact"
)

// Base carries identity and audit timestamps shared by all entities.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Asset references an uploaded binary. Path is the storage key used for
// deletion; URL is what clients render. Both are empty when nothing was uploaded.
type Asset struct {
	URL   string `json:"url"`
	Path  string `json:"path"`
	Title string `json:"title,omitempty"`
}

// Empty reports whether the asset has no storage path.
func (a Asset) Empty() bool { return strings.TrimSpace(a.Path) == "" }

// Recipient is the person receiving care. CollectionCount is denormalized and
// maintained by the service layer.
type Recipient struct {
	Base
	CaregiverID     string     `json:"caregiver_id"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Avatar          Asset      `json:"avatar"`
	DateOfBirth     *time.Time `json:"date_of_birth,omitempty"`
	Location        string     `json:"location"`
	Fallen          bool       `json:"fallen"`
	CollectionCount int        `json:"collection_count"`
}

// FullName returns "First Last" with surrounding whitespace trimmed.
func (r Recipient) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// Collection groups sets under a recipient.
type Collection struct {
	Base
	RecipientID string `json:"recipient_id"`
	CaregiverID string `json:"caregiver_id"`
	Title       string `json:"title"`
	Cover       Asset  `json:"cover"`
	SetCount    int    `json:"set_count"`
}

// Set pairs one image with one audio clip.
type Set struct {
	Base
	CollectionID string `json:"collection_id"`
	RecipientID  string `json:"recipient_id"`
	CaregiverID  string `json:"caregiver_id"`
	Image        Asset  `json:"image"`
	Audio        Asset  `json:"audio"`
}

// EmergencyContact is a person to reach on behalf of a recipient.
type EmergencyContact struct {
	Base
	RecipientID  string   `json:"recipient_id"`
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	Relationship string   `json:"relationship"`
	Phones       []string `json:"phones"`
	Emails       []string `json:"emails,omitempty"`
}

// FullName returns "First Last" with surrounding whitespace trimmed.
func (c EmergencyContact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Validate enforces the boundary rule that a contact carries at least one phone number.
func (c EmergencyContact) Validate() error {
	for _, p := range c.Phones {
		if strings.TrimSpace(p) != "" {
			return nil
		}
	}
	return ValidationError{Entity: EntityContact, Field: "phones", Reason: "at least one phone number is required"}
}

// Change captures a single store mutation delivered to subscribers.
type Change struct {
	Entity EntityType
	Action Action
	ID     string
	Before any
	After  any
}

// Action enumerates the mutation kinds recorded in a Change.
type Action string

// Change actions enumerate supported CRUD operations.
const (
	// ActionCreate indicates an entity was inserted.
	ActionCreate Action = "create"
	// ActionUpdate indicates an existing entity was replaced or merged.
	ActionUpdate Action = "update"
	// ActionDelete indicates an entity was removed.
	ActionDelete Action = "delete"
)
