package models

import (
	"time"

	"github.com/google/uuid"
)

// RSVPStatus represents the attendance answer of a guest
type RSVPStatus string

const (
	RSVPPending   RSVPStatus = "pending"
	RSVPAttending RSVPStatus = "attending"
	RSVPDeclined  RSVPStatus = "declined"
)

// Valid reports whether s is one of the known statuses
func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPPending, RSVPAttending, RSVPDeclined:
		return true
	}
	return false
}

// OrPending returns s, or pending when s is empty
func (s RSVPStatus) OrPending() RSVPStatus {
	if s == "" {
		return RSVPPending
	}
	return s
}

// Guest is one invitee belonging to exactly one household.
// DietaryRequirements is kept when the status moves away from attending.
type Guest struct {
	ID                  uuid.UUID  `json:"id" db:"id"`
	HouseholdID         uuid.UUID  `json:"household_id" db:"household_id"`
	Name                string     `json:"name" db:"name"`
	RSVPStatus          RSVPStatus `json:"rsvp_status" db:"rsvp_status"`
	DietaryRequirements string     `json:"dietary_requirements" db:"dietary_requirements"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
}

// IsAttending returns true if the guest accepted the invitation
func (g *Guest) IsAttending() bool {
	return g.RSVPStatus == RSVPAttending
}

// NewGuest describes a guest row to insert alongside a new household
type NewGuest struct {
	Name       string     `json:"name"`
	RSVPStatus RSVPStatus `json:"rsvp_status,omitempty"`
}

// GuestRSVP is the self-service answer an invited party may submit for one
// of its guests. Name and household association are never writable here.
// Fields left out are not written, so a decline keeps the dietary note.
type GuestRSVP struct {
	ID                  uuid.UUID   `json:"id"`
	RSVPStatus          *RSVPStatus `json:"rsvp_status,omitempty"`
	DietaryRequirements *string     `json:"dietary_requirements,omitempty"`
}

// Patch returns the answer as a guest patch
func (r GuestRSVP) Patch() GuestPatch {
	return GuestPatch{RSVPStatus: r.RSVPStatus, DietaryRequirements: r.DietaryRequirements}
}

// Validate requires at least one answered field and a known status
func (r GuestRSVP) Validate() error {
	return r.Patch().Validate()
}

// GuestMatch is a guest returned by name search, carrying the public fields
// of its parent household.
type GuestMatch struct {
	Guest
	Household Household `json:"household" db:"household"`
}

// RSVPSummary counts guests per RSVP status
type RSVPSummary struct {
	Attending int `json:"attending"`
	Declined  int `json:"declined"`
	Pending   int `json:"pending"`
}

// Add counts one guest with the given status
func (s *RSVPSummary) Add(status RSVPStatus) {
	switch status {
	case RSVPAttending:
		s.Attending++
	case RSVPDeclined:
		s.Declined++
	default:
		s.Pending++
	}
}

// Merge adds the counts of other into s
func (s *RSVPSummary) Merge(other RSVPSummary) {
	s.Attending += other.Attending
	s.Declined += other.Declined
	s.Pending += other.Pending
}

// Total returns the number of counted guests
func (s RSVPSummary) Total() int {
	return s.Attending + s.Declined + s.Pending
}
