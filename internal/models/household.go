package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultHouseholdCategory is used when a household is created without a category
const DefaultHouseholdCategory = "Other"

// Household represents one invited party sharing a single RSVP
type Household struct {
	ID             uuid.UUID `json:"id" db:"id"`
	UserID         uuid.UUID `json:"user_id" db:"user_id"`
	Name           string    `json:"name" db:"name"`
	Category       string    `json:"category" db:"category"`
	RSVPToken      string    `json:"rsvp_token" db:"rsvp_token"`
	InvitationSent bool      `json:"invitation_sent" db:"invitation_sent"`
	ThankYouSent   bool      `json:"thank_you_sent" db:"thank_you_sent"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// HouseholdView is the read model of a household joined with its guests,
// ordered by creation time ascending.
type HouseholdView struct {
	Household
	Guests []Guest `json:"guests"`
}

// GuestNames returns the display names of the household's guests in order
func (v *HouseholdView) GuestNames() []string {
	names := make([]string, 0, len(v.Guests))
	for _, g := range v.Guests {
		names = append(names, g.Name)
	}
	return names
}

// Summary counts the household's guests by RSVP status
func (v *HouseholdView) Summary() RSVPSummary {
	var s RSVPSummary
	for _, g := range v.Guests {
		s.Add(g.RSVPStatus)
	}
	return s
}

// HasPending reports whether any guest has not answered yet
func (v *HouseholdView) HasPending() bool {
	for _, g := range v.Guests {
		if g.RSVPStatus == RSVPPending {
			return true
		}
	}
	return false
}

// PublicHousehold is a search result: a household view together with the
// display names of the couple who invited it.
type PublicHousehold struct {
	HouseholdView
	Couple string `json:"couple"`
}

// Invitation is the public invite page read model
type Invitation struct {
	Household   HouseholdView `json:"household"`
	Couple      string        `json:"couple"`
	WeddingDate *time.Time    `json:"wedding_date,omitempty"`
}
