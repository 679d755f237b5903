package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrEmptyPatch is returned when a patch carries no field to update
var ErrEmptyPatch = errors.New("patch has no fields")

// HouseholdPatch lists the owner-mutable fields of a household
type HouseholdPatch struct {
	Name           *string `json:"name,omitempty"`
	Category       *string `json:"category,omitempty"`
	InvitationSent *bool   `json:"invitation_sent,omitempty"`
	ThankYouSent   *bool   `json:"thank_you_sent,omitempty"`
}

// IsEmpty reports whether no field is set
func (p HouseholdPatch) IsEmpty() bool {
	return p.Name == nil && p.Category == nil && p.InvitationSent == nil && p.ThankYouSent == nil
}

// Columns returns the column/value pairs to write
func (p HouseholdPatch) Columns() map[string]any {
	cols := make(map[string]any)
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.Category != nil {
		cols["category"] = *p.Category
	}
	if p.InvitationSent != nil {
		cols["invitation_sent"] = *p.InvitationSent
	}
	if p.ThankYouSent != nil {
		cols["thank_you_sent"] = *p.ThankYouSent
	}
	return cols
}

// Apply copies the set fields onto h
func (p HouseholdPatch) Apply(h *Household) {
	if p.Name != nil {
		h.Name = *p.Name
	}
	if p.Category != nil {
		h.Category = *p.Category
	}
	if p.InvitationSent != nil {
		h.InvitationSent = *p.InvitationSent
	}
	if p.ThankYouSent != nil {
		h.ThankYouSent = *p.ThankYouSent
	}
}

// GuestPatch lists the owner-mutable fields of a guest
type GuestPatch struct {
	Name                *string     `json:"name,omitempty"`
	RSVPStatus          *RSVPStatus `json:"rsvp_status,omitempty"`
	DietaryRequirements *string     `json:"dietary_requirements,omitempty"`
}

// IsEmpty reports whether no field is set
func (p GuestPatch) IsEmpty() bool {
	return p.Name == nil && p.RSVPStatus == nil && p.DietaryRequirements == nil
}

// Validate checks the status value when present
func (p GuestPatch) Validate() error {
	if p.IsEmpty() {
		return ErrEmptyPatch
	}
	if p.RSVPStatus != nil && !p.RSVPStatus.Valid() {
		return fmt.Errorf("invalid rsvp_status %q", *p.RSVPStatus)
	}
	return nil
}

// Columns returns the column/value pairs to write
func (p GuestPatch) Columns() map[string]any {
	cols := make(map[string]any)
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.RSVPStatus != nil {
		cols["rsvp_status"] = string(*p.RSVPStatus)
	}
	if p.DietaryRequirements != nil {
		cols["dietary_requirements"] = *p.DietaryRequirements
	}
	return cols
}

// Apply copies the set fields onto g
func (p GuestPatch) Apply(g *Guest) {
	if p.Name != nil {
		g.Name = *p.Name
	}
	if p.RSVPStatus != nil {
		g.RSVPStatus = *p.RSVPStatus
	}
	if p.DietaryRequirements != nil {
		g.DietaryRequirements = *p.DietaryRequirements
	}
}

// DecodeHouseholdPatch parses a household patch, rejecting unknown keys
func DecodeHouseholdPatch(r io.Reader) (HouseholdPatch, error) {
	var p HouseholdPatch
	if err := decodeStrict(r, &p); err != nil {
		return HouseholdPatch{}, err
	}
	if p.IsEmpty() {
		return HouseholdPatch{}, ErrEmptyPatch
	}
	return p, nil
}

// DecodeGuestPatch parses a guest patch, rejecting unknown keys
func DecodeGuestPatch(r io.Reader) (GuestPatch, error) {
	var p GuestPatch
	if err := decodeStrict(r, &p); err != nil {
		return GuestPatch{}, err
	}
	if err := p.Validate(); err != nil {
		return GuestPatch{}, err
	}
	return p, nil
}

func decodeStrict(r io.Reader, dst any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid patch: %w", err)
	}
	return nil
}
