package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/weddingplanner/internal/models"
	"github.com/Kerhoff/weddingplanner/internal/repository"
)

// FetchHouseholds returns the owner's households with their guests, both
// ordered by creation time. Failures yield an empty slice and the error.
func (s *Service) FetchHouseholds(ctx context.Context) ([]models.HouseholdView, error) {
	userID, err := s.owner(ctx)
	if err != nil {
		return []models.HouseholdView{}, err
	}

	views, err := s.Households.ListByUser(ctx, userID)
	if err != nil {
		s.logFailure("fetch_households", err, logrus.Fields{"user_id": userID})
		return []models.HouseholdView{}, err
	}

	out := make([]models.HouseholdView, 0, len(views))
	for _, v := range views {
		out = append(out, *v)
	}
	return out, nil
}

// CreateHousehold inserts a household and then its initial guests. When the
// guest insert fails the household stays in place with no guests; the view
// is returned together with a *PartialWriteError.
func (s *Service) CreateHousehold(ctx context.Context, name, category string, initialGuests []models.NewGuest) (*models.HouseholdView, error) {
	userID, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}
	for _, g := range initialGuests {
		if g.RSVPStatus != "" && !g.RSVPStatus.Valid() {
			return nil, fmt.Errorf("%w: rsvp_status %q", ErrInvalidInput, g.RSVPStatus)
		}
	}

	household, err := s.Households.Create(ctx, &models.Household{
		UserID:   userID,
		Name:     strings.TrimSpace(name),
		Category: strings.TrimSpace(category),
	})
	if err != nil {
		s.logFailure("create_household", err, logrus.Fields{"user_id": userID})
		return nil, err
	}

	view := &models.HouseholdView{Household: *household, Guests: []models.Guest{}}
	if len(initialGuests) == 0 {
		return view, nil
	}

	created, err := s.Guests.CreateBatch(ctx, household.ID, initialGuests)
	if err != nil {
		s.logFailure("create_guests", err, logrus.Fields{"user_id": userID, "household_id": household.ID})
		return view, &PartialWriteError{
			Op:     "create household",
			Total:  len(initialGuests) + 1,
			Failed: len(initialGuests),
			Err:    err,
		}
	}
	for _, g := range created {
		view.Guests = append(view.Guests, *g)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":      userID,
		"household_id": household.ID,
		"guests":       len(created),
	}).Info("Created household")
	return view, nil
}

// UpdateHousehold applies an owner patch to one household
func (s *Service) UpdateHousehold(ctx context.Context, id uuid.UUID, patch models.HouseholdPatch) error {
	userID, err := s.owner(ctx)
	if err != nil {
		return err
	}
	if patch.IsEmpty() {
		return fmt.Errorf("%w: %v", ErrInvalidInput, models.ErrEmptyPatch)
	}

	if err := s.Households.Update(ctx, id, userID, patch); err != nil {
		s.logFailure("update_household", err, logrus.Fields{"user_id": userID, "household_id": id})
		return err
	}
	return nil
}

// DeleteHousehold removes a household; its guests go with it. Deleting an
// already removed household reports repository.ErrNotFound.
func (s *Service) DeleteHousehold(ctx context.Context, id uuid.UUID) error {
	userID, err := s.owner(ctx)
	if err != nil {
		return err
	}

	if err := s.Households.Delete(ctx, id, userID); err != nil {
		s.logFailure("delete_household", err, logrus.Fields{"user_id": userID, "household_id": id})
		return err
	}
	s.logger.WithFields(logrus.Fields{"user_id": userID, "household_id": id}).Info("Deleted household")
	return nil
}

// AddGuest appends a guest, blank by default, to an owned household
func (s *Service) AddGuest(ctx context.Context, householdID uuid.UUID, name string) (*models.Guest, error) {
	userID, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}

	guest, err := s.Guests.Create(ctx, householdID, userID, strings.TrimSpace(name))
	if err != nil {
		s.logFailure("add_guest", err, logrus.Fields{"user_id": userID, "household_id": householdID})
		return nil, err
	}
	return guest, nil
}

// UpdateGuest applies an owner patch to one guest
func (s *Service) UpdateGuest(ctx context.Context, id uuid.UUID, patch models.GuestPatch) error {
	userID, err := s.owner(ctx)
	if err != nil {
		return err
	}
	if err := patch.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := s.Guests.Update(ctx, id, userID, patch); err != nil {
		s.logFailure("update_guest", err, logrus.Fields{"user_id": userID, "guest_id": id})
		return err
	}
	return nil
}

// RemoveGuest deletes one guest of an owned household
func (s *Service) RemoveGuest(ctx context.Context, id uuid.UUID) error {
	userID, err := s.owner(ctx)
	if err != nil {
		return err
	}

	if err := s.Guests.Delete(ctx, id, userID); err != nil {
		s.logFailure("remove_guest", err, logrus.Fields{"user_id": userID, "guest_id": id})
		return err
	}
	return nil
}

// FetchByToken resolves a public RSVP token to its household and guests.
// No authentication is required.
func (s *Service) FetchByToken(ctx context.Context, token string) (*models.HouseholdView, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, repository.ErrNotFound
	}

	view, err := s.Households.GetByToken(ctx, token)
	if err != nil {
		s.logFailure("fetch_by_token", err, nil)
		return nil, err
	}
	return view, nil
}
