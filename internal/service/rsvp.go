package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/weddingplanner/internal/models"
)

// SubmitRSVP applies each guest's answer independently and concurrently.
// Only the fields present in an answer are written.
// It succeeds only when every update succeeds; otherwise the updates that
// did commit stay committed and a *PartialWriteError is returned, so the
// invited party can simply resubmit.
func (s *Service) SubmitRSVP(ctx context.Context, householdID uuid.UUID, updates []models.GuestRSVP) error {
	for _, u := range updates {
		if err := u.Validate(); err != nil {
			return fmt.Errorf("%w: guest %s: %v", ErrInvalidInput, u.ID, err)
		}
	}

	var g multierror.Group
	for _, u := range updates {
		g.Go(func() error {
			return s.Guests.UpdateRSVP(ctx, householdID, u)
		})
	}

	if merr := g.Wait(); merr.ErrorOrNil() != nil {
		s.metrics.RSVPSubmissions.WithLabelValues("failed").Inc()
		s.logFailure("submit_rsvp", merr, logrus.Fields{
			"household_id": householdID,
			"failed":       len(merr.Errors),
			"total":        len(updates),
		})
		return &PartialWriteError{
			Op:     "submit rsvp",
			Total:  len(updates),
			Failed: len(merr.Errors),
			Err:    merr,
		}
	}

	s.metrics.RSVPSubmissions.WithLabelValues("ok").Inc()
	s.logger.WithFields(logrus.Fields{
		"household_id": householdID,
		"guests":       len(updates),
	}).Info("RSVP received")

	s.notifyRSVP(ctx, householdID)
	return nil
}

// SubmitRSVPByToken resolves the token first so that only guests of that
// household can be touched.
func (s *Service) SubmitRSVPByToken(ctx context.Context, token string, updates []models.GuestRSVP) error {
	view, err := s.FetchByToken(ctx, token)
	if err != nil {
		return err
	}
	return s.SubmitRSVP(ctx, view.ID, updates)
}

// notifyRSVP tells the owner's linked chat about the new answers. Failures
// are logged only; the RSVP itself already succeeded.
func (s *Service) notifyRSVP(ctx context.Context, householdID uuid.UUID) {
	if s.notifier == nil {
		return
	}

	household, err := s.Households.GetByID(ctx, householdID)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to load household for RSVP notification")
		return
	}
	profile, err := s.Profiles.GetByUser(ctx, household.UserID)
	if err != nil || profile == nil || profile.TelegramChatID == nil {
		return
	}
	view, err := s.Households.GetByToken(ctx, household.RSVPToken)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to load guests for RSVP notification")
		return
	}

	if err := s.notifier.NotifyRSVP(*profile.TelegramChatID, view, profile.Couple()); err != nil {
		s.logger.WithError(err).WithField("household_id", householdID).Warn("Failed to send RSVP notification")
	}
}
