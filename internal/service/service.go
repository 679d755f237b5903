package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/Kerhoff/weddingplanner/internal/auth"
	"github.com/Kerhoff/weddingplanner/internal/metrics"
	"github.com/Kerhoff/weddingplanner/internal/models"
	"github.com/Kerhoff/weddingplanner/internal/repository"
)

// RSVPNotifier delivers a message to the owner after guests answer
type RSVPNotifier interface {
	NotifyRSVP(chatID int64, household *models.HouseholdView, couple string) error
}

// Service is the data-access boundary for households, guests, settings and
// profiles. Every backend failure is logged here once and returned to the
// caller alongside the collapsed empty/nil value.
type Service struct {
	logger     *logrus.Logger
	metrics    *metrics.Metrics
	Households repository.HouseholdRepository
	Guests     repository.GuestRepository
	Profiles   repository.ProfileRepository
	Settings   repository.SettingsRepository
	notifier   RSVPNotifier
	migrations singleflight.Group
}

// New creates a new Service with all required dependencies.
func New(logger *logrus.Logger, m *metrics.Metrics,
	households repository.HouseholdRepository,
	guests repository.GuestRepository,
	profiles repository.ProfileRepository,
	settings repository.SettingsRepository,
) *Service {
	return &Service{
		logger: logger, metrics: m,
		Households: households, Guests: guests,
		Profiles: profiles, Settings: settings,
	}
}

// SetNotifier enables RSVP notifications
func (s *Service) SetNotifier(n RSVPNotifier) {
	s.notifier = n
}

// owner returns the authenticated user id carried by ctx
func (s *Service) owner(ctx context.Context) (uuid.UUID, error) {
	userID, ok := auth.UserID(ctx)
	if !ok {
		return uuid.Nil, ErrUnauthenticated
	}
	return userID, nil
}

// logFailure records a backend failure at the data-access boundary
func (s *Service) logFailure(op string, err error, fields logrus.Fields) {
	s.metrics.BackendErrors.WithLabelValues(op).Inc()
	entry := s.logger.WithFields(fields).WithField("op", op).WithError(err)
	if errors.Is(err, repository.ErrNotFound) {
		entry.Warn("Backend lookup found nothing")
		return
	}
	entry.Error("Backend operation failed")
}
