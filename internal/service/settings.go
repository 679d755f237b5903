package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/weddingplanner/internal/models"
)

const weddingDateLayout = "2006-01-02"

// LoadSettings returns the owner's settings payload, or nil for an owner
// that never saved.
func (s *Service) LoadSettings(ctx context.Context) (*models.PlannerData, error) {
	userID, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}

	data, err := s.Settings.Load(ctx, userID)
	if err != nil {
		s.logFailure("load_settings", err, logrus.Fields{"user_id": userID})
		return nil, err
	}
	return data, nil
}

// SaveSettings upserts the payload and keeps the public wedding profile in
// step with the partner names and date it carries.
func (s *Service) SaveSettings(ctx context.Context, data *models.PlannerData) error {
	userID, err := s.owner(ctx)
	if err != nil {
		return err
	}

	if err := s.Settings.Save(ctx, userID, data); err != nil {
		s.logFailure("save_settings", err, logrus.Fields{"user_id": userID})
		return err
	}

	s.syncProfile(ctx, userID, data)
	return nil
}

// ResetSettings deletes the payload so the owner starts from defaults
func (s *Service) ResetSettings(ctx context.Context) error {
	userID, err := s.owner(ctx)
	if err != nil {
		return err
	}

	if err := s.Settings.Delete(ctx, userID); err != nil {
		s.logFailure("reset_settings", err, logrus.Fields{"user_id": userID})
		return err
	}
	s.logger.WithField("user_id", userID).Info("Reset planner settings")
	return nil
}

func (s *Service) syncProfile(ctx context.Context, userID uuid.UUID, data *models.PlannerData) {
	if data == nil {
		return
	}
	current, err := s.Profiles.GetByUser(ctx, userID)
	if err != nil {
		s.logFailure("load_profile", err, logrus.Fields{"user_id": userID})
		return
	}

	date := parseWeddingDate(data.WeddingDate)
	if current != nil && current.PartnerNames == data.PartnerNames && sameDate(current.WeddingDate, date) {
		return
	}
	if current == nil && data.PartnerNames == "" && date == nil {
		return
	}

	profile := &models.WeddingProfile{UserID: userID, PartnerNames: data.PartnerNames, WeddingDate: date}
	if current != nil {
		profile.TelegramChatID = current.TelegramChatID
	}
	if _, err := s.Profiles.Upsert(ctx, profile); err != nil {
		s.logFailure("sync_profile", err, logrus.Fields{"user_id": userID})
	}
}

// SaveWeddingProfile upserts the owner's public profile. A nil
// telegramChatID keeps the chat already linked.
func (s *Service) SaveWeddingProfile(ctx context.Context, partnerNames string, weddingDate *time.Time, telegramChatID *int64) (*models.WeddingProfile, error) {
	userID, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}

	if telegramChatID == nil {
		current, err := s.Profiles.GetByUser(ctx, userID)
		if err != nil {
			s.logFailure("load_profile", err, logrus.Fields{"user_id": userID})
			return nil, err
		}
		if current != nil {
			telegramChatID = current.TelegramChatID
		}
	}

	profile, err := s.Profiles.Upsert(ctx, &models.WeddingProfile{
		UserID:         userID,
		PartnerNames:   strings.TrimSpace(partnerNames),
		WeddingDate:    weddingDate,
		TelegramChatID: telegramChatID,
	})
	if err != nil {
		s.logFailure("save_profile", err, logrus.Fields{"user_id": userID})
		return nil, err
	}
	return profile, nil
}

// FetchWeddingProfile is the public read of an owner's profile; nil when
// the owner has none.
func (s *Service) FetchWeddingProfile(ctx context.Context, userID uuid.UUID) (*models.WeddingProfile, error) {
	profile, err := s.Profiles.GetByUser(ctx, userID)
	if err != nil {
		s.logFailure("fetch_profile", err, logrus.Fields{"user_id": userID})
		return nil, err
	}
	return profile, nil
}

// FetchInvitation builds the public invite page for a token
func (s *Service) FetchInvitation(ctx context.Context, token string) (*models.Invitation, error) {
	view, err := s.FetchByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	// a missing profile still yields an invitation with the generic couple label
	profile, _ := s.FetchWeddingProfile(ctx, view.UserID)
	inv := &models.Invitation{Household: *view, Couple: profile.Couple()}
	if profile != nil {
		inv.WeddingDate = profile.WeddingDate
	}
	return inv, nil
}

func parseWeddingDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(weddingDateLayout, raw)
	if err != nil {
		return nil
	}
	return &t
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Format(weddingDateLayout) == b.Format(weddingDateLayout)
}
