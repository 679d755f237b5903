package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/Kerhoff/weddingplanner/internal/models"
)

// HouseholdRepository defines the interface for household data operations.
// Owner-scoped methods only touch rows whose user_id matches userID.
type HouseholdRepository interface {
	Create(ctx context.Context, household *models.Household) (*models.Household, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.HouseholdView, error)
	GetByToken(ctx context.Context, token string) (*models.HouseholdView, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Household, error)
	Update(ctx context.Context, id, userID uuid.UUID, patch models.HouseholdPatch) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

// GuestRepository defines the interface for guest data operations
type GuestRepository interface {
	CreateBatch(ctx context.Context, householdID uuid.UUID, guests []models.NewGuest) ([]*models.Guest, error)
	Create(ctx context.Context, householdID, userID uuid.UUID, name string) (*models.Guest, error)
	ListByHousehold(ctx context.Context, householdID uuid.UUID) ([]*models.Guest, error)
	Update(ctx context.Context, id, userID uuid.UUID, patch models.GuestPatch) error
	UpdateRSVP(ctx context.Context, householdID uuid.UUID, rsvp models.GuestRSVP) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

// SearchRepository defines the broad candidate queries used by name search
type SearchRepository interface {
	HouseholdsMatchingAny(ctx context.Context, words []string, limit int) ([]*models.Household, error)
	GuestsMatchingAny(ctx context.Context, words []string, limit int) ([]*models.GuestMatch, error)
}

// ProfileRepository defines the interface for wedding profile operations
type ProfileRepository interface {
	Upsert(ctx context.Context, profile *models.WeddingProfile) (*models.WeddingProfile, error)
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.WeddingProfile, error)
	GetByTelegramChat(ctx context.Context, chatID int64) (*models.WeddingProfile, error)
}

// SettingsRepository defines the interface for the owner's settings payload
type SettingsRepository interface {
	Load(ctx context.Context, userID uuid.UUID) (*models.PlannerData, error)
	Save(ctx context.Context, userID uuid.UUID, data *models.PlannerData) error
	Delete(ctx context.Context, userID uuid.UUID) error
}
