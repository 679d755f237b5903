package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Kerhoff/weddingplanner/internal/models"
	"github.com/Kerhoff/weddingplanner/internal/repository"
)

const profileColumns = `user_id, partner_names, wedding_date, telegram_chat_id, updated_at`

type profileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a new wedding profile repository
func NewProfileRepository(db *sql.DB) repository.ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Upsert(ctx context.Context, profile *models.WeddingProfile) (*models.WeddingProfile, error) {
	query := `
		INSERT INTO wedding_profiles (user_id, partner_names, wedding_date, telegram_chat_id, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			partner_names = EXCLUDED.partner_names,
			wedding_date = EXCLUDED.wedding_date,
			telegram_chat_id = EXCLUDED.telegram_chat_id,
			updated_at = EXCLUDED.updated_at
		RETURNING updated_at`

	profile.UpdatedAt = time.Now()

	err := r.db.QueryRowContext(ctx, query,
		profile.UserID,
		profile.PartnerNames,
		profile.WeddingDate,
		profile.TelegramChatID,
		profile.UpdatedAt,
	).Scan(&profile.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to upsert wedding profile: %w", classify(err))
	}

	return profile, nil
}

func (r *profileRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*models.WeddingProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM wedding_profiles WHERE user_id = $1`
	return r.getOne(ctx, query, userID)
}

func (r *profileRepository) GetByTelegramChat(ctx context.Context, chatID int64) (*models.WeddingProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM wedding_profiles WHERE telegram_chat_id = $1 LIMIT 1`
	return r.getOne(ctx, query, chatID)
}

func (r *profileRepository) getOne(ctx context.Context, query string, arg any) (*models.WeddingProfile, error) {
	profile := &models.WeddingProfile{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&profile.UserID,
		&profile.PartnerNames,
		&profile.WeddingDate,
		&profile.TelegramChatID,
		&profile.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get wedding profile: %w", err)
	}

	return profile, nil
}
