package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Kerhoff/weddingplanner/internal/models"
	"github.com/Kerhoff/weddingplanner/internal/repository"
)

type settingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a repository over the user_data table
func NewSettingsRepository(db *sql.DB) repository.SettingsRepository {
	return &settingsRepository{db: db}
}

// Load returns nil without error when the owner has never saved
func (r *settingsRepository) Load(ctx context.Context, userID uuid.UUID) (*models.PlannerData, error) {
	query := `SELECT data FROM user_data WHERE user_id = $1`

	var raw []byte
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	data := &models.PlannerData{}
	if err := json.Unmarshal(raw, data); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	return data, nil
}

func (r *settingsRepository) Save(ctx context.Context, userID uuid.UUID, data *models.PlannerData) error {
	query := `
		INSERT INTO user_data (user_id, data, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, userID, raw, time.Now()); err != nil {
		return fmt.Errorf("failed to save settings: %w", classify(err))
	}
	return nil
}

func (r *settingsRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	query := `DELETE FROM user_data WHERE user_id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete settings: %w", err)
	}
	return nil
}
