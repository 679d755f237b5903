package postgres

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Kerhoff/weddingplanner/internal/models"
	"github.com/Kerhoff/weddingplanner/internal/repository"
)

// rsvpTokenBytes is the entropy of a public RSVP token
const rsvpTokenBytes = 16

const householdColumns = `id, user_id, name, category, rsvp_token, invitation_sent, thank_you_sent, created_at`

type householdRepository struct {
	db *sql.DB
}

// NewHouseholdRepository creates a new household repository
func NewHouseholdRepository(db *sql.DB) repository.HouseholdRepository {
	return &householdRepository{db: db}
}

func newRSVPToken() (string, error) {
	b := make([]byte, rsvpTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (r *householdRepository) Create(ctx context.Context, household *models.Household) (*models.Household, error) {
	query := `
		INSERT INTO households (user_id, name, category, rsvp_token, invitation_sent, thank_you_sent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	if household.Category == "" {
		household.Category = models.DefaultHouseholdCategory
	}
	if household.RSVPToken == "" {
		token, err := newRSVPToken()
		if err != nil {
			return nil, fmt.Errorf("failed to generate rsvp token: %w", err)
		}
		household.RSVPToken = token
	}

	err := r.db.QueryRowContext(ctx, query,
		household.UserID,
		household.Name,
		household.Category,
		household.RSVPToken,
		household.InvitationSent,
		household.ThankYouSent,
	).Scan(&household.ID, &household.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create household: %w", classify(err))
	}

	return household, nil
}

func (r *householdRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.HouseholdView, error) {
	query := `
		SELECT ` + householdColumns + `
		FROM households
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query households: %w", err)
	}
	defer rows.Close()

	var views []*models.HouseholdView
	for rows.Next() {
		view := &models.HouseholdView{Guests: []models.Guest{}}
		if err := scanHousehold(rows, &view.Household); err != nil {
			return nil, fmt.Errorf("failed to scan household: %w", err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate households: %w", err)
	}

	if err := r.attachGuests(ctx, views); err != nil {
		return nil, err
	}
	return views, nil
}

func (r *householdRepository) GetByToken(ctx context.Context, token string) (*models.HouseholdView, error) {
	query := `
		SELECT ` + householdColumns + `
		FROM households
		WHERE rsvp_token = $1`

	view := &models.HouseholdView{Guests: []models.Guest{}}
	if err := scanHousehold(r.db.QueryRowContext(ctx, query, token), &view.Household); err != nil {
		return nil, fmt.Errorf("failed to get household by token: %w", classify(err))
	}

	if err := r.attachGuests(ctx, []*models.HouseholdView{view}); err != nil {
		return nil, err
	}
	return view, nil
}

func (r *householdRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Household, error) {
	query := `
		SELECT ` + householdColumns + `
		FROM households
		WHERE id = $1`

	household := &models.Household{}
	if err := scanHousehold(r.db.QueryRowContext(ctx, query, id), household); err != nil {
		return nil, fmt.Errorf("failed to get household by ID: %w", classify(err))
	}
	return household, nil
}

func (r *householdRepository) Update(ctx context.Context, id, userID uuid.UUID, patch models.HouseholdPatch) error {
	if patch.IsEmpty() {
		return models.ErrEmptyPatch
	}

	query, args, err := sq.Update("households").
		SetMap(patch.Columns()).
		Where(sq.Eq{"id": id, "user_id": userID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build household update: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update household: %w", classify(err))
	}
	return checkAffected(result)
}

func (r *householdRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	query := `DELETE FROM households WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete household: %w", classify(err))
	}
	return checkAffected(result)
}

// attachGuests loads the guests of all views in one query, ordered by
// creation time within each household.
func (r *householdRepository) attachGuests(ctx context.Context, views []*models.HouseholdView) error {
	if len(views) == 0 {
		return nil
	}

	ids := make([]string, 0, len(views))
	byID := make(map[uuid.UUID]*models.HouseholdView, len(views))
	for _, v := range views {
		ids = append(ids, v.ID.String())
		byID[v.ID] = v
	}

	query := `
		SELECT ` + guestColumns + `
		FROM guests
		WHERE household_id = ANY($1::uuid[])
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query guests: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var g models.Guest
		if err := scanGuest(rows, &g); err != nil {
			return fmt.Errorf("failed to scan guest: %w", err)
		}
		if v, ok := byID[g.HouseholdID]; ok {
			v.Guests = append(v.Guests, g)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHousehold(row rowScanner, h *models.Household) error {
	return row.Scan(
		&h.ID,
		&h.UserID,
		&h.Name,
		&h.Category,
		&h.RSVPToken,
		&h.InvitationSent,
		&h.ThankYouSent,
		&h.CreatedAt,
	)
}
