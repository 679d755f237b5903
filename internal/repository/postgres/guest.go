package postgres

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/Kerhoff/weddingplanner/internal/models"
	"github.com/Kerhoff/weddingplanner/internal/repository"
)

const guestColumns = `id, household_id, name, rsvp_status, dietary_requirements, created_at`

// ownedHousehold restricts a guest statement to households of one owner
const ownedHousehold = `household_id IN (SELECT id FROM households WHERE user_id = ?)`

type guestRepository struct {
	db *sql.DB
}

// NewGuestRepository creates a new guest repository
func NewGuestRepository(db *sql.DB) repository.GuestRepository {
	return &guestRepository{db: db}
}

func (r *guestRepository) CreateBatch(ctx context.Context, householdID uuid.UUID, guests []models.NewGuest) ([]*models.Guest, error) {
	if len(guests) == 0 {
		return nil, nil
	}

	insert := sq.Insert("guests").
		Columns("household_id", "name", "rsvp_status").
		Suffix("RETURNING " + guestColumns).
		PlaceholderFormat(sq.Dollar)
	for _, g := range guests {
		insert = insert.Values(householdID, g.Name, string(g.RSVPStatus.OrPending()))
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build guest insert: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to create guests: %w", classify(err))
	}
	defer rows.Close()

	created := make([]*models.Guest, 0, len(guests))
	for rows.Next() {
		g := &models.Guest{}
		if err := scanGuest(rows, g); err != nil {
			return nil, fmt.Errorf("failed to scan guest: %w", err)
		}
		created = append(created, g)
	}
	return created, rows.Err()
}

func (r *guestRepository) Create(ctx context.Context, householdID, userID uuid.UUID, name string) (*models.Guest, error) {
	query := `
		INSERT INTO guests (household_id, name)
		SELECT $1::uuid, $2::text
		WHERE EXISTS (SELECT 1 FROM households WHERE id = $1::uuid AND user_id = $3)
		RETURNING ` + guestColumns

	g := &models.Guest{}
	if err := scanGuest(r.db.QueryRowContext(ctx, query, householdID, name, userID), g); err != nil {
		return nil, fmt.Errorf("failed to add guest: %w", classify(err))
	}
	return g, nil
}

func (r *guestRepository) ListByHousehold(ctx context.Context, householdID uuid.UUID) ([]*models.Guest, error) {
	query := `
		SELECT ` + guestColumns + `
		FROM guests
		WHERE household_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to query guests: %w", err)
	}
	defer rows.Close()

	var guests []*models.Guest
	for rows.Next() {
		g := &models.Guest{}
		if err := scanGuest(rows, g); err != nil {
			return nil, fmt.Errorf("failed to scan guest: %w", err)
		}
		guests = append(guests, g)
	}
	return guests, rows.Err()
}

func (r *guestRepository) Update(ctx context.Context, id, userID uuid.UUID, patch models.GuestPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}

	query, args, err := sq.Update("guests").
		SetMap(patch.Columns()).
		Where(sq.Eq{"id": id}).
		Where(ownedHousehold, userID).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build guest update: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update guest: %w", classify(err))
	}
	return checkAffected(result)
}

func (r *guestRepository) UpdateRSVP(ctx context.Context, householdID uuid.UUID, rsvp models.GuestRSVP) error {
	if err := rsvp.Validate(); err != nil {
		return err
	}

	query, args, err := sq.Update("guests").
		SetMap(rsvp.Patch().Columns()).
		Where(sq.Eq{"id": rsvp.ID}).
		Where(sq.Eq{"household_id": householdID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build rsvp update: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update rsvp for guest %s: %w", rsvp.ID, classify(err))
	}
	return checkAffected(result)
}

func (r *guestRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	query := `
		DELETE FROM guests
		WHERE id = $1
		  AND household_id IN (SELECT id FROM households WHERE user_id = $2)`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to remove guest: %w", classify(err))
	}
	return checkAffected(result)
}

func scanGuest(row rowScanner, g *models.Guest) error {
	return row.Scan(
		&g.ID,
		&g.HouseholdID,
		&g.Name,
		&g.RSVPStatus,
		&g.DietaryRequirements,
		&g.CreatedAt,
	)
}
