package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/Kerhoff/weddingplanner/internal/models"
	"github.com/Kerhoff/weddingplanner/internal/repository"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type searchRepository struct {
	db *sqlx.DB
}

// NewSearchRepository creates the repository behind public name search
func NewSearchRepository(db *sql.DB) repository.SearchRepository {
	return &searchRepository{db: sqlx.NewDb(db, "postgres")}
}

// anyILike builds "col ILIKE w1 OR col ILIKE w2 ..." with each word matched
// as a literal substring.
func anyILike(column string, words []string) sq.Or {
	or := make(sq.Or, 0, len(words))
	for _, w := range words {
		or = append(or, sq.ILike{column: "%" + likeEscaper.Replace(w) + "%"})
	}
	return or
}

func (r *searchRepository) HouseholdsMatchingAny(ctx context.Context, words []string, limit int) ([]*models.Household, error) {
	if len(words) == 0 {
		return nil, nil
	}

	query, args, err := sq.Select(strings.Split(householdColumns, ", ")...).
		From("households").
		Where(anyILike("name", words)).
		Limit(uint64(limit)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build household search: %w", err)
	}

	var households []*models.Household
	if err := r.db.SelectContext(ctx, &households, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search households: %w", err)
	}
	return households, nil
}

func (r *searchRepository) GuestsMatchingAny(ctx context.Context, words []string, limit int) ([]*models.GuestMatch, error) {
	if len(words) == 0 {
		return nil, nil
	}

	query, args, err := sq.Select(
		"g.id", "g.household_id", "g.name", "g.rsvp_status", "g.dietary_requirements", "g.created_at",
		`h.id AS "household.id"`,
		`h.user_id AS "household.user_id"`,
		`h.name AS "household.name"`,
		`h.category AS "household.category"`,
		`h.rsvp_token AS "household.rsvp_token"`,
		`h.invitation_sent AS "household.invitation_sent"`,
		`h.thank_you_sent AS "household.thank_you_sent"`,
		`h.created_at AS "household.created_at"`,
	).
		From("guests g").
		Join("households h ON h.id = g.household_id").
		Where(anyILike("g.name", words)).
		Limit(uint64(limit)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build guest search: %w", err)
	}

	var matches []*models.GuestMatch
	if err := r.db.SelectContext(ctx, &matches, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search guests: %w", err)
	}
	return matches, nil
}
