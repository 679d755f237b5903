package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Kerhoff/weddingplanner/internal/repository"
)

// integrity_constraint_violation class
const constraintViolationClass = "23"

// classify maps driver errors onto the repository error kinds while keeping
// the original error in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == constraintViolationClass {
		return fmt.Errorf("%w: %s (%s)", repository.ErrRejected, pqErr.Message, pqErr.Constraint)
	}
	return err
}

// checkAffected turns a zero-row write into ErrNotFound
func checkAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
