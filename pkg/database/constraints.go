package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Constraint is a named table constraint that is added only when missing.
type Constraint struct {
	Name  string
	Table string
	Def   string // text after ADD CONSTRAINT <name>
}

// constraintLockKey serialises back-filling across instances starting at once.
const constraintLockKey = 727274001

// Constraints are the referential and domain rules of the entity store.
var Constraints = []Constraint{
	{
		Name:  "requests_status_chk",
		Table: "requests",
		Def:   "CHECK (status IN ('pending','assigned','calling','completed'))",
	},
	{
		Name:  "payments_status_chk",
		Table: "payments",
		Def:   "CHECK (status IN ('pending','paid','failed'))",
	},
	{
		Name:  "lawyers_rating_chk",
		Table: "lawyers",
		Def:   "CHECK (rating IS NULL OR (rating >= 0 AND rating <= 5))",
	},
	{
		Name:  "lawyers_user_id_fkey",
		Table: "lawyers",
		Def:   "FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL",
	},
	{
		Name:  "requests_user_id_fkey",
		Table: "requests",
		Def:   "FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE",
	},
	{
		Name:  "requests_assigned_lawyer_fkey",
		Table: "requests",
		Def:   "FOREIGN KEY (assigned_lawyer) REFERENCES lawyers(id) ON DELETE SET NULL",
	},
	{
		Name:  "payments_request_id_fkey",
		Table: "payments",
		Def:   "FOREIGN KEY (request_id) REFERENCES requests(id) ON DELETE CASCADE",
	},
	{
		Name:  "request_histories_request_id_fkey",
		Table: "request_histories",
		Def:   "FOREIGN KEY (request_id) REFERENCES requests(id) ON DELETE CASCADE",
	},
}

const constraintExistsSQL = `SELECT EXISTS (
	SELECT 1
	FROM pg_constraint c
	JOIN pg_class t ON c.conrelid = t.oid
	WHERE c.conname = $1 AND t.relname = $2
)`

// EnsureConstraint adds c unless a constraint with the same name already exists on the table.
// It reports whether the constraint was created.
func EnsureConstraint(ctx context.Context, db *sql.DB, c Constraint) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", constraintLockKey); err != nil {
		return false, fmt.Errorf("lock constraints: %w", err)
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, constraintExistsSQL, c.Name, c.Table).Scan(&exists); err != nil {
		return false, fmt.Errorf("lookup %s: %w", c.Name, err)
	}
	if exists {
		return false, tx.Commit()
	}

	stmt := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s %s",
		pq.QuoteIdentifier(c.Table), pq.QuoteIdentifier(c.Name), c.Def)
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return false, fmt.Errorf("add %s: %w", c.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// EnsureConstraints back-fills every constraint in list and returns the names it created.
func EnsureConstraints(ctx context.Context, db *sql.DB, list []Constraint) ([]string, error) {
	var created []string
	for _, c := range list {
		ok, err := EnsureConstraint(ctx, db, c)
		if err != nil {
			return created, err
		}
		if ok {
			created = append(created, c.Name)
		}
	}
	return created, nil
}
