// Package repository provides transactional executors for account row operations.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/JohanU89-coder/radius-api/internal/models"
	"github.com/JohanU89-coder/radius-api/internal/rowops"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// PostgresAccountRepository executes row operations against the FreeRADIUS
// tables of a PostgreSQL database.
type PostgresAccountRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sqlx.DB
}

// NewPostgresAccountRepository creates a new PostgresAccountRepository using the provided *sql.DB.
// db must be a valid connection to a PostgreSQL instance.
func NewPostgresAccountRepository(db *sql.DB) *PostgresAccountRepository {
	return &PostgresAccountRepository{DB: sqlx.NewDb(db, "postgres")}
}

// Run executes stmts in order inside one transaction. Every statement is
// committed together or the whole unit is rolled back.
//
// A failure to begin the transaction is reported as models.ErrStoreUnavailable
// and no statement is attempted. Guard statements abort the unit with
// models.ErrAccountExists or models.ErrAccountNotFound.
func (r *PostgresAccountRepository) Run(ctx context.Context, stmts []rowops.Statement) (*rowops.Outcome, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx: %v", models.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	out := &rowops.Outcome{}
	for _, s := range stmts {
		if err := apply(ctx, tx, s, out); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

func apply(ctx context.Context, tx *sqlx.Tx, s rowops.Statement, out *rowops.Outcome) error {
	queries := s.Queries()
	if len(queries) == 0 {
		return fmt.Errorf("%s %s: unsupported statement", s.Op, s.Relation)
	}

	switch s.Op {
	case rowops.OpSelect, rowops.OpList:
		if err := scan(ctx, tx, s, queries[0], out); err != nil {
			return fmt.Errorf("%s %s: %w", s.Op, s.Relation, err)
		}
		return nil

	case rowops.OpGuardAbsent, rowops.OpGuardPresent:
		var exists bool
		if err := tx.QueryRowxContext(ctx, queries[0].SQL, queries[0].Args...).Scan(&exists); err != nil {
			return fmt.Errorf("%s %s: %w", s.Op, s.Relation, err)
		}
		if s.Op == rowops.OpGuardAbsent && exists {
			return models.ErrAccountExists
		}
		if s.Op == rowops.OpGuardPresent && !exists {
			return models.ErrAccountNotFound
		}
		return nil

	case rowops.OpUpsert:
		n, err := exec(ctx, tx, queries[0])
		if err == nil && n == 0 {
			n, err = exec(ctx, tx, queries[1])
		}
		if err != nil {
			return storeError(s, err)
		}
		out.Affected += n
		return nil

	default:
		n, err := exec(ctx, tx, queries[0])
		if err != nil {
			return storeError(s, err)
		}
		out.Affected += n
		return nil
	}
}

func exec(ctx context.Context, tx *sqlx.Tx, q rowops.Query) (int64, error) {
	res, err := tx.ExecContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scan(ctx context.Context, tx *sqlx.Tx, s rowops.Statement, q rowops.Query, out *rowops.Outcome) error {
	switch s.Relation {
	case rowops.CredentialAttributes:
		if s.Op == rowops.OpList {
			var names []string
			if err := tx.SelectContext(ctx, &names, q.SQL, q.Args...); err != nil {
				return err
			}
			for _, name := range names {
				out.Profiles = append(out.Profiles, models.Profile{Username: name})
			}
			return nil
		}
		return tx.SelectContext(ctx, &out.Check, q.SQL, q.Args...)
	case rowops.ReplyAttributes:
		return tx.SelectContext(ctx, &out.Reply, q.SQL, q.Args...)
	case rowops.GroupMembership:
		return tx.SelectContext(ctx, &out.Groups, q.SQL, q.Args...)
	case rowops.ProfileMetadata:
		return tx.SelectContext(ctx, &out.Profiles, q.SQL, q.Args...)
	default:
		return fmt.Errorf("relation %s is not readable", s.Relation)
	}
}

// storeError wraps a failed write, mapping unique constraint violations
// to models.ErrAccountExists.
func storeError(s rowops.Statement, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", models.ErrAccountExists, pqErr.Message)
	}
	return fmt.Errorf("%s %s: %w", s.Op, s.Relation, err)
}
