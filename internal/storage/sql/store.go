package sql

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/duraspace/duplication-policy-manager/internal/domain"
	"github.com/duraspace/duplication-policy-manager/internal/storage"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// isUniqueViolation checks if an error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// SQLite
	if strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	// PostgreSQL
	if strings.Contains(errStr, "duplicate key value violates unique constraint") {
		return true
	}
	return false
}

// Store implements the storage.Storage interface using SQL.
type Store struct {
	db *sqlx.DB
}

// Ensure Store implements the storage interface.
var _ storage.Storage = (*Store)(nil)

// New creates a new SQL store and runs the embedded migrations.
func New(driver, dsn string) (*Store, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(driver); err != nil {
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreatePolicyVersion stores a version snapshot.
func (s *Store) CreatePolicyVersion(ctx context.Context, version *domain.PolicyVersion) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO policy_versions (id, account_id, version_number, document, created_at)
		VALUES (:id, :account_id, :version_number, :document, :created_at)`,
		version)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// GetPolicyVersion returns a version by id.
func (s *Store) GetPolicyVersion(ctx context.Context, id string) (*domain.PolicyVersion, error) {
	var version domain.PolicyVersion
	err := s.db.GetContext(ctx, &version, `
		SELECT id, account_id, version_number, document, created_at
		FROM policy_versions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &version, nil
}

// GetLatestPolicyVersion returns the highest-numbered version for an account.
func (s *Store) GetLatestPolicyVersion(ctx context.Context, accountID string) (*domain.PolicyVersion, error) {
	var version domain.PolicyVersion
	err := s.db.GetContext(ctx, &version, `
		SELECT id, account_id, version_number, document, created_at
		FROM policy_versions WHERE account_id = $1
		ORDER BY version_number DESC LIMIT 1`, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &version, nil
}

// ListPolicyVersions returns an account's versions, newest first.
func (s *Store) ListPolicyVersions(ctx context.Context, accountID string, limit, offset int) ([]*domain.PolicyVersion, error) {
	if limit <= 0 {
		limit = 20
	}
	versions := []*domain.PolicyVersion{}
	err := s.db.SelectContext(ctx, &versions, `
		SELECT id, account_id, version_number, document, created_at
		FROM policy_versions WHERE account_id = $1
		ORDER BY version_number DESC LIMIT $2 OFFSET $3`,
		accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	return versions, nil
}

// DeletePolicyVersions removes all versions for an account.
func (s *Store) DeletePolicyVersions(ctx context.Context, accountID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM policy_versions WHERE account_id = $1`, accountID)
	return err
}
