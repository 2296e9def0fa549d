package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"loanbroker/internal/auth/models"
	"loanbroker/internal/platform/postgres"
	id "loanbroker/pkg/domain"
	"loanbroker/pkg/email"
	"loanbroker/pkg/platform/sentinel"
	txcontext "loanbroker/pkg/platform/tx"
)

// PostgresStore persists users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// RunInTx runs fn in a transaction that the store methods pick up from ctx.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return txcontext.Run(ctx, s.db, fn)
}

func (s *PostgresStore) Save(ctx context.Context, user *models.User) error {
	_, err := s.querier(ctx).ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			password_hash = EXCLUDED.password_hash,
			role = EXCLUDED.role`,
		uuid.UUID(user.ID), email.Normalize(user.Email), user.Name, user.PasswordHash, string(user.Role), user.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

const selectUser = `SELECT id, email, name, password_hash, role, created_at FROM users`

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	row := s.querier(ctx).QueryRowContext(ctx, selectUser+` WHERE id = $1`, uuid.UUID(userID))
	return scanUser(row)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, address string) (*models.User, error) {
	row := s.querier(ctx).QueryRowContext(ctx, selectUser+` WHERE LOWER(email) = $1`, email.Normalize(address))
	return scanUser(row)
}

func scanUser(row *sql.Row) (*models.User, error) {
	var (
		u    models.User
		uid  uuid.UUID
		role string
	)
	if err := row.Scan(&uid, &u.Email, &u.Name, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.ID = id.UserID(uid)
	u.Role = models.Role(role)
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}
