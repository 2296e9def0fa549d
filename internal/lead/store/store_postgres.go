package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"loanbroker/internal/lead/models"
	"loanbroker/internal/platform/postgres"
	id "loanbroker/pkg/domain"
	"loanbroker/pkg/platform/sentinel"
	txcontext "loanbroker/pkg/platform/tx"
)

// PostgresStore persists leads in the leads table. Tags use a TEXT[] column.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Save(ctx context.Context, lead *models.Lead) error {
	_, err := s.querier(ctx).ExecContext(ctx, `
		INSERT INTO leads (id, name, email, phone, loan_type, amount, city, message, source, tags, browser, os, mobile, client_ip, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		uuid.UUID(lead.ID), lead.Name, lead.Email, lead.Phone, string(lead.LoanType), lead.Amount,
		lead.City, lead.Message, lead.Source, pq.Array(nonNil(lead.Tags)),
		lead.Browser, lead.OS, lead.Mobile, lead.ClientIP, lead.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("save lead: %w", err)
	}
	return nil
}

const selectLead = `SELECT id, name, email, phone, loan_type, amount, city, message, source, tags, browser, os, mobile, client_ip, created_at FROM leads`

func (s *PostgresStore) FindByID(ctx context.Context, leadID id.LeadID) (*models.Lead, error) {
	row := s.querier(ctx).QueryRowContext(ctx, selectLead+` WHERE id = $1`, uuid.UUID(leadID))
	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return lead, err
}

func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter) ([]*models.Lead, int, error) {
	where, args := whereClause(filter)

	var total int
	if err := s.querier(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf("%s%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", selectLead, where, len(args)-1, len(args))
	rows, err := s.querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	leads := make([]*models.Lead, 0, filter.Limit)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate leads: %w", err)
	}
	return leads, total, nil
}

func whereClause(filter models.ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.LoanType != "" {
		args = append(args, string(filter.LoanType))
		conds = append(conds, fmt.Sprintf("loan_type = $%d", len(args)))
	}
	if filter.Email != "" {
		args = append(args, filter.Email)
		conds = append(conds, fmt.Sprintf("LOWER(email) = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLead(row scanner) (*models.Lead, error) {
	var (
		l        models.Lead
		leadID   uuid.UUID
		loanType string
		tags     []string
	)
	err := row.Scan(&leadID, &l.Name, &l.Email, &l.Phone, &loanType, &l.Amount, &l.City, &l.Message,
		&l.Source, pq.Array(&tags), &l.Browser, &l.OS, &l.Mobile, &l.ClientIP, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan lead: %w", err)
	}
	l.ID = id.LeadID(leadID)
	l.LoanType = id.LoanType(loanType)
	if len(tags) > 0 {
		l.Tags = tags
	}
	l.CreatedAt = l.CreatedAt.UTC()
	return &l, nil
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
