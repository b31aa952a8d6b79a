package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/MrJamesThe3rd/subledger/internal/catalog"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ListDepartments(ctx context.Context, userID string) ([]*catalog.Department, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, color, created_at FROM departments WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing departments: %w", err)
	}
	defer rows.Close()

	var deps []*catalog.Department

	for rows.Next() {
		var d catalog.Department
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.Color, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning department: %w", err)
		}

		deps = append(deps, &d)
	}

	return deps, rows.Err()
}

func (s *Store) CreateDepartment(ctx context.Context, d *catalog.Department) error {
	query := `
		INSERT INTO departments (id, user_id, name, color, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at
	`

	if err := s.db.QueryRowContext(ctx, query, d.ID, d.UserID, d.Name, d.Color).Scan(&d.CreatedAt); err != nil {
		return fmt.Errorf("creating department: %w", err)
	}

	return nil
}

func (s *Store) ListAccounts(ctx context.Context, userID string) ([]*catalog.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, code, created_at FROM accounts WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*catalog.Account

	for rows.Next() {
		var a catalog.Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Code, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}

		accounts = append(accounts, &a)
	}

	return accounts, rows.Err()
}

func (s *Store) CreateAccount(ctx context.Context, a *catalog.Account) error {
	query := `
		INSERT INTO accounts (id, user_id, name, code, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at
	`

	if err := s.db.QueryRowContext(ctx, query, a.ID, a.UserID, a.Name, a.Code).Scan(&a.CreatedAt); err != nil {
		return fmt.Errorf("creating account: %w", err)
	}

	return nil
}
