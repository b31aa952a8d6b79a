package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/subledger/internal/errs"
	"github.com/MrJamesThe3rd/subledger/internal/wallet"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

// Columns is the column list Scan expects.
const Columns = `id, user_id, name, type, balance, holder_name, status, created_at`

// Scan reads a wallet row in Columns order.
func Scan(s scanner) (*wallet.Wallet, error) {
	var w wallet.Wallet

	var typeStr, statusStr string

	if err := s.Scan(&w.ID, &w.UserID, &w.Name, &typeStr, &w.Balance, &w.HolderName, &statusStr, &w.CreatedAt); err != nil {
		return nil, err
	}

	w.Type = wallet.Type(typeStr)
	w.Status = wallet.Status(statusStr)

	return &w, nil
}

func (s *Store) ListWallets(ctx context.Context, userID string) ([]*wallet.Wallet, error) {
	query := `SELECT ` + Columns + ` FROM wallets WHERE user_id = $1
		ORDER BY (type = 'MAIN') DESC, name ASC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing wallets: %w", err)
	}
	defer rows.Close()

	var wallets []*wallet.Wallet

	for rows.Next() {
		w, err := Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning wallet: %w", err)
		}

		wallets = append(wallets, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating wallets: %w", err)
	}

	return wallets, nil
}

func (s *Store) GetWallet(ctx context.Context, userID string, id uuid.UUID) (*wallet.Wallet, error) {
	query := `SELECT ` + Columns + ` FROM wallets WHERE id = $1 AND user_id = $2`

	w, err := Scan(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound("wallet", id)
		}

		return nil, fmt.Errorf("getting wallet: %w", err)
	}

	return w, nil
}

func (s *Store) CreateWallet(ctx context.Context, w *wallet.Wallet) error {
	query := `
		INSERT INTO wallets (id, user_id, name, type, balance, holder_name, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		w.ID, w.UserID, w.Name, w.Type, w.Balance, w.HolderName, w.Status,
	).Scan(&w.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating wallet: %w", err)
	}

	return nil
}

// UpdateWallet writes the descriptive fields only. Balance belongs to the ledger.
func (s *Store) UpdateWallet(ctx context.Context, w *wallet.Wallet) error {
	query := `
		UPDATE wallets
		SET name = $1, holder_name = $2, status = $3
		WHERE id = $4 AND user_id = $5
	`

	res, err := s.db.ExecContext(ctx, query, w.Name, w.HolderName, w.Status, w.ID, w.UserID)
	if err != nil {
		return fmt.Errorf("updating wallet: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("wallet", w.ID)
	}

	return nil
}

func (s *Store) DeleteWallet(ctx context.Context, userID string, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM wallets WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting wallet: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("wallet", id)
	}

	return nil
}

// EnsureMainWallet relies on the partial unique index on (user_id) WHERE
// type = 'MAIN', so concurrent first reads provision a single wallet.
func (s *Store) EnsureMainWallet(ctx context.Context, userID, name string) (*wallet.Wallet, bool, error) {
	insert := `
		INSERT INTO wallets (id, user_id, name, type, balance, status, created_at)
		VALUES ($1, $2, $3, 'MAIN', 0, 'ACTIVE', NOW())
		ON CONFLICT (user_id) WHERE type = 'MAIN' DO NOTHING
	`

	res, err := s.db.ExecContext(ctx, insert, uuid.New(), userID, name)
	if err != nil {
		return nil, false, fmt.Errorf("provisioning main wallet: %w", err)
	}

	created, _ := res.RowsAffected()

	query := `SELECT ` + Columns + ` FROM wallets WHERE user_id = $1 AND type = 'MAIN'`

	w, err := Scan(s.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, false, fmt.Errorf("loading main wallet: %w", err)
	}

	return w, created > 0, nil
}

func (s *Store) CountWalletTransactions(ctx context.Context, userID string, id uuid.UUID) (int, error) {
	var n int

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE user_id = $1 AND (from_wallet_id = $2 OR to_wallet_id = $2)`,
		userID, id,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting wallet transactions: %w", err)
	}

	return n, nil
}
