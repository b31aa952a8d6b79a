package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/subledger/internal/ledger"
	ledgerstore "github.com/MrJamesThe3rd/subledger/internal/ledger/store"
	"github.com/MrJamesThe3rd/subledger/internal/reconcile"
	"github.com/MrJamesThe3rd/subledger/internal/wallet"
	walletstore "github.com/MrJamesThe3rd/subledger/internal/wallet/store"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type reconcileTx struct {
	tx *sql.Tx
}

// BeginReconcile opens a REPEATABLE READ transaction so wallets and history
// are read from the same snapshot.
func (s *Store) BeginReconcile(ctx context.Context) (reconcile.Tx, error) {
	dbTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("beginning reconcile tx: %w", err)
	}

	return &reconcileTx{tx: dbTx}, nil
}

func (rtx *reconcileTx) Commit() error   { return rtx.tx.Commit() }
func (rtx *reconcileTx) Rollback() error { return rtx.tx.Rollback() }

func (rtx *reconcileTx) LockWallets(ctx context.Context, userID string) ([]*wallet.Wallet, error) {
	query := `SELECT ` + walletstore.Columns + ` FROM wallets`

	var args []any

	if userID != "" {
		query += ` WHERE user_id = $1`

		args = append(args, userID)
	}

	query += ` ORDER BY user_id, id FOR UPDATE`

	rows, err := rtx.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("locking wallets: %w", err)
	}
	defer rows.Close()

	var wallets []*wallet.Wallet

	for rows.Next() {
		w, err := walletstore.Scan(rows)
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

func (rtx *reconcileTx) ListAllTransactions(ctx context.Context, userID string) ([]*ledger.Transaction, error) {
	return ledgerstore.SelectAll(ctx, rtx.tx, userID)
}

func (rtx *reconcileTx) SetBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) error {
	if _, err := rtx.tx.ExecContext(ctx, `UPDATE wallets SET balance = $1 WHERE id = $2`, balance, walletID); err != nil {
		return fmt.Errorf("setting wallet balance: %w", err)
	}

	return nil
}
