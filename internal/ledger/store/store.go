package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/subledger/internal/errs"
	"github.com/MrJamesThe3rd/subledger/internal/ledger"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const selectColumns = `
	id, user_id, date, amount, type, from_wallet_id, to_wallet_id, subscription_id,
	description, vat_amount, created_at, updated_at
`

// Scan reads a transaction row in selectColumns order. It is shared with the
// reconciliation store.
func Scan(s scanner) (*ledger.Transaction, error) {
	var tx ledger.Transaction

	var typeStr string

	var vat decimal.NullDecimal

	if err := s.Scan(
		&tx.ID, &tx.UserID, &tx.Date, &tx.Amount, &typeStr,
		&tx.FromWalletID, &tx.ToWalletID, &tx.SubscriptionID,
		&tx.Description, &vat, &tx.CreatedAt, &tx.UpdatedAt,
	); err != nil {
		return nil, err
	}

	tx.Type = ledger.Type(typeStr)

	if vat.Valid {
		tx.VATAmount = &vat.Decimal
	}

	return &tx, nil
}

// SelectAll returns every transaction of userID, or of all tenants when userID is empty.
func SelectAll(ctx context.Context, q queryer, userID string) ([]*ledger.Transaction, error) {
	query := `SELECT ` + selectColumns + ` FROM transactions`

	var args []any

	if userID != "" {
		query += ` WHERE user_id = $1`

		args = append(args, userID)
	}

	query += ` ORDER BY id ASC`

	return list(ctx, q, query, args...)
}

func list(ctx context.Context, q queryer, query string, args ...any) ([]*ledger.Transaction, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []*ledger.Transaction

	for rows.Next() {
		tx, err := Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}

	return txs, nil
}

func (s *Store) GetTransaction(ctx context.Context, userID string, id int64) (*ledger.Transaction, error) {
	query := `SELECT ` + selectColumns + ` FROM transactions WHERE id = $1 AND user_id = $2`

	tx, err := Scan(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound("transaction", id)
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string, filter ledger.ListFilter) ([]*ledger.Transaction, error) {
	query := `SELECT ` + selectColumns + ` FROM transactions WHERE user_id = $1`

	args := []any{userID}
	argIdx := 2

	if filter.Type != nil {
		query += fmt.Sprintf(" AND type = $%d", argIdx)

		args = append(args, *filter.Type)
		argIdx++
	}

	if filter.WalletID != nil {
		query += fmt.Sprintf(" AND (from_wallet_id = $%d OR to_wallet_id = $%d)", argIdx, argIdx)

		args = append(args, *filter.WalletID)
		argIdx++
	}

	if filter.SubscriptionID != nil {
		query += fmt.Sprintf(" AND subscription_id = $%d", argIdx)

		args = append(args, *filter.SubscriptionID)
		argIdx++
	}

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND date >= $%d", argIdx)

		args = append(args, *filter.StartDate)
		argIdx++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND date <= $%d", argIdx)

		args = append(args, *filter.EndDate)
	}

	query += " ORDER BY date DESC, id DESC"

	return list(ctx, s.db, query, args...)
}

type ledgerTx struct {
	tx *sql.Tx
}

// Begin opens a database transaction. Rows read with LockTransaction and every
// wallet touched by AdjustBalance stay locked until it ends.
func (s *Store) Begin(ctx context.Context) (ledger.Tx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning ledger tx: %w", err)
	}

	return &ledgerTx{tx: dbTx}, nil
}

func (ltx *ledgerTx) Commit() error   { return ltx.tx.Commit() }
func (ltx *ledgerTx) Rollback() error { return ltx.tx.Rollback() }

func (ltx *ledgerTx) LockTransaction(ctx context.Context, userID string, id int64) (*ledger.Transaction, error) {
	query := `SELECT ` + selectColumns + ` FROM transactions WHERE id = $1 AND user_id = $2 FOR UPDATE`

	tx, err := Scan(ltx.tx.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound("transaction", id)
		}

		return nil, fmt.Errorf("locking transaction: %w", err)
	}

	return tx, nil
}

func (ltx *ledgerTx) InsertTransaction(ctx context.Context, tx *ledger.Transaction) error {
	query := `
		INSERT INTO transactions (user_id, date, amount, type, from_wallet_id, to_wallet_id, subscription_id, description, vat_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id, created_at
	`

	err := ltx.tx.QueryRowContext(ctx, query,
		tx.UserID,
		tx.Date,
		tx.Amount,
		tx.Type,
		tx.FromWalletID,
		tx.ToWalletID,
		tx.SubscriptionID,
		tx.Description,
		nullDecimal(tx.VATAmount),
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting transaction: %w", err)
	}

	return nil
}

func (ltx *ledgerTx) UpdateTransaction(ctx context.Context, tx *ledger.Transaction) error {
	query := `
		UPDATE transactions
		SET date = $1, amount = $2, type = $3, from_wallet_id = $4, to_wallet_id = $5,
			subscription_id = $6, description = $7, vat_amount = $8, updated_at = NOW()
		WHERE id = $9 AND user_id = $10
		RETURNING updated_at
	`

	err := ltx.tx.QueryRowContext(ctx, query,
		tx.Date,
		tx.Amount,
		tx.Type,
		tx.FromWalletID,
		tx.ToWalletID,
		tx.SubscriptionID,
		tx.Description,
		nullDecimal(tx.VATAmount),
		tx.ID,
		tx.UserID,
	).Scan(&tx.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errs.NotFound("transaction", tx.ID)
		}

		return fmt.Errorf("updating transaction: %w", err)
	}

	return nil
}

func (ltx *ledgerTx) DeleteTransaction(ctx context.Context, userID string, id int64) error {
	res, err := ltx.tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}

	return expectOne(res, errs.NotFound("transaction", id))
}

func (ltx *ledgerTx) MainWalletID(ctx context.Context, userID string) (uuid.UUID, error) {
	var id uuid.UUID

	err := ltx.tx.QueryRowContext(ctx,
		`SELECT id FROM wallets WHERE user_id = $1 AND type = 'MAIN' FOR UPDATE`, userID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, errs.ErrNoMainWallet
		}

		return uuid.Nil, fmt.Errorf("finding main wallet: %w", err)
	}

	return id, nil
}

func (ltx *ledgerTx) AdjustBalance(ctx context.Context, userID string, walletID uuid.UUID, delta decimal.Decimal) error {
	res, err := ltx.tx.ExecContext(ctx,
		`UPDATE wallets SET balance = balance + $1 WHERE id = $2 AND user_id = $3`,
		delta, walletID, userID,
	)
	if err != nil {
		return fmt.Errorf("adjusting wallet balance: %w", err)
	}

	return expectOne(res, errs.NotFound("wallet", walletID))
}

func (ltx *ledgerTx) RecordPayment(ctx context.Context, userID string, subscriptionID uuid.UUID, p ledger.Payment) error {
	query := `
		UPDATE subscriptions
		SET last_payment_date = $1, last_payment_amount = $2,
			next_renewal_date = COALESCE($3::timestamptz, next_renewal_date)
		WHERE id = $4 AND user_id = $5
	`

	res, err := ltx.tx.ExecContext(ctx, query, p.Date, p.Amount, p.NextRenewalDate, subscriptionID, userID)
	if err != nil {
		return fmt.Errorf("recording subscription payment: %w", err)
	}

	return expectOne(res, errs.NotFound("subscription", subscriptionID))
}

func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if n == 0 {
		return notFound
	}

	return nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}

	return decimal.NewNullDecimal(*d)
}
