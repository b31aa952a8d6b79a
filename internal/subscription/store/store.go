package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/subledger/internal/allocation"
	"github.com/MrJamesThe3rd/subledger/internal/errs"
	"github.com/MrJamesThe3rd/subledger/internal/subscription"
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

const selectColumns = `
	id, user_id, name, base_amount, billing_cycle, user_count, notes, status,
	allocation_type, departments, account_allocation_type, accounts,
	start_date, next_renewal_date, last_payment_date, last_payment_amount, created_at
`

// scanSubscription reads a row in selectColumns order. Splits are stored as JSONB arrays.
func scanSubscription(s scanner) (*subscription.Subscription, error) {
	var sub subscription.Subscription

	var cycle, status, allocType, accountAllocType string

	var departments, accounts []byte

	var lastAmount decimal.NullDecimal

	if err := s.Scan(
		&sub.ID, &sub.UserID, &sub.Name, &sub.BaseAmount, &cycle, &sub.UserCount, &sub.Notes, &status,
		&allocType, &departments, &accountAllocType, &accounts,
		&sub.StartDate, &sub.NextRenewalDate, &sub.LastPaymentDate, &lastAmount, &sub.CreatedAt,
	); err != nil {
		return nil, err
	}

	sub.BillingCycle = subscription.BillingCycle(cycle)
	sub.Status = subscription.Status(status)
	sub.AllocationType = allocation.Type(allocType)
	sub.AccountAllocationType = allocation.Type(accountAllocType)

	if lastAmount.Valid {
		sub.LastPaymentAmount = &lastAmount.Decimal
	}

	if err := json.Unmarshal(departments, &sub.Departments); err != nil {
		return nil, fmt.Errorf("decoding departments: %w", err)
	}

	if err := json.Unmarshal(accounts, &sub.Accounts); err != nil {
		return nil, fmt.Errorf("decoding accounts: %w", err)
	}

	return &sub, nil
}

func encodeSplits(splits []allocation.Split) (string, error) {
	if splits == nil {
		splits = []allocation.Split{}
	}

	b, err := json.Marshal(splits)
	if err != nil {
		return "", fmt.Errorf("encoding splits: %w", err)
	}

	return string(b), nil
}

func (s *Store) ListSubscriptions(ctx context.Context, userID string) ([]*subscription.Subscription, error) {
	query := `SELECT ` + selectColumns + ` FROM subscriptions WHERE user_id = $1 ORDER BY LOWER(name)`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*subscription.Subscription

	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning subscription: %w", err)
		}

		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating subscriptions: %w", err)
	}

	return subs, nil
}

func (s *Store) GetSubscription(ctx context.Context, userID string, id uuid.UUID) (*subscription.Subscription, error) {
	query := `SELECT ` + selectColumns + ` FROM subscriptions WHERE id = $1 AND user_id = $2`

	sub, err := scanSubscription(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound("subscription", id)
		}

		return nil, fmt.Errorf("getting subscription: %w", err)
	}

	return sub, nil
}

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	departments, err := encodeSplits(sub.Departments)
	if err != nil {
		return err
	}

	accounts, err := encodeSplits(sub.Accounts)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO subscriptions (
			id, user_id, name, base_amount, billing_cycle, user_count, notes, status,
			allocation_type, departments, account_allocation_type, accounts,
			start_date, next_renewal_date, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11, $12::jsonb, $13, $14, NOW())
		RETURNING created_at
	`

	err = s.db.QueryRowContext(ctx, query,
		sub.ID, sub.UserID, sub.Name, sub.BaseAmount, sub.BillingCycle, sub.UserCount, sub.Notes, sub.Status,
		sub.AllocationType, departments, sub.AccountAllocationType, accounts,
		sub.StartDate, sub.NextRenewalDate,
	).Scan(&sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating subscription: %w", err)
	}

	return nil
}

// UpdateSubscription leaves the last payment columns alone; only the ledger writes them.
func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	departments, err := encodeSplits(sub.Departments)
	if err != nil {
		return err
	}

	accounts, err := encodeSplits(sub.Accounts)
	if err != nil {
		return err
	}

	query := `
		UPDATE subscriptions
		SET name = $1, base_amount = $2, billing_cycle = $3, user_count = $4, notes = $5, status = $6,
			allocation_type = $7, departments = $8::jsonb, account_allocation_type = $9, accounts = $10::jsonb,
			start_date = $11, next_renewal_date = $12
		WHERE id = $13 AND user_id = $14
	`

	res, err := s.db.ExecContext(ctx, query,
		sub.Name, sub.BaseAmount, sub.BillingCycle, sub.UserCount, sub.Notes, sub.Status,
		sub.AllocationType, departments, sub.AccountAllocationType, accounts,
		sub.StartDate, sub.NextRenewalDate,
		sub.ID, sub.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating subscription: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("subscription", sub.ID)
	}

	return nil
}

func (s *Store) DeleteSubscription(ctx context.Context, userID string, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting subscription: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("subscription", id)
	}

	return nil
}

func (s *Store) NameTaken(ctx context.Context, userID, name string, exclude uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM subscriptions
			WHERE user_id = $1 AND LOWER(TRIM(name)) = LOWER(TRIM($2)) AND id <> $3
		)
	`

	var taken bool
	if err := s.db.QueryRowContext(ctx, query, userID, name, exclude).Scan(&taken); err != nil {
		return false, fmt.Errorf("checking subscription name: %w", err)
	}

	return taken, nil
}

func (s *Store) CountSubscriptionTransactions(ctx context.Context, userID string, id uuid.UUID) (int, error) {
	var n int

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE user_id = $1 AND subscription_id = $2`, userID, id,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting subscription transactions: %w", err)
	}

	return n, nil
}
