package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/subledger/internal/errs"
	"github.com/MrJamesThe3rd/subledger/internal/metrics"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=ledger
type Repository interface {
	GetTransaction(ctx context.Context, userID string, id int64) (*Transaction, error)
	ListTransactions(ctx context.Context, userID string, filter ListFilter) ([]*Transaction, error)

	// Begin opens the unit of work every mutation runs in.
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one atomic ledger mutation. Nothing written through it is visible
// until Commit; Rollback after Commit is a no-op.
type Tx interface {
	// LockTransaction loads a row and holds it until the end of the unit of work.
	LockTransaction(ctx context.Context, userID string, id int64) (*Transaction, error)
	InsertTransaction(ctx context.Context, tx *Transaction) error
	UpdateTransaction(ctx context.Context, tx *Transaction) error
	DeleteTransaction(ctx context.Context, userID string, id int64) error

	// MainWalletID returns errs.ErrNoMainWallet when the tenant has none.
	MainWalletID(ctx context.Context, userID string) (uuid.UUID, error)
	// AdjustBalance adds delta to the wallet balance; unknown wallets are a NotFoundError.
	AdjustBalance(ctx context.Context, userID string, walletID uuid.UUID, delta decimal.Decimal) error
	// RecordPayment writes last payment metadata; unknown subscriptions are a NotFoundError.
	RecordPayment(ctx context.Context, userID string, subscriptionID uuid.UUID, p Payment) error

	Commit() error
	Rollback() error
}

// Service is the ledger engine. It is the only writer of wallet balances
// outside reconciliation, and every mutation applies or reverses the effect
// table inside a single Tx.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

type CreateParams struct {
	Type            Type
	Amount          decimal.Decimal
	Date            time.Time
	FromWalletID    *uuid.UUID
	ToWalletID      *uuid.UUID
	SubscriptionID  *uuid.UUID
	Description     string
	VATAmount       *decimal.Decimal
	NextRenewalDate *time.Time // only used by SUBSCRIPTION_PAYMENT
}

// EditParams overrides fields of an existing transaction; nil keeps the old value.
type EditParams struct {
	Type            *Type
	Amount          *decimal.Decimal
	Date            *time.Time
	FromWalletID    *uuid.UUID
	ToWalletID      *uuid.UUID
	SubscriptionID  *uuid.UUID
	Description     *string
	VATAmount       *decimal.Decimal
	NextRenewalDate *time.Time
}

func (s *Service) Get(ctx context.Context, userID string, id int64) (*Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, userID, id)
	if err != nil {
		return nil, errs.Persistence("get transaction", err)
	}

	return tx, nil
}

func (s *Service) List(ctx context.Context, userID string, filter ListFilter) ([]*Transaction, error) {
	txs, err := s.repo.ListTransactions(ctx, userID, filter)
	if err != nil {
		return nil, errs.Persistence("list transactions", err)
	}

	return txs, nil
}

// Create records a new transaction and applies its effect.
func (s *Service) Create(ctx context.Context, userID string, params CreateParams) (*Transaction, error) {
	tx := &Transaction{
		UserID:         userID,
		Type:           params.Type,
		Amount:         params.Amount,
		Date:           params.Date,
		FromWalletID:   params.FromWalletID,
		ToWalletID:     params.ToWalletID,
		SubscriptionID: params.SubscriptionID,
		Description:    params.Description,
		VATAmount:      params.VATAmount,
	}

	err := s.create(ctx, tx, params.NextRenewalDate, nil)
	metrics.ObserveLedgerOperation("create", string(params.Type), err)

	if err != nil {
		return nil, err
	}

	return tx, nil
}

// create runs Create; resolve, when set, fills in references that must be read
// inside the unit of work.
func (s *Service) create(ctx context.Context, tx *Transaction, nextRenewal *time.Time, resolve func(context.Context, Tx) error) error {
	s.fillDefaults(tx)

	if resolve == nil {
		normalize(tx)

		if err := validate(tx); err != nil {
			return err
		}
	}

	return s.withTx(ctx, "create transaction", func(dbTx Tx) error {
		if resolve != nil {
			if err := resolve(ctx, dbTx); err != nil {
				return err
			}

			normalize(tx)

			if err := validate(tx); err != nil {
				return err
			}
		}

		if err := dbTx.InsertTransaction(ctx, tx); err != nil {
			return err
		}

		return s.apply(ctx, dbTx, tx, nextRenewal)
	})
}

// Edit reverses the stored effect, overwrites the row and applies the effect of
// the merged values. Type falls back to the stored type when not given.
func (s *Service) Edit(ctx context.Context, userID string, id int64, params EditParams) (*Transaction, error) {
	var edited *Transaction

	err := s.withTx(ctx, "edit transaction", func(dbTx Tx) error {
		old, err := dbTx.LockTransaction(ctx, userID, id)
		if err != nil {
			return err
		}

		if err := s.adjust(ctx, dbTx, userID, Reversal(old)); err != nil {
			return err
		}

		next := merge(old, params)
		next.UpdatedAt = new(s.now().UTC())
		normalize(next)

		if err := validate(next); err != nil {
			return err
		}

		if err := dbTx.UpdateTransaction(ctx, next); err != nil {
			return err
		}

		if err := s.apply(ctx, dbTx, next, params.NextRenewalDate); err != nil {
			return err
		}

		edited = next

		return nil
	})

	txType := ""
	if edited != nil {
		txType = string(edited.Type)
	}

	metrics.ObserveLedgerOperation("edit", txType, err)

	if err != nil {
		return nil, err
	}

	return edited, nil
}

// Delete reverses the stored effect and removes the row. Subscription payment
// metadata written by the transaction is left as is.
func (s *Service) Delete(ctx context.Context, userID string, id int64) error {
	txType := ""

	err := s.withTx(ctx, "delete transaction", func(dbTx Tx) error {
		old, err := dbTx.LockTransaction(ctx, userID, id)
		if err != nil {
			return err
		}

		txType = string(old.Type)

		if err := s.adjust(ctx, dbTx, userID, Reversal(old)); err != nil {
			return err
		}

		return dbTx.DeleteTransaction(ctx, userID, id)
	})

	metrics.ObserveLedgerOperation("delete", txType, err)

	return err
}

// FundMain deposits bank money into the tenant's MAIN wallet.
func (s *Service) FundMain(ctx context.Context, userID string, amount decimal.Decimal, date time.Time, description string) (*Transaction, error) {
	tx := &Transaction{
		UserID:      userID,
		Type:        TypeDeposit,
		Amount:      amount,
		Date:        date,
		Description: description,
	}

	err := s.create(ctx, tx, nil, func(ctx context.Context, dbTx Tx) error {
		mainID, err := dbTx.MainWalletID(ctx, userID)
		if err != nil {
			return err
		}

		tx.ToWalletID = &mainID

		return nil
	})
	metrics.ObserveLedgerOperation("create", string(TypeDeposit), err)

	if err != nil {
		return nil, err
	}

	return tx, nil
}

// Transfer moves money between two wallets, normally MAIN to an employee card.
func (s *Service) Transfer(ctx context.Context, userID string, from, to uuid.UUID, amount decimal.Decimal, date time.Time) (*Transaction, error) {
	return s.Create(ctx, userID, CreateParams{
		Type:         TypeInternalTransfer,
		Amount:       amount,
		Date:         date,
		FromWalletID: &from,
		ToWalletID:   &to,
	})
}

type PaymentParams struct {
	SubscriptionID  uuid.UUID
	WalletID        uuid.UUID
	Amount          decimal.Decimal // base plus VAT, computed by the caller
	Date            time.Time
	NextRenewalDate *time.Time
	VATAmount       *decimal.Decimal
	Description     string
}

// RecordPayment pays a subscription from a wallet. Callers check funds first.
func (s *Service) RecordPayment(ctx context.Context, userID string, p PaymentParams) (*Transaction, error) {
	return s.Create(ctx, userID, CreateParams{
		Type:            TypeSubscriptionPayment,
		Amount:          p.Amount,
		Date:            p.Date,
		FromWalletID:    &p.WalletID,
		SubscriptionID:  &p.SubscriptionID,
		Description:     p.Description,
		VATAmount:       p.VATAmount,
		NextRenewalDate: p.NextRenewalDate,
	})
}

type RefundParams struct {
	SubscriptionID uuid.UUID
	WalletID       uuid.UUID
	Amount         decimal.Decimal
	Date           time.Time
	Description    string
}

// RecordRefund credits a wallet with money returned by a subscription.
func (s *Service) RecordRefund(ctx context.Context, userID string, p RefundParams) (*Transaction, error) {
	return s.Create(ctx, userID, CreateParams{
		Type:           TypeRefund,
		Amount:         p.Amount,
		Date:           p.Date,
		ToWalletID:     &p.WalletID,
		SubscriptionID: &p.SubscriptionID,
		Description:    p.Description,
	})
}

func (s *Service) withTx(ctx context.Context, op string, fn func(Tx) error) error {
	dbTx, err := s.repo.Begin(ctx)
	if err != nil {
		return errs.Persistence(op, err)
	}
	defer dbTx.Rollback()

	if err := fn(dbTx); err != nil {
		return errs.Persistence(op, err)
	}

	if err := dbTx.Commit(); err != nil {
		return errs.Persistence(op, err)
	}

	return nil
}

func (s *Service) apply(ctx context.Context, dbTx Tx, tx *Transaction, nextRenewal *time.Time) error {
	if err := s.adjust(ctx, dbTx, tx.UserID, Effect(tx)); err != nil {
		return err
	}

	if tx.Type != TypeSubscriptionPayment {
		return nil
	}

	return dbTx.RecordPayment(ctx, tx.UserID, *tx.SubscriptionID, Payment{
		Date:            tx.Date,
		Amount:          tx.Amount,
		NextRenewalDate: nextRenewal,
	})
}

func (s *Service) adjust(ctx context.Context, dbTx Tx, userID string, deltas []Delta) error {
	for _, d := range deltas {
		if err := dbTx.AdjustBalance(ctx, userID, d.WalletID, d.Amount); err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) fillDefaults(tx *Transaction) {
	if tx.Date.IsZero() {
		tx.Date = s.now().UTC()
	}

	if tx.Description == "" {
		tx.Description = tx.Type.DefaultDescription()
	}
}

func merge(old *Transaction, p EditParams) *Transaction {
	next := *old

	if p.Type != nil {
		next.Type = *p.Type
	}

	if p.Amount != nil {
		next.Amount = *p.Amount
	}

	if p.Date != nil {
		next.Date = *p.Date
	}

	if p.FromWalletID != nil {
		next.FromWalletID = p.FromWalletID
	}

	if p.ToWalletID != nil {
		next.ToWalletID = p.ToWalletID
	}

	if p.SubscriptionID != nil {
		next.SubscriptionID = p.SubscriptionID
	}

	if p.Description != nil {
		next.Description = *p.Description
	}

	if p.VATAmount != nil {
		next.VATAmount = p.VATAmount
	}

	return &next
}
