// Package reconcile rebuilds wallet balances from the transaction history and
// overwrites stored balances that drifted from it.
package reconcile

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/subledger/internal/errs"
	"github.com/MrJamesThe3rd/subledger/internal/ledger"
	"github.com/MrJamesThe3rd/subledger/internal/metrics"
	"github.com/MrJamesThe3rd/subledger/internal/wallet"
)

// Tolerance is the largest stored-vs-history difference left uncorrected.
var Tolerance = decimal.RequireFromString("0.009")

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=reconcile
type Repository interface {
	BeginReconcile(ctx context.Context) (Tx, error)
}

// Tx sees wallets and history as of one point in time. Wallet rows returned by
// LockWallets stay locked until Commit or Rollback.
type Tx interface {
	// LockWallets returns the tenant's wallets, or every wallet when userID is empty.
	LockWallets(ctx context.Context, userID string) ([]*wallet.Wallet, error)
	// ListAllTransactions has the same scoping as LockWallets.
	ListAllTransactions(ctx context.Context, userID string) ([]*ledger.Transaction, error)
	SetBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) error
	Commit() error
	Rollback() error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type Options struct {
	UserID string // empty reconciles every tenant
	DryRun bool
}

type WalletResult struct {
	ID        uuid.UUID
	UserID    string
	Name      string
	Stored    decimal.Decimal
	Computed  decimal.Decimal
	Drift     decimal.Decimal // Computed - Stored
	Corrected bool
}

type Report struct {
	DryRun    bool
	Checked   int
	Drifted   int
	Corrected int
	Wallets   []WalletResult // drifted wallets only
}

// Run compares every wallet with its history-derived balance. Unless DryRun is
// set, drifted wallets are overwritten in the same unit of work. Running it
// twice without intervening mutations corrects nothing the second time.
func (s *Service) Run(ctx context.Context, opts Options) (*Report, error) {
	tx, err := s.repo.BeginReconcile(ctx)
	if err != nil {
		return nil, errs.Persistence("begin reconciliation", err)
	}
	defer tx.Rollback()

	wallets, err := tx.LockWallets(ctx, opts.UserID)
	if err != nil {
		return nil, errs.Persistence("lock wallets", err)
	}

	txs, err := tx.ListAllTransactions(ctx, opts.UserID)
	if err != nil {
		return nil, errs.Persistence("list transactions", err)
	}

	computed := ledger.Balances(txs)
	report := &Report{DryRun: opts.DryRun, Checked: len(wallets)}

	for _, w := range wallets {
		want := computed[w.ID].Round(2)
		drift := want.Sub(w.Balance)

		if drift.Abs().LessThanOrEqual(Tolerance) {
			continue
		}

		res := WalletResult{
			ID:       w.ID,
			UserID:   w.UserID,
			Name:     w.Name,
			Stored:   w.Balance,
			Computed: want,
			Drift:    drift,
		}
		report.Drifted++

		slog.Warn("wallet balance drifted from history",
			"wallet_id", w.ID,
			"user_id", w.UserID,
			"stored", w.Balance.String(),
			"computed", want.String(),
			"dry_run", opts.DryRun,
		)

		if !opts.DryRun {
			if err := tx.SetBalance(ctx, w.ID, want); err != nil {
				return nil, errs.Persistence("set balance", err)
			}

			res.Corrected = true
			report.Corrected++
		}

		report.Wallets = append(report.Wallets, res)
	}

	if !opts.DryRun {
		if err := tx.Commit(); err != nil {
			return nil, errs.Persistence("commit reconciliation", err)
		}
	}

	metrics.ObserveReconciliation(opts.DryRun, report.Drifted, report.Corrected)
	slog.Info("reconciliation finished",
		"user_id", opts.UserID,
		"dry_run", opts.DryRun,
		"checked", report.Checked,
		"drifted", report.Drifted,
		"corrected", report.Corrected,
	)

	return report, nil
}
