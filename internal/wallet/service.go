package wallet

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/subledger/internal/errs"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=wallet
type Repository interface {
	ListWallets(ctx context.Context, userID string) ([]*Wallet, error)
	GetWallet(ctx context.Context, userID string, id uuid.UUID) (*Wallet, error)
	CreateWallet(ctx context.Context, w *Wallet) error
	UpdateWallet(ctx context.Context, w *Wallet) error
	DeleteWallet(ctx context.Context, userID string, id uuid.UUID) error

	// EnsureMainWallet returns the tenant's MAIN wallet, inserting a zero-balance
	// one if none exists. created reports whether the insert happened.
	EnsureMainWallet(ctx context.Context, userID, name string) (w *Wallet, created bool, err error)

	// CountWalletTransactions returns how many ledger rows reference the wallet.
	CountWalletTransactions(ctx context.Context, userID string, id uuid.UUID) (int, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateParams struct {
	Name       string
	HolderName *string
}

type UpdateParams struct {
	Name       *string
	HolderName *string
	Status     *Status
}

func (s *Service) List(ctx context.Context, userID string) ([]*Wallet, error) {
	wallets, err := s.repo.ListWallets(ctx, userID)
	if err != nil {
		return nil, errs.Persistence("list wallets", err)
	}

	return wallets, nil
}

func (s *Service) Get(ctx context.Context, userID string, id uuid.UUID) (*Wallet, error) {
	w, err := s.repo.GetWallet(ctx, userID, id)
	if err != nil {
		return nil, errs.Persistence("get wallet", err)
	}

	return w, nil
}

// Create adds an employee wallet with a zero balance. Money only enters it
// through the ledger.
func (s *Service) Create(ctx context.Context, userID string, params CreateParams) (*Wallet, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, errs.Invalid("name", "is required")
	}

	w := &Wallet{
		ID:         uuid.New(),
		UserID:     userID,
		Name:       name,
		Type:       TypeEmployee,
		Balance:    decimal.Zero,
		HolderName: params.HolderName,
		Status:     StatusActive,
	}
	if err := s.repo.CreateWallet(ctx, w); err != nil {
		return nil, errs.Persistence("create wallet", err)
	}

	return w, nil
}

func (s *Service) Update(ctx context.Context, userID string, id uuid.UUID, params UpdateParams) (*Wallet, error) {
	w, err := s.repo.GetWallet(ctx, userID, id)
	if err != nil {
		return nil, errs.Persistence("get wallet", err)
	}

	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return nil, errs.Invalid("name", "must not be empty")
		}

		w.Name = name
	}

	if params.HolderName != nil {
		w.HolderName = params.HolderName
	}

	if params.Status != nil {
		if *params.Status != StatusActive && *params.Status != StatusInactive {
			return nil, errs.Invalid("status", "must be ACTIVE or INACTIVE")
		}

		w.Status = *params.Status
	}

	if err := s.repo.UpdateWallet(ctx, w); err != nil {
		return nil, errs.Persistence("update wallet", err)
	}

	return w, nil
}

// Delete removes a wallet that no transaction references. Wallets with history
// should be set INACTIVE instead so the ledger keeps resolving them.
func (s *Service) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	w, err := s.repo.GetWallet(ctx, userID, id)
	if err != nil {
		return errs.Persistence("get wallet", err)
	}

	if w.Type == TypeMain {
		return errs.Invalid("id", "the main wallet cannot be deleted")
	}

	n, err := s.repo.CountWalletTransactions(ctx, userID, id)
	if err != nil {
		return errs.Persistence("count wallet transactions", err)
	}

	if n > 0 {
		return errs.Invalid("id", "wallet is referenced by transactions; deactivate it instead")
	}

	return errs.Persistence("delete wallet", s.repo.DeleteWallet(ctx, userID, id))
}

// EnsureMain returns the MAIN wallet, provisioning it on first use.
func (s *Service) EnsureMain(ctx context.Context, userID string) (*Wallet, error) {
	w, created, err := s.repo.EnsureMainWallet(ctx, userID, MainWalletName)
	if err != nil {
		return nil, errs.Persistence("ensure main wallet", err)
	}

	if created {
		slog.Info("created default main wallet", "user_id", userID, "wallet_id", w.ID)
	}

	return w, nil
}

// EnsureFunds is the caller-side guard run before spending from a wallet.
// The ledger engine itself lets balances go negative.
func (s *Service) EnsureFunds(ctx context.Context, userID string, id uuid.UUID, amount decimal.Decimal) error {
	w, err := s.repo.GetWallet(ctx, userID, id)
	if err != nil {
		return errs.Persistence("get wallet", err)
	}

	if w.Balance.LessThan(amount) {
		return &errs.InsufficientFundsError{
			WalletID:   w.ID.String(),
			WalletName: w.Name,
			Available:  w.Balance,
			Required:   amount,
		}
	}

	return nil
}
