// Package storage selects the repository backend named by STORAGE_DRIVER.
package storage

import (
	"context"
	"fmt"

	"github.com/MrJamesThe3rd/subledger/internal/catalog"
	catalogstore "github.com/MrJamesThe3rd/subledger/internal/catalog/store"
	"github.com/MrJamesThe3rd/subledger/internal/config"
	"github.com/MrJamesThe3rd/subledger/internal/database"
	"github.com/MrJamesThe3rd/subledger/internal/ledger"
	ledgerstore "github.com/MrJamesThe3rd/subledger/internal/ledger/store"
	"github.com/MrJamesThe3rd/subledger/internal/reconcile"
	reconcilestore "github.com/MrJamesThe3rd/subledger/internal/reconcile/store"
	"github.com/MrJamesThe3rd/subledger/internal/storage/memory"
	"github.com/MrJamesThe3rd/subledger/internal/subscription"
	subscriptionstore "github.com/MrJamesThe3rd/subledger/internal/subscription/store"
	"github.com/MrJamesThe3rd/subledger/internal/wallet"
	walletstore "github.com/MrJamesThe3rd/subledger/internal/wallet/store"
)

type Backend struct {
	Wallets       wallet.Repository
	Subscriptions subscription.Repository
	Ledger        ledger.Repository
	Catalog       catalog.Repository
	Reconcile     reconcile.Repository

	// Ping is nil for the memory backend.
	Ping  func(context.Context) error
	Close func() error
}

func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return Memory(memory.New()), nil
	case config.DriverPostgres:
		db, err := database.New(ctx, cfg.ConnectionString())
		if err != nil {
			return nil, err
		}

		return &Backend{
			Wallets:       walletstore.New(db),
			Subscriptions: subscriptionstore.New(db),
			Ledger:        ledgerstore.New(db),
			Catalog:       catalogstore.New(db),
			Reconcile:     reconcilestore.New(db),
			Ping:          db.PingContext,
			Close:         db.Close,
		}, nil
	}

	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

// Memory serves every repository from one in-process store.
func Memory(store *memory.Store) *Backend {
	return &Backend{
		Wallets:       store,
		Subscriptions: store,
		Ledger:        store,
		Catalog:       store,
		Reconcile:     store,
		Close:         func() error { return nil },
	}
}
