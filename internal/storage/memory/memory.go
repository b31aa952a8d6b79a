// Package memory is an in-process implementation of every repository, used
// with STORAGE_DRIVER=memory and by tests. Units of work hold an exclusive
// lock and restore a snapshot on rollback.
package memory

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/subledger/internal/catalog"
	"github.com/MrJamesThe3rd/subledger/internal/errs"
	"github.com/MrJamesThe3rd/subledger/internal/ledger"
	"github.com/MrJamesThe3rd/subledger/internal/reconcile"
	"github.com/MrJamesThe3rd/subledger/internal/subscription"
	"github.com/MrJamesThe3rd/subledger/internal/wallet"
)

var errTxDone = errors.New("memory: transaction already committed or rolled back")

// state is copy-on-write: stored values are never mutated in place, so a
// snapshot only needs to copy the maps.
type state struct {
	wallets       map[uuid.UUID]*wallet.Wallet
	subscriptions map[uuid.UUID]*subscription.Subscription
	transactions  map[int64]*ledger.Transaction
	departments   map[uuid.UUID]*catalog.Department
	accounts      map[uuid.UUID]*catalog.Account
	nextTxID      int64
}

func (s *state) clone() *state {
	return &state{
		wallets:       maps.Clone(s.wallets),
		subscriptions: maps.Clone(s.subscriptions),
		transactions:  maps.Clone(s.transactions),
		departments:   maps.Clone(s.departments),
		accounts:      maps.Clone(s.accounts),
		nextTxID:      s.nextTxID,
	}
}

type Store struct {
	mu  sync.RWMutex
	st  *state
	now func() time.Time
}

func New() *Store {
	return &Store{
		st: &state{
			wallets:       make(map[uuid.UUID]*wallet.Wallet),
			subscriptions: make(map[uuid.UUID]*subscription.Subscription),
			transactions:  make(map[int64]*ledger.Transaction),
			departments:   make(map[uuid.UUID]*catalog.Department),
			accounts:      make(map[uuid.UUID]*catalog.Account),
		},
		now: time.Now,
	}
}

var (
	_ wallet.Repository       = (*Store)(nil)
	_ subscription.Repository = (*Store)(nil)
	_ catalog.Repository      = (*Store)(nil)
	_ ledger.Repository       = (*Store)(nil)
	_ reconcile.Repository    = (*Store)(nil)
	_ ledger.Tx               = (*tx)(nil)
	_ reconcile.Tx            = (*tx)(nil)
)

// Wallets

func (s *Store) ListWallets(_ context.Context, userID string) ([]*wallet.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return sortedWallets(s.st, userID), nil
}

func (s *Store) GetWallet(_ context.Context, userID string, id uuid.UUID) (*wallet.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.st.wallets[id]
	if !ok || w.UserID != userID {
		return nil, errs.NotFound("wallet", id)
	}

	return new(*w), nil
}

func (s *Store) CreateWallet(_ context.Context, w *wallet.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w.Type == wallet.TypeMain && findMain(s.st, w.UserID) != nil {
		return errs.Invalid("type", "tenant already has a main wallet")
	}

	w.CreatedAt = s.now().UTC()
	s.st.wallets[w.ID] = new(*w)

	return nil
}

func (s *Store) UpdateWallet(_ context.Context, w *wallet.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.st.wallets[w.ID]
	if !ok || cur.UserID != w.UserID {
		return errs.NotFound("wallet", w.ID)
	}

	// Balance and type are owned by the ledger.
	next := *cur
	next.Name = w.Name
	next.HolderName = w.HolderName
	next.Status = w.Status
	s.st.wallets[w.ID] = &next
	*w = next

	return nil
}

func (s *Store) DeleteWallet(_ context.Context, userID string, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.st.wallets[id]
	if !ok || w.UserID != userID {
		return errs.NotFound("wallet", id)
	}

	delete(s.st.wallets, id)

	return nil
}

func (s *Store) EnsureMainWallet(_ context.Context, userID, name string) (*wallet.Wallet, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w := findMain(s.st, userID); w != nil {
		return new(*w), false, nil
	}

	w := &wallet.Wallet{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		Type:      wallet.TypeMain,
		Balance:   decimal.Zero,
		Status:    wallet.StatusActive,
		CreatedAt: s.now().UTC(),
	}
	s.st.wallets[w.ID] = w

	return new(*w), true, nil
}

func (s *Store) CountWalletTransactions(_ context.Context, userID string, id uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0

	for _, t := range s.st.transactions {
		if t.UserID != userID {
			continue
		}

		if refersTo(t.FromWalletID, id) || refersTo(t.ToWalletID, id) {
			n++
		}
	}

	return n, nil
}

// Subscriptions

func (s *Store) ListSubscriptions(_ context.Context, userID string) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*subscription.Subscription

	for _, sub := range s.st.subscriptions {
		if sub.UserID == userID {
			out = append(out, copySubscription(sub))
		}
	}

	slices.SortFunc(out, func(a, b *subscription.Subscription) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})

	return out, nil
}

func (s *Store) GetSubscription(_ context.Context, userID string, id uuid.UUID) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.st.subscriptions[id]
	if !ok || sub.UserID != userID {
		return nil, errs.NotFound("subscription", id)
	}

	return copySubscription(sub), nil
}

func (s *Store) CreateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub.CreatedAt = s.now().UTC()
	s.st.subscriptions[sub.ID] = copySubscription(sub)

	return nil
}

func (s *Store) UpdateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.st.subscriptions[sub.ID]
	if !ok || cur.UserID != sub.UserID {
		return errs.NotFound("subscription", sub.ID)
	}

	next := copySubscription(sub)
	// Payment metadata is written by the ledger only.
	next.LastPaymentDate = cur.LastPaymentDate
	next.LastPaymentAmount = cur.LastPaymentAmount
	next.CreatedAt = cur.CreatedAt
	s.st.subscriptions[sub.ID] = next

	return nil
}

func (s *Store) DeleteSubscription(_ context.Context, userID string, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.st.subscriptions[id]
	if !ok || sub.UserID != userID {
		return errs.NotFound("subscription", id)
	}

	delete(s.st.subscriptions, id)

	return nil
}

func (s *Store) NameTaken(_ context.Context, userID, name string, exclude uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := strings.ToLower(strings.TrimSpace(name))

	for _, sub := range s.st.subscriptions {
		if sub.UserID != userID || sub.ID == exclude {
			continue
		}

		if strings.ToLower(strings.TrimSpace(sub.Name)) == key {
			return true, nil
		}
	}

	return false, nil
}

func (s *Store) CountSubscriptionTransactions(_ context.Context, userID string, id uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0

	for _, t := range s.st.transactions {
		if t.UserID == userID && refersTo(t.SubscriptionID, id) {
			n++
		}
	}

	return n, nil
}

// Catalog

func (s *Store) ListDepartments(_ context.Context, userID string) ([]*catalog.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*catalog.Department

	for _, d := range s.st.departments {
		if d.UserID == userID {
			out = append(out, new(*d))
		}
	}

	slices.SortFunc(out, func(a, b *catalog.Department) int { return strings.Compare(a.Name, b.Name) })

	return out, nil
}

func (s *Store) CreateDepartment(_ context.Context, d *catalog.Department) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d.CreatedAt = s.now().UTC()
	s.st.departments[d.ID] = new(*d)

	return nil
}

func (s *Store) ListAccounts(_ context.Context, userID string) ([]*catalog.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*catalog.Account

	for _, a := range s.st.accounts {
		if a.UserID == userID {
			out = append(out, new(*a))
		}
	}

	slices.SortFunc(out, func(a, b *catalog.Account) int { return strings.Compare(a.Name, b.Name) })

	return out, nil
}

func (s *Store) CreateAccount(_ context.Context, a *catalog.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.CreatedAt = s.now().UTC()
	s.st.accounts[a.ID] = new(*a)

	return nil
}

// Ledger reads

func (s *Store) GetTransaction(_ context.Context, userID string, id int64) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.st.transactions[id]
	if !ok || t.UserID != userID {
		return nil, errs.NotFound("transaction", id)
	}

	return new(*t), nil
}

func (s *Store) ListTransactions(_ context.Context, userID string, filter ledger.ListFilter) ([]*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*ledger.Transaction

	for _, t := range s.st.transactions {
		if t.UserID == userID && matches(t, filter) {
			out = append(out, new(*t))
		}
	}

	sortTransactions(out)

	return out, nil
}

// Begin starts a ledger unit of work.
func (s *Store) Begin(_ context.Context) (ledger.Tx, error) {
	return s.begin(), nil
}

// BeginReconcile starts a reconciliation unit of work.
func (s *Store) BeginReconcile(_ context.Context) (reconcile.Tx, error) {
	return s.begin(), nil
}

func (s *Store) begin() *tx {
	s.mu.Lock()

	return &tx{store: s, snapshot: s.st.clone()}
}

type tx struct {
	store    *Store
	snapshot *state
	done     bool
}

func (t *tx) Commit() error {
	if t.done {
		return errTxDone
	}

	t.done = true
	t.store.mu.Unlock()

	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}

	t.done = true
	t.store.st = t.snapshot
	t.store.mu.Unlock()

	return nil
}

func (t *tx) LockTransaction(_ context.Context, userID string, id int64) (*ledger.Transaction, error) {
	row, ok := t.store.st.transactions[id]
	if !ok || row.UserID != userID {
		return nil, errs.NotFound("transaction", id)
	}

	return new(*row), nil
}

func (t *tx) InsertTransaction(_ context.Context, row *ledger.Transaction) error {
	st := t.store.st
	st.nextTxID++

	row.ID = st.nextTxID
	row.CreatedAt = t.store.now().UTC()
	st.transactions[row.ID] = new(*row)

	return nil
}

func (t *tx) UpdateTransaction(_ context.Context, row *ledger.Transaction) error {
	cur, ok := t.store.st.transactions[row.ID]
	if !ok || cur.UserID != row.UserID {
		return errs.NotFound("transaction", row.ID)
	}

	next := *row
	next.CreatedAt = cur.CreatedAt
	t.store.st.transactions[row.ID] = &next

	return nil
}

func (t *tx) DeleteTransaction(_ context.Context, userID string, id int64) error {
	row, ok := t.store.st.transactions[id]
	if !ok || row.UserID != userID {
		return errs.NotFound("transaction", id)
	}

	delete(t.store.st.transactions, id)

	return nil
}

func (t *tx) MainWalletID(_ context.Context, userID string) (uuid.UUID, error) {
	w := findMain(t.store.st, userID)
	if w == nil {
		return uuid.Nil, errs.ErrNoMainWallet
	}

	return w.ID, nil
}

func (t *tx) AdjustBalance(_ context.Context, userID string, walletID uuid.UUID, delta decimal.Decimal) error {
	w, ok := t.store.st.wallets[walletID]
	if !ok || w.UserID != userID {
		return errs.NotFound("wallet", walletID)
	}

	next := *w
	next.Balance = w.Balance.Add(delta)
	t.store.st.wallets[walletID] = &next

	return nil
}

func (t *tx) RecordPayment(_ context.Context, userID string, subscriptionID uuid.UUID, p ledger.Payment) error {
	sub, ok := t.store.st.subscriptions[subscriptionID]
	if !ok || sub.UserID != userID {
		return errs.NotFound("subscription", subscriptionID)
	}

	next := copySubscription(sub)
	next.LastPaymentDate = new(p.Date)
	next.LastPaymentAmount = new(p.Amount)

	if p.NextRenewalDate != nil {
		next.NextRenewalDate = *p.NextRenewalDate
	}

	t.store.st.subscriptions[subscriptionID] = next

	return nil
}

func (t *tx) LockWallets(_ context.Context, userID string) ([]*wallet.Wallet, error) {
	return sortedWallets(t.store.st, userID), nil
}

func (t *tx) ListAllTransactions(_ context.Context, userID string) ([]*ledger.Transaction, error) {
	var out []*ledger.Transaction

	for _, row := range t.store.st.transactions {
		if userID == "" || row.UserID == userID {
			out = append(out, new(*row))
		}
	}

	sortTransactions(out)

	return out, nil
}

func (t *tx) SetBalance(_ context.Context, walletID uuid.UUID, balance decimal.Decimal) error {
	w, ok := t.store.st.wallets[walletID]
	if !ok {
		return errs.NotFound("wallet", walletID)
	}

	next := *w
	next.Balance = balance
	t.store.st.wallets[walletID] = &next

	return nil
}

// sortedWallets lists wallets MAIN first, then by name. An empty userID lists all tenants.
func sortedWallets(st *state, userID string) []*wallet.Wallet {
	var out []*wallet.Wallet

	for _, w := range st.wallets {
		if userID == "" || w.UserID == userID {
			out = append(out, new(*w))
		}
	}

	slices.SortFunc(out, func(a, b *wallet.Wallet) int {
		if (a.Type == wallet.TypeMain) != (b.Type == wallet.TypeMain) {
			if a.Type == wallet.TypeMain {
				return -1
			}

			return 1
		}

		if c := strings.Compare(a.UserID, b.UserID); c != 0 {
			return c
		}

		return strings.Compare(a.Name, b.Name)
	})

	return out
}

func findMain(st *state, userID string) *wallet.Wallet {
	for _, w := range st.wallets {
		if w.UserID == userID && w.Type == wallet.TypeMain {
			return w
		}
	}

	return nil
}

// sortTransactions orders newest first, as the ledger is displayed.
func sortTransactions(txs []*ledger.Transaction) {
	slices.SortFunc(txs, func(a, b *ledger.Transaction) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}

		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}

		return 0
	})
}

func matches(t *ledger.Transaction, f ledger.ListFilter) bool {
	if f.Type != nil && t.Type != *f.Type {
		return false
	}

	if f.WalletID != nil && !refersTo(t.FromWalletID, *f.WalletID) && !refersTo(t.ToWalletID, *f.WalletID) {
		return false
	}

	if f.SubscriptionID != nil && !refersTo(t.SubscriptionID, *f.SubscriptionID) {
		return false
	}

	if f.StartDate != nil && t.Date.Before(*f.StartDate) {
		return false
	}

	if f.EndDate != nil && t.Date.After(*f.EndDate) {
		return false
	}

	return true
}

func refersTo(ref *uuid.UUID, id uuid.UUID) bool {
	return ref != nil && *ref == id
}

func copySubscription(sub *subscription.Subscription) *subscription.Subscription {
	c := *sub
	c.Departments = slices.Clone(sub.Departments)
	c.Accounts = slices.Clone(sub.Accounts)

	return &c
}
