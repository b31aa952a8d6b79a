// Package dashboard builds the read-side views: the full tenant snapshot and
// the spend summary. Nothing here writes except MAIN wallet provisioning.
package dashboard

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/subledger/internal/allocation"
	"github.com/MrJamesThe3rd/subledger/internal/catalog"
	"github.com/MrJamesThe3rd/subledger/internal/ledger"
	"github.com/MrJamesThe3rd/subledger/internal/subscription"
	"github.com/MrJamesThe3rd/subledger/internal/wallet"
)

const (
	UnknownWallet       = "Unknown Wallet"
	UnknownService      = "Unknown Service"
	SharedGroupName     = "SHARED/SPLIT"
	renewalWindowInDays = 14
)

type WalletSource interface {
	EnsureMain(ctx context.Context, userID string) (*wallet.Wallet, error)
	List(ctx context.Context, userID string) ([]*wallet.Wallet, error)
}

type SubscriptionSource interface {
	List(ctx context.Context, userID string) ([]*subscription.Subscription, error)
}

type TransactionSource interface {
	List(ctx context.Context, userID string, filter ledger.ListFilter) ([]*ledger.Transaction, error)
}

type CatalogSource interface {
	ListDepartments(ctx context.Context, userID string) ([]*catalog.Department, error)
	ListAccounts(ctx context.Context, userID string) ([]*catalog.Account, error)
}

type Service struct {
	wallets       WalletSource
	subscriptions SubscriptionSource
	transactions  TransactionSource
	catalog       CatalogSource
	now           func() time.Time
}

func NewService(w WalletSource, s SubscriptionSource, t TransactionSource, c CatalogSource) *Service {
	return &Service{wallets: w, subscriptions: s, transactions: t, catalog: c, now: time.Now}
}

type Snapshot struct {
	Wallets       []*wallet.Wallet
	Subscriptions []*subscription.Subscription
	Transactions  []*ledger.Transaction
	Departments   []*catalog.Department
	Accounts      []*catalog.Account
}

// Snapshot returns everything the tenant owns. The MAIN wallet is provisioned
// first, so it is always part of the wallet list.
func (s *Service) Snapshot(ctx context.Context, userID string) (*Snapshot, error) {
	if _, err := s.wallets.EnsureMain(ctx, userID); err != nil {
		return nil, err
	}

	wallets, err := s.wallets.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	subs, err := s.subscriptions.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	txs, err := s.transactions.List(ctx, userID, ledger.ListFilter{})
	if err != nil {
		return nil, err
	}

	deps, err := s.catalog.ListDepartments(ctx, userID)
	if err != nil {
		return nil, err
	}

	accounts, err := s.catalog.ListAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Wallets:       wallets,
		Subscriptions: subs,
		Transactions:  txs,
		Departments:   deps,
		Accounts:      accounts,
	}, nil
}

// Range limits the transactions counted as paid. End is inclusive of the whole day.
type Range struct {
	Start *time.Time
	End   *time.Time
}

type NamedAmount struct {
	ID     uuid.UUID
	Name   string
	Amount decimal.Decimal
}

type Renewal struct {
	SubscriptionID uuid.UUID
	Name           string
	Date           time.Time
	DaysLeft       int
	MonthlyCost    decimal.Decimal
}

type SubscriptionTotal struct {
	ID         uuid.UUID
	Name       string
	BaseAmount decimal.Decimal
	UserCount  int
	TotalPaid  decimal.Decimal
}

// Group is one column of the department board. DepartmentID is nil for the
// shared group, which holds split, unassigned and orphaned subscriptions.
type Group struct {
	DepartmentID  *uuid.UUID
	Name          string
	Subscriptions []SubscriptionTotal
}

type Summary struct {
	TotalMonthlySpend     decimal.Decimal
	TotalAvailableCash    decimal.Decimal
	EstimatedByDepartment []NamedAmount
	PaidByDepartment      []NamedAmount
	PaidByAccount         []NamedAmount
	PaidBySubscription    []NamedAmount
	SpendByWallet         []NamedAmount
	UpcomingRenewals      []Renewal
	Groups                []Group
}

// Summary aggregates spend. Estimated figures use normalised monthly costs;
// paid figures use payments minus refunds within r.
func (s *Service) Summary(ctx context.Context, userID string, r Range) (*Summary, error) {
	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	subsByID := make(map[uuid.UUID]*subscription.Subscription, len(snap.Subscriptions))
	for _, sub := range snap.Subscriptions {
		subsByID[sub.ID] = sub
	}

	out := &Summary{}

	for _, w := range snap.Wallets {
		out.TotalAvailableCash = out.TotalAvailableCash.Add(w.Balance)
	}

	estimated := make(map[uuid.UUID]decimal.Decimal)

	for _, sub := range snap.Subscriptions {
		monthly := sub.MonthlyCost()
		out.TotalMonthlySpend = out.TotalMonthlySpend.Add(monthly)
		allocation.Accumulate(estimated, sub.DepartmentShares(monthly))
	}

	paidByDept := make(map[uuid.UUID]decimal.Decimal)
	paidByAccount := make(map[uuid.UUID]decimal.Decimal)
	paidBySub := make(map[uuid.UUID]decimal.Decimal)
	byWallet := make(map[uuid.UUID]decimal.Decimal)

	for _, tx := range snap.Transactions {
		amount, ok := signedSpend(tx)
		if !ok || !r.contains(tx.Date) {
			continue
		}

		paidBySub[*tx.SubscriptionID] = paidBySub[*tx.SubscriptionID].Add(amount)

		if w := spendWallet(tx); w != nil {
			byWallet[*w] = byWallet[*w].Add(amount)
		}

		sub, found := subsByID[*tx.SubscriptionID]
		if !found {
			continue
		}

		allocation.Accumulate(paidByDept, sub.DepartmentShares(amount))
		allocation.Accumulate(paidByAccount, sub.AccountShares(amount))
	}

	deptNames := make(map[uuid.UUID]string, len(snap.Departments))
	for _, d := range snap.Departments {
		deptNames[d.ID] = d.Name
	}

	accountNames := make(map[uuid.UUID]string, len(snap.Accounts))
	for _, a := range snap.Accounts {
		accountNames[a.ID] = accountLabel(a)
	}

	subNames := make(map[uuid.UUID]string, len(snap.Subscriptions))
	for _, sub := range snap.Subscriptions {
		subNames[sub.ID] = sub.Name
	}

	walletNames := make(map[uuid.UUID]string, len(snap.Wallets))
	for _, w := range snap.Wallets {
		walletNames[w.ID] = w.Name
	}

	out.EstimatedByDepartment = catalogued(estimated, deptNames)
	out.PaidByDepartment = catalogued(paidByDept, deptNames)
	out.PaidByAccount = catalogued(paidByAccount, accountNames)
	out.PaidBySubscription = resolved(paidBySub, subNames, UnknownService)
	out.SpendByWallet = resolved(byWallet, walletNames, UnknownWallet)
	out.UpcomingRenewals = s.renewals(snap.Subscriptions)
	out.Groups = groups(snap, paidBySub)

	return out, nil
}

// signedSpend returns the subscription spend carried by tx: payments count
// positive and refunds negative. Other types carry none.
func signedSpend(tx *ledger.Transaction) (decimal.Decimal, bool) {
	if tx.SubscriptionID == nil {
		return decimal.Zero, false
	}

	switch tx.Type {
	case ledger.TypeSubscriptionPayment:
		return tx.Amount, true
	case ledger.TypeRefund:
		return tx.Amount.Neg(), true
	}

	return decimal.Zero, false
}

func spendWallet(tx *ledger.Transaction) *uuid.UUID {
	if tx.Type == ledger.TypeRefund {
		return tx.ToWalletID
	}

	return tx.FromWalletID
}

func (r Range) contains(t time.Time) bool {
	if r.Start != nil && t.Before(*r.Start) {
		return false
	}

	if r.End != nil && !t.Before(endOfDay(*r.End)) {
		return false
	}

	return true
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()

	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}

func (s *Service) renewals(subs []*subscription.Subscription) []Renewal {
	now := s.now()

	var out []Renewal

	for _, sub := range subs {
		days := daysUntil(now, sub.NextRenewalDate)
		if days < 0 || days > renewalWindowInDays {
			continue
		}

		out = append(out, Renewal{
			SubscriptionID: sub.ID,
			Name:           sub.Name,
			Date:           sub.NextRenewalDate,
			DaysLeft:       days,
			MonthlyCost:    sub.MonthlyCost(),
		})
	}

	slices.SortFunc(out, func(a, b Renewal) int { return a.Date.Compare(b.Date) })

	return out
}

// daysUntil rounds partial days up, so a renewal later today is 1 day away
// and one earlier today is 0.
func daysUntil(now, t time.Time) int {
	d := t.Sub(now)
	days := int(d / (24 * time.Hour))

	if d > 0 && d%(24*time.Hour) != 0 {
		days++
	}

	return days
}

func groups(snap *Snapshot, paid map[uuid.UUID]decimal.Decimal) []Group {
	index := make(map[uuid.UUID]int, len(snap.Departments))
	out := make([]Group, 0, len(snap.Departments)+1)

	for _, d := range snap.Departments {
		index[d.ID] = len(out)
		out = append(out, Group{DepartmentID: &d.ID, Name: d.Name})
	}

	shared := Group{Name: SharedGroupName}

	for _, sub := range snap.Subscriptions {
		total := SubscriptionTotal{
			ID:         sub.ID,
			Name:       sub.Name,
			BaseAmount: sub.BaseAmount,
			UserCount:  sub.UserCount,
			TotalPaid:  paid[sub.ID],
		}

		if len(sub.Departments) == 1 {
			if i, ok := index[sub.Departments[0].ID]; ok {
				out[i].Subscriptions = append(out[i].Subscriptions, total)
				continue
			}
		}

		shared.Subscriptions = append(shared.Subscriptions, total)
	}

	return append(out, shared)
}

func accountLabel(a *catalog.Account) string {
	if a.Code == "" {
		return a.Name
	}

	return a.Name + " (" + a.Code + ")"
}

// catalogued keeps only ids present in names, matching how the board lists
// departments, and drops zero totals.
func catalogued(totals map[uuid.UUID]decimal.Decimal, names map[uuid.UUID]string) []NamedAmount {
	var out []NamedAmount

	for id, amount := range totals {
		name, ok := names[id]
		if !ok || amount.IsZero() {
			continue
		}

		out = append(out, NamedAmount{ID: id, Name: name, Amount: amount})
	}

	sortNamed(out)

	return out
}

// resolved keeps every id and falls back to unknown for dangling references.
func resolved(totals map[uuid.UUID]decimal.Decimal, names map[uuid.UUID]string, unknown string) []NamedAmount {
	out := make([]NamedAmount, 0, len(totals))

	for id, amount := range totals {
		name, ok := names[id]
		if !ok {
			name = unknown
		}

		out = append(out, NamedAmount{ID: id, Name: name, Amount: amount})
	}

	sortNamed(out)

	return out
}

func sortNamed(out []NamedAmount) {
	slices.SortFunc(out, func(a, b NamedAmount) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}

		return uuidCompare(a.ID, b.ID)
	})
}

func uuidCompare(a, b uuid.UUID) int {
	return slices.Compare(a[:], b[:])
}
