package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/subledger/internal/errs"
	"github.com/MrJamesThe3rd/subledger/internal/ledger"
	"github.com/MrJamesThe3rd/subledger/internal/storage/memory"
	"github.com/MrJamesThe3rd/subledger/internal/subscription"
	"github.com/MrJamesThe3rd/subledger/internal/wallet"
)

type fixture struct {
	store   *memory.Store
	engine  *ledger.Service
	wallets *wallet.Service
	subs    *subscription.Service

	main  uuid.UUID
	alice uuid.UUID
	bob   uuid.UUID
	sub   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()
	store := memory.New()
	f := &fixture{
		store:   store,
		engine:  ledger.NewService(store),
		wallets: wallet.NewService(store),
		subs:    subscription.NewService(store),
	}

	main, err := f.wallets.EnsureMain(ctx, userID)
	require.NoError(t, err)

	alice, err := f.wallets.Create(ctx, userID, wallet.CreateParams{Name: "Alice card"})
	require.NoError(t, err)

	bob, err := f.wallets.Create(ctx, userID, wallet.CreateParams{Name: "Bob card"})
	require.NoError(t, err)

	sub, err := f.subs.Create(ctx, userID, subscription.CreateParams{
		Name:            "Figma",
		BaseAmount:      dec("150"),
		BillingCycle:    subscription.CycleMonthly,
		StartDate:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		NextRenewalDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	f.main, f.alice, f.bob, f.sub = main.ID, alice.ID, bob.ID, sub.ID

	return f
}

func (f *fixture) balance(t *testing.T, id uuid.UUID) string {
	t.Helper()

	w, err := f.wallets.Get(context.Background(), userID, id)
	require.NoError(t, err)

	return w.Balance.StringFixed(2)
}

// assertProjection checks every stored balance against the history projection.
func (f *fixture) assertProjection(t *testing.T) {
	t.Helper()

	ctx := context.Background()

	txs, err := f.engine.List(ctx, userID, ledger.ListFilter{})
	require.NoError(t, err)

	projected := ledger.Balances(txs)

	wallets, err := f.wallets.List(ctx, userID)
	require.NoError(t, err)

	for _, w := range wallets {
		assert.True(t, w.Balance.Equal(projected[w.ID]),
			"wallet %s: stored %s, history %s", w.Name, w.Balance, projected[w.ID])
	}
}

func TestEngine_Scenarios(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// Funding the main wallet.
	deposit, err := f.engine.FundMain(ctx, userID, dec("1000"), time.Time{}, "")
	require.NoError(t, err)
	assert.Equal(t, "1000.00", f.balance(t, f.main))
	assert.Equal(t, ledger.TypeDeposit, deposit.Type)
	require.NotNil(t, deposit.ToWalletID)
	assert.Equal(t, f.main, *deposit.ToWalletID)

	// Card top-up.
	transfer, err := f.engine.Transfer(ctx, userID, f.main, f.alice, dec("300"), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "700.00", f.balance(t, f.main))
	assert.Equal(t, "300.00", f.balance(t, f.alice))

	// Subscription payment.
	paidOn := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	renewal := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	payment, err := f.engine.RecordPayment(ctx, userID, ledger.PaymentParams{
		SubscriptionID:  f.sub,
		WalletID:        f.alice,
		Amount:          dec("150"),
		Date:            paidOn,
		NextRenewalDate: &renewal,
	})
	require.NoError(t, err)
	assert.Equal(t, "150.00", f.balance(t, f.alice))

	sub, err := f.subs.Get(ctx, userID, f.sub)
	require.NoError(t, err)
	require.NotNil(t, sub.LastPaymentAmount)
	assert.True(t, sub.LastPaymentAmount.Equal(dec("150")))
	assert.Equal(t, paidOn, *sub.LastPaymentDate)
	assert.Equal(t, renewal, sub.NextRenewalDate)

	// Deleting the payment restores the wallet but keeps subscription metadata.
	require.NoError(t, f.engine.Delete(ctx, userID, payment.ID))
	assert.Equal(t, "300.00", f.balance(t, f.alice))

	sub, err = f.subs.Get(ctx, userID, f.sub)
	require.NoError(t, err)
	assert.True(t, sub.LastPaymentAmount.Equal(dec("150")))
	assert.Equal(t, paidOn, *sub.LastPaymentDate)
	assert.Equal(t, renewal, sub.NextRenewalDate)

	// Editing the transfer reverses 300 and applies 500.
	_, err = f.engine.Edit(ctx, userID, transfer.ID, ledger.EditParams{Amount: new(dec("500"))})
	require.NoError(t, err)
	assert.Equal(t, "500.00", f.balance(t, f.main))
	assert.Equal(t, "500.00", f.balance(t, f.alice))

	f.assertProjection(t)
}

func TestEngine_FundMainWithoutMainWallet(t *testing.T) {
	store := memory.New()

	_, err := ledger.NewService(store).FundMain(context.Background(), "nobody", dec("10"), time.Time{}, "")
	assert.ErrorIs(t, err, errs.ErrNoMainWallet)
}

func TestEngine_FailedCreateLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.engine.Transfer(ctx, userID, f.main, uuid.New(), dec("10"), time.Time{})
	require.ErrorIs(t, err, errs.ErrNotFound)

	txs, err := f.engine.List(ctx, userID, ledger.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs)
	assert.Equal(t, "0.00", f.balance(t, f.main))
}

func TestEngine_ReversalIdempotence(t *testing.T) {
	ctx := context.Background()
	renewal := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	intents := []struct {
		name   string
		params func(f *fixture) ledger.CreateParams
	}{
		{"Deposit", func(f *fixture) ledger.CreateParams {
			return ledger.CreateParams{Type: ledger.TypeDeposit, Amount: dec("12.34"), ToWalletID: &f.main}
		}},
		{"Transfer", func(f *fixture) ledger.CreateParams {
			return ledger.CreateParams{Type: ledger.TypeInternalTransfer, Amount: dec("99.99"), FromWalletID: &f.main, ToWalletID: &f.bob}
		}},
		{"Payment", func(f *fixture) ledger.CreateParams {
			return ledger.CreateParams{Type: ledger.TypeSubscriptionPayment, Amount: dec("57.50"), FromWalletID: &f.alice, SubscriptionID: &f.sub, VATAmount: new(dec("7.50")), NextRenewalDate: &renewal}
		}},
		{"Refund", func(f *fixture) ledger.CreateParams {
			return ledger.CreateParams{Type: ledger.TypeRefund, Amount: dec("5"), ToWalletID: &f.alice, SubscriptionID: &f.sub}
		}},
	}

	for _, tt := range intents {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.engine.FundMain(ctx, userID, dec("1000"), time.Time{}, "")
			require.NoError(t, err)

			_, err = f.engine.Transfer(ctx, userID, f.main, f.alice, dec("200"), time.Time{})
			require.NoError(t, err)

			before := map[uuid.UUID]string{
				f.main:  f.balance(t, f.main),
				f.alice: f.balance(t, f.alice),
				f.bob:   f.balance(t, f.bob),
			}

			created, err := f.engine.Create(ctx, userID, tt.params(f))
			require.NoError(t, err)
			require.NoError(t, f.engine.Delete(ctx, userID, created.ID))

			for id, want := range before {
				assert.Equal(t, want, f.balance(t, id))
			}

			f.assertProjection(t)
		})
	}
}

func TestEngine_EditMatchesDeleteThenCreate(t *testing.T) {
	ctx := context.Background()

	edits := []struct {
		name string
		edit func(f *fixture) ledger.EditParams
	}{
		{"Amount", func(*fixture) ledger.EditParams {
			return ledger.EditParams{Amount: new(dec("42"))}
		}},
		{"Destination", func(f *fixture) ledger.EditParams {
			return ledger.EditParams{ToWalletID: &f.bob}
		}},
		{"TypeToRefund", func(f *fixture) ledger.EditParams {
			refund := ledger.TypeRefund
			return ledger.EditParams{Type: &refund, SubscriptionID: &f.sub}
		}},
		{"TypeToPayment", func(f *fixture) ledger.EditParams {
			payment := ledger.TypeSubscriptionPayment
			return ledger.EditParams{Type: &payment, SubscriptionID: &f.sub, Amount: new(dec("20"))}
		}},
	}

	setup := func(t *testing.T) (*fixture, *ledger.Transaction) {
		f := newFixture(t)

		_, err := f.engine.FundMain(ctx, userID, dec("1000"), time.Time{}, "")
		require.NoError(t, err)

		tr, err := f.engine.Transfer(ctx, userID, f.main, f.alice, dec("300"), time.Time{})
		require.NoError(t, err)

		return f, tr
	}

	for _, tt := range edits {
		t.Run(tt.name, func(t *testing.T) {
			edited, tr := setup(t)
			got, err := edited.engine.Edit(ctx, userID, tr.ID, tt.edit(edited))
			require.NoError(t, err)
			edited.assertProjection(t)

			replayed, tr2 := setup(t)
			require.NoError(t, replayed.engine.Delete(ctx, userID, tr2.ID))

			p := tt.edit(replayed)
			// Rebuild the same final row from the old one, as Edit merges.
			params := ledger.CreateParams{
				Type:           got.Type,
				Amount:         got.Amount,
				FromWalletID:   remap(got.FromWalletID, edited, replayed),
				ToWalletID:     remap(got.ToWalletID, edited, replayed),
				SubscriptionID: p.SubscriptionID,
			}
			_, err = replayed.engine.Create(ctx, userID, params)
			require.NoError(t, err)

			assert.Equal(t, edited.balance(t, edited.main), replayed.balance(t, replayed.main))
			assert.Equal(t, edited.balance(t, edited.alice), replayed.balance(t, replayed.alice))
			assert.Equal(t, edited.balance(t, edited.bob), replayed.balance(t, replayed.bob))
		})
	}
}

// remap translates a wallet id of fixture a to the matching wallet of fixture b.
func remap(id *uuid.UUID, a, b *fixture) *uuid.UUID {
	if id == nil {
		return nil
	}

	switch *id {
	case a.main:
		return &b.main
	case a.alice:
		return &b.alice
	case a.bob:
		return &b.bob
	}

	return id
}
