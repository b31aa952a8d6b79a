package reconcile_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/subledger/internal/errs"
	"github.com/MrJamesThe3rd/subledger/internal/ledger"
	"github.com/MrJamesThe3rd/subledger/internal/reconcile"
	"github.com/MrJamesThe3rd/subledger/internal/storage/memory"
	"github.com/MrJamesThe3rd/subledger/internal/wallet"
)

const userID = "user-1"

type env struct {
	store   *memory.Store
	wallets *wallet.Service
	svc     *reconcile.Service

	main, alice, bob uuid.UUID
}

// newEnv builds MAIN=700, Alice=300, Bob=0 through the ledger.
func newEnv(t *testing.T) *env {
	t.Helper()

	ctx := context.Background()
	store := memory.New()
	e := &env{store: store, wallets: wallet.NewService(store), svc: reconcile.NewService(store)}

	main, err := e.wallets.EnsureMain(ctx, userID)
	require.NoError(t, err)

	alice, err := e.wallets.Create(ctx, userID, wallet.CreateParams{Name: "Alice"})
	require.NoError(t, err)

	bob, err := e.wallets.Create(ctx, userID, wallet.CreateParams{Name: "Bob"})
	require.NoError(t, err)

	engine := ledger.NewService(store)

	_, err = engine.FundMain(ctx, userID, decimal.NewFromInt(1000), time.Time{}, "")
	require.NoError(t, err)

	_, err = engine.Transfer(ctx, userID, main.ID, alice.ID, decimal.NewFromInt(300), time.Time{})
	require.NoError(t, err)

	e.main, e.alice, e.bob = main.ID, alice.ID, bob.ID

	return e
}

// corrupt overwrites stored balances behind the ledger's back.
func (e *env) corrupt(t *testing.T, balances map[uuid.UUID]string) {
	t.Helper()

	ctx := context.Background()

	tx, err := e.store.BeginReconcile(ctx)
	require.NoError(t, err)

	for id, b := range balances {
		require.NoError(t, tx.SetBalance(ctx, id, decimal.RequireFromString(b)))
	}

	require.NoError(t, tx.Commit())
}

func (e *env) balance(t *testing.T, id uuid.UUID) string {
	t.Helper()

	w, err := e.wallets.Get(context.Background(), userID, id)
	require.NoError(t, err)

	return w.Balance.StringFixed(2)
}

func TestRun_CorrectsDriftedWallets(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.corrupt(t, map[uuid.UUID]string{e.main: "12.00", e.alice: "299.5"})

	report, err := e.svc.Run(ctx, reconcile.Options{UserID: userID})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Checked)
	assert.Equal(t, 2, report.Drifted)
	assert.Equal(t, 2, report.Corrected)
	assert.Equal(t, "700.00", e.balance(t, e.main))
	assert.Equal(t, "300.00", e.balance(t, e.alice))
	assert.Equal(t, "0.00", e.balance(t, e.bob))

	for _, w := range report.Wallets {
		assert.NotEqual(t, e.bob, w.ID)
		assert.True(t, w.Corrected)
	}

	again, err := e.svc.Run(ctx, reconcile.Options{UserID: userID})
	require.NoError(t, err)
	assert.Zero(t, again.Drifted)
	assert.Zero(t, again.Corrected)
	assert.Empty(t, again.Wallets)
}

func TestRun_DryRunReportsWithoutWriting(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.corrupt(t, map[uuid.UUID]string{e.bob: "50"})

	report, err := e.svc.Run(ctx, reconcile.Options{UserID: userID, DryRun: true})
	require.NoError(t, err)

	require.Len(t, report.Wallets, 1)
	assert.True(t, report.DryRun)
	assert.Equal(t, e.bob, report.Wallets[0].ID)
	assert.Equal(t, "-50", report.Wallets[0].Drift.String())
	assert.False(t, report.Wallets[0].Corrected)
	assert.Zero(t, report.Corrected)
	assert.Equal(t, "50.00", e.balance(t, e.bob))
}

func TestRun_IgnoresSubCentNoise(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.corrupt(t, map[uuid.UUID]string{e.alice: "300.009"})

	report, err := e.svc.Run(ctx, reconcile.Options{UserID: userID})
	require.NoError(t, err)
	assert.Zero(t, report.Drifted)
}

func TestRun_AllTenants(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	other, err := e.wallets.EnsureMain(ctx, "user-2")
	require.NoError(t, err)
	e.corrupt(t, map[uuid.UUID]string{other.ID: "1", e.alice: "0"})

	report, err := e.svc.Run(ctx, reconcile.Options{})
	require.NoError(t, err)
	assert.Equal(t, 4, report.Checked)
	assert.Equal(t, 2, report.Corrected)
}

func TestRun_SetBalanceErrorRollsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := reconcile.NewMockRepository(ctrl)
	tx := reconcile.NewMockTx(ctrl)
	id := uuid.New()

	repo.EXPECT().BeginReconcile(gomock.Any()).Return(tx, nil)
	tx.EXPECT().LockWallets(gomock.Any(), userID).Return([]*wallet.Wallet{{ID: id, UserID: userID, Balance: decimal.NewFromInt(3)}}, nil)
	tx.EXPECT().ListAllTransactions(gomock.Any(), userID).Return(nil, nil)
	tx.EXPECT().SetBalance(gomock.Any(), id, gomock.Any()).Return(errors.New("deadlock detected"))
	tx.EXPECT().Rollback().Return(nil)

	report, err := reconcile.NewService(repo).Run(context.Background(), reconcile.Options{UserID: userID})
	assert.ErrorIs(t, err, errs.ErrPersistence)
	assert.Nil(t, report)
}

func TestRun_DryRunNeverCommits(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := reconcile.NewMockRepository(ctrl)
	tx := reconcile.NewMockTx(ctrl)

	repo.EXPECT().BeginReconcile(gomock.Any()).Return(tx, nil)
	tx.EXPECT().LockWallets(gomock.Any(), "").Return([]*wallet.Wallet{{ID: uuid.New(), Balance: decimal.NewFromInt(3)}}, nil)
	tx.EXPECT().ListAllTransactions(gomock.Any(), "").Return(nil, nil)
	tx.EXPECT().Rollback().Return(nil)

	report, err := reconcile.NewService(repo).Run(context.Background(), reconcile.Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Drifted)
}
