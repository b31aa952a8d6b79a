package ledger_test

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
)

const userID = "user-1"

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decEq(s string) gomock.Matcher {
	want := dec(s)

	return gomock.Cond(func(x decimal.Decimal) bool { return x.Equal(want) })
}

func TestService_Create(t *testing.T) {
	main := uuid.New()
	card := uuid.New()
	sub := uuid.New()
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	type testCase struct {
		name      string
		params    ledger.CreateParams
		setupMock func(repo *ledger.MockRepository, tx *ledger.MockTx)
		wantErr   error
	}

	tests := []testCase{
		{
			name: "Deposit",
			params: ledger.CreateParams{
				Type:       ledger.TypeDeposit,
				Amount:     dec("1000"),
				Date:       date,
				ToWalletID: &main,
			},
			setupMock: func(repo *ledger.MockRepository, tx *ledger.MockTx) {
				repo.EXPECT().Begin(gomock.Any()).Return(tx, nil)
				tx.EXPECT().
					InsertTransaction(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, row *ledger.Transaction) error {
						row.ID = 1
						return nil
					})
				tx.EXPECT().AdjustBalance(gomock.Any(), userID, main, decEq("1000")).Return(nil)
				tx.EXPECT().Commit().Return(nil)
				tx.EXPECT().Rollback().Return(nil)
			},
		},
		{
			name: "TransferMovesBothSides",
			params: ledger.CreateParams{
				Type:         ledger.TypeInternalTransfer,
				Amount:       dec("200"),
				Date:         date,
				FromWalletID: &main,
				ToWalletID:   &card,
			},
			setupMock: func(repo *ledger.MockRepository, tx *ledger.MockTx) {
				repo.EXPECT().Begin(gomock.Any()).Return(tx, nil)
				tx.EXPECT().InsertTransaction(gomock.Any(), gomock.Any()).Return(nil)
				gomock.InOrder(
					tx.EXPECT().AdjustBalance(gomock.Any(), userID, main, decEq("-200")).Return(nil),
					tx.EXPECT().AdjustBalance(gomock.Any(), userID, card, decEq("200")).Return(nil),
				)
				tx.EXPECT().Commit().Return(nil)
				tx.EXPECT().Rollback().Return(nil)
			},
		},
		{
			name: "PaymentRecordsSubscriptionMetadata",
			params: ledger.CreateParams{
				Type:           ledger.TypeSubscriptionPayment,
				Amount:         dec("115"),
				Date:           date,
				FromWalletID:   &card,
				SubscriptionID: &sub,
				VATAmount:      new(dec("15")),
			},
			setupMock: func(repo *ledger.MockRepository, tx *ledger.MockTx) {
				repo.EXPECT().Begin(gomock.Any()).Return(tx, nil)
				tx.EXPECT().InsertTransaction(gomock.Any(), gomock.Any()).Return(nil)
				tx.EXPECT().AdjustBalance(gomock.Any(), userID, card, decEq("-115")).Return(nil)
				tx.EXPECT().
					RecordPayment(gomock.Any(), userID, sub, gomock.Any()).
					DoAndReturn(func(_ context.Context, _ string, _ uuid.UUID, p ledger.Payment) error {
						assert.Equal(t, date, p.Date)
						assert.True(t, p.Amount.Equal(dec("115")))
						assert.Nil(t, p.NextRenewalDate)
						return nil
					})
				tx.EXPECT().Commit().Return(nil)
				tx.EXPECT().Rollback().Return(nil)
			},
		},
		{
			name: "MissingToWallet",
			params: ledger.CreateParams{
				Type:   ledger.TypeRefund,
				Amount: dec("10"),
			},
			wantErr: errs.ErrValidation,
		},
		{
			name: "NegativeAmount",
			params: ledger.CreateParams{
				Type:       ledger.TypeDeposit,
				Amount:     dec("-1"),
				ToWalletID: &main,
			},
			wantErr: errs.ErrValidation,
		},
		{
			name: "TransferToSelf",
			params: ledger.CreateParams{
				Type:         ledger.TypeInternalTransfer,
				Amount:       dec("1"),
				FromWalletID: &main,
				ToWalletID:   &main,
			},
			wantErr: errs.ErrValidation,
		},
		{
			name: "UnknownWalletRollsBack",
			params: ledger.CreateParams{
				Type:       ledger.TypeDeposit,
				Amount:     dec("5"),
				ToWalletID: &card,
			},
			setupMock: func(repo *ledger.MockRepository, tx *ledger.MockTx) {
				repo.EXPECT().Begin(gomock.Any()).Return(tx, nil)
				tx.EXPECT().InsertTransaction(gomock.Any(), gomock.Any()).Return(nil)
				tx.EXPECT().AdjustBalance(gomock.Any(), userID, card, gomock.Any()).Return(errs.NotFound("wallet", card))
				tx.EXPECT().Rollback().Return(nil)
			},
			wantErr: errs.ErrNotFound,
		},
		{
			name: "BeginError",
			params: ledger.CreateParams{
				Type:       ledger.TypeDeposit,
				Amount:     dec("5"),
				ToWalletID: &main,
			},
			setupMock: func(repo *ledger.MockRepository, _ *ledger.MockTx) {
				repo.EXPECT().Begin(gomock.Any()).Return(nil, errors.New("connection refused"))
			},
			wantErr: errs.ErrPersistence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := ledger.NewMockRepository(ctrl)
			tx := ledger.NewMockTx(ctrl)

			if tt.setupMock != nil {
				tt.setupMock(repo, tx)
			}

			svc := ledger.NewService(repo)
			got, err := svc.Create(context.Background(), userID, tt.params)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, userID, got.UserID)
			assert.Equal(t, tt.params.Type.DefaultDescription(), got.Description)
		})
	}
}

func TestService_Create_NormalizesUnusedRefs(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := ledger.NewMockRepository(ctrl)
	tx := ledger.NewMockTx(ctrl)
	svc := ledger.NewService(repo)

	main := uuid.New()
	stray := uuid.New()

	repo.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	tx.EXPECT().
		InsertTransaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, row *ledger.Transaction) error {
			assert.Nil(t, row.FromWalletID)
			assert.Nil(t, row.SubscriptionID)
			return nil
		})
	tx.EXPECT().AdjustBalance(gomock.Any(), userID, main, decEq("50")).Return(nil)
	tx.EXPECT().Commit().Return(nil)
	tx.EXPECT().Rollback().Return(nil)

	_, err := svc.Create(context.Background(), userID, ledger.CreateParams{
		Type:           ledger.TypeDeposit,
		Amount:         dec("50"),
		ToWalletID:     &main,
		FromWalletID:   &stray,
		SubscriptionID: &stray,
	})
	require.NoError(t, err)
}

func TestService_Edit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := ledger.NewMockRepository(ctrl)
	tx := ledger.NewMockTx(ctrl)
	svc := ledger.NewService(repo)

	main := uuid.New()
	card := uuid.New()
	old := &ledger.Transaction{
		ID:           7,
		UserID:       userID,
		Type:         ledger.TypeInternalTransfer,
		Amount:       dec("100"),
		FromWalletID: &main,
		ToWalletID:   &card,
		Description:  "Internal Transfer",
	}

	repo.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	tx.EXPECT().LockTransaction(gomock.Any(), userID, int64(7)).Return(old, nil)
	gomock.InOrder(
		tx.EXPECT().AdjustBalance(gomock.Any(), userID, main, decEq("100")).Return(nil),
		tx.EXPECT().AdjustBalance(gomock.Any(), userID, card, decEq("-100")).Return(nil),
		tx.EXPECT().UpdateTransaction(gomock.Any(), gomock.Any()).Return(nil),
		tx.EXPECT().AdjustBalance(gomock.Any(), userID, main, decEq("-150")).Return(nil),
		tx.EXPECT().AdjustBalance(gomock.Any(), userID, card, decEq("150")).Return(nil),
	)
	tx.EXPECT().Commit().Return(nil)
	tx.EXPECT().Rollback().Return(nil)

	got, err := svc.Edit(context.Background(), userID, 7, ledger.EditParams{Amount: new(dec("150"))})
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(dec("150")))
	assert.Equal(t, ledger.TypeInternalTransfer, got.Type)
	assert.NotNil(t, got.UpdatedAt)
	assert.True(t, old.Amount.Equal(dec("100")), "stored row must not be mutated")
}

func TestService_Edit_InvalidMergeRollsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := ledger.NewMockRepository(ctrl)
	tx := ledger.NewMockTx(ctrl)
	svc := ledger.NewService(repo)

	card := uuid.New()
	old := &ledger.Transaction{
		ID:         3,
		UserID:     userID,
		Type:       ledger.TypeRefund,
		Amount:     dec("20"),
		ToWalletID: &card,
	}

	repo.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	tx.EXPECT().LockTransaction(gomock.Any(), userID, int64(3)).Return(old, nil)
	tx.EXPECT().AdjustBalance(gomock.Any(), userID, card, decEq("-20")).Return(nil)
	tx.EXPECT().Rollback().Return(nil)

	paymentType := ledger.TypeSubscriptionPayment
	_, err := svc.Edit(context.Background(), userID, 3, ledger.EditParams{Type: &paymentType})
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestService_Delete(t *testing.T) {
	card := uuid.New()
	sub := uuid.New()

	type testCase struct {
		name      string
		setupMock func(tx *ledger.MockTx)
		wantErr   error
	}

	tests := []testCase{
		{
			name: "ReversesPayment",
			setupMock: func(tx *ledger.MockTx) {
				tx.EXPECT().LockTransaction(gomock.Any(), userID, int64(9)).Return(&ledger.Transaction{
					ID:             9,
					UserID:         userID,
					Type:           ledger.TypeSubscriptionPayment,
					Amount:         dec("30"),
					FromWalletID:   &card,
					SubscriptionID: &sub,
				}, nil)
				tx.EXPECT().AdjustBalance(gomock.Any(), userID, card, decEq("30")).Return(nil)
				tx.EXPECT().DeleteTransaction(gomock.Any(), userID, int64(9)).Return(nil)
				tx.EXPECT().Commit().Return(nil)
				tx.EXPECT().Rollback().Return(nil)
			},
		},
		{
			name: "NotFound",
			setupMock: func(tx *ledger.MockTx) {
				tx.EXPECT().LockTransaction(gomock.Any(), userID, int64(9)).Return(nil, errs.NotFound("transaction", int64(9)))
				tx.EXPECT().Rollback().Return(nil)
			},
			wantErr: errs.ErrNotFound,
		},
		{
			name: "CommitError",
			setupMock: func(tx *ledger.MockTx) {
				tx.EXPECT().LockTransaction(gomock.Any(), userID, int64(9)).Return(&ledger.Transaction{
					ID:         9,
					UserID:     userID,
					Type:       ledger.TypeDeposit,
					Amount:     dec("1"),
					ToWalletID: &card,
				}, nil)
				tx.EXPECT().AdjustBalance(gomock.Any(), userID, card, decEq("-1")).Return(nil)
				tx.EXPECT().DeleteTransaction(gomock.Any(), userID, int64(9)).Return(nil)
				tx.EXPECT().Commit().Return(errors.New("serialization failure"))
				tx.EXPECT().Rollback().Return(nil)
			},
			wantErr: errs.ErrPersistence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := ledger.NewMockRepository(ctrl)
			tx := ledger.NewMockTx(ctrl)
			repo.EXPECT().Begin(gomock.Any()).Return(tx, nil)
			tt.setupMock(tx)

			err := ledger.NewService(repo).Delete(context.Background(), userID, 9)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestService_FundMain(t *testing.T) {
	t.Run("CreditsMainWallet", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := ledger.NewMockRepository(ctrl)
		tx := ledger.NewMockTx(ctrl)
		main := uuid.New()

		repo.EXPECT().Begin(gomock.Any()).Return(tx, nil)
		tx.EXPECT().MainWalletID(gomock.Any(), userID).Return(main, nil)
		tx.EXPECT().InsertTransaction(gomock.Any(), gomock.Any()).Return(nil)
		tx.EXPECT().AdjustBalance(gomock.Any(), userID, main, decEq("500")).Return(nil)
		tx.EXPECT().Commit().Return(nil)
		tx.EXPECT().Rollback().Return(nil)

		got, err := ledger.NewService(repo).FundMain(context.Background(), userID, dec("500"), time.Time{}, "")
		require.NoError(t, err)
		assert.Equal(t, &main, got.ToWalletID)
		assert.Equal(t, "Bank Deposit", got.Description)
		assert.False(t, got.Date.IsZero())
	})

	t.Run("NoMainWallet", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := ledger.NewMockRepository(ctrl)
		tx := ledger.NewMockTx(ctrl)

		repo.EXPECT().Begin(gomock.Any()).Return(tx, nil)
		tx.EXPECT().MainWalletID(gomock.Any(), userID).Return(uuid.Nil, errs.ErrNoMainWallet)
		tx.EXPECT().Rollback().Return(nil)

		got, err := ledger.NewService(repo).FundMain(context.Background(), userID, dec("500"), time.Time{}, "")
		assert.ErrorIs(t, err, errs.ErrNoMainWallet)
		assert.Nil(t, got)
	})
}

func TestService_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := ledger.NewMockRepository(ctrl)
	txType := ledger.TypeRefund
	filter := ledger.ListFilter{Type: &txType}

	repo.EXPECT().
		ListTransactions(gomock.Any(), userID, filter).
		Return([]*ledger.Transaction{{ID: 1}, {ID: 2}}, nil)

	got, err := ledger.NewService(repo).List(context.Background(), userID, filter)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
