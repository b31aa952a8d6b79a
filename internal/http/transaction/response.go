package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/subledger/internal/ledger"
)

type Response struct {
	ID             int64            `json:"id"`
	Date           time.Time        `json:"date"`
	Amount         decimal.Decimal  `json:"amount"`
	Type           ledger.Type      `json:"type"`
	FromWalletID   *uuid.UUID       `json:"from_wallet_id,omitempty"`
	ToWalletID     *uuid.UUID       `json:"to_wallet_id,omitempty"`
	SubscriptionID *uuid.UUID       `json:"subscription_id,omitempty"`
	Description    string           `json:"description"`
	VATAmount      *decimal.Decimal `json:"vat_amount,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      *time.Time       `json:"updated_at,omitempty"`
}

func ToResponse(tx *ledger.Transaction) Response {
	return Response{
		ID:             tx.ID,
		Date:           tx.Date,
		Amount:         tx.Amount,
		Type:           tx.Type,
		FromWalletID:   tx.FromWalletID,
		ToWalletID:     tx.ToWalletID,
		SubscriptionID: tx.SubscriptionID,
		Description:    tx.Description,
		VATAmount:      tx.VATAmount,
		CreatedAt:      tx.CreatedAt,
		UpdatedAt:      tx.UpdatedAt,
	}
}

func ToResponseList(txs []*ledger.Transaction) []Response {
	resp := make([]Response, len(txs))
	for i, tx := range txs {
		resp[i] = ToResponse(tx)
	}

	return resp
}
