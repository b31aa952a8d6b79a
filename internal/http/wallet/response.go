package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/subledger/internal/wallet"
)

type Response struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	Type       wallet.Type     `json:"type"`
	Balance    decimal.Decimal `json:"balance"`
	HolderName *string         `json:"holder_name,omitempty"`
	Status     wallet.Status   `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
}

func ToResponse(w *wallet.Wallet) Response {
	return Response{
		ID:         w.ID,
		Name:       w.Name,
		Type:       w.Type,
		Balance:    w.Balance,
		HolderName: w.HolderName,
		Status:     w.Status,
		CreatedAt:  w.CreatedAt,
	}
}

func ToResponseList(wallets []*wallet.Wallet) []Response {
	resp := make([]Response, len(wallets))
	for i, w := range wallets {
		resp[i] = ToResponse(w)
	}

	return resp
}
