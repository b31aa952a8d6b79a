package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type is the business reason of a ledger transaction. Each type has a fixed
// balance effect, see Effect.
type Type string

const (
	TypeDeposit             Type = "DEPOSIT_FROM_BANK"
	TypeInternalTransfer    Type = "INTERNAL_TRANSFER"
	TypeSubscriptionPayment Type = "SUBSCRIPTION_PAYMENT"
	TypeRefund              Type = "REFUND"
)

func (t Type) Valid() bool {
	switch t {
	case TypeDeposit, TypeInternalTransfer, TypeSubscriptionPayment, TypeRefund:
		return true
	}

	return false
}

// DefaultDescription is used when an intent carries no description.
func (t Type) DefaultDescription() string {
	switch t {
	case TypeDeposit:
		return "Bank Deposit"
	case TypeInternalTransfer:
		return "Internal Transfer"
	case TypeSubscriptionPayment:
		return "Subscription Payment"
	case TypeRefund:
		return "Refund"
	}

	return ""
}

// Transaction is one row of the ledger. Wallet and subscription ids are weak
// references: nothing cascades when the referenced entity goes away.
type Transaction struct {
	ID             int64
	UserID         string
	Date           time.Time
	Amount         decimal.Decimal // never negative; direction comes from the wallet refs
	Type           Type
	FromWalletID   *uuid.UUID
	ToWalletID     *uuid.UUID
	SubscriptionID *uuid.UUID
	Description    string
	VATAmount      *decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

// Payment is the subscription metadata written by a SUBSCRIPTION_PAYMENT.
type Payment struct {
	Date            time.Time
	Amount          decimal.Decimal
	NextRenewalDate *time.Time
}

type ListFilter struct {
	Type           *Type
	WalletID       *uuid.UUID // matches either side
	SubscriptionID *uuid.UUID
	StartDate      *time.Time
	EndDate        *time.Time
}
