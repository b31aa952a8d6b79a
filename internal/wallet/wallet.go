package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type distinguishes the single bank-funded wallet from employee cards.
type Type string

const (
	TypeMain     Type = "MAIN"
	TypeEmployee Type = "EMPLOYEE"
)

// Status represents whether a wallet is in use.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// MainWalletName is used when the MAIN wallet is provisioned automatically.
const MainWalletName = "Main Company Wallet"

// Wallet holds a cached balance. Balance always equals the signed sum of the
// ledger transactions that reference the wallet and is only written by the
// ledger engine and reconciliation.
type Wallet struct {
	ID         uuid.UUID
	UserID     string
	Name       string
	Type       Type
	Balance    decimal.Decimal
	HolderName *string
	Status     Status
	CreatedAt  time.Time
}
