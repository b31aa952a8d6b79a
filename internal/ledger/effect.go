package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/subledger/internal/errs"
)

// Delta is a signed change to one wallet's balance.
type Delta struct {
	WalletID uuid.UUID
	Amount   decimal.Decimal
}

// Effect returns the balance deltas tx applies when it is created:
//
//	DEPOSIT_FROM_BANK     to += amount
//	INTERNAL_TRANSFER     from -= amount, to += amount
//	SUBSCRIPTION_PAYMENT  from -= amount
//	REFUND                to += amount
//
// tx must have passed validate.
func Effect(tx *Transaction) []Delta {
	switch tx.Type {
	case TypeDeposit, TypeRefund:
		return []Delta{{WalletID: *tx.ToWalletID, Amount: tx.Amount}}
	case TypeInternalTransfer:
		return []Delta{
			{WalletID: *tx.FromWalletID, Amount: tx.Amount.Neg()},
			{WalletID: *tx.ToWalletID, Amount: tx.Amount},
		}
	case TypeSubscriptionPayment:
		return []Delta{{WalletID: *tx.FromWalletID, Amount: tx.Amount.Neg()}}
	}

	return nil
}

// Reversal is the exact inverse of Effect.
func Reversal(tx *Transaction) []Delta {
	deltas := Effect(tx)
	for i := range deltas {
		deltas[i].Amount = deltas[i].Amount.Neg()
	}

	return deltas
}

// Balances projects wallet balances from history: everything received minus
// everything sent, over all transaction types.
func Balances(txs []*Transaction) map[uuid.UUID]decimal.Decimal {
	balances := make(map[uuid.UUID]decimal.Decimal)

	for _, tx := range txs {
		if tx.ToWalletID != nil {
			balances[*tx.ToWalletID] = balances[*tx.ToWalletID].Add(tx.Amount)
		}

		if tx.FromWalletID != nil {
			balances[*tx.FromWalletID] = balances[*tx.FromWalletID].Sub(tx.Amount)
		}
	}

	return balances
}

// normalize drops references the type does not use, so the stored row always
// agrees with Effect and therefore with Balances.
func normalize(tx *Transaction) {
	switch tx.Type {
	case TypeDeposit:
		tx.FromWalletID = nil
		tx.SubscriptionID = nil
	case TypeInternalTransfer:
		tx.SubscriptionID = nil
	case TypeSubscriptionPayment:
		tx.ToWalletID = nil
	case TypeRefund:
		tx.FromWalletID = nil
	}
}

// validate checks the preconditions of the effect table.
func validate(tx *Transaction) error {
	if !tx.Type.Valid() {
		return errs.Invalid("type", "unknown transaction type \""+string(tx.Type)+"\"")
	}

	if tx.Amount.IsNegative() {
		return errs.Invalid("amount", "must not be negative")
	}

	if tx.VATAmount != nil {
		if tx.VATAmount.IsNegative() {
			return errs.Invalid("vatAmount", "must not be negative")
		}

		if tx.VATAmount.GreaterThan(tx.Amount) {
			return errs.Invalid("vatAmount", "must not exceed the amount")
		}
	}

	switch tx.Type {
	case TypeDeposit, TypeRefund:
		if tx.ToWalletID == nil {
			return errs.Invalid("toWalletId", "is required for "+string(tx.Type))
		}
	case TypeInternalTransfer:
		if tx.FromWalletID == nil {
			return errs.Invalid("fromWalletId", "is required for "+string(tx.Type))
		}

		if tx.ToWalletID == nil {
			return errs.Invalid("toWalletId", "is required for "+string(tx.Type))
		}

		if *tx.FromWalletID == *tx.ToWalletID {
			return errs.Invalid("toWalletId", "must differ from fromWalletId")
		}
	case TypeSubscriptionPayment:
		if tx.FromWalletID == nil {
			return errs.Invalid("fromWalletId", "is required for "+string(tx.Type))
		}

		if tx.SubscriptionID == nil {
			return errs.Invalid("subscriptionId", "is required for "+string(tx.Type))
		}
	}

	return nil
}
