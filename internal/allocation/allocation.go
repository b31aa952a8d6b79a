// Package allocation splits a monetary amount across a subscription's departments or
// accounting codes. It has no side effects and never moves money.
package allocation

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type is the rule used to attribute a cost to departments or accounts.
type Type string

const (
	TypeSingle     Type = "SINGLE"
	TypeEqual      Type = "EQUAL"
	TypePercentage Type = "PERCENTAGE"
)

// Valid reports whether t is a known allocation type.
func (t Type) Valid() bool {
	switch t {
	case TypeSingle, TypeEqual, TypePercentage:
		return true
	}

	return false
}

// Split is one department or account entry of a subscription.
// Percentage is only meaningful under TypePercentage.
type Split struct {
	ID         uuid.UUID        `json:"id"`
	Percentage *decimal.Decimal `json:"percentage,omitempty"`
}

// Share is the part of an amount attributed to one split.
type Share struct {
	ID     uuid.UUID
	Amount decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Allocate divides amount across splits according to t. The amount may be negative
// (refunds) and the sign carries through every branch. A nil result means the amount
// is unallocated.
//
// Percentages are used as given; they are not normalised to 100.
func Allocate(t Type, splits []Split, amount decimal.Decimal) []Share {
	if len(splits) == 0 {
		return nil
	}

	switch t {
	case TypeSingle:
		return []Share{{ID: splits[0].ID, Amount: amount}}
	case TypeEqual:
		each := amount.Div(decimal.NewFromInt(int64(len(splits))))

		shares := make([]Share, len(splits))
		for i, s := range splits {
			shares[i] = Share{ID: s.ID, Amount: each}
		}

		return shares
	case TypePercentage:
		shares := make([]Share, len(splits))
		for i, s := range splits {
			pct := decimal.Zero
			if s.Percentage != nil {
				pct = *s.Percentage
			}

			shares[i] = Share{ID: s.ID, Amount: amount.Mul(pct.Div(hundred))}
		}

		return shares
	}

	return nil
}

// Accumulate adds every share into totals, keyed by split id.
func Accumulate(totals map[uuid.UUID]decimal.Decimal, shares []Share) {
	for _, s := range shares {
		totals[s.ID] = totals[s.ID].Add(s.Amount)
	}
}

var percentTolerance = decimal.RequireFromString("0.01")

// Validate checks a split configuration before it is stored. Allocate itself
// accepts anything; this is the guard subscriptions go through on write.
func Validate(t Type, splits []Split) error {
	if !t.Valid() {
		return fmt.Errorf("unknown allocation type %q", t)
	}

	seen := make(map[uuid.UUID]struct{}, len(splits))
	for _, s := range splits {
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("split %s listed twice", s.ID)
		}

		seen[s.ID] = struct{}{}
	}

	switch t {
	case TypeSingle:
		if len(splits) > 1 {
			return fmt.Errorf("single allocation takes at most one entry, got %d", len(splits))
		}
	case TypePercentage:
		if len(splits) == 0 {
			return nil
		}

		sum := decimal.Zero

		for _, s := range splits {
			if s.Percentage == nil {
				return fmt.Errorf("split %s is missing a percentage", s.ID)
			}

			if s.Percentage.IsNegative() || s.Percentage.GreaterThan(hundred) {
				return fmt.Errorf("split %s percentage %s out of range", s.ID, s.Percentage)
			}

			sum = sum.Add(*s.Percentage)
		}

		if sum.Sub(hundred).Abs().GreaterThan(percentTolerance) {
			return fmt.Errorf("percentages sum to %s, want 100", sum)
		}
	}

	return nil
}
