package subscription

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/subledger/internal/allocation"
)

// BillingCycle is how often a subscription renews.
type BillingCycle string

const (
	CycleDaily   BillingCycle = "DAILY"
	CycleWeekly  BillingCycle = "WEEKLY"
	CycleMonthly BillingCycle = "MONTHLY"
	CycleYearly  BillingCycle = "YEARLY"
	CycleOther   BillingCycle = "OTHER"
)

func (c BillingCycle) Valid() bool {
	switch c {
	case CycleDaily, CycleWeekly, CycleMonthly, CycleYearly, CycleOther:
		return true
	}

	return false
}

// Status represents whether a subscription is in use.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

var (
	weeksPerMonth = decimal.RequireFromString("4.3")
	daysPerMonth  = decimal.NewFromInt(30)
	monthsPerYear = decimal.NewFromInt(12)
)

// Subscription is a service paid from a wallet. The Last* fields and
// NextRenewalDate are updated by the ledger when a payment is recorded; deleting
// that payment does not restore them.
type Subscription struct {
	ID                    uuid.UUID
	UserID                string
	Name                  string
	BaseAmount            decimal.Decimal
	BillingCycle          BillingCycle
	UserCount             int
	Notes                 string
	Status                Status
	AllocationType        allocation.Type
	Departments           []allocation.Split
	AccountAllocationType allocation.Type
	Accounts              []allocation.Split
	StartDate             time.Time
	NextRenewalDate       time.Time
	LastPaymentDate       *time.Time
	LastPaymentAmount     *decimal.Decimal
	CreatedAt             time.Time
}

// MonthlyCost normalises BaseAmount to a monthly figure. The ratios are fixed by
// convention: a week is 4.3 per month and a day is 30.
func (s *Subscription) MonthlyCost() decimal.Decimal {
	switch s.BillingCycle {
	case CycleYearly:
		return s.BaseAmount.Div(monthsPerYear)
	case CycleWeekly:
		return s.BaseAmount.Mul(weeksPerMonth)
	case CycleDaily:
		return s.BaseAmount.Mul(daysPerMonth)
	default:
		return s.BaseAmount
	}
}

// DepartmentShares splits amount across the subscription's departments.
func (s *Subscription) DepartmentShares(amount decimal.Decimal) []allocation.Share {
	return allocation.Allocate(s.AllocationType, s.Departments, amount)
}

// AccountShares splits amount across the subscription's accounting codes.
func (s *Subscription) AccountShares(amount decimal.Decimal) []allocation.Share {
	return allocation.Allocate(s.AccountAllocationType, s.Accounts, amount)
}
