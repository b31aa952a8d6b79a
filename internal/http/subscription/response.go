package subscription

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/subledger/internal/allocation"
	"github.com/MrJamesThe3rd/subledger/internal/subscription"
)

type Response struct {
	ID                    uuid.UUID                 `json:"id"`
	Name                  string                    `json:"name"`
	BaseAmount            decimal.Decimal           `json:"base_amount"`
	MonthlyCost           decimal.Decimal           `json:"monthly_cost"`
	BillingCycle          subscription.BillingCycle `json:"billing_cycle"`
	UserCount             int                       `json:"user_count"`
	Notes                 string                    `json:"notes"`
	Status                subscription.Status       `json:"status"`
	AllocationType        allocation.Type           `json:"allocation_type"`
	Departments           []allocation.Split        `json:"departments"`
	AccountAllocationType allocation.Type           `json:"account_allocation_type"`
	Accounts              []allocation.Split        `json:"accounts"`
	StartDate             time.Time                 `json:"start_date"`
	NextRenewalDate       time.Time                 `json:"next_renewal_date"`
	LastPaymentDate       *time.Time                `json:"last_payment_date,omitempty"`
	LastPaymentAmount     *decimal.Decimal          `json:"last_payment_amount,omitempty"`
	CreatedAt             time.Time                 `json:"created_at"`
}

func ToResponse(s *subscription.Subscription) Response {
	resp := Response{
		ID:                    s.ID,
		Name:                  s.Name,
		BaseAmount:            s.BaseAmount,
		MonthlyCost:           s.MonthlyCost().Round(2),
		BillingCycle:          s.BillingCycle,
		UserCount:             s.UserCount,
		Notes:                 s.Notes,
		Status:                s.Status,
		AllocationType:        s.AllocationType,
		Departments:           s.Departments,
		AccountAllocationType: s.AccountAllocationType,
		Accounts:              s.Accounts,
		StartDate:             s.StartDate,
		NextRenewalDate:       s.NextRenewalDate,
		LastPaymentDate:       s.LastPaymentDate,
		LastPaymentAmount:     s.LastPaymentAmount,
		CreatedAt:             s.CreatedAt,
	}

	if resp.Departments == nil {
		resp.Departments = []allocation.Split{}
	}

	if resp.Accounts == nil {
		resp.Accounts = []allocation.Split{}
	}

	return resp
}

func ToResponseList(subs []*subscription.Subscription) []Response {
	resp := make([]Response, len(subs))
	for i, s := range subs {
		resp[i] = ToResponse(s)
	}

	return resp
}
