package subscription

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/subledger/internal/allocation"
	"github.com/MrJamesThe3rd/subledger/internal/errs"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=subscription
type Repository interface {
	ListSubscriptions(ctx context.Context, userID string) ([]*Subscription, error)
	GetSubscription(ctx context.Context, userID string, id uuid.UUID) (*Subscription, error)
	CreateSubscription(ctx context.Context, sub *Subscription) error
	UpdateSubscription(ctx context.Context, sub *Subscription) error
	DeleteSubscription(ctx context.Context, userID string, id uuid.UUID) error

	// NameTaken compares trimmed, lower-cased names and ignores the row with id exclude.
	NameTaken(ctx context.Context, userID, name string, exclude uuid.UUID) (bool, error)
	CountSubscriptionTransactions(ctx context.Context, userID string, id uuid.UUID) (int, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateParams struct {
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
}

// UpdateParams carries the fields to change; nil means keep. Payment metadata is
// owned by the ledger and cannot be set here.
type UpdateParams struct {
	Name                  *string
	BaseAmount            *decimal.Decimal
	BillingCycle          *BillingCycle
	UserCount             *int
	Notes                 *string
	Status                *Status
	AllocationType        *allocation.Type
	Departments           []allocation.Split
	AccountAllocationType *allocation.Type
	Accounts              []allocation.Split
	StartDate             *time.Time
	NextRenewalDate       *time.Time
}

func (s *Service) List(ctx context.Context, userID string) ([]*Subscription, error) {
	subs, err := s.repo.ListSubscriptions(ctx, userID)
	if err != nil {
		return nil, errs.Persistence("list subscriptions", err)
	}

	return subs, nil
}

func (s *Service) Get(ctx context.Context, userID string, id uuid.UUID) (*Subscription, error) {
	sub, err := s.repo.GetSubscription(ctx, userID, id)
	if err != nil {
		return nil, errs.Persistence("get subscription", err)
	}

	return sub, nil
}

func (s *Service) Create(ctx context.Context, userID string, params CreateParams) (*Subscription, error) {
	sub := &Subscription{
		ID:                    uuid.New(),
		UserID:                userID,
		Name:                  strings.TrimSpace(params.Name),
		BaseAmount:            params.BaseAmount,
		BillingCycle:          params.BillingCycle,
		UserCount:             params.UserCount,
		Notes:                 params.Notes,
		Status:                params.Status,
		AllocationType:        params.AllocationType,
		Departments:           params.Departments,
		AccountAllocationType: params.AccountAllocationType,
		Accounts:              params.Accounts,
		StartDate:             params.StartDate,
		NextRenewalDate:       params.NextRenewalDate,
	}
	applyDefaults(sub)

	if err := s.validate(ctx, sub); err != nil {
		return nil, err
	}

	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		return nil, errs.Persistence("create subscription", err)
	}

	return sub, nil
}

func (s *Service) Update(ctx context.Context, userID string, id uuid.UUID, params UpdateParams) (*Subscription, error) {
	sub, err := s.repo.GetSubscription(ctx, userID, id)
	if err != nil {
		return nil, errs.Persistence("get subscription", err)
	}

	if params.Name != nil {
		sub.Name = strings.TrimSpace(*params.Name)
	}

	if params.BaseAmount != nil {
		sub.BaseAmount = *params.BaseAmount
	}

	if params.BillingCycle != nil {
		sub.BillingCycle = *params.BillingCycle
	}

	if params.UserCount != nil {
		sub.UserCount = *params.UserCount
	}

	if params.Notes != nil {
		sub.Notes = *params.Notes
	}

	if params.Status != nil {
		sub.Status = *params.Status
	}

	if params.AllocationType != nil {
		sub.AllocationType = *params.AllocationType
	}

	if params.Departments != nil {
		sub.Departments = params.Departments
	}

	if params.AccountAllocationType != nil {
		sub.AccountAllocationType = *params.AccountAllocationType
	}

	if params.Accounts != nil {
		sub.Accounts = params.Accounts
	}

	if params.StartDate != nil {
		sub.StartDate = *params.StartDate
	}

	if params.NextRenewalDate != nil {
		sub.NextRenewalDate = *params.NextRenewalDate
	}

	if err := s.validate(ctx, sub); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateSubscription(ctx, sub); err != nil {
		return nil, errs.Persistence("update subscription", err)
	}

	return sub, nil
}

// Delete removes a subscription that no transaction references.
func (s *Service) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	if _, err := s.repo.GetSubscription(ctx, userID, id); err != nil {
		return errs.Persistence("get subscription", err)
	}

	n, err := s.repo.CountSubscriptionTransactions(ctx, userID, id)
	if err != nil {
		return errs.Persistence("count subscription transactions", err)
	}

	if n > 0 {
		return errs.Invalid("id", "subscription has recorded payments; deactivate it instead")
	}

	return errs.Persistence("delete subscription", s.repo.DeleteSubscription(ctx, userID, id))
}

func applyDefaults(sub *Subscription) {
	if sub.Status == "" {
		sub.Status = StatusActive
	}

	if sub.BillingCycle == "" {
		sub.BillingCycle = CycleMonthly
	}

	if sub.AllocationType == "" {
		sub.AllocationType = allocation.TypeSingle
	}

	if sub.AccountAllocationType == "" {
		sub.AccountAllocationType = allocation.TypeSingle
	}

	if sub.UserCount == 0 {
		sub.UserCount = 1
	}
}

func (s *Service) validate(ctx context.Context, sub *Subscription) error {
	if sub.Name == "" {
		return errs.Invalid("name", "is required")
	}

	if sub.BaseAmount.IsNegative() {
		return errs.Invalid("baseAmount", "must not be negative")
	}

	if !sub.BillingCycle.Valid() {
		return errs.Invalid("billingCycle", "unknown billing cycle")
	}

	if sub.UserCount < 0 {
		return errs.Invalid("userCount", "must not be negative")
	}

	if sub.Status != StatusActive && sub.Status != StatusInactive {
		return errs.Invalid("status", "must be ACTIVE or INACTIVE")
	}

	if err := allocation.Validate(sub.AllocationType, sub.Departments); err != nil {
		return errs.Invalid("departments", err.Error())
	}

	if err := allocation.Validate(sub.AccountAllocationType, sub.Accounts); err != nil {
		return errs.Invalid("accounts", err.Error())
	}

	taken, err := s.repo.NameTaken(ctx, sub.UserID, sub.Name, sub.ID)
	if err != nil {
		return errs.Persistence("check subscription name", err)
	}

	if taken {
		return errs.Invalid("name", "a subscription named \""+sub.Name+"\" already exists")
	}

	return nil
}
