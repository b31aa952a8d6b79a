package dashboard

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/subledger/internal/dashboard"
	"github.com/MrJamesThe3rd/subledger/internal/http/api"
	"github.com/MrJamesThe3rd/subledger/internal/http/auth"
	cataloghttp "github.com/MrJamesThe3rd/subledger/internal/http/catalog"
	subhttp "github.com/MrJamesThe3rd/subledger/internal/http/subscription"
	txhttp "github.com/MrJamesThe3rd/subledger/internal/http/transaction"
	wallethttp "github.com/MrJamesThe3rd/subledger/internal/http/wallet"
)

type Handler struct {
	svc *dashboard.Service
}

func NewHandler(svc *dashboard.Service) *Handler {
	return &Handler{svc: svc}
}

// DataRoutes serves the tenant snapshot.
func (h *Handler) DataRoutes(r chi.Router) {
	r.Get("/", h.snapshot)
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/summary", h.summary)
}

type snapshotResponse struct {
	Wallets       []wallethttp.Response            `json:"wallets"`
	Subscriptions []subhttp.Response               `json:"subscriptions"`
	Transactions  []txhttp.Response                `json:"transactions"`
	Departments   []cataloghttp.DepartmentResponse `json:"departments"`
	Accounts      []cataloghttp.AccountResponse    `json:"accounts"`
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Snapshot(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, snapshotResponse{
		Wallets:       wallethttp.ToResponseList(snap.Wallets),
		Subscriptions: subhttp.ToResponseList(snap.Subscriptions),
		Transactions:  txhttp.ToResponseList(snap.Transactions),
		Departments:   cataloghttp.ToDepartmentResponses(snap.Departments),
		Accounts:      cataloghttp.ToAccountResponses(snap.Accounts),
	})
}

type namedAmount struct {
	ID     uuid.UUID       `json:"id"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

type renewal struct {
	SubscriptionID uuid.UUID       `json:"subscription_id"`
	Name           string          `json:"name"`
	Date           time.Time       `json:"date"`
	DaysLeft       int             `json:"days_left"`
	MonthlyCost    decimal.Decimal `json:"monthly_cost"`
}

type subscriptionTotal struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	BaseAmount decimal.Decimal `json:"base_amount"`
	UserCount  int             `json:"user_count"`
	TotalPaid  decimal.Decimal `json:"total_paid"`
}

type group struct {
	DepartmentID  *uuid.UUID          `json:"department_id"`
	Name          string              `json:"name"`
	Subscriptions []subscriptionTotal `json:"subscriptions"`
}

type summaryResponse struct {
	TotalMonthlySpend     decimal.Decimal `json:"total_monthly_spend"`
	TotalAvailableCash    decimal.Decimal `json:"total_available_cash"`
	EstimatedByDepartment []namedAmount   `json:"estimated_by_department"`
	PaidByDepartment      []namedAmount   `json:"paid_by_department"`
	PaidByAccount         []namedAmount   `json:"paid_by_account"`
	PaidBySubscription    []namedAmount   `json:"paid_by_subscription"`
	SpendByWallet         []namedAmount   `json:"spend_by_wallet"`
	UpcomingRenewals      []renewal       `json:"upcoming_renewals"`
	Groups                []group         `json:"groups"`
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	var (
		rng dashboard.Range
		err error
	)

	if rng.Start, err = api.DateParam(r, "start_date"); err != nil {
		api.WriteError(w, r, err)
		return
	}

	if rng.End, err = api.DateParam(r, "end_date"); err != nil {
		api.WriteError(w, r, err)
		return
	}

	sum, err := h.svc.Summary(r.Context(), auth.UserID(r.Context()), rng)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, toSummaryResponse(sum))
}

func toSummaryResponse(sum *dashboard.Summary) summaryResponse {
	resp := summaryResponse{
		TotalMonthlySpend:     sum.TotalMonthlySpend.Round(2),
		TotalAvailableCash:    sum.TotalAvailableCash.Round(2),
		EstimatedByDepartment: toNamed(sum.EstimatedByDepartment),
		PaidByDepartment:      toNamed(sum.PaidByDepartment),
		PaidByAccount:         toNamed(sum.PaidByAccount),
		PaidBySubscription:    toNamed(sum.PaidBySubscription),
		SpendByWallet:         toNamed(sum.SpendByWallet),
		UpcomingRenewals:      make([]renewal, len(sum.UpcomingRenewals)),
		Groups:                make([]group, len(sum.Groups)),
	}

	for i, rn := range sum.UpcomingRenewals {
		resp.UpcomingRenewals[i] = renewal{
			SubscriptionID: rn.SubscriptionID,
			Name:           rn.Name,
			Date:           rn.Date,
			DaysLeft:       rn.DaysLeft,
			MonthlyCost:    rn.MonthlyCost.Round(2),
		}
	}

	for i, g := range sum.Groups {
		subs := make([]subscriptionTotal, len(g.Subscriptions))
		for j, s := range g.Subscriptions {
			subs[j] = subscriptionTotal{
				ID:         s.ID,
				Name:       s.Name,
				BaseAmount: s.BaseAmount,
				UserCount:  s.UserCount,
				TotalPaid:  s.TotalPaid,
			}
		}

		resp.Groups[i] = group{DepartmentID: g.DepartmentID, Name: g.Name, Subscriptions: subs}
	}

	return resp
}

// toNamed rounds allocated amounts to cents for display.
func toNamed(in []dashboard.NamedAmount) []namedAmount {
	out := make([]namedAmount, len(in))
	for i, n := range in {
		out[i] = namedAmount{ID: n.ID, Name: n.Name, Amount: n.Amount.Round(2)}
	}

	return out
}
