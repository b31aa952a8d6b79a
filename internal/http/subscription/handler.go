package subscription

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/subledger/internal/allocation"
	"github.com/MrJamesThe3rd/subledger/internal/errs"
	"github.com/MrJamesThe3rd/subledger/internal/http/api"
	"github.com/MrJamesThe3rd/subledger/internal/http/auth"
	txhttp "github.com/MrJamesThe3rd/subledger/internal/http/transaction"
	"github.com/MrJamesThe3rd/subledger/internal/ledger"
	"github.com/MrJamesThe3rd/subledger/internal/subscription"
	"github.com/MrJamesThe3rd/subledger/internal/wallet"
)

var hundred = decimal.NewFromInt(100)

type Handler struct {
	subs    *subscription.Service
	wallets *wallet.Service
	ledger  *ledger.Service
}

func NewHandler(subs *subscription.Service, wallets *wallet.Service, engine *ledger.Service) *Handler {
	return &Handler{subs: subs, wallets: wallets, ledger: engine}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/payments", h.pay)
	r.Post("/{id}/refunds", h.refund)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	subs, err := h.subs.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, ToResponseList(subs))
}

type createSubscriptionRequest struct {
	Name                  string                    `json:"name"`
	BaseAmount            decimal.Decimal           `json:"base_amount"`
	BillingCycle          subscription.BillingCycle `json:"billing_cycle"`
	UserCount             int                       `json:"user_count"`
	Notes                 string                    `json:"notes"`
	Status                subscription.Status       `json:"status"`
	AllocationType        allocation.Type           `json:"allocation_type"`
	Departments           []allocation.Split        `json:"departments"`
	AccountAllocationType allocation.Type           `json:"account_allocation_type"`
	Accounts              []allocation.Split        `json:"accounts"`
	StartDate             *api.Date                 `json:"start_date,omitempty"`
	NextRenewalDate       *api.Date                 `json:"next_renewal_date,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createSubscriptionRequest
	if !api.Decode(w, r, &req) {
		return
	}

	sub, err := h.subs.Create(r.Context(), auth.UserID(r.Context()), subscription.CreateParams{
		Name:                  req.Name,
		BaseAmount:            req.BaseAmount,
		BillingCycle:          req.BillingCycle,
		UserCount:             req.UserCount,
		Notes:                 req.Notes,
		Status:                req.Status,
		AllocationType:        req.AllocationType,
		Departments:           req.Departments,
		AccountAllocationType: req.AccountAllocationType,
		Accounts:              req.Accounts,
		StartDate:             api.TimeOrZero(req.StartDate),
		NextRenewalDate:       api.TimeOrZero(req.NextRenewalDate),
	})
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, ToResponse(sub))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	sub, err := h.subs.Get(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, ToResponse(sub))
}

type updateSubscriptionRequest struct {
	Name                  *string                    `json:"name,omitempty"`
	BaseAmount            *decimal.Decimal           `json:"base_amount,omitempty"`
	BillingCycle          *subscription.BillingCycle `json:"billing_cycle,omitempty"`
	UserCount             *int                       `json:"user_count,omitempty"`
	Notes                 *string                    `json:"notes,omitempty"`
	Status                *subscription.Status       `json:"status,omitempty"`
	AllocationType        *allocation.Type           `json:"allocation_type,omitempty"`
	Departments           []allocation.Split         `json:"departments,omitempty"`
	AccountAllocationType *allocation.Type           `json:"account_allocation_type,omitempty"`
	Accounts              []allocation.Split         `json:"accounts,omitempty"`
	StartDate             *api.Date                  `json:"start_date,omitempty"`
	NextRenewalDate       *api.Date                  `json:"next_renewal_date,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req updateSubscriptionRequest
	if !api.Decode(w, r, &req) {
		return
	}

	sub, err := h.subs.Update(r.Context(), auth.UserID(r.Context()), id, subscription.UpdateParams{
		Name:                  req.Name,
		BaseAmount:            req.BaseAmount,
		BillingCycle:          req.BillingCycle,
		UserCount:             req.UserCount,
		Notes:                 req.Notes,
		Status:                req.Status,
		AllocationType:        req.AllocationType,
		Departments:           req.Departments,
		AccountAllocationType: req.AccountAllocationType,
		Accounts:              req.Accounts,
		StartDate:             api.Time(req.StartDate),
		NextRenewalDate:       api.Time(req.NextRenewalDate),
	})
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, ToResponse(sub))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.subs.Delete(r.Context(), auth.UserID(r.Context()), id); err != nil {
		api.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type paymentRequest struct {
	WalletID        uuid.UUID        `json:"wallet_id"`
	BaseAmount      decimal.Decimal  `json:"base_amount"`
	VATAmount       *decimal.Decimal `json:"vat_amount,omitempty"`
	VATRate         *decimal.Decimal `json:"vat_rate,omitempty"` // percent of base_amount, ignored when vat_amount is set
	Date            *api.Date        `json:"date,omitempty"`
	NextRenewalDate *api.Date        `json:"next_renewal_date,omitempty"`
	Description     string           `json:"description"`
}

// vat resolves the VAT part of a payment, rounded to cents when derived from a rate.
func (req paymentRequest) vat() (*decimal.Decimal, error) {
	switch {
	case req.VATAmount != nil:
		if req.VATAmount.IsNegative() {
			return nil, errs.Invalid("vat_amount", "must not be negative")
		}

		return req.VATAmount, nil
	case req.VATRate != nil:
		if req.VATRate.IsNegative() {
			return nil, errs.Invalid("vat_rate", "must not be negative")
		}

		return new(req.BaseAmount.Mul(*req.VATRate).Div(hundred).Round(2)), nil
	}

	return nil, nil
}

// pay charges base plus VAT to the wallet. The wallet must cover the total.
func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req paymentRequest
	if !api.Decode(w, r, &req) {
		return
	}

	if !req.BaseAmount.IsPositive() {
		api.WriteError(w, r, errs.Invalid("base_amount", "must be positive"))
		return
	}

	vat, err := req.vat()
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	total := req.BaseAmount
	if vat != nil {
		total = total.Add(*vat)
	}

	ctx := r.Context()
	userID := auth.UserID(ctx)

	if _, err := h.subs.Get(ctx, userID, id); err != nil {
		api.WriteError(w, r, err)
		return
	}

	if err := h.wallets.EnsureFunds(ctx, userID, req.WalletID, total); err != nil {
		api.WriteError(w, r, err)
		return
	}

	tx, err := h.ledger.RecordPayment(ctx, userID, ledger.PaymentParams{
		SubscriptionID:  id,
		WalletID:        req.WalletID,
		Amount:          total,
		Date:            api.TimeOrZero(req.Date),
		NextRenewalDate: api.Time(req.NextRenewalDate),
		VATAmount:       vat,
		Description:     req.Description,
	})
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, txhttp.ToResponse(tx))
}

type refundRequest struct {
	WalletID    uuid.UUID       `json:"wallet_id"`
	Amount      decimal.Decimal `json:"amount"`
	Date        *api.Date       `json:"date,omitempty"`
	Description string          `json:"description"`
}

func (h *Handler) refund(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req refundRequest
	if !api.Decode(w, r, &req) {
		return
	}

	if !req.Amount.IsPositive() {
		api.WriteError(w, r, errs.Invalid("amount", "must be positive"))
		return
	}

	ctx := r.Context()
	userID := auth.UserID(ctx)

	if _, err := h.subs.Get(ctx, userID, id); err != nil {
		api.WriteError(w, r, err)
		return
	}

	tx, err := h.ledger.RecordRefund(ctx, userID, ledger.RefundParams{
		SubscriptionID: id,
		WalletID:       req.WalletID,
		Amount:         req.Amount,
		Date:           api.TimeOrZero(req.Date),
		Description:    req.Description,
	})
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, txhttp.ToResponse(tx))
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return uuid.Nil, false
	}

	return id, true
}
