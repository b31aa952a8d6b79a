package transaction

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/subledger/internal/errs"
	"github.com/MrJamesThe3rd/subledger/internal/http/api"
	"github.com/MrJamesThe3rd/subledger/internal/http/auth"
	"github.com/MrJamesThe3rd/subledger/internal/ledger"
)

type Handler struct {
	svc *ledger.Service
}

func NewHandler(svc *ledger.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type createTransactionRequest struct {
	Type            ledger.Type      `json:"type"`
	Amount          decimal.Decimal  `json:"amount"`
	Date            *api.Date        `json:"date,omitempty"`
	FromWalletID    *uuid.UUID       `json:"from_wallet_id,omitempty"`
	ToWalletID      *uuid.UUID       `json:"to_wallet_id,omitempty"`
	SubscriptionID  *uuid.UUID       `json:"subscription_id,omitempty"`
	Description     string           `json:"description"`
	VATAmount       *decimal.Decimal `json:"vat_amount,omitempty"`
	NextRenewalDate *api.Date        `json:"next_renewal_date,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if !api.Decode(w, r, &req) {
		return
	}

	tx, err := h.svc.Create(r.Context(), auth.UserID(r.Context()), ledger.CreateParams{
		Type:            req.Type,
		Amount:          req.Amount,
		Date:            api.TimeOrZero(req.Date),
		FromWalletID:    req.FromWalletID,
		ToWalletID:      req.ToWalletID,
		SubscriptionID:  req.SubscriptionID,
		Description:     req.Description,
		VATAmount:       req.VATAmount,
		NextRenewalDate: api.Time(req.NextRenewalDate),
	})
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, ToResponse(tx))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	txs, err := h.svc.List(r.Context(), auth.UserID(r.Context()), filter)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, ToResponseList(txs))
}

func parseFilter(r *http.Request) (ledger.ListFilter, error) {
	q := r.URL.Query()
	filter := ledger.ListFilter{}

	if s := q.Get("type"); s != "" {
		filter.Type = new(ledger.Type(s))
	}

	for name, dst := range map[string]**uuid.UUID{
		"wallet_id":       &filter.WalletID,
		"subscription_id": &filter.SubscriptionID,
	} {
		s := q.Get(name)
		if s == "" {
			continue
		}

		id, err := uuid.Parse(s)
		if err != nil {
			return filter, errs.Invalid(name, "must be a uuid")
		}

		*dst = &id
	}

	var err error

	if filter.StartDate, err = api.DateParam(r, "start_date"); err != nil {
		return filter, err
	}

	if filter.EndDate, err = api.DateParam(r, "end_date"); err != nil {
		return filter, err
	}

	return filter, nil
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	tx, err := h.svc.Get(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, ToResponse(tx))
}

type updateTransactionRequest struct {
	Type            *ledger.Type     `json:"type,omitempty"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	Date            *api.Date        `json:"date,omitempty"`
	FromWalletID    *uuid.UUID       `json:"from_wallet_id,omitempty"`
	ToWalletID      *uuid.UUID       `json:"to_wallet_id,omitempty"`
	SubscriptionID  *uuid.UUID       `json:"subscription_id,omitempty"`
	Description     *string          `json:"description,omitempty"`
	VATAmount       *decimal.Decimal `json:"vat_amount,omitempty"`
	NextRenewalDate *api.Date        `json:"next_renewal_date,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req updateTransactionRequest
	if !api.Decode(w, r, &req) {
		return
	}

	tx, err := h.svc.Edit(r.Context(), auth.UserID(r.Context()), id, ledger.EditParams{
		Type:            req.Type,
		Amount:          req.Amount,
		Date:            api.Time(req.Date),
		FromWalletID:    req.FromWalletID,
		ToWalletID:      req.ToWalletID,
		SubscriptionID:  req.SubscriptionID,
		Description:     req.Description,
		VATAmount:       req.VATAmount,
		NextRenewalDate: api.Time(req.NextRenewalDate),
	})
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, ToResponse(tx))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), auth.UserID(r.Context()), id); err != nil {
		api.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}

	return id, true
}
