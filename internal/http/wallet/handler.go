package wallet

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/subledger/internal/errs"
	"github.com/MrJamesThe3rd/subledger/internal/http/api"
	"github.com/MrJamesThe3rd/subledger/internal/http/auth"
	txhttp "github.com/MrJamesThe3rd/subledger/internal/http/transaction"
	"github.com/MrJamesThe3rd/subledger/internal/ledger"
	"github.com/MrJamesThe3rd/subledger/internal/wallet"
)

type Handler struct {
	wallets *wallet.Service
	ledger  *ledger.Service
}

func NewHandler(wallets *wallet.Service, engine *ledger.Service) *Handler {
	return &Handler{wallets: wallets, ledger: engine}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/main/fund", h.fundMain)
	r.Post("/transfers", h.transfer)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	wallets, err := h.wallets.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, ToResponseList(wallets))
}

type createWalletRequest struct {
	Name       string  `json:"name"`
	HolderName *string `json:"holder_name,omitempty"`
}

// create only ever adds EMPLOYEE wallets; MAIN is provisioned by the snapshot.
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createWalletRequest
	if !api.Decode(w, r, &req) {
		return
	}

	wal, err := h.wallets.Create(r.Context(), auth.UserID(r.Context()), wallet.CreateParams{
		Name:       req.Name,
		HolderName: req.HolderName,
	})
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, ToResponse(wal))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	wal, err := h.wallets.Get(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, ToResponse(wal))
}

type updateWalletRequest struct {
	Name       *string        `json:"name,omitempty"`
	HolderName *string        `json:"holder_name,omitempty"`
	Status     *wallet.Status `json:"status,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req updateWalletRequest
	if !api.Decode(w, r, &req) {
		return
	}

	wal, err := h.wallets.Update(r.Context(), auth.UserID(r.Context()), id, wallet.UpdateParams{
		Name:       req.Name,
		HolderName: req.HolderName,
		Status:     req.Status,
	})
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, ToResponse(wal))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.wallets.Delete(r.Context(), auth.UserID(r.Context()), id); err != nil {
		api.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type fundRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Date        *api.Date       `json:"date,omitempty"`
	Description string          `json:"description"`
}

func (h *Handler) fundMain(w http.ResponseWriter, r *http.Request) {
	var req fundRequest
	if !api.Decode(w, r, &req) {
		return
	}

	if !req.Amount.IsPositive() {
		api.WriteError(w, r, errs.Invalid("amount", "must be positive"))
		return
	}

	tx, err := h.ledger.FundMain(r.Context(), auth.UserID(r.Context()), req.Amount, api.TimeOrZero(req.Date), req.Description)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, txhttp.ToResponse(tx))
}

type transferRequest struct {
	FromWalletID *uuid.UUID      `json:"from_wallet_id,omitempty"`
	ToWalletID   uuid.UUID       `json:"to_wallet_id"`
	Amount       decimal.Decimal `json:"amount"`
	Date         *api.Date       `json:"date,omitempty"`
}

// transfer moves money out of from_wallet_id, or MAIN when omitted, after
// checking that the source can cover it.
func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !api.Decode(w, r, &req) {
		return
	}

	if !req.Amount.IsPositive() {
		api.WriteError(w, r, errs.Invalid("amount", "must be positive"))
		return
	}

	ctx := r.Context()
	userID := auth.UserID(ctx)

	from := req.FromWalletID
	if from == nil {
		main, err := h.wallets.EnsureMain(ctx, userID)
		if err != nil {
			api.WriteError(w, r, err)
			return
		}

		from = &main.ID
	}

	if err := h.wallets.EnsureFunds(ctx, userID, *from, req.Amount); err != nil {
		api.WriteError(w, r, err)
		return
	}

	tx, err := h.ledger.Transfer(ctx, userID, *from, req.ToWalletID, req.Amount, api.TimeOrZero(req.Date))
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
