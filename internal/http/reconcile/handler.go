package reconcile

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/subledger/internal/errs"
	"github.com/MrJamesThe3rd/subledger/internal/http/api"
	"github.com/MrJamesThe3rd/subledger/internal/http/auth"
	"github.com/MrJamesThe3rd/subledger/internal/reconcile"
)

type Handler struct {
	svc *reconcile.Service
}

func NewHandler(svc *reconcile.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.run)
}

type walletResult struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Stored    decimal.Decimal `json:"stored"`
	Computed  decimal.Decimal `json:"computed"`
	Drift     decimal.Decimal `json:"drift"`
	Corrected bool            `json:"corrected"`
}

type reportResponse struct {
	DryRun    bool           `json:"dry_run"`
	Checked   int            `json:"checked"`
	Drifted   int            `json:"drifted"`
	Corrected int            `json:"corrected"`
	Wallets   []walletResult `json:"wallets"`
}

// run reconciles the caller's wallets only. All-tenant runs go through ledgerctl.
func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	dryRun := false

	if s := r.URL.Query().Get("dry_run"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			api.WriteError(w, r, errs.Invalid("dry_run", "must be true or false"))
			return
		}

		dryRun = v
	}

	report, err := h.svc.Run(r.Context(), reconcile.Options{
		UserID: auth.UserID(r.Context()),
		DryRun: dryRun,
	})
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	resp := reportResponse{
		DryRun:    report.DryRun,
		Checked:   report.Checked,
		Drifted:   report.Drifted,
		Corrected: report.Corrected,
		Wallets:   make([]walletResult, len(report.Wallets)),
	}

	for i, wr := range report.Wallets {
		resp.Wallets[i] = walletResult{
			ID:        wr.ID,
			Name:      wr.Name,
			Stored:    wr.Stored,
			Computed:  wr.Computed,
			Drift:     wr.Drift,
			Corrected: wr.Corrected,
		}
	}

	api.WriteJSON(w, http.StatusOK, resp)
}
