package catalog

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/subledger/internal/catalog"
	"github.com/MrJamesThe3rd/subledger/internal/http/api"
	"github.com/MrJamesThe3rd/subledger/internal/http/auth"
)

type Handler struct {
	svc *catalog.Service
}

func NewHandler(svc *catalog.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) DepartmentRoutes(r chi.Router) {
	r.Get("/", h.listDepartments)
	r.Post("/", h.createDepartment)
}

func (h *Handler) AccountRoutes(r chi.Router) {
	r.Get("/", h.listAccounts)
	r.Post("/", h.createAccount)
}

type DepartmentResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type AccountResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func ToDepartmentResponses(deps []*catalog.Department) []DepartmentResponse {
	resp := make([]DepartmentResponse, len(deps))
	for i, d := range deps {
		resp[i] = DepartmentResponse{ID: d.ID, Name: d.Name, Color: d.Color, CreatedAt: d.CreatedAt}
	}

	return resp
}

func ToAccountResponses(accounts []*catalog.Account) []AccountResponse {
	resp := make([]AccountResponse, len(accounts))
	for i, a := range accounts {
		resp[i] = AccountResponse{ID: a.ID, Name: a.Name, Code: a.Code, CreatedAt: a.CreatedAt}
	}

	return resp
}

func (h *Handler) listDepartments(w http.ResponseWriter, r *http.Request) {
	deps, err := h.svc.ListDepartments(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, ToDepartmentResponses(deps))
}

type createDepartmentRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (h *Handler) createDepartment(w http.ResponseWriter, r *http.Request) {
	var req createDepartmentRequest
	if !api.Decode(w, r, &req) {
		return
	}

	d, err := h.svc.CreateDepartment(r.Context(), auth.UserID(r.Context()), req.Name, req.Color)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, ToDepartmentResponses([]*catalog.Department{d})[0])
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.ListAccounts(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, ToAccountResponses(accounts))
}

type createAccountRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if !api.Decode(w, r, &req) {
		return
	}

	a, err := h.svc.CreateAccount(r.Context(), auth.UserID(r.Context()), req.Name, req.Code)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, ToAccountResponses([]*catalog.Account{a})[0])
}
