package handler

import (
	"net/http"

	"github.com/conexx/hub/internal/domain"
	"github.com/conexx/hub/internal/service"
	"github.com/go-chi/chi/v5"
)

// TenantHandler handles store management endpoints.
type TenantHandler struct {
	tenants *service.TenantService
}

// NewTenantHandler creates a new TenantHandler.
func NewTenantHandler(tenants *service.TenantService) *TenantHandler {
	return &TenantHandler{tenants: tenants}
}

// List handles GET /api/admin/tenants.
func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.tenants.List(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, tenants)
}

// Create handles POST /api/admin/tenants.
func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTenantRequest
	if err := DecodeAndValidate(w, r, &req); err != nil {
		Error(w, err)
		return
	}

	t, err := h.tenants.Create(r.Context(), &req)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusCreated, t)
}

// Update handles PATCH /api/admin/tenants/{id}.
func (h *TenantHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateTenantRequest
	if err := DecodeAndValidate(w, r, &req); err != nil {
		Error(w, err)
		return
	}

	t, err := h.tenants.Update(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, t)
}

// ImportOrders handles PUT /api/admin/tenants/{id}/orders.
func (h *TenantHandler) ImportOrders(w http.ResponseWriter, r *http.Request) {
	var req domain.ImportOrdersRequest
	if err := DecodeAndValidate(w, r, &req); err != nil {
		Error(w, err)
		return
	}

	n, err := h.tenants.ImportOrders(r.Context(), chi.URLParam(r, "id"), req.Orders)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]int{"imported": n})
}

// Mine handles GET /api/tenants/mine.
func (h *TenantHandler) Mine(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}

	tenants, err := h.tenants.ListMine(r.Context(), actor)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, tenants)
}

// Get handles GET /api/tenants/{id}.
func (h *TenantHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}

	t, err := h.tenants.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, t)
}
