package handler

import (
	"net/http"
	"time"

	"github.com/conexx/hub/internal/domain"
	"github.com/conexx/hub/internal/service"
	"github.com/go-chi/chi/v5"
)

// FeeHandler serves weekly fee calculation and lifecycle endpoints.
type FeeHandler struct {
	calculator *service.FeeCalculator
	lifecycle  *service.FeeLifecycle
}

// NewFeeHandler creates a new FeeHandler.
func NewFeeHandler(calculator *service.FeeCalculator, lifecycle *service.FeeLifecycle) *FeeHandler {
	return &FeeHandler{calculator: calculator, lifecycle: lifecycle}
}

// List handles GET /api/fees?tenantId=&status=.
func (h *FeeHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}

	q := r.URL.Query()
	fees, err := h.lifecycle.List(r.Context(), actor, q.Get("tenantId"), q.Get("status"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, fees)
}

// Charge handles POST /api/fees/charge.
func (h *FeeHandler) Charge(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req domain.ChargeFeeRequest
	if err := DecodeAndValidate(w, r, &req); err != nil {
		Error(w, err)
		return
	}

	resp, err := h.lifecycle.RequestCharge(r.Context(), actor, &req)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// Cancel handles POST /api/fees/{id}/cancel.
func (h *FeeHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}

	fee, err := h.lifecycle.Cancel(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, fee)
}

// MarkPaid handles POST /api/admin/fees/mark-paid.
// The password is checked by the service so an empty one is reported as a validation error.
func (h *FeeHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req domain.MarkPaidRequest
	if err := DecodeAndValidate(w, r, &req); err != nil {
		Error(w, err)
		return
	}

	fee, err := h.lifecycle.MarkPaid(r.Context(), actor, &req)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, fee)
}

// Calculate handles POST /api/admin/fees/calculate.
func (h *FeeHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req domain.CalculateFeeRequest
	if err := DecodeAndValidate(w, r, &req); err != nil {
		Error(w, err)
		return
	}

	fee, err := h.calculator.Calculate(r.Context(), req.TenantID, req.WeekStart)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, fee)
}

// CalculateAll handles POST /api/admin/fees/calculate-all for the current week.
func (h *FeeHandler) CalculateAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.calculator.CalculateAll(r.Context(), time.Now())
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]int{"calculated": n})
}

// PreviewRetroactive handles POST /api/admin/fees/retroactive/preview.
func (h *FeeHandler) PreviewRetroactive(w http.ResponseWriter, r *http.Request) {
	var req domain.RetroactiveRequest
	if err := DecodeAndValidate(w, r, &req); err != nil {
		Error(w, err)
		return
	}

	lines, err := h.calculator.Preview(r.Context(), &req)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, lines)
}

// CommitRetroactive handles POST /api/admin/fees/retroactive/commit.
func (h *FeeHandler) CommitRetroactive(w http.ResponseWriter, r *http.Request) {
	var req domain.RetroactiveRequest
	if err := DecodeAndValidate(w, r, &req); err != nil {
		Error(w, err)
		return
	}

	created, err := h.calculator.Commit(r.Context(), &req)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]int{"created": created})
}
