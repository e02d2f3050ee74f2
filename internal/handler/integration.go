package handler

import (
	"net/http"
	"net/url"

	"github.com/conexx/hub/internal/service"
)

// IntegrationHandler drives the Google Analytics OAuth flow.
type IntegrationHandler struct {
	integrations *service.IntegrationService
	// returnURL receives the browser after the callback. Empty answers with JSON.
	returnURL string
}

// NewIntegrationHandler creates a new IntegrationHandler.
func NewIntegrationHandler(integrations *service.IntegrationService, returnURL string) *IntegrationHandler {
	return &IntegrationHandler{integrations: integrations, returnURL: returnURL}
}

// Authorize handles GET /api/integrations/google/authorize?tenantId=.
func (h *IntegrationHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}

	resp, err := h.integrations.Authorize(r.Context(), actor, r.URL.Query().Get("tenantId"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// Status handles GET /api/integrations/google/status?tenantId=.
func (h *IntegrationHandler) Status(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}

	st, err := h.integrations.Status(r.Context(), actor, r.URL.Query().Get("tenantId"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, st)
}

// Callback handles GET /api/integrations/google/callback.
func (h *IntegrationHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		JSON(w, http.StatusBadRequest, map[string]string{"error": "authorization denied: " + e})
		return
	}

	tenantID, err := h.integrations.Callback(r.Context(), q.Get("state"), q.Get("code"))
	if err != nil {
		Error(w, err)
		return
	}

	if h.returnURL == "" {
		JSON(w, http.StatusOK, map[string]interface{}{"success": true, "tenantId": tenantID})
		return
	}

	dest, err := url.Parse(h.returnURL)
	if err != nil {
		JSON(w, http.StatusOK, map[string]interface{}{"success": true, "tenantId": tenantID})
		return
	}
	v := dest.Query()
	v.Set("tenantId", tenantID)
	v.Set("connected", "google")
	dest.RawQuery = v.Encode()
	http.Redirect(w, r, dest.String(), http.StatusFound)
}
