package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"sparkpro/desk/internal/accounts"
	"sparkpro/desk/internal/domain"
)

func (a *API) handleCatalog(w http.ResponseWriter, r *http.Request) {
	cat, err := a.service.Catalog(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func (a *API) handleCatalogRefresh(w http.ResponseWriter, r *http.Request) {
	cat, err := a.service.RefreshCatalog(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func (a *API) handleCustomerInvoices(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 50, 500)
	invoices, err := a.service.ListInvoices(r.Context(), chi.URLParam(r, "customerID"), limit)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}

func (a *API) handleInvoice(w http.ResponseWriter, r *http.Request) {
	invoice, err := a.service.GetInvoice(r.Context(), chi.URLParam(r, "invoiceID"))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invoice)
}

func (a *API) handleGiftBoxes(w http.ResponseWriter, r *http.Request) {
	boxes, err := a.service.ListGiftBoxes(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"giftBoxes": boxes})
}

func (a *API) handleGiftBoxCreate(w http.ResponseWriter, r *http.Request) {
	var req domain.GiftBoxRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	box, err := a.service.CreateGiftBox(r.Context(), req)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, box)
}

func (a *API) handleGiftBoxUpdate(w http.ResponseWriter, r *http.Request) {
	var req domain.GiftBoxRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	box, err := a.service.UpdateGiftBox(r.Context(), chi.URLParam(r, "giftBoxID"), req)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, box)
}

func (a *API) handleSubAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := a.service.ListSubAdmins(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subAdmins": admins})
}

func (a *API) handleSubAdminCreate(w http.ResponseWriter, r *http.Request) {
	var form accounts.SubAdminForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	admin, err := a.service.CreateSubAdmin(r.Context(), form)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, admin)
}

func (a *API) handleSubAdminUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Changes []accounts.FieldChange `json:"changes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	admin, err := a.service.UpdateSubAdmin(r.Context(), chi.URLParam(r, "subAdminID"), req.Changes)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, admin)
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)
	logs, err := a.service.ListAuditLogs(r.Context(), limit)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"auditLogs": logs})
}
