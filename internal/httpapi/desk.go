package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"sparkpro/desk/internal/domain"
)

func (a *API) handleDeskOpen(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.OpenDesk(r.Context(), chi.URLParam(r, "customerID"))
	a.respondDesk(w, view, err)
}

func (a *API) handleDeskView(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.Desk(r.Context(), chi.URLParam(r, "customerID"))
	a.respondDesk(w, view, err)
}

func (a *API) handleDeskClose(w http.ResponseWriter, r *http.Request) {
	if err := a.service.CloseDesk(r.Context(), chi.URLParam(r, "customerID")); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleProductSet(w http.ResponseWriter, r *http.Request) {
	var req domain.QuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := a.service.SetProductQuantity(r.Context(), chi.URLParam(r, "customerID"), chi.URLParam(r, "productID"), req.Quantity)
	a.respondDesk(w, view, err)
}

func (a *API) handleProductRemove(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.RemoveProduct(r.Context(), chi.URLParam(r, "customerID"), chi.URLParam(r, "productID"))
	a.respondDesk(w, view, err)
}

func (a *API) handleProductIncrement(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.IncrementProduct(r.Context(), chi.URLParam(r, "customerID"), chi.URLParam(r, "productID"))
	a.respondDesk(w, view, err)
}

func (a *API) handleProductDecrement(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.DecrementProduct(r.Context(), chi.URLParam(r, "customerID"), chi.URLParam(r, "productID"))
	a.respondDesk(w, view, err)
}

func (a *API) handleGiftLineSet(w http.ResponseWriter, r *http.Request) {
	var req domain.QuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := a.service.SetGiftLineQuantity(r.Context(), chi.URLParam(r, "customerID"), chi.URLParam(r, "giftBoxID"), req.Quantity)
	a.respondDesk(w, view, err)
}

func (a *API) handleGiftLineRemove(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.RemoveGiftLine(r.Context(), chi.URLParam(r, "customerID"), chi.URLParam(r, "giftBoxID"))
	a.respondDesk(w, view, err)
}

func (a *API) handleGiftLineIncrement(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.IncrementGiftLine(r.Context(), chi.URLParam(r, "customerID"), chi.URLParam(r, "giftBoxID"))
	a.respondDesk(w, view, err)
}

func (a *API) handleGiftLineDecrement(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.DecrementGiftLine(r.Context(), chi.URLParam(r, "customerID"), chi.URLParam(r, "giftBoxID"))
	a.respondDesk(w, view, err)
}

func (a *API) handleGiftOptions(w http.ResponseWriter, r *http.Request) {
	options, err := a.service.GiftOptions(r.Context(), chi.URLParam(r, "customerID"))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"options": options})
}

func (a *API) handleGiftSelect(w http.ResponseWriter, r *http.Request) {
	var req domain.QuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := a.service.SelectGift(r.Context(), chi.URLParam(r, "customerID"), chi.URLParam(r, "giftBoxID"), req.Quantity)
	a.respondDesk(w, view, err)
}

func (a *API) handleGiftSelectIncrement(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.IncrementSelectedGift(r.Context(), chi.URLParam(r, "customerID"), chi.URLParam(r, "giftBoxID"))
	a.respondDesk(w, view, err)
}

func (a *API) handleGiftSelectDecrement(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.DecrementSelectedGift(r.Context(), chi.URLParam(r, "customerID"), chi.URLParam(r, "giftBoxID"))
	a.respondDesk(w, view, err)
}

func (a *API) handlePricing(w http.ResponseWriter, r *http.Request) {
	var req domain.PricingSettings
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := a.service.UpdatePricing(r.Context(), chi.URLParam(r, "customerID"), req)
	a.respondDesk(w, view, err)
}

func (a *API) handleSave(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.SaveDraft(r.Context(), chi.URLParam(r, "customerID"))
	a.respondDesk(w, view, err)
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	resp, err := a.service.Checkout(r.Context(), chi.URLParam(r, "customerID"))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) respondDesk(w http.ResponseWriter, view domain.DeskView, err error) {
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
