package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pokernight/platform/internal/domain"
	"github.com/pokernight/platform/internal/service"
)

// DebtHandler handles the debt list and its send/accept transitions.
type DebtHandler struct {
	debtSvc *service.DebtService
}

// NewDebtHandler creates a new DebtHandler.
func NewDebtHandler(debtSvc *service.DebtService) *DebtHandler {
	return &DebtHandler{debtSvc: debtSvc}
}

// List handles GET /debts.
func (h *DebtHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _, err := callerID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	entries, err := h.debtSvc.List(r.Context(), userID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, entries)
}

// Send handles POST /debts/{id}/send.
func (h *DebtHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID, debtID, err := debtRequest(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	debt, err := h.debtSvc.Send(r.Context(), userID, debtID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, debt)
}

// Accept handles POST /debts/{id}/accept.
func (h *DebtHandler) Accept(w http.ResponseWriter, r *http.Request) {
	userID, debtID, err := debtRequest(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	debt, err := h.debtSvc.Accept(r.Context(), userID, debtID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, debt)
}

func debtRequest(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	userID, _, err := callerID(r)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	debtID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, domain.ErrValidation("invalid debt id")
	}
	return userID, debtID, nil
}
