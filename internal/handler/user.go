package handler

import (
	"net/http"

	"github.com/pokernight/platform/internal/service"
)

// UserHandler handles the caller's own profile and reports.
type UserHandler struct {
	authSvc  *service.AuthService
	statsSvc *service.StatsService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(authSvc *service.AuthService, statsSvc *service.StatsService) *UserHandler {
	return &UserHandler{authSvc: authSvc, statsSvc: statsSvc}
}

// Me handles GET /users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _, err := callerID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	user, err := h.authSvc.Me(r.Context(), userID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, user)
}

// Superuser handles GET /users/me/superuser. The UI uses the flag to decide
// whether to show the table-admin controls.
func (h *UserHandler) Superuser(w http.ResponseWriter, r *http.Request) {
	_, claims, err := callerID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]bool{"is_superuser": claims.IsSuperuser})
}

// Stats handles GET /users/me/stats.
func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, _, err := callerID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	stats, err := h.statsSvc.UserStats(r.Context(), userID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, stats)
}

// PlotData handles GET /users/me/plot-data.
func (h *UserHandler) PlotData(w http.ResponseWriter, r *http.Request) {
	userID, _, err := callerID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	data, err := h.statsSvc.PlotData(r.Context(), userID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, data)
}
