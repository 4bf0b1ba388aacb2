package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pokernight/platform/internal/domain"
	"github.com/pokernight/platform/internal/service"
)

// EpisodeHandler handles the episode catalog and watch tracking.
type EpisodeHandler struct {
	episodeSvc *service.EpisodeService
}

// NewEpisodeHandler creates a new EpisodeHandler.
func NewEpisodeHandler(episodeSvc *service.EpisodeService) *EpisodeHandler {
	return &EpisodeHandler{episodeSvc: episodeSvc}
}

// List handles GET /episodes.
func (h *EpisodeHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _, err := callerID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	episodes, err := h.episodeSvc.List(r.Context(), userID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, episodes)
}

// Watch handles POST /episodes/{id}/watch.
func (h *EpisodeHandler) Watch(w http.ResponseWriter, r *http.Request) {
	userID, _, err := callerID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	episodeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid episode id"))
		return
	}

	watched, err := h.episodeSvc.ToggleWatch(r.Context(), userID, episodeID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]bool{"watched": watched})
}

// Progress handles GET /episodes/progress. An optional target query
// parameter (YYYY-MM-DD) adds the required daily pace to finish by then.
func (h *EpisodeHandler) Progress(w http.ResponseWriter, r *http.Request) {
	userID, _, err := callerID(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var target *time.Time
	if raw := r.URL.Query().Get("target"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			RespondError(w, domain.ErrValidation("invalid target date, expected YYYY-MM-DD"))
			return
		}
		target = &t
	}

	progress, err := h.episodeSvc.Progress(r.Context(), userID, target)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, progress)
}
