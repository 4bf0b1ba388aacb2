package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pokernight/platform/internal/domain"
	"github.com/pokernight/platform/internal/guard"
	"github.com/pokernight/platform/internal/service"
)

// GameHandler handles the game lifecycle endpoints.
type GameHandler struct {
	gameSvc    *service.GameService
	endRetries *guard.IdempotencyGuard
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(gameSvc *service.GameService) *GameHandler {
	return &GameHandler{gameSvc: gameSvc, endRetries: guard.NewIdempotencyGuard()}
}

// Create handles POST /games.
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _, err := callerID(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var input service.CreateGameInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	game, err := h.gameSvc.Create(r.Context(), userID, input)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, game)
}

// Join handles POST /games/join.
func (h *GameHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID, _, err := callerID(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var body struct {
		Code string `json:"code"`
	}
	if err := DecodeJSON(r, &body); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	code, err := gameCode(body.Code)
	if err != nil {
		RespondError(w, err)
		return
	}

	membership, err := h.gameSvc.Join(r.Context(), userID, code)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, membership)
}

// Membership handles GET /games/{code}/membership.
func (h *GameHandler) Membership(w http.ResponseWriter, r *http.Request) {
	userID, _, err := callerID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	code, err := gameCode(chi.URLParam(r, "code"))
	if err != nil {
		RespondError(w, err)
		return
	}

	status, err := h.gameSvc.CheckMembership(r.Context(), userID, code)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, status)
}

// Players handles GET /games/{code}/players.
func (h *GameHandler) Players(w http.ResponseWriter, r *http.Request) {
	userID, claims, err := callerID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	code, err := gameCode(chi.URLParam(r, "code"))
	if err != nil {
		RespondError(w, err)
		return
	}

	result, err := h.gameSvc.PlayerList(r.Context(), userID, claims.IsSuperuser, code)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, result)
}

// Action handles POST /games/{code}/actions: a rebuy for the named player,
// or an undo of their last one.
func (h *GameHandler) Action(w http.ResponseWriter, r *http.Request) {
	_, claims, err := callerID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	code, err := gameCode(chi.URLParam(r, "code"))
	if err != nil {
		RespondError(w, err)
		return
	}

	var body struct {
		Username string `json:"username"`
		Undo     bool   `json:"undo"`
	}
	if err := DecodeJSON(r, &body); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	if body.Username == "" {
		RespondError(w, domain.ErrValidation("username is required"))
		return
	}

	if body.Undo {
		err = h.gameSvc.UndoRebuy(r.Context(), claims.IsSuperuser, code, body.Username)
	} else {
		err = h.gameSvc.Rebuy(r.Context(), code, body.Username)
	}
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Data handles GET /games/{code}/data.
func (h *GameHandler) Data(w http.ResponseWriter, r *http.Request) {
	code, err := gameCode(chi.URLParam(r, "code"))
	if err != nil {
		RespondError(w, err)
		return
	}
	data, err := h.gameSvc.Data(r.Context(), code)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, data)
}

// Additional handles GET /games/{code}/additional-data.
func (h *GameHandler) Additional(w http.ResponseWriter, r *http.Request) {
	code, err := gameCode(chi.URLParam(r, "code"))
	if err != nil {
		RespondError(w, err)
		return
	}
	data, err := h.gameSvc.Additional(r.Context(), code)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, data)
}

// End handles POST /games/{code}/end.
func (h *GameHandler) End(w http.ResponseWriter, r *http.Request) {
	_, claims, err := callerID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	code, err := gameCode(chi.URLParam(r, "code"))
	if err != nil {
		RespondError(w, err)
		return
	}

	var body struct {
		Players []service.PlayerResultInput `json:"players"`
	}
	if err := DecodeJSON(r, &body); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	idemKey := r.Header.Get("Idempotency-Key")
	if result := h.endRetries.Check(r.Context(), idemKey); !result.Allowed {
		RespondError(w, domain.ErrConflict(result.Reason))
		return
	}

	result, err := h.gameSvc.EndGame(r.Context(), claims.IsSuperuser, code, body.Players)
	if err != nil {
		// Free the key so a corrected request can retry.
		h.endRetries.Remove(idemKey)
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, result)
}

func gameCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if err := domain.ValidateGameCode(code); err != nil {
		return "", domain.ErrValidation(err.Error())
	}
	return code, nil
}
