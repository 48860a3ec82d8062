package handlers

import (
	"net/http"

	"github.com/markovtsev/ladder-system/middleware"
	"github.com/markovtsev/ladder-system/models"
	"github.com/markovtsev/ladder-system/services"
)

type PlayoffHandler struct {
	playoffService services.PlayoffService
}

func NewPlayoffHandler(playoffService services.PlayoffService) *PlayoffHandler {
	return &PlayoffHandler{playoffService: playoffService}
}

type startPlayoffsRequest struct {
	Format models.BracketFormat `json:"format"`
}

// Start seeds the playoff bracket from the current ladder. Admin-only.
func (h *PlayoffHandler) Start(w http.ResponseWriter, r *http.Request) {
	adminID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	seasonID, err := getIDParam(r, "seasonID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var input startPlayoffsRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	bracket, err := h.playoffService.StartPlayoffs(r.Context(), adminID, seasonID, input.Format)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"bracket": bracket}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetBracket returns the bracket tree with seasons, players and matches.
func (h *PlayoffHandler) GetBracket(w http.ResponseWriter, r *http.Request) {
	seasonID, err := getIDParam(r, "seasonID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	view, err := h.playoffService.GetBracketView(r.Context(), seasonID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, view, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
