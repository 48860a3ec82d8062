package handlers

import (
	"net/http"

	"github.com/markovtsev/ladder-system/brackets"
	"github.com/markovtsev/ladder-system/services"
)

type LadderHandler struct {
	ladderService services.LadderService
	hub           *brackets.Hub
}

func NewLadderHandler(ladderService services.LadderService, hub *brackets.Hub) *LadderHandler {
	return &LadderHandler{ladderService: ladderService, hub: hub}
}

// Standings returns the dense 1..N ladder for a season.
func (h *LadderHandler) Standings(w http.ResponseWriter, r *http.Request) {
	seasonID, err := getIDParam(r, "seasonID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	standings, err := h.ladderService.Standings(r.Context(), seasonID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LadderHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	seasonID, err := getIDParam(r, "seasonID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	userID, err := getIDParam(r, "userID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	position, err := h.ladderService.GetPosition(r.Context(), seasonID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"position": position}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type insertPlayerRequest struct {
	UserID   int `json:"user_id"`
	Position int `json:"position"`
}

// InsertPlayer adds a player to the ladder at a desired position. Admin-only.
func (h *LadderHandler) InsertPlayer(w http.ResponseWriter, r *http.Request) {
	seasonID, err := getIDParam(r, "seasonID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var input insertPlayerRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	position, err := h.ladderService.InsertPlayer(r.Context(), seasonID, input.UserID, input.Position)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	h.broadcastLadder(r, seasonID)
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"position": position}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RemovePlayer retires a player from the ladder. Admin-only.
func (h *LadderHandler) RemovePlayer(w http.ResponseWriter, r *http.Request) {
	seasonID, err := getIDParam(r, "seasonID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	userID, err := getIDParam(r, "userID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	if err := h.ladderService.RemovePlayer(r.Context(), seasonID, userID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	h.broadcastLadder(r, seasonID)
	w.WriteHeader(http.StatusNoContent)
}

// RepairPositions renumbers any stranded sentinel rows. Admin-only.
func (h *LadderHandler) RepairPositions(w http.ResponseWriter, r *http.Request) {
	seasonID, err := getIDParam(r, "seasonID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	repaired, err := h.ladderService.RepairPositions(r.Context(), seasonID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if repaired > 0 {
		h.broadcastLadder(r, seasonID)
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"repaired": repaired}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LadderHandler) broadcastLadder(r *http.Request, seasonID int) {
	standings, err := h.ladderService.Standings(r.Context(), seasonID)
	if err != nil {
		return
	}
	h.hub.BroadcastToRoom(brackets.SeasonRoom(seasonID), brackets.Event{
		Type:    brackets.EventLadderUpdated,
		Payload: standings,
	})
}
