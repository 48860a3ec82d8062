package handlers

import (
	"net/http"

	"github.com/markovtsev/ladder-system/middleware"
	"github.com/markovtsev/ladder-system/models"
	"github.com/markovtsev/ladder-system/services"
)

type MatchHandler struct {
	matchService   services.MatchService
	disputeService services.DisputeService
}

func NewMatchHandler(matchService services.MatchService, disputeService services.DisputeService) *MatchHandler {
	return &MatchHandler{matchService: matchService, disputeService: disputeService}
}

func (h *MatchHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	match, err := h.matchService.GetByID(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) ListBySeason(w http.ResponseWriter, r *http.Request) {
	seasonID, err := getIDParam(r, "seasonID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var matchType *models.MatchType
	if raw := r.URL.Query().Get("type"); raw != "" {
		t := models.MatchType(raw)
		matchType = &t
	}

	matches, err := h.matchService.ListBySeason(r.Context(), seasonID, matchType)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SubmitScore records a best-of-3 result reported by a participant.
func (h *MatchHandler) SubmitScore(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	matchID, err := getIDParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var input services.SubmitScoreInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	match, err := h.matchService.SubmitScore(r.Context(), matchID, userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Dispute flags a completed match result for admin review.
func (h *MatchHandler) Dispute(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	matchID, err := getIDParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	if err := h.disputeService.DisputeMatch(r.Context(), matchID, userID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResolveDispute confirms or reverses a disputed result. Admin-only.
func (h *MatchHandler) ResolveDispute(w http.ResponseWriter, r *http.Request) {
	adminID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	matchID, err := getIDParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var input services.ResolveDisputeInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	match, err := h.disputeService.ResolveDispute(r.Context(), matchID, adminID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
