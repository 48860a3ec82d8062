package handlers

import (
	"net/http"

	"github.com/markovtsev/ladder-system/middleware"
	"github.com/markovtsev/ladder-system/models"
	"github.com/markovtsev/ladder-system/services"
)

type ChallengeHandler struct {
	challengeService services.ChallengeService
}

func NewChallengeHandler(challengeService services.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{challengeService: challengeService}
}

func (h *ChallengeHandler) Create(w http.ResponseWriter, r *http.Request) {
	challengerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}

	var input services.CreateChallengeInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	challenge, err := h.challengeService.Create(r.Context(), challengerID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"challenge": challenge}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ChallengeHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	challengeID, err := getIDParam(r, "challengeID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	challenge, err := h.challengeService.GetByID(r.Context(), challengeID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"challenge": challenge}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ChallengeHandler) ListBySeason(w http.ResponseWriter, r *http.Request) {
	seasonID, err := getIDParam(r, "seasonID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var status *models.ChallengeStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := models.ChallengeStatus(raw)
		status = &s
	}

	challenges, err := h.challengeService.ListBySeason(r.Context(), seasonID, status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"challenges": challenges}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ChallengeHandler) Accept(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	challengeID, err := getIDParam(r, "challengeID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var input services.AcceptChallengeInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	challenge, match, err := h.challengeService.Accept(r.Context(), challengeID, userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"challenge": challenge, "match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ChallengeHandler) Decline(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	challengeID, err := getIDParam(r, "challengeID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	if err := h.challengeService.Decline(r.Context(), challengeID, userID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChallengeHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	challengeID, err := getIDParam(r, "challengeID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	if err := h.challengeService.Withdraw(r.Context(), challengeID, userID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// WildcardsRemaining reports how many wildcard challenges the caller still
// has this season.
func (h *ChallengeHandler) WildcardsRemaining(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	seasonID, err := getIDParam(r, "seasonID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	remaining, err := h.challengeService.WildcardsRemaining(r.Context(), seasonID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"wildcards_remaining": remaining}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
