package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"quiz-attempt-engine/internal/domain"
	"quiz-attempt-engine/internal/grading"
)

// AuthorityHandler exposes the grading authority's two operations over REST.
type AuthorityHandler struct {
	service *grading.Service
}

func NewAuthorityHandler(service *grading.Service) *AuthorityHandler {
	return &AuthorityHandler{service: service}
}

// Register mounts the authority routes onto the mux.
func (h *AuthorityHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /quizzes/{quizID}/attempts", h.startAttempt)
	mux.HandleFunc("POST /attempts/{attemptID}/submission", h.submitAttempt)
}

func (h *AuthorityHandler) startAttempt(w http.ResponseWriter, r *http.Request) {
	quizID := r.PathValue("quizID")
	seed, err := h.service.StartAttempt(r.Context(), quizID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, seed)
}

type submitRequest struct {
	Answers []domain.AnswerPayload `json:"answers"`
}

func (h *AuthorityHandler) submitAttempt(w http.ResponseWriter, r *http.Request) {
	attemptID := r.PathValue("attemptID")
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid submission payload"})
		return
	}

	result, err := h.service.SubmitAttempt(r.Context(), attemptID, req.Answers)
	if err != nil {
		var already *domain.AlreadySubmittedError
		if errors.As(err, &already) {
			// Success-equivalent: hand the stored result back so the client
			// reconciles instead of erroring.
			writeJSON(w, http.StatusConflict, already.Result)
			return
		}
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AuthorityHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrQuizUnavailable), errors.Is(err, domain.ErrAttemptNotFound):
		writeJSON(w, http.StatusNotFound, errorPayload{Message: err.Error()})
	case errors.Is(err, domain.ErrNotAuthorized):
		writeJSON(w, http.StatusForbidden, errorPayload{Message: err.Error()})
	case errors.Is(err, domain.ErrAttemptExpired):
		writeJSON(w, http.StatusGone, errorPayload{Message: err.Error()})
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: err.Error()})
	default:
		log.Printf("grading authority error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorPayload{Message: "internal error"})
	}
}

type errorPayload struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}
