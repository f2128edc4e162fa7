package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/talkvia/talkvia-be/internal/auth"
	"github.com/talkvia/talkvia-be/internal/services"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

// respondServiceError maps an auth-flow error to its HTTP response. Anything
// not in the taxonomy becomes a generic 500; the detail stays in the logs.
func respondServiceError(w http.ResponseWriter, err error) {
	var missingErr *services.MissingFieldsError
	var policyErr *auth.PolicyError

	switch {
	case errors.As(err, &missingErr):
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"message":       "All fields are required",
			"missingFields": missingErr.Fields,
		})
	case errors.As(err, &policyErr):
		respondMessage(w, http.StatusBadRequest, policyErr.Reason)
	case errors.Is(err, services.ErrInvalidEmail):
		respondMessage(w, http.StatusBadRequest, "Email is not valid")
	case errors.Is(err, services.ErrEmailExists):
		respondMessage(w, http.StatusBadRequest, "Email already exists, please login or use a different email")
	case errors.Is(err, services.ErrInvalidOTP):
		respondMessage(w, http.StatusBadRequest, "Invalid or expired verification code")
	case errors.Is(err, services.ErrAlreadyVerified):
		respondMessage(w, http.StatusBadRequest, "Email is already verified")
	case errors.Is(err, services.ErrInvalidCredentials):
		respondMessage(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, services.ErrEmailNotVerified):
		respondMessage(w, http.StatusForbidden, "Please verify your email before logging in")
	case errors.Is(err, services.ErrUserNotFound):
		respondMessage(w, http.StatusNotFound, "User not found")
	case errors.Is(err, services.ErrEmailDispatch):
		respondMessage(w, http.StatusInternalServerError, "Failed to send verification email. Please try again later.")
	default:
		log.Error().Err(err).Msg("Unexpected error in auth flow")
		respondMessage(w, http.StatusInternalServerError, "Something went wrong")
	}
}
