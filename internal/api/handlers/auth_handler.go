package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/talkvia/talkvia-be/internal/auth"
	"github.com/talkvia/talkvia-be/internal/services"
)

// AuthHandler handles HTTP requests for the auth and onboarding flows.
type AuthHandler struct {
	service services.AuthServiceProvider
	secret  []byte
	ttl     time.Duration
	cookies auth.CookieConfig
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service services.AuthServiceProvider, secret []byte, ttl time.Duration, cookies auth.CookieConfig) *AuthHandler {
	return &AuthHandler{service: service, secret: secret, ttl: ttl, cookies: cookies}
}

// SignupPayload defines the structure for signup requests.
type SignupPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyPayload defines the structure for email verification requests.
type VerifyPayload struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// Signup handles new user registration.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var payload SignupPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.service.Signup(r.Context(), payload.Email, payload.Password, payload.FullName)
	if err != nil {
		log.Warn().Err(err).Str("email", payload.Email).Msg("Signup failed")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"message": "User created successfully. Please check your email for the verification code.",
		"email":   user.Email,
	})
}

// VerifyEmail handles OTP verification and issues the first session.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var payload VerifyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.service.VerifyEmail(r.Context(), payload.Email, payload.OTP)
	if err != nil {
		log.Warn().Err(err).Str("email", payload.Email).Msg("Email verification failed")
		respondServiceError(w, err)
		return
	}

	if !h.issueSession(w, user.ID) {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
}

// ResendVerification issues a fresh verification code to an unverified user.
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if payload.Email == "" {
		respondMessage(w, http.StatusBadRequest, "Email is required")
		return
	}

	if err := h.service.ResendVerification(r.Context(), payload.Email); err != nil {
		log.Warn().Err(err).Str("email", payload.Email).Msg("Resend verification failed")
		respondServiceError(w, err)
		return
	}

	respondMessage(w, http.StatusOK, "Verification code sent")
}

// Login handles user authentication and session issuance.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		log.Warn().Err(err).Str("email", payload.Email).Msg("Failed authentication attempt")
		respondServiceError(w, err)
		return
	}

	if !h.issueSession(w, user.ID) {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
}

// Logout clears the session cookie. Always succeeds; already-issued tokens
// stay valid until they expire.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, auth.ClearSessionCookie(h.cookies))
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "User logged out successfully"})
}

// Onboard applies the profile fields for the authenticated user.
func (h *AuthHandler) Onboard(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user claims from context")
		respondMessage(w, http.StatusInternalServerError, "Could not retrieve user from token")
		return
	}

	var fields services.OnboardingFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.service.Onboard(r.Context(), claims.UserID, fields)
	if err != nil {
		log.Warn().Err(err).Str("user_id", claims.UserID).Msg("Onboarding failed")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
}

// Me retrieves the currently authenticated user from the session.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user claims from context")
		respondMessage(w, http.StatusInternalServerError, "Could not retrieve user from token")
		return
	}

	user, err := h.service.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", claims.UserID).Msg("User from token not found")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// issueSession mints a session token and attaches it as a cookie. Reports
// whether the caller should continue writing the response.
func (h *AuthHandler) issueSession(w http.ResponseWriter, userID string) bool {
	token, err := auth.GenerateJWT(userID, h.secret, h.ttl)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to generate session token")
		respondMessage(w, http.StatusInternalServerError, "Something went wrong")
		return false
	}
	http.SetCookie(w, auth.SessionCookie(h.cookies, token))
	return true
}
