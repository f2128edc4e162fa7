package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/talkvia/talkvia-be/internal/auth"
	"github.com/talkvia/talkvia-be/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// Permissive on purpose; the OTP round trip is what actually proves the
// address works.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// OnboardingFields carries the profile fields a user submits to complete
// onboarding. All of them are required.
type OnboardingFields struct {
	FullName         string `json:"fullName"`
	Bio              string `json:"bio"`
	NativeLanguage   string `json:"nativeLanguage"`
	LearningLanguage string `json:"learningLanguage"`
	Location         string `json:"location"`
}

// VerificationMailer dispatches the verification code to a user's email.
type VerificationMailer interface {
	SendVerification(ctx context.Context, email, name, code string) error
}

// DirectorySyncer pushes user identity into the external chat directory.
// Every call is fire-and-forget from the caller's point of view.
type DirectorySyncer interface {
	Upsert(ctx context.Context, id, name, imageURL string) error
}

// AuthServiceProvider defines the interface for the auth flows.
type AuthServiceProvider interface {
	Signup(ctx context.Context, email, password, fullName string) (models.User, error)
	VerifyEmail(ctx context.Context, email, otp string) (models.User, error)
	ResendVerification(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (models.User, error)
	Onboard(ctx context.Context, userID string, fields OnboardingFields) (models.User, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
}

// AuthService drives a user through signup, email verification, login and
// onboarding against the credential store.
type AuthService struct {
	db            *sql.DB
	mailer        VerificationMailer
	directory     DirectorySyncer
	events        EventServiceProvider
	avatarBaseURL string
	callTimeout   time.Duration
}

// NewAuthService creates a new AuthService. callTimeout bounds each mail
// dispatch and directory sync call.
func NewAuthService(db *sql.DB, mailer VerificationMailer, directory DirectorySyncer, events EventServiceProvider, avatarBaseURL string, callTimeout time.Duration) *AuthService {
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	return &AuthService{
		db:            db,
		mailer:        mailer,
		directory:     directory,
		events:        events,
		avatarBaseURL: strings.TrimRight(avatarBaseURL, "/"),
		callTimeout:   callTimeout,
	}
}

// Signup registers a new user and dispatches the verification code. The
// user record is only durable once the code email went out; a dispatch
// failure deletes the record again (compensating action, the two steps are
// not atomic).
func (s *AuthService) Signup(ctx context.Context, email, password, fullName string) (models.User, error) {
	var missing []string
	if email == "" {
		missing = append(missing, "email")
	}
	if password == "" {
		missing = append(missing, "password")
	}
	if fullName == "" {
		missing = append(missing, "fullName")
	}
	if len(missing) > 0 {
		return models.User{}, &MissingFieldsError{Fields: missing}
	}

	if err := auth.ValidatePassword(password); err != nil {
		return models.User{}, err
	}

	email = normalizeEmail(email)
	if !emailPattern.MatchString(email) {
		return models.User{}, ErrInvalidEmail
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM users WHERE email = ?", email).Scan(&count); err != nil {
		return models.User{}, err
	}
	if count > 0 {
		return models.User{}, ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	code, err := auth.GenerateOTP()
	if err != nil {
		return models.User{}, err
	}
	expiresAt := time.Now().Add(auth.OTPValidity)

	user := models.User{
		ID:              uuid.New().String(),
		Email:           email,
		PasswordHash:    string(hashedPassword),
		FullName:        fullName,
		ProfilePicture:  fmt.Sprintf("%s/%d.png", s.avatarBaseURL, rand.IntN(100)+1),
		VerificationOTP: &code,
		OTPExpiresAt:    &expiresAt,
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, full_name, profile_picture, verification_otp, verification_otp_expires_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		user.ID, user.Email, user.PasswordHash, user.FullName, user.ProfilePicture, user.VerificationOTP, user.OTPExpiresAt)
	if err != nil {
		return models.User{}, err
	}

	if err := s.dispatchVerification(ctx, user.Email, user.FullName, code); err != nil {
		if _, delErr := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", user.ID); delErr != nil {
			log.Error().Err(delErr).Str("user_id", user.ID).Msg("Failed to roll back user after dispatch failure")
		}
		return models.User{}, fmt.Errorf("%w: %v", ErrEmailDispatch, err)
	}

	s.recordEvent("user.signup", "info", "User signed up: "+user.Email, &user.ID)

	user.PasswordHash = ""
	return user, nil
}

// VerifyEmail checks a presented code against the pending challenge. Wrong
// code, unknown email and expired code all surface the same error. An
// already verified user gets an idempotent success so the caller can still
// issue a fresh session.
func (s *AuthService) VerifyEmail(ctx context.Context, email, otp string) (models.User, error) {
	user, err := s.getUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrInvalidOTP
		}
		return models.User{}, err
	}

	if user.IsEmailVerified {
		user.PasswordHash = ""
		return user, nil
	}

	if user.VerificationOTP == nil || *user.VerificationOTP != otp || !user.OTPExpiresAt.After(time.Now()) {
		return models.User{}, ErrInvalidOTP
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE users SET is_email_verified = 1, verification_otp = NULL, verification_otp_expires_at = NULL WHERE id = ?",
		user.ID)
	if err != nil {
		return models.User{}, err
	}
	user.IsEmailVerified = true
	user.VerificationOTP = nil
	user.OTPExpiresAt = nil

	s.syncDirectory(ctx, user)
	s.recordEvent("user.verified", "info", "Email verified: "+user.Email, &user.ID)

	user.PasswordHash = ""
	return user, nil
}

// ResendVerification replaces the pending challenge with a fresh code and
// dispatches it. Unlike signup, a dispatch failure does not roll the new
// code back; the user can simply resend again.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.getUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}

	if user.IsEmailVerified {
		return ErrAlreadyVerified
	}

	code, err := auth.GenerateOTP()
	if err != nil {
		return err
	}
	expiresAt := time.Now().Add(auth.OTPValidity)

	_, err = s.db.ExecContext(ctx,
		"UPDATE users SET verification_otp = ?, verification_otp_expires_at = ? WHERE id = ?",
		code, expiresAt, user.ID)
	if err != nil {
		return err
	}

	s.recordEvent("user.resend_otp", "info", "Verification code resent: "+user.Email, &user.ID)

	if err := s.dispatchVerification(ctx, user.Email, user.FullName, code); err != nil {
		return fmt.Errorf("%w: %v", ErrEmailDispatch, err)
	}
	return nil
}

// Login verifies credentials. Unknown email and wrong password yield the
// same error; only a caller holding the correct password learns that the
// account is still unverified.
func (s *AuthService) Login(ctx context.Context, email, password string) (models.User, error) {
	var missing []string
	if email == "" {
		missing = append(missing, "email")
	}
	if password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return models.User{}, &MissingFieldsError{Fields: missing}
	}

	user, err := s.getUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}

	if !user.IsEmailVerified {
		return models.User{}, ErrEmailNotVerified
	}

	s.syncDirectory(ctx, user)
	s.recordEvent("user.login", "info", "User logged in: "+user.Email, &user.ID)

	user.PasswordHash = ""
	return user, nil
}

// Onboard applies the profile fields and flips the onboarded flag in a
// single update. The caller identity comes from the session, never from the
// request body.
func (s *AuthService) Onboard(ctx context.Context, userID string, fields OnboardingFields) (models.User, error) {
	var missing []string
	if fields.FullName == "" {
		missing = append(missing, "fullName")
	}
	if fields.Bio == "" {
		missing = append(missing, "bio")
	}
	if fields.NativeLanguage == "" {
		missing = append(missing, "nativeLanguage")
	}
	if fields.LearningLanguage == "" {
		missing = append(missing, "learningLanguage")
	}
	if fields.Location == "" {
		missing = append(missing, "location")
	}
	if len(missing) > 0 {
		return models.User{}, &MissingFieldsError{Fields: missing}
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET full_name = ?, bio = ?, native_language = ?, learning_language = ?, location = ?, is_onboarded = 1 WHERE id = ?",
		fields.FullName, fields.Bio, fields.NativeLanguage, fields.LearningLanguage, fields.Location, userID)
	if err != nil {
		return models.User{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.User{}, err
	}
	if affected == 0 {
		return models.User{}, ErrUserNotFound
	}

	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return models.User{}, err
	}

	s.syncDirectory(ctx, user)
	s.recordEvent("user.onboarded", "info", "User completed onboarding: "+user.Email, &user.ID)

	return user, nil
}

// GetUserByID retrieves a single user by their ID, sanitized for clients.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	user, err := s.scanUser(s.db.QueryRowContext(ctx, selectUser+" WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	user.PasswordHash = ""
	return user, nil
}

const selectUser = `SELECT id, email, password_hash, full_name, profile_picture, is_email_verified,
	verification_otp, verification_otp_expires_at, is_onboarded, bio, native_language,
	learning_language, location, created_at FROM users`

func (s *AuthService) getUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, selectUser+" WHERE email = ?", email))
}

func (s *AuthService) scanUser(row *sql.Row) (models.User, error) {
	var user models.User
	var otp sql.NullString
	var otpExpiresAt sql.NullTime
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &user.ProfilePicture,
		&user.IsEmailVerified, &otp, &otpExpiresAt, &user.IsOnboarded, &user.Bio,
		&user.NativeLanguage, &user.LearningLanguage, &user.Location, &user.CreatedAt)
	if err != nil {
		return models.User{}, err
	}
	if otp.Valid {
		user.VerificationOTP = &otp.String
	}
	if otpExpiresAt.Valid {
		user.OTPExpiresAt = &otpExpiresAt.Time
	}
	return user, nil
}

// dispatchVerification sends the code email, bounded by the call timeout.
func (s *AuthService) dispatchVerification(ctx context.Context, email, name, code string) error {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.mailer.SendVerification(ctx, email, name, code)
}

// syncDirectory pushes the identity to the chat directory. Failures are
// logged and never fail the transition that triggered the push.
func (s *AuthService) syncDirectory(ctx context.Context, user models.User) {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	if err := s.directory.Upsert(ctx, user.ID, user.FullName, user.ProfilePicture); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("Directory sync failed")
	}
}

// recordEvent writes to the audit trail; a write failure never fails a flow.
func (s *AuthService) recordEvent(eventType, level, message string, userID *string) {
	if err := s.events.Record(eventType, level, message, userID); err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Msg("Failed to record event")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
