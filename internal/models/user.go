package models

import "time"

// User represents a user account in the system. The pending verification
// code and its expiry live inline on the record; both are nil once the
// email has been verified.
type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	PasswordHash     string     `json:"-"` // Never expose this to the client
	FullName         string     `json:"fullName"`
	ProfilePicture   string     `json:"profilePicture"`
	IsEmailVerified  bool       `json:"isEmailVerified"`
	VerificationOTP  *string    `json:"-"`
	OTPExpiresAt     *time.Time `json:"-"`
	IsOnboarded      bool       `json:"isOnboarded"`
	Bio              string     `json:"bio"`
	NativeLanguage   string     `json:"nativeLanguage"`
	LearningLanguage string     `json:"learningLanguage"`
	Location         string     `json:"location"`
	CreatedAt        time.Time  `json:"createdAt"`
}
