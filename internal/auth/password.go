package auth

import "strings"

// PolicyError describes why a password failed the strength policy.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string { return e.Reason }

const specialChars = "@$!%*?&"

// ValidatePassword checks a password against the strength policy. Rules are
// evaluated in a fixed order and the first failed rule wins. Returns nil
// when all rules pass.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return &PolicyError{Reason: "Password must be at least 8 characters long"}
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, c := range password {
		switch {
		case c >= 'A' && c <= 'Z':
			hasUpper = true
		case c >= 'a' && c <= 'z':
			hasLower = true
		case c >= '0' && c <= '9':
			hasDigit = true
		case strings.ContainsRune(specialChars, c):
			hasSpecial = true
		}
	}

	if !hasUpper {
		return &PolicyError{Reason: "Password must contain at least one uppercase letter"}
	}
	if !hasLower {
		return &PolicyError{Reason: "Password must contain at least one lowercase letter"}
	}
	if !hasDigit {
		return &PolicyError{Reason: "Password must contain at least one number"}
	}
	if !hasSpecial {
		return &PolicyError{Reason: "Password must contain at least one special character (@$!%*?&)"}
	}

	return nil
}
