package domain

import (
	"fmt"
	"regexp"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.\-]{3,30}$`)
	gameCodeRegex = regexp.MustCompile(`^[A-Z]{8}$`)
	phoneRegex    = regexp.MustCompile(`^\+?[0-9 \-]{6,15}$`)
)

// ValidateEmail checks if an email address is valid.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidateUsername checks the public player handle.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username must be 3-30 characters of letters, digits, '_', '.' or '-'")
	}
	return nil
}

// ValidateGameCode checks an 8-letter uppercase join code.
func ValidateGameCode(code string) error {
	if !gameCodeRegex.MatchString(code) {
		return fmt.Errorf("invalid game code: %s", code)
	}
	return nil
}

// ValidatePhoneNumber checks an optional contact number. Empty is allowed.
func ValidatePhoneNumber(phone string) error {
	if phone == "" {
		return nil
	}
	if !phoneRegex.MatchString(phone) {
		return fmt.Errorf("invalid phone number")
	}
	return nil
}

// ValidateNonNegativeAmount checks that an amount in cents is not negative.
// Buy-ins and cash-outs are physical cash, zero is legal.
func ValidateNonNegativeAmount(amount int64) error {
	if amount < 0 {
		return fmt.Errorf("amount must not be negative, got %d", amount)
	}
	return nil
}

// ValidatePositiveAmount checks that an amount in cents is positive.
func ValidatePositiveAmount(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive, got %d", amount)
	}
	return nil
}

// ValidateRating checks an episode rating on the 1-10 scale.
func ValidateRating(rating int) error {
	if rating < 1 || rating > 10 {
		return fmt.Errorf("rating must be between 1 and 10, got %d", rating)
	}
	return nil
}
