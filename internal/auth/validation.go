package auth

import "strings"

// MinPasswordLength is the minimum accepted password length at registration.
const MinPasswordLength = 8

// ValidateEmail checks if an email has a valid format.
func ValidateEmail(email string) bool {
	// A very basic email validation check
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	return strings.Contains(email[at:], ".")
}

// ValidatePassword checks if a password meets the length requirement.
func ValidatePassword(password string) bool {
	return len(password) >= MinPasswordLength
}
