package validation

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxUsernameLength matches the users.username column.
const MaxUsernameLength = 150

var usernameRegex = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

var emailRegex = regexp.MustCompile(`^[\p{L}\p{N}._%+\-']+@[\p{L}\p{N}](?:[\p{L}\p{N}\-]*[\p{L}\p{N}])?(?:\.[\p{L}\p{N}](?:[\p{L}\p{N}\-]*[\p{L}\p{N}])?)*\.[\p{L}]{2,}$`)

// reservedUsernames would shadow fixed /profile/ routes. Routing is case
// insensitive, so the check is too.
var reservedUsernames = []string{"edit"}

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	if username == "" {
		return errors.New(msgRequired)
	}
	if n := utf8.RuneCountInString(username); n > MaxUsernameLength {
		return errors.New(formatMaxLength(MaxUsernameLength, n))
	}
	if !usernameRegex.MatchString(username) {
		return errors.New("Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	}
	for _, reserved := range reservedUsernames {
		if strings.EqualFold(username, reserved) {
			return errors.New("This username is reserved.")
		}
	}
	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if len(email) > 254 {
		return errors.New(formatMaxLength(254, len(email)))
	}
	if !emailRegex.MatchString(email) {
		return errors.New(msgInvalidEmail)
	}
	// net/mail rejects the quoted and bracketed forms the regex lets slip.
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return errors.New(msgInvalidEmail)
	}
	return nil
}

// NormalizeEmail lowercases the domain part like the account manager does.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at+1] + strings.ToLower(email[at+1:])
}
