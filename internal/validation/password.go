// Package validation provides input validation utilities
package validation

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// MinPasswordLength is the shortest password accepted by ValidatePassword.
const MinPasswordLength = 8

const maxSimilarity = 0.7

//go:embed common_passwords.txt
var commonPasswordsRaw string

var commonPasswords = func() map[string]struct{} {
	set := make(map[string]struct{})
	for _, line := range strings.Split(commonPasswordsRaw, "\n") {
		line = strings.ToLower(strings.TrimSpace(line))
		if line != "" && !strings.HasPrefix(line, "#") {
			set[line] = struct{}{}
		}
	}
	return set
}()

var nonWord = regexp.MustCompile(`\W+`)

// UserAttributes are the account fields a password must not resemble.
type UserAttributes struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
}

// ValidatePassword checks a password against every password rule and
// returns all failures joined together.
func ValidatePassword(password string, attrs UserAttributes) error {
	var errs []error
	if err := validateSimilarity(password, attrs); err != nil {
		errs = append(errs, err)
	}
	if len([]rune(password)) < MinPasswordLength {
		errs = append(errs, fmt.Errorf("This password is too short. It must contain at least %d characters.", MinPasswordLength))
	}
	if _, common := commonPasswords[strings.ToLower(strings.TrimSpace(password))]; common {
		errs = append(errs, errors.New("This password is too common."))
	}
	if password != "" && isAllDigits(password) {
		errs = append(errs, errors.New("This password is entirely numeric."))
	}
	return errors.Join(errs...)
}

// PasswordMessages splits the result of ValidatePassword into messages.
func PasswordMessages(err error) []string {
	if err == nil {
		return nil
	}
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func validateSimilarity(password string, attrs UserAttributes) error {
	if password == "" {
		return nil
	}
	pw := strings.ToLower(password)
	fields := []struct {
		label string
		value string
	}{
		{"username", attrs.Username},
		{"first name", attrs.FirstName},
		{"last name", attrs.LastName},
		{"email address", attrs.Email},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		value := strings.ToLower(f.value)
		parts := append(nonWord.Split(value, -1), value)
		for _, part := range parts {
			if part == "" {
				continue
			}
			if quickRatio(pw, part) >= maxSimilarity && similarity(pw, part) >= maxSimilarity {
				return fmt.Errorf("The password is too similar to the %s.", f.label)
			}
		}
	}
	return nil
}

// quickRatio is an upper bound on similarity computed from rune multisets.
func quickRatio(a, b string) float64 {
	ar, br := []rune(a), []rune(b)
	total := len(ar) + len(br)
	if total == 0 {
		return 1
	}
	avail := make(map[rune]int, len(br))
	for _, r := range br {
		avail[r]++
	}
	matches := 0
	for _, r := range ar {
		if avail[r] > 0 {
			avail[r]--
			matches++
		}
	}
	return 2 * float64(matches) / float64(total)
}

// similarity is the Ratcliff/Obershelp ratio: twice the number of runes in
// recursively matched common blocks divided by the combined length.
func similarity(a, b string) float64 {
	ar, br := []rune(a), []rune(b)
	total := len(ar) + len(br)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingRunes(ar, br)) / float64(total)
}

func matchingRunes(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	ai, bi, size := longestCommonBlock(a, b)
	if size == 0 {
		return 0
	}
	return size + matchingRunes(a[:ai], b[:bi]) + matchingRunes(a[ai+size:], b[bi+size:])
}

func longestCommonBlock(a, b []rune) (int, int, int) {
	bestA, bestB, best := 0, 0, 0
	prev := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		cur := make([]int, len(b)+1)
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > best {
					best = cur[j]
					bestA, bestB = i-best, j-best
				}
			}
		}
		prev = cur
	}
	return bestA, bestB, best
}
