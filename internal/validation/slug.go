package validation

import (
	"errors"
	"regexp"
)

// MaxSlugLength matches the categories.slug column.
const MaxSlugLength = 64

var slugRegex = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// ValidateSlug validates a category slug for use in /category/{slug}/ URLs.
func ValidateSlug(slug string) error {
	if slug == "" {
		return errors.New(msgRequired)
	}
	if len(slug) > MaxSlugLength {
		return errors.New(formatMaxLength(MaxSlugLength, len(slug)))
	}
	if !slugRegex.MatchString(slug) {
		return errors.New("Enter a valid “slug” consisting of letters, numbers, underscores or hyphens.")
	}
	return nil
}
