package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NewNotFoundError("Post", 1), fiber.StatusNotFound},
		{"validation", NewValidationError("bad"), fiber.StatusBadRequest},
		{"unauthorized", NewUnauthorizedError("no"), fiber.StatusUnauthorized},
		{"forbidden", NewForbiddenError("no"), fiber.StatusForbidden},
		{"conflict", NewConflictError("dup"), fiber.StatusConflict},
		{"wrapped", fmt.Errorf("load: %w", NewNotFoundError("Post", 2)), fiber.StatusNotFound},
		{"plain", errors.New("boom"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestHasCode(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("outer: %w", NewForbiddenError("not yours"))
	assert.True(t, HasCode(err, CodeForbidden))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeForbidden))
}

func TestOwnership(t *testing.T) {
	t.Parallel()

	p := &Post{AuthorID: 3}
	assert.True(t, p.IsAuthoredBy(3))
	assert.False(t, p.IsAuthoredBy(4))
	assert.False(t, (&Post{}).IsAuthoredBy(0))

	c := &Comment{AuthorID: 5}
	assert.True(t, c.IsAuthoredBy(5))
	assert.False(t, c.IsAuthoredBy(0))
}

func TestUserFullName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Ada Lovelace", (&User{Username: "ada", FirstName: "Ada", LastName: "Lovelace"}).FullName())
	assert.Equal(t, "ada", (&User{Username: "ada"}).FullName())
}

func TestFieldErrors(t *testing.T) {
	t.Parallel()

	fe := FieldErrors{}
	assert.False(t, fe.Any())

	fe.Add("title", "This field is required.")
	fe.Add(NonFieldErrors, "Broken.")
	assert.True(t, fe.Any())
	assert.True(t, fe.Has("title"))
	assert.False(t, fe.Has("text"))
	assert.Equal(t, "invalid form: __all__: Broken.; title: This field is required.", fe.Error())

	wrapped := fmt.Errorf("create post: %w", fe)
	got, ok := AsFieldErrors(wrapped)
	assert.True(t, ok)
	assert.Equal(t, []string{"This field is required."}, got.Get("title"))

	_, ok = AsFieldErrors(errors.New("plain"))
	assert.False(t, ok)
}
