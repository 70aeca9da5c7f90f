package service

import (
	"errors"

	"blogicum/internal/models"
)

// validationMessage returns the user-facing text of a validation AppError.
func validationMessage(err error) string {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
