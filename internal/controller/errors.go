package controller

import (
	"errors"
	"strings"

	"github.com/xpcollage/server/pkg/validator"
)

var ErrValidationError = errors.New("validation error")

type validationErrors []validator.ValidationError

func (v validationErrors) Error() string {
	messages := make([]string, 0, len(v))
	for _, e := range v {
		messages = append(messages, e.Message)
	}

	return ErrValidationError.Error() + ": " + strings.Join(messages, ", ")
}

func (v validationErrors) Unwrap() error {
	return ErrValidationError
}

func (c controller) validateInput(input any) error {
	if errs, ok := c.validate.Validate(input); !ok {
		return validationErrors(errs)
	}

	return nil
}
