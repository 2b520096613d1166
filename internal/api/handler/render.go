package handler

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/shoehub/inventory-system/internal/core/domain"
)

// bind decodes the request body and runs the registered validator.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.NewValidationError("Invalid request payload")
	}
	if c.Echo().Validator == nil {
		return nil
	}
	if err := c.Validate(req); err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			return ve
		}
		return domain.NewValidationError("%s", err.Error())
	}
	return nil
}
