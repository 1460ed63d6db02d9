package http

import (
	"errors"
	"fmt"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

// FieldError describes one rejected request field.
type FieldError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Bind fills req from path, query and body, applies `default` tags and runs
// `validate` tags. It returns nil when req is valid.
func Bind(c echo.Context, req interface{}) []FieldError {
	if err := c.Bind(req); err != nil {
		return toFieldErrors(err)
	}
	if err := defaults.Set(req); err != nil {
		return toFieldErrors(err)
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return toFieldErrors(err)
	}
	return nil
}

func toFieldErrors(err error) []FieldError {
	var invalid validator.ValidationErrors
	if errors.As(err, &invalid) {
		out := make([]FieldError, 0, len(invalid))
		for _, fe := range invalid {
			out = append(out, FieldError{
				Code:    "ERR_" + strings.ToUpper(fe.Tag()),
				Field:   fe.Field(),
				Message: describe(fe),
			})
		}
		return out
	}

	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg = fmt.Sprint(he.Message)
	}
	return []FieldError{{Code: "ERR_BIND", Message: msg}}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
