package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Envelope is the body of every ops API response. Status mirrors the HTTP
// status line.
type Envelope struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes data wrapped in an Envelope with the given status.
func Respond(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, Envelope{
		Status:  status,
		Message: http.StatusText(status),
		Data:    data,
	})
}

func OK(c echo.Context, data interface{}) error {
	return Respond(c, http.StatusOK, data)
}

// Invalid reports request validation failures.
func Invalid(c echo.Context, fields []FieldError) error {
	return Respond(c, http.StatusBadRequest, fields)
}

// Fail writes err. An *AppError keeps its status and code; anything else is
// reported as a bare 500.
func Fail(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return Respond(c, appErr.Status, appErr)
	}
	return Respond(c, http.StatusInternalServerError, nil)
}
