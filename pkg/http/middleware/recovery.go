package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	applogger "SignalTrader/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Recover turns handler panics into a 500 response.
func Recover(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			defer func() {
				if r := recover(); r != nil {
					err, ok := r.(error)
					if !ok {
						err = fmt.Errorf("%v", r)
					}
					if l != nil {
						l.Error("http handler panic",
							applogger.Error(err),
							applogger.String("path", c.Path()),
							applogger.String("stack", string(debug.Stack())),
						)
					}
					_ = c.JSON(http.StatusInternalServerError, map[string]interface{}{
						"status":  http.StatusInternalServerError,
						"message": http.StatusText(http.StatusInternalServerError),
					})
				}
			}()
			return next(c)
		}
	}
}
