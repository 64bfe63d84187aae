// Package httpapi is the wire boundary: it decodes requests, dispatches to
// the service facade, and encodes responses. It carries no business logic.
package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"expenseindex/internal/logging"
	"expenseindex/internal/service"
)

// NewEcho builds an *echo.Echo with every route registered against svc.
func NewEcho(svc *service.Service, log logging.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(corsMiddleware)

	e.OPTIONS("/*", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	e.GET("/health", healthHandler(svc))
	e.GET("/stats", statsHandler(svc))
	e.POST("/index", indexHandler(svc, log))
	e.POST("/search", searchHandler(svc, log))

	return e
}

// corsMiddleware sets permissive CORS headers on every response, matching
// the facade's "no browser client is ever blocked" policy.
func corsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set("Access-Control-Allow-Origin", "*")
		c.Response().Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Response().Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		return next(c)
	}
}
