package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/distributor-portal/internal/handler"
	"github.com/iliyamo/distributor-portal/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and monitoring systems use this to verify that the
	// service is up.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the portal login endpoints.  Unauthenticated
// operations live under /v1/auth; /v1/me requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
	// Refresh rotates the refresh token: the presented one is revoked and
	// a new pair is returned.
	g.POST("/refresh", a.Refresh)
	// Logout accepts a refresh token in the body, or revokes every
	// session of the bearer when called authenticated without one.
	g.POST("/logout", a.Logout, middleware.OptionalJWTAuth(jwtSecret))

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("ADMIN", "DISTRIBUTOR"))
	auth.GET("/me", a.Me)
}

// RegisterPortal registers the single action-dispatch endpoint.  The JWT
// middleware here is optional because registration actions are public;
// the registry enforces each action's own auth requirement.
func RegisterPortal(e *echo.Echo, reg *handler.ActionRegistry, jwtSecret string, extra ...echo.MiddlewareFunc) {
	mw := append([]echo.MiddlewareFunc{middleware.OptionalJWTAuth(jwtSecret)}, extra...)
	e.POST("/v1/portal", reg.Dispatch, mw...)
}

// RegisterPublic registers the unauthenticated catalog and the
// marketplace webhooks.  The catalog route takes the response-cache
// middleware when caching is enabled.
func RegisterPublic(e *echo.Echo, cat *handler.CatalogHandler, wh *handler.WebhookHandler, cacheMW echo.MiddlewareFunc) {
	if cacheMW != nil {
		e.GET("/v1/apps", cat.ListApps, cacheMW)
	} else {
		e.GET("/v1/apps", cat.ListApps)
	}
	e.POST("/v1/webhooks/:platform", wh.Ingest)
}
