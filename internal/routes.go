package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	v1 "linktally/api/v1"
	"linktally/internal/config"
	"linktally/internal/http"
)

// publicCORSConfig returns the standard CORS configuration for public endpoints.
// Redirects are followed from anywhere, so CORS stays permissive.
var publicCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Referrer, User-Agent",
}

// MountAppRoutes mounts all application routes using cartridge's route API
func MountAppRoutes(srv *cartridge.Server) {
	cfg := config.GetConfig()

	// Helper to conditionally apply rate limiting (only in production)
	// In development/test, rate limiting would interfere with testing
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// Rate limiter for the public redirect endpoint (300 requests per minute
	// per IP). Redirects are the hot path; the cap only exists to blunt abuse.
	redirectRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(300),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// Public redirect config. CORS runs first so rejected requests still
	// carry CORS headers.
	redirectConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		CustomMiddleware: []fiber.Handler{redirectRateLimiter},
		CORSConfig:       publicCORSConfig,
	}

	// Management API config. Callers are machine clients (the admin UI backend,
	// scripts), so the browser Sec-Fetch-Site guard is off. Writes are
	// serialized through the single-writer SQLite connection.
	apiConfig := &cartridge.RouteConfig{
		EnableSecFetchSite: cartridge.Bool(false),
	}

	// === PUBLIC ROUTES ===
	srv.Get("/go/:code", v1.RedirectHandler, redirectConfig)

	// Health check endpoint
	srv.Get("/health", http.HealthIndexAction)
	srv.Head("/health", http.HealthIndexAction)

	// === LINK MANAGEMENT API ===
	srv.Post("/api/v1/links", http.CreateLinkAction, apiConfig)
	srv.Get("/api/v1/links", http.ListLinksAction, apiConfig)
	srv.Get("/api/v1/links/:id", http.GetLinkAction, apiConfig)
	srv.Put("/api/v1/links/:id", http.UpdateLinkAction, apiConfig)
	srv.Delete("/api/v1/links/:id", http.DeleteLinkAction, apiConfig)
	srv.Get("/api/v1/links/:id/stats", http.LinkStatsAction, apiConfig)
	srv.Get("/api/v1/links/:id/embed", http.LinkEmbedAction, apiConfig)

	// === ANALYTICS API ===
	srv.Get("/api/v1/stats/dashboard", http.StatsDashboardAction, apiConfig)
	srv.Get("/api/v1/stats/summary", http.StatsSummaryAction, apiConfig)
	srv.Get("/api/v1/stats/timeseries", http.StatsTimeSeriesAction, apiConfig)
	srv.Get("/api/v1/stats/top-links", http.StatsTopLinksAction, apiConfig)
	srv.Get("/api/v1/stats/top-referrers", http.StatsTopReferrersAction, apiConfig)
	srv.Get("/api/v1/stats/breakdown/:dimension", http.StatsBreakdownAction, apiConfig)
	srv.Get("/api/v1/stats/validate", http.StatsValidateAction, apiConfig)

	// === SYSTEM API ===
	srv.Post("/api/v1/system/reset", http.SystemResetAction, apiConfig)
}
