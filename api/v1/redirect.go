// Package v1 is the public, unauthenticated HTTP surface: short-link
// redirects.
package v1

import (
	"log/slog"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"linktally/internal/clicks"
	"linktally/internal/config"
	"linktally/internal/links"
)

// RedirectHandler resolves a short code, records the click and issues a 302
// to the destination. Unknown or empty destinations fall back to the site
// root without tracking. Destinations can change, so the redirect is always
// temporary.
func RedirectHandler(ctx *cartridge.Context) error {
	cfg := config.GetConfig()
	code := ctx.Params("code")

	link, err := links.GetLinkByShortCode(ctx.DB(), code)
	if err != nil {
		if _, notFound := err.(*links.LinkNotFoundError); !notFound {
			ctx.Logger.Error("Failed to resolve short code",
				slog.String("code", code), slog.Any("error", err))
		}
		return ctx.Redirect(cfg.BaseURL, fiber.StatusFound)
	}
	if link.DestinationURL == "" {
		return ctx.Redirect(cfg.BaseURL, fiber.StatusFound)
	}

	inboundQuery := queryValues(ctx.Ctx)

	input := clicks.RecordClickInput{
		Link:      link,
		IPAddress: getClientIP(ctx.Ctx),
		UserAgent: ctx.Get("User-Agent"),
		Referrer:  ctx.Get("Referer"),
		UTM:       clicks.UTMParamsFromQuery(inboundQuery),
	}
	if _, err := clicks.RecordClick(ctx.Logger, ctx.DB(), input); err != nil {
		// Degraded mode: losing one tracking record beats breaking the
		// visitor's link.
		ctx.Logger.Error("Failed to record click, redirecting anyway",
			slog.Uint64("link_id", uint64(link.ID)), slog.Any("error", err))
	}

	destination := appendUTMParams(link.DestinationURL, inboundQuery)
	return ctx.Redirect(destination, fiber.StatusFound)
}

// queryValues converts the fasthttp query args to url.Values.
func queryValues(c *fiber.Ctx) url.Values {
	values := url.Values{}
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		values.Add(string(key), string(value))
	})
	return values
}

// appendUTMParams forwards inbound utm_* parameters onto the destination
// URL. Parameters already present on the destination are left untouched.
func appendUTMParams(destination string, inbound url.Values) string {
	parsed, err := url.Parse(destination)
	if err != nil {
		return destination
	}

	query := parsed.Query()
	changed := false
	for _, key := range []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content"} {
		value := inbound.Get(key)
		if value == "" || query.Has(key) {
			continue
		}
		query.Set(key, value)
		changed = true
	}
	if !changed {
		return destination
	}

	parsed.RawQuery = query.Encode()
	return parsed.String()
}
