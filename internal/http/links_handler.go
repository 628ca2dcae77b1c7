package http

import (
	"errors"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"linktally/internal/analytics"
	"linktally/internal/config"
	"linktally/internal/links"
)

// linkResponse decorates a link record with its resolved short URL.
type linkResponse struct {
	links.Link
	ShortURL string `json:"short_url"`
}

func presentLink(link *links.Link) linkResponse {
	cfg := config.GetConfig()
	return linkResponse{Link: *link, ShortURL: link.ShortURL(cfg.BaseURL)}
}

// linkIDParam parses the :id route parameter.
func linkIDParam(ctx *cartridge.Context) (uint, error) {
	id, err := ctx.ParamsInt("id")
	if err != nil || id < 1 {
		return 0, errors.New("invalid link id")
	}
	return uint(id), nil
}

// linkErrorResponse maps domain errors onto HTTP responses.
func linkErrorResponse(ctx *cartridge.Context, err error) error {
	var notFound *links.LinkNotFoundError
	var invalid *links.ValidationError
	switch {
	case errors.As(err, &notFound):
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": notFound.Error(), "code": "LINK_NOT_FOUND"})
	case errors.As(err, &invalid):
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": invalid.Error(), "code": "VALIDATION_FAILED"})
	case errors.Is(err, links.ErrCodeGenerationExhausted):
		return ctx.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error(), "code": "CODE_GENERATION_EXHAUSTED"})
	default:
		ctx.Logger.Error("Link operation failed", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
}

// CreateLinkAction registers a new short link.
func CreateLinkAction(ctx *cartridge.Context) error {
	var input links.CreateLinkInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "code": "INVALID_BODY"})
	}

	link, err := links.CreateLink(ctx.DB(), input)
	if err != nil {
		return linkErrorResponse(ctx, err)
	}

	ctx.Logger.Info("Created link",
		slog.Uint64("id", uint64(link.ID)), slog.String("short_code", link.ShortCode))

	cfg := config.GetConfig()
	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"link":      presentLink(link),
		"embed_tag": links.FormatAnchorTag(link, cfg.BaseURL, links.AnchorOptions{}),
	})
}

// ListLinksAction returns every live link.
func ListLinksAction(ctx *cartridge.Context) error {
	all, err := links.GetAllLinks(ctx.DB())
	if err != nil {
		return linkErrorResponse(ctx, err)
	}

	items := make([]linkResponse, len(all))
	for i := range all {
		items[i] = presentLink(&all[i])
	}
	return ctx.JSON(fiber.Map{"links": items})
}

// GetLinkAction returns a single link by ID.
func GetLinkAction(ctx *cartridge.Context) error {
	id, err := linkIDParam(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error(), "code": "INVALID_ID"})
	}

	link, err := links.GetLinkByID(ctx.DB(), id)
	if err != nil {
		return linkErrorResponse(ctx, err)
	}
	return ctx.JSON(fiber.Map{"link": presentLink(link)})
}

// UpdateLinkAction applies partial changes to a link.
func UpdateLinkAction(ctx *cartridge.Context) error {
	id, err := linkIDParam(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error(), "code": "INVALID_ID"})
	}

	var input links.UpdateLinkInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "code": "INVALID_BODY"})
	}

	link, err := links.UpdateLink(ctx.DB(), id, input)
	if err != nil {
		return linkErrorResponse(ctx, err)
	}

	ctx.Logger.Info("Updated link", slog.Uint64("id", uint64(link.ID)))
	return ctx.JSON(fiber.Map{"link": presentLink(link)})
}

// DeleteLinkAction soft-deletes a link. Its click history stays queryable
// until a hard delete.
func DeleteLinkAction(ctx *cartridge.Context) error {
	id, err := linkIDParam(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error(), "code": "INVALID_ID"})
	}

	if err := links.DeleteLink(ctx.DB(), id); err != nil {
		return linkErrorResponse(ctx, err)
	}

	ctx.Logger.Info("Deleted link", slog.Uint64("id", uint64(id)))
	return ctx.JSON(fiber.Map{"deleted": true})
}

// LinkStatsAction returns the per-link lifetime stats panel.
func LinkStatsAction(ctx *cartridge.Context) error {
	id, err := linkIDParam(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error(), "code": "INVALID_ID"})
	}

	stats, err := analytics.GetLinkStats(ctx.DB(), id)
	if err != nil {
		return linkErrorResponse(ctx, err)
	}
	return ctx.JSON(stats)
}

// LinkEmbedAction renders an embeddable anchor tag for a link, with optional
// text, class, and utm_* overrides taken from the query string.
func LinkEmbedAction(ctx *cartridge.Context) error {
	id, err := linkIDParam(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error(), "code": "INVALID_ID"})
	}

	link, err := links.GetLinkByID(ctx.DB(), id)
	if err != nil {
		return linkErrorResponse(ctx, err)
	}

	opts := links.AnchorOptions{
		Text:  ctx.Query("text"),
		Class: ctx.Query("class"),
		UTM:   utmFromQuery(ctx),
	}

	cfg := config.GetConfig()
	return ctx.JSON(fiber.Map{"embed_tag": links.FormatAnchorTag(link, cfg.BaseURL, opts)})
}

func utmFromQuery(ctx *cartridge.Context) map[string]string {
	utm := make(map[string]string)
	ctx.Context().QueryArgs().VisitAll(func(key, value []byte) {
		name := string(key)
		if len(name) > 4 && name[:4] == "utm_" {
			utm[name] = string(value)
		}
	})
	if len(utm) == 0 {
		return nil
	}
	return utm
}
