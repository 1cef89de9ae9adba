package catalog

import (
	"errors"

	"upgrade-tracker/core/logger"
	"upgrade-tracker/feature/catalog/models"
	"upgrade-tracker/feature/catalog/pathfind"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the catalog.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the catalog routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/catalog")
	group.Get("/ships", h.HandleListShips)
	group.Get("/resolve", h.HandleResolve)
	group.Get("/path/purchase/:to", h.HandlePurchasePath)
	group.Get("/path/upgrade/:from/:to", h.HandleUpgradePath)
	group.Get("/loaddate/:category", h.HandleLoadDate)
	group.Post("/refresh/:category", h.HandleRefresh)
	group.Post("/refresh", h.HandleRefreshAll)
}

// HandleListShips returns the reconciled ship catalog.
func (h *Handler) HandleListShips(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	ships, err := h.service.Ships(c.Context())
	if err != nil {
		l.Error("Ship listing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(ships)
}

// HandleResolve fuzzy-matches the q parameter to a canonical ship.
func (h *Handler) HandleResolve(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing query parameter q",
		})
	}

	match, ok := h.service.ResolveShipName(query)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "no ship matched the given text",
		})
	}

	return c.JSON(fiber.Map{
		"ship_id":      match.ShipID,
		"ship_name":    match.ShipName,
		"score":        match.Score,
		"needs_review": match.NeedsReview,
	})
}

// HandlePurchasePath returns the cheapest way to own the target ship
// starting from nothing. Pass unconfirmed=true to include community
// offers that have not been confirmed.
func (h *Handler) HandlePurchasePath(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	to, err := c.ParamsInt("to")
	if err != nil || to <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid ship id",
		})
	}

	path, err := h.service.PurchasePath(uint(to), queryOptions(c))
	if err != nil {
		return pathError(c, l, err)
	}
	if path == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "ship is not reachable from any purchase",
		})
	}

	return c.JSON(path)
}

// HandleUpgradePath returns the cheapest upgrade chain between two
// owned ships.
func (h *Handler) HandleUpgradePath(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	from, err := c.ParamsInt("from")
	if err != nil || from < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid source ship id",
		})
	}
	to, err := c.ParamsInt("to")
	if err != nil || to <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid target ship id",
		})
	}

	path, err := h.service.UpgradePath(uint(from), uint(to), queryOptions(c))
	if err != nil {
		return pathError(c, l, err)
	}
	if path == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "no upgrade chain connects the given ships",
		})
	}

	return c.JSON(path)
}

// HandleLoadDate returns the last successful refresh time for a category.
func (h *Handler) HandleLoadDate(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	cat, err := models.ParseCategory(c.Params("category"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	at, ok, err := h.service.LoadDate(c.Context(), cat)
	if err != nil {
		l.Error("Load date lookup failed", zap.String("category", string(cat)), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "category has never been loaded",
		})
	}

	return c.JSON(fiber.Map{
		"category": cat,
		"loaddate": at,
	})
}

// HandleRefresh updates a single category. Pass force=true to bypass
// the freshness gate.
func (h *Handler) HandleRefresh(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	cat, err := models.ParseCategory(c.Params("category"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	changed, err := h.service.Refresh(c.Context(), cat, c.QueryBool("force"))
	if err != nil {
		var stale *StaleDataRetainedError
		if errors.As(err, &stale) {
			l.Warn("Refresh kept stale data", zap.String("category", string(cat)), zap.Error(err))
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error":    err.Error(),
				"category": cat,
			})
		}
		l.Error("Refresh failed", zap.String("category", string(cat)), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"category": cat,
		"changed":  changed,
	})
}

// HandleRefreshAll updates every category in dependency order.
func (h *Handler) HandleRefreshAll(c *fiber.Ctx) error {
	results := h.service.RefreshAll(c.Context(), c.QueryBool("force"))

	out := make([]fiber.Map, 0, len(results))
	failed := false
	for _, r := range results {
		entry := fiber.Map{
			"category": r.Category,
			"changed":  r.Changed,
		}
		if r.Err != nil {
			entry["error"] = r.Err.Error()
			failed = true
		}
		out = append(out, entry)
	}

	status := fiber.StatusOK
	if failed {
		status = fiber.StatusBadGateway
	}
	return c.Status(status).JSON(out)
}

func queryOptions(c *fiber.Ctx) pathfind.QueryOptions {
	return pathfind.QueryOptions{IncludeUnconfirmed: c.QueryBool("unconfirmed")}
}

func pathError(c *fiber.Ctx, l *zap.Logger, err error) error {
	var usage *pathfind.GraphQueryError
	if errors.As(err, &usage) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": usage.Error(),
		})
	}

	l.Error("Path query failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": err.Error(),
	})
}
