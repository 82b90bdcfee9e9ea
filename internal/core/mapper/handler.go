package mapper

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// HandleDiscover runs a one-level link discovery crawl against url, filtered
// by comma-separated glob patterns on the path.
func (h *Handler) HandleDiscover(c *fiber.Ctx) error {
	target := c.Query("url")
	if target == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "url is required"})
	}
	limit, err := strconv.Atoi(c.Query("limit", "100"))
	if err != nil || limit < 0 {
		limit = 100
	}
	var patterns []string
	if raw := c.Query("patterns"); raw != "" {
		patterns = strings.Split(raw, ",")
	}

	links, err := h.svc.DiscoverDetailLinks(target, patterns, limit)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true, "links": links})
}
