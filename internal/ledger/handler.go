package ledger

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/scriptaiapp/scriptai-backend/internal/store"
)

type Handler struct {
	Ledger *Ledger
}

func NewHandler(l *Ledger) *Handler {
	return &Handler{Ledger: l}
}

func getUserID(c *fiber.Ctx) string {
	if v := c.Locals("user_id"); v != nil {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// Balance returns the caller's current credit balance and flags.
func (h *Handler) Balance(c *fiber.Ctx) error {
	userID := getUserID(c)
	if userID == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	acct, err := h.Ledger.Account(c.UserContext(), userID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(fiber.Map{
		"credits":            acct.Credits,
		"ai_trained":         acct.AITrained,
		"platform_connected": acct.PlatformConnected,
	})
}

// History lists the caller's newest credit transactions.
func (h *Handler) History(c *fiber.Ctx) error {
	userID := getUserID(c)
	if userID == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	limit := c.QueryInt("limit", 50)
	items, err := h.Ledger.History(c.UserContext(), userID, limit)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(fiber.Map{"items": items})
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return fiber.NewError(fiber.StatusUnauthorized, "account not found")
	case errors.Is(err, ErrInsufficientCredits):
		return fiber.NewError(fiber.StatusForbidden, "not enough credits")
	case errors.Is(err, ErrPrerequisiteNotMet):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, store.ErrUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, "storage temporarily unavailable")
	}
	return fiber.NewError(fiber.StatusInternalServerError, "failed to load account data")
}
