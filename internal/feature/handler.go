package feature

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/scriptaiapp/scriptai-backend/internal/ledger"
	"github.com/scriptaiapp/scriptai-backend/internal/store"
)

type Handler struct {
	Gate *Gate
}

func NewHandler(gate *Gate) *Handler {
	return &Handler{Gate: gate}
}

func getUserID(c *fiber.Ctx) string {
	if v := c.Locals("user_id"); v != nil {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

// Generate runs one paid feature for the caller.
func (h *Handler) Generate(c *fiber.Ctx) error {
	userID := getUserID(c)
	if userID == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	key := strings.TrimSpace(c.Params("key"))

	var body generateRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(body.Prompt) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "prompt is required")
	}

	res, err := h.Gate.Run(c.UserContext(), userID, key, body.Prompt)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(res)
}

// List returns the feature catalog with costs and prerequisites.
func (h *Handler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"items": All()})
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrUnknownFeature):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrUnauthorized):
		return fiber.NewError(fiber.StatusUnauthorized, "account not found")
	case errors.Is(err, ledger.ErrPrerequisiteNotMet):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, ledger.ErrInsufficientCredits):
		return fiber.NewError(fiber.StatusForbidden, "not enough credits for this feature")
	case errors.Is(err, store.ErrUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, "storage temporarily unavailable")
	case errors.Is(err, ErrGenerationFailed):
		return fiber.NewError(fiber.StatusInternalServerError, "generation failed, no credits were charged")
	}
	return fiber.NewError(fiber.StatusInternalServerError, "feature request failed")
}
