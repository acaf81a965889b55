package referral

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/scriptaiapp/scriptai-backend/internal/ledger"
	"github.com/scriptaiapp/scriptai-backend/internal/store"
)

type Handler struct {
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Service: svc}
}

func getUserID(c *fiber.Ctx) string {
	if v := c.Locals("user_id"); v != nil {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

type createRequest struct {
	Email string `json:"email"`
}

// Create registers a pending referral for the invitee email.
func (h *Handler) Create(c *fiber.Ctx) error {
	userID := getUserID(c)
	if userID == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var body createRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	r, err := h.Service.Create(c.UserContext(), userID, body.Email)
	if err != nil {
		return httpError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(r)
}

// List returns the caller's referrals newest first.
func (h *Handler) List(c *fiber.Ctx) error {
	userID := getUserID(c)
	if userID == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	items, err := h.Service.List(c.UserContext(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{"items": items})
}

// Stats returns aggregate referral counters for the caller's dashboard.
func (h *Handler) Stats(c *fiber.Ctx) error {
	userID := getUserID(c)
	if userID == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	st, err := h.Service.StatsFor(c.UserContext(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(st)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrSelfReferral):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrDuplicateReferral):
		return fiber.NewError(fiber.StatusBadRequest, "a referral for this email is already active")
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "referral not found")
	case errors.Is(err, ErrAlreadyCompleted):
		return fiber.NewError(fiber.StatusConflict, "referral was already completed")
	case errors.Is(err, ErrExpired):
		return fiber.NewError(fiber.StatusGone, "referral has expired")
	case errors.Is(err, ledger.ErrUnauthorized):
		return fiber.NewError(fiber.StatusUnauthorized, "account not found")
	case errors.Is(err, store.ErrUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, "storage temporarily unavailable")
	}
	return fiber.NewError(fiber.StatusInternalServerError, "referral operation failed")
}
