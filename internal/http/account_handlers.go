package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/scriptaiapp/scriptai-backend/internal/audit"
	"github.com/scriptaiapp/scriptai-backend/internal/ledger"
)

// AccountHandler exposes the webhook-style entry points through which the
// external training and platform-connection workflows flip account flags.
type AccountHandler struct {
	DB     *pgxpool.Pool
	Ledger *ledger.Ledger
	Log    *zap.Logger
}

// TrainingComplete marks the account's personalization model as trained.
func (h *AccountHandler) TrainingComplete(c *fiber.Ctx) error {
	return h.setFlag(c, ledger.FlagAITrained, "training_complete")
}

// PlatformConnected marks the account's YouTube channel as linked.
func (h *AccountHandler) PlatformConnected(c *fiber.Ctx) error {
	return h.setFlag(c, ledger.FlagPlatformConnected, "platform_connected")
}

func (h *AccountHandler) setFlag(c *fiber.Ctx, flag ledger.Flag, action string) error {
	accountID := getUserID(c)
	if accountID == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	ctx := userContext(c)
	if err := h.Ledger.SetFlag(ctx, accountID, flag); err != nil {
		if errors.Is(err, ledger.ErrUnauthorized) {
			return fiber.NewError(fiber.StatusUnauthorized, "account not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to update account")
	}

	if err := audit.Write(ctx, h.DB, audit.Entry{
		AccountID:  &accountID,
		Action:     action,
		EntityType: "account",
		EntityID:   &accountID,
	}); err != nil {
		h.Log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}

	return c.JSON(fiber.Map{"ok": true, "flag": flag})
}
