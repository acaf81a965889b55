package admin

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/scriptaiapp/scriptai-backend/internal/audit"
	"github.com/scriptaiapp/scriptai-backend/internal/ledger"
	"github.com/scriptaiapp/scriptai-backend/internal/store"
)

type Handler struct {
	Pool   *pgxpool.Pool
	Ledger *ledger.Ledger
	Log    *zap.Logger
}

func NewHandler(pool *pgxpool.Pool, l *ledger.Ledger, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Pool: pool, Ledger: l, Log: log}
}

type adjustRequest struct {
	Amount int64  `json:"amount"`
	Note   string `json:"note"`
}

// Adjust applies a manual credit adjustment. Positive amounts credit the
// account, negative amounts debit it; a downward adjustment that the
// balance cannot cover is rejected, never clamped.
func (h *Handler) Adjust(c *fiber.Ctx) error {
	accountID := strings.TrimSpace(c.Params("id"))
	if accountID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "account id required")
	}

	var body adjustRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if body.Amount == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "amount must not be zero")
	}

	ctx := c.UserContext()
	var note *string
	if strings.TrimSpace(body.Note) != "" {
		n := strings.TrimSpace(body.Note)
		note = &n
	}

	var (
		balance int64
		err     error
	)
	if body.Amount > 0 {
		balance, err = h.Ledger.Credit(ctx, accountID, body.Amount, ledger.ReasonManualAdjustment, note)
	} else {
		balance, err = h.Ledger.Debit(ctx, accountID, -body.Amount, ledger.ReasonManualAdjustment, note)
	}
	if err != nil {
		return httpError(err)
	}

	meta := []byte(fmt.Sprintf(`{"amount": %d}`, body.Amount))
	if auditErr := audit.Write(ctx, h.Pool, audit.Entry{
		AccountID:  &accountID,
		Action:     "manual_adjustment",
		EntityType: "account",
		EntityID:   &accountID,
		Metadata:   meta,
	}); auditErr != nil {
		h.Log.Warn("audit write failed", zap.Error(auditErr))
	}

	return c.JSON(fiber.Map{"account_id": accountID, "balance": balance})
}

// Reconcile checks the balance-equals-transaction-sum invariant for one account.
func (h *Handler) Reconcile(c *fiber.Ctx) error {
	accountID := strings.TrimSpace(c.Params("id"))
	if accountID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "account id required")
	}

	res, err := h.Ledger.Reconcile(c.UserContext(), accountID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(res)
}

type statsResponse struct {
	AccountsTotal      int64 `json:"accounts_total"`
	CreditsOutstanding int64 `json:"credits_outstanding"`
	TransactionsTotal  int64 `json:"transactions_total"`
	ReferralsPending   int64 `json:"referrals_pending"`
	ReferralsCompleted int64 `json:"referrals_completed"`
	ReferralsExpired   int64 `json:"referrals_expired"`
}

// Stats returns platform-wide aggregates.
func (h *Handler) Stats(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var resp statsResponse
	err := h.Pool.QueryRow(ctx, `
SELECT COUNT(*), COALESCE(SUM(credits), 0)::bigint FROM accounts
`).Scan(&resp.AccountsTotal, &resp.CreditsOutstanding)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed accounts stats: "+err.Error())
	}

	if err := h.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM credit_transactions`).Scan(&resp.TransactionsTotal); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed transactions stats: "+err.Error())
	}

	err = h.Pool.QueryRow(ctx, `
SELECT
  COUNT(*) FILTER (WHERE status = 'pending'),
  COUNT(*) FILTER (WHERE status = 'completed'),
  COUNT(*) FILTER (WHERE status = 'expired')
FROM referrals
`).Scan(&resp.ReferralsPending, &resp.ReferralsCompleted, &resp.ReferralsExpired)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed referrals stats: "+err.Error())
	}

	return c.JSON(resp)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrUnauthorized):
		return fiber.NewError(fiber.StatusNotFound, "account not found")
	case errors.Is(err, ledger.ErrInsufficientCredits):
		return fiber.NewError(fiber.StatusForbidden, "balance cannot cover this adjustment")
	case errors.Is(err, ledger.ErrInvalidAmount):
		return fiber.NewError(fiber.StatusBadRequest, "invalid amount")
	case errors.Is(err, store.ErrUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, "storage temporarily unavailable")
	}
	return fiber.NewError(fiber.StatusInternalServerError, "admin operation failed")
}
