package http

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/scriptaiapp/scriptai-backend/internal/auth"
	"github.com/scriptaiapp/scriptai-backend/internal/ledger"
	"github.com/scriptaiapp/scriptai-backend/internal/referral"
)

const tokenTTL = 24 * time.Hour

type AuthHandler struct {
	DB        *pgxpool.Pool
	Secret    []byte
	Ledger    *ledger.Ledger
	Referrals *referral.Service

	// SignupGrant is the free credit allowance for a fresh account,
	// recorded through the ledger so reconciliation holds.
	SignupGrant int64

	Log *zap.Logger
}

type signupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token              string `json:"token"`
	Credits            int64  `json:"credits,omitempty"`
	ReferralsCompleted int    `json:"referrals_completed,omitempty"`
}

func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var body signupRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	email := strings.ToLower(strings.TrimSpace(body.Email))
	if email == "" || !strings.Contains(email, "@") || body.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email and password required")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "internal error")
	}

	ctx := userContext(c)

	var accountID string
	err = h.DB.QueryRow(ctx, `
INSERT INTO accounts (email, password_hash, display_name)
VALUES ($1, $2, NULLIF($3, ''))
RETURNING id::text
`, email, string(hashed), strings.TrimSpace(body.DisplayName)).Scan(&accountID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fiber.NewError(fiber.StatusBadRequest, "email already registered")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "could not create account")
	}

	resp := authResponse{}

	if h.SignupGrant > 0 {
		note := "signup grant"
		balance, err := h.Ledger.Credit(ctx, accountID, h.SignupGrant, ledger.ReasonManualAdjustment, &note)
		if err != nil {
			h.Log.Error("signup grant failed", zap.String("account_id", accountID), zap.Error(err))
		} else {
			resp.Credits = balance
		}
	}

	// A new account may settle invitations that were waiting on this email.
	completed, err := h.Referrals.ResolvePendingForEmail(ctx, email, accountID)
	if err != nil {
		h.Log.Warn("referral resolution failed",
			zap.String("email", email),
			zap.Error(err))
	}
	resp.ReferralsCompleted = len(completed)

	token, err := auth.GenerateToken(h.Secret, accountID, tokenTTL)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not create token")
	}
	resp.Token = token

	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body loginRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	var (
		accountID    string
		passwordHash string
	)

	ctx := userContext(c)
	err := h.DB.QueryRow(ctx,
		`SELECT id::text, password_hash FROM accounts WHERE lower(email) = lower($1)`,
		strings.TrimSpace(body.Email),
	).Scan(&accountID, &passwordHash)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(body.Password)); err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	token, err := auth.GenerateToken(h.Secret, accountID, tokenTTL)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not create token")
	}

	return c.JSON(authResponse{Token: token})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	accountID := getUserID(c)
	if accountID == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	acct, err := h.Ledger.Account(userContext(c), accountID)
	if err != nil {
		if errors.Is(err, ledger.ErrUnauthorized) {
			return fiber.NewError(fiber.StatusUnauthorized, "account not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load account")
	}

	return c.JSON(acct)
}

func getUserID(c *fiber.Ctx) string {
	if v := c.Locals("user_id"); v != nil {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func userContext(c *fiber.Ctx) context.Context {
	if ctx := c.UserContext(); ctx != nil {
		return ctx
	}
	return context.Background()
}
