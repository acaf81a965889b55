package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/scriptaiapp/scriptai-backend/internal/admin"
	"github.com/scriptaiapp/scriptai-backend/internal/feature"
	handlers "github.com/scriptaiapp/scriptai-backend/internal/http"
	"github.com/scriptaiapp/scriptai-backend/internal/ledger"
	"github.com/scriptaiapp/scriptai-backend/internal/referral"
	"github.com/scriptaiapp/scriptai-backend/internal/reports"
)

type Router struct {
	AuthHandler     *handlers.AuthHandler
	AccountHandler  *handlers.AccountHandler
	CreditsHandler  *ledger.Handler
	ReferralHandler *referral.Handler
	FeatureHandler  *feature.Handler
	AdminHandler    *admin.Handler
	ReportsHandler  *reports.Handler

	AuthMW     fiber.Handler
	AdminMW    fiber.Handler
	GenerateMW fiber.Handler
}

func (r *Router) RegisterRoutes(app *fiber.App) {
	if r.AuthHandler != nil {
		app.Post("/api/auth/signup", r.AuthHandler.Signup)
		app.Post("/api/auth/login", r.AuthHandler.Login)
		app.Get("/api/me", r.AuthMW, r.AuthHandler.Me)
	}

	if r.AccountHandler != nil {
		app.Post("/api/account/training-complete", r.AuthMW, r.AccountHandler.TrainingComplete)
		app.Post("/api/account/platform-connected", r.AuthMW, r.AccountHandler.PlatformConnected)
	}

	if r.CreditsHandler != nil {
		app.Get("/api/credits", r.AuthMW, r.CreditsHandler.Balance)
		app.Get("/api/credits/history", r.AuthMW, r.CreditsHandler.History)
	}

	if r.ReferralHandler != nil {
		app.Post("/api/referrals", r.AuthMW, r.ReferralHandler.Create)
		app.Get("/api/referrals", r.AuthMW, r.ReferralHandler.List)
		app.Get("/api/referrals/stats", r.AuthMW, r.ReferralHandler.Stats)
	}

	if r.FeatureHandler != nil {
		app.Get("/api/features", r.FeatureHandler.List)
		if r.GenerateMW != nil {
			app.Post("/api/features/:key/generate", r.GenerateMW, r.AuthMW, r.FeatureHandler.Generate)
		} else {
			app.Post("/api/features/:key/generate", r.AuthMW, r.FeatureHandler.Generate)
		}
	}

	if r.ReportsHandler != nil {
		app.Get("/api/reports/credits.pdf", r.AuthMW, r.ReportsHandler.CreditStatementPDF)
	}

	if r.AdminHandler != nil && r.AdminMW != nil {
		app.Post("/api/admin/accounts/:id/adjust", r.AdminMW, r.AdminHandler.Adjust)
		app.Get("/api/admin/accounts/:id/reconcile", r.AdminMW, r.AdminHandler.Reconcile)
		app.Get("/api/admin/stats", r.AdminMW, r.AdminHandler.Stats)
	}
}
