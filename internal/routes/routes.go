// Package routes wires the evaluation API onto a fiber app.
package routes

import (
	"riskgate/internal/handlers"
	"riskgate/internal/middleware"
	"riskgate/internal/models"
	"riskgate/internal/services/evaluation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
)

// Dependencies are the collaborators the routes need.
type Dependencies struct {
	Evaluation   evaluation.Service
	HealthChecks map[string]handlers.Checker
	AuthSecret   string
	Log          zerolog.Logger
}

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, deps Dependencies) {
	auth := middleware.NewAuthMiddleware(deps.AuthSecret, deps.Log)
	transactionHandler := handlers.NewTransactionHandler(deps.Evaluation)
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks)

	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(deps.Log))

	app.Get("/health", healthHandler.HealthCheck)

	app.Post("/evaluate_transaction",
		auth.Handler,
		auth.RequirePermission(models.PermissionEvaluate),
		transactionHandler.Evaluate,
	)

	transactions := app.Group("/transactions", auth.Handler)
	transactions.Get("/:id", auth.RequirePermission(models.PermissionTransactionRead), transactionHandler.GetTransaction)
	transactions.Post("/:id/chargeback", auth.RequirePermission(models.PermissionChargebackWrite), transactionHandler.RecordChargeback)
}
