package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/category"
	"github.com/frahmantamala/expense-approval/internal/expense"
	"github.com/frahmantamala/expense-approval/internal/transport/middleware"
	"github.com/frahmantamala/expense-approval/internal/transport/swagger"
	"github.com/frahmantamala/expense-approval/internal/user"
)

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, authHandler *auth.Handler, userHandler *user.Handler, expenseHandler *expense.Handler, categoryHandler *category.Handler, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.CORS)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Auth routes
		if authHandler != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/login", authHandler.Login)
				sr.Post("/refresh", authHandler.RefreshToken)
				sr.Post("/logout", authHandler.Logout)
			})
		}

		// Public categories route (no auth required)
		if categoryHandler != nil {
			r.Get("/categories", categoryHandler.GetCategories)
		}

		if authHandler != nil {
			// Protected routes that require authentication
			r.Group(func(pr chi.Router) {
				pr.Use(authHandler.AuthMiddleware)

				if userHandler != nil {
					pr.Get("/users/me", userHandler.GetCurrentUser)
				}

				if expenseHandler != nil {
					pr.Route("/expenses", func(er chi.Router) {
						er.Post("/", expenseHandler.CreateExpense)       // POST /expenses
						er.Get("/", expenseHandler.ListUserExpenses)     // GET /expenses
						er.Get("/{id}", expenseHandler.GetExpense)       // GET /expenses/:id
						er.Put("/{id}", expenseHandler.UpdateExpense)    // PUT /expenses/:id
						er.Delete("/{id}", expenseHandler.DeleteExpense) // DELETE /expenses/:id

						// Approver actions; the chain decides who may act,
						// the role gate just keeps plain employees out.
						er.Group(func(mr chi.Router) {
							mr.Use(middleware.RequireRole("manager", "admin"))
							mr.Patch("/{id}/approve", expenseHandler.ApproveExpense) // PATCH /expenses/:id/approve
							mr.Patch("/{id}/reject", expenseHandler.RejectExpense)   // PATCH /expenses/:id/reject
						})
					})

					pr.Route("/approvals", func(ar chi.Router) {
						ar.Use(middleware.RequireRole("manager", "admin"))
						ar.Get("/pending", expenseHandler.ListPendingApprovals) // GET /approvals/pending
						ar.Get("/history", expenseHandler.ListApprovalHistory)  // GET /approvals/history
					})
				}
			})
		}
	})
}
