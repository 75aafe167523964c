package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/reservehq/reserve-personnel/internal/accountrequest"
	"github.com/reservehq/reserve-personnel/internal/audit"
	"github.com/reservehq/reserve-personnel/internal/auth"
	"github.com/reservehq/reserve-personnel/internal/personnel"
	"github.com/reservehq/reserve-personnel/internal/policy"
	"github.com/reservehq/reserve-personnel/internal/training"
	"github.com/reservehq/reserve-personnel/internal/transport/middleware"
	"github.com/reservehq/reserve-personnel/internal/transport/swagger"
)

type Handlers struct {
	Auth           *auth.Handler
	AccountRequest *accountrequest.Handler
	Personnel      *personnel.Handler
	Audit          *audit.Handler
	Training       *training.Handler
	Policy         *policy.Handler
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, allowedOrigins string, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)
	rbac := auth.NewRBACAuthorization(logger)

	// Apply global middleware
	router.Use(middleware.CORS(allowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.ClientMeta)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Auth routes
		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.Post("/logout", h.Auth.Logout)
		})

		// Self-registration is the one unauthenticated write path.
		r.Post("/accounts", h.AccountRequest.SubmitRequest)

		// Protected routes that require authentication
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/users/me", h.Auth.GetCurrentUser)
			pr.Get("/roles/preview", h.Auth.PreviewPermissions)

			// Account request review
			pr.Group(func(ar chi.Router) {
				ar.Use(rbac.RequireApproveReservists())
				ar.Get("/accounts", h.AccountRequest.ListRequests)
				ar.Patch("/accounts", h.AccountRequest.ReviewRequest)
			})

			// Personnel directory
			pr.Route("/personnel", func(pnr chi.Router) {
				pnr.Get("/", h.Personnel.ListPersonnel)
				pnr.Get("/{id}", h.Personnel.GetPersonnel)

				pnr.Group(func(er chi.Router) {
					er.Use(rbac.Require(auth.PermEditPersonnel))
					er.Patch("/{id}", h.Personnel.UpdatePersonnel)
					er.Patch("/{id}/retire", h.Personnel.RetirePersonnel)
				})

				pnr.Group(func(dr chi.Router) {
					dr.Use(rbac.Require(auth.PermDeletePersonnel))
					dr.Delete("/{id}", h.Personnel.DeletePersonnel)
				})
			})

			// Audit trail
			pr.Route("/audit-logs", func(alr chi.Router) {
				alr.Group(func(vr chi.Router) {
					vr.Use(rbac.RequireViewAuditLogs())
					vr.Get("/", h.Audit.GetAuditLogs)
				})
				alr.Group(func(xr chi.Router) {
					xr.Use(rbac.Require(auth.PermExportAuditLogs))
					xr.Get("/export", h.Audit.ExportAuditLogs)
				})
				alr.Group(func(dr chi.Router) {
					dr.Use(rbac.Require(auth.PermPurgeAuditLogs))
					dr.Delete("/", h.Audit.PurgeAuditLogs)
				})
			})

			// Trainings
			pr.Route("/trainings", func(tr chi.Router) {
				tr.Get("/", h.Training.ListTrainings)
				tr.Get("/export", h.Training.ExportTrainings)

				tr.Group(func(mr chi.Router) {
					mr.Use(rbac.Require(auth.PermManageTrainings))
					mr.Post("/", h.Training.CreateTraining)
					mr.Patch("/{id}", h.Training.UpdateTraining)
				})

				tr.Group(func(cr chi.Router) {
					cr.Use(rbac.Require(auth.PermRecordTraining))
					cr.Post("/{id}/completions", h.Training.RecordCompletion)
				})
			})

			// Policies
			pr.Route("/policies", func(pcr chi.Router) {
				pcr.Get("/", h.Policy.ListPolicies)
				pcr.Get("/{id}", h.Policy.GetPolicy)
				pcr.Post("/{id}/acknowledge", h.Policy.AcknowledgePolicy)

				pcr.Group(func(mr chi.Router) {
					mr.Use(rbac.Require(auth.PermManagePolicies))
					mr.Post("/", h.Policy.CreatePolicy)
					mr.Patch("/{id}", h.Policy.UpdatePolicy)
					mr.Delete("/{id}", h.Policy.RetirePolicy)
					mr.Get("/{id}/acknowledgements", h.Policy.ListAcknowledgements)
				})
			})
		})
	})
}
