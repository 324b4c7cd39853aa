package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/somalearn/payclaims/internal/methods"
	"github.com/somalearn/payclaims/internal/submission"
	"github.com/somalearn/payclaims/internal/verification"
)

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(
	submissionSvc *submission.Service,
	verificationSvc *verification.Service,
	methodsSvc *methods.Service,
	jwtSecret []byte,
	logger *zap.Logger,
) http.Handler {
	h := &Handlers{
		submissionSvc:   submissionSvc,
		verificationSvc: verificationSvc,
		methodsSvc:      methodsSvc,
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Authenticate(jwtSecret))

		// Payment methods.
		r.Get("/payment-methods", h.ListPaymentMethods)
		r.Post("/payment-methods", h.CreatePaymentMethod)
		r.Patch("/payment-methods/{id}", h.UpdatePaymentMethod)

		// Claims.
		r.Post("/claims", h.SubmitClaim)
		r.Get("/claims", h.ListClaims)
		r.Get("/claims/{id}", h.GetClaim)
		r.Post("/claims/{id}/verify", h.VerifyClaim)

		// Dashboard.
		r.Get("/dashboard", h.GetDashboard)
	})

	return r
}
