package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charityfund/backend/internal/handlers"
	"github.com/charityfund/backend/internal/metrics"
	mW "github.com/charityfund/backend/internal/middleware"
	"github.com/charityfund/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
	httpSwagger "github.com/swaggo/http-swagger"
)

type routes struct {
	auth       *services.AuthService
	allocation *services.AllocationService
	projects   *services.CharityProjectService
	donations  *services.DonationService
	receipts   *services.ReceiptService
	swaggerURL string
}

func newRouter(rt routes) chi.Router {
	receiptHandler := handlers.NewReceiptHandler(rt.receipts)

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mW.Logger(log.Logger))
	r.Use(middleware.Recoverer)
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(metrics.InstrumentHandler)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Retry-After", "X-Receipt-Code"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	r.Handle("/metrics", metrics.Handler())

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(rt.swaggerURL),
	))

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints
		r.Post("/auth/register", rt.auth.Register)
		r.Post("/auth/jwt/login", rt.auth.Login)
		r.Get("/charity_project", rt.projects.ListProjects)
		r.Post("/receipts/verify", receiptHandler.VerifyReceipt)

		// Authenticated users
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Post("/auth/jwt/logout", rt.auth.Logout)
			r.Get("/users/me", rt.auth.Me)

			r.Post("/donation", rt.donations.CreateDonation)
			r.Get("/donation/my", rt.donations.MyDonations)
			r.Get("/donation/{id}/receipt", receiptHandler.GetReceipt)

			// Superusers only
			r.Group(func(r chi.Router) {
				r.Use(mW.RequireSuperuser)

				r.Get("/donation", rt.donations.ListDonations)

				r.Post("/charity_project", rt.projects.CreateProject)
				r.Patch("/charity_project/{id}", rt.projects.UpdateProject)
				r.Delete("/charity_project/{id}", rt.projects.DeleteProject)

				r.Post("/allocations/sweep", rt.allocation.TriggerSweep)
				r.Get("/allocations", rt.allocation.ListAllocations)
			})
		})
	})

	return r
}
