package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	JWTSecret []byte
	Ready     func() bool
}

func NewRouter(logger *slog.Logger, handler *Handler, cfg RouterConfig) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(RequestID)
	router.Use(RequestLogger(logger))
	router.Use(Authenticate(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeSuccess(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil && !cfg.Ready() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"error","code":"not_ready","message":"dependencies unavailable"}`))
			return
		}
		writeSuccess(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	router.Route("/v1", func(v1 chi.Router) {
		v1.Route("/incentives", func(incentives chi.Router) {
			incentives.Post("/questionnaire", handler.CreateQuestionnaireIncentive)
			incentives.Post("/referral", handler.CreateReferralIncentive)
			incentives.Get("/pending", handler.GetPendingIncentives)
			incentives.Get("/statistics", handler.GetIncentiveStatistics)
			incentives.Post("/payments/batch", handler.ProcessBatchPayment)
			incentives.Route("/{id}", func(item chi.Router) {
				item.Get("/", handler.GetIncentive)
				item.Get("/risk", handler.AssessIncentiveRisk)
				item.Post("/validate", handler.ValidateIncentive)
				item.Post("/approve", handler.ApproveIncentive)
				item.Post("/reject", handler.RejectIncentive)
				item.Post("/pay", handler.ProcessPayment)
			})
		})
	})
	return router
}
