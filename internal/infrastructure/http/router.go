package http

import (
	"crypto/subtle"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/GwydionBr/life-manager-sub000/internal/infrastructure/http/handlers"
	"github.com/GwydionBr/life-manager-sub000/internal/infrastructure/http/middleware"
)

type RouterConfig struct {
	HealthHandler    *handlers.HealthHandler
	TimersHandler    *handlers.TimersHandler
	ProjectsHandler  *handlers.ProjectsHandler
	FinanceHandler   *handlers.FinanceHandler
	AdminHandler     *handlers.AdminHandler
	Account          *middleware.AccountResolver
	AdminSecret      string // X-Admin-Secret for /admin/*; empty disables admin routes
	Log              zerolog.Logger
	CORS             func(http.Handler) http.Handler
	Secure           func(http.Handler) http.Handler
	IPRateLimit      func(http.Handler) http.Handler
	AccountRateLimit func(http.Handler) http.Handler
	Metrics          bool // expose /metrics
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimid.RequestID)
	r.Use(chimid.RealIP)
	r.Use(loggerMiddleware(cfg.Log))
	r.Use(chimid.Recoverer)
	if cfg.Metrics {
		r.Use(middleware.PrometheusMiddleware)
	}
	if cfg.CORS != nil {
		r.Use(cfg.CORS)
	}
	if cfg.Secure != nil {
		r.Use(cfg.Secure)
	}
	r.Use(chimid.AllowContentType("application/json"))
	r.Use(chimid.SetHeader("Content-Type", "application/json"))
	if cfg.IPRateLimit != nil {
		r.Use(cfg.IPRateLimit)
	}

	if cfg.HealthHandler != nil {
		r.Get("/health", cfg.HealthHandler.ServeHTTP)
	} else {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
	}
	if cfg.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	// Account-scoped API.
	r.Group(func(r chi.Router) {
		r.Use(cfg.Account.Handler)
		if cfg.AccountRateLimit != nil {
			r.Use(cfg.AccountRateLimit)
		}

		r.Route("/projects", func(r chi.Router) {
			r.Post("/", cfg.ProjectsHandler.Create)
			r.Get("/", cfg.ProjectsHandler.List)
			r.Get("/{id}", cfg.ProjectsHandler.Get)
			r.Get("/{id}/entries", cfg.ProjectsHandler.ListEntries)
		})

		r.Route("/timers", func(r chi.Router) {
			r.Post("/", cfg.TimersHandler.Create)
			r.Get("/", cfg.TimersHandler.List)
			r.Get("/active", cfg.TimersHandler.Active)
			r.Get("/{id}", cfg.TimersHandler.Get)
			r.Delete("/{id}", cfg.TimersHandler.Remove)
			r.Post("/{id}/start", cfg.TimersHandler.Start)
			r.Post("/{id}/pause", cfg.TimersHandler.Pause)
			r.Post("/{id}/resume", cfg.TimersHandler.Resume)
			r.Post("/{id}/submit", cfg.TimersHandler.Submit)
			r.Post("/{id}/cancel", cfg.TimersHandler.Cancel)
			r.Post("/{id}/force-end", cfg.TimersHandler.SetForceEnd)
			r.Patch("/{id}/adjust", cfg.TimersHandler.Adjust)
			r.Put("/{id}/memo", cfg.TimersHandler.SetMemo)
			r.Put("/{id}/rounding", cfg.TimersHandler.SetRounding)
		})

		r.Route("/recurring", func(r chi.Router) {
			r.Post("/", cfg.FinanceHandler.CreateRecurring)
			r.Get("/", cfg.FinanceHandler.ListRecurring)
			r.Post("/expand", cfg.FinanceHandler.Expand)
			r.Get("/{id}", cfg.FinanceHandler.GetRecurring)
			r.Delete("/{id}", cfg.FinanceHandler.DeleteRecurring)
			r.Put("/{id}/tags", cfg.FinanceHandler.SyncRecurringTags)
		})

		r.Route("/cashflows", func(r chi.Router) {
			r.Get("/", cfg.FinanceHandler.ListCashflows)
			r.Get("/{id}", cfg.FinanceHandler.GetCashflow)
			r.Put("/{id}/tags", cfg.FinanceHandler.SyncCashflowTags)
		})
	})

	if cfg.AdminHandler != nil && cfg.AdminSecret != "" {
		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAdminSecret(cfg.AdminSecret))
			r.Post("/accounts", cfg.AdminHandler.CreateAccount)
		})
	}

	return r
}

func requireAdminSecret(secret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-Admin-Secret")
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","code":"forbidden"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func loggerMiddleware(log zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := chimid.GetReqID(r.Context())
			log.Info().
				Str("request_id", reqID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("request")
			next.ServeHTTP(w, r)
		})
	}
}
