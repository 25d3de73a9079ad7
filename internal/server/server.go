// Package server wires configuration, outbound clients, and handlers
// into the site's HTTP router.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/languaro/site/internal/config"
	"github.com/languaro/site/internal/handler"
	"github.com/languaro/site/internal/middleware"
	sitestripe "github.com/languaro/site/internal/stripe"
	"github.com/languaro/site/internal/supabase"
	"github.com/languaro/site/internal/telemetry"
)

const staticDir = "web/static"

type Server struct {
	cfg         *config.Config
	rateLimiter *middleware.RateLimiter

	checkoutH *handler.CheckoutHandler
	webhookH  *handler.WebhookHandler
	waitlistH *handler.WaitlistHandler
	supportH  *handler.SupportHandler
	adminH    *handler.AdminHandler
	metricsH  *handler.MetricsHandler
	dashH     *handler.DashHandler
}

func New(cfg *config.Config, logger *slog.Logger) *Server {
	store := supabase.New(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey)
	licURL, licKey := cfg.Supabase.LicensingStore()
	licensingStore := supabase.New(licURL, licKey)

	stripeClient := sitestripe.NewClient(sitestripe.Config{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
	})
	var provider handler.PaymentProvider
	if stripeClient.Configured() {
		provider = stripeClient
	}

	telemetryClient := telemetry.New(cfg.Telemetry.BackendURL, cfg.Telemetry.ReadToken)

	return &Server{
		cfg:         cfg,
		rateLimiter: middleware.NewRateLimiter(),
		checkoutH: handler.NewCheckoutHandler(provider, licensingStore, cfg.Supabase.UsersTable, cfg.BaseURL,
			logger.With("component", "checkout")),
		webhookH: handler.NewWebhookHandler(provider, store, cfg.Supabase.UsersTable,
			logger.With("component", "webhook")),
		waitlistH: handler.NewWaitlistHandler(store, cfg.Supabase.SubscriptionsTable,
			logger.With("component", "waitlist")),
		supportH: handler.NewSupportHandler(store, cfg.Supabase.WaitlistTable,
			logger.With("component", "support")),
		adminH: handler.NewAdminHandler(cfg.AdminSecret, store, cfg.Supabase.UsersTable,
			logger.With("component", "admin")),
		metricsH: handler.NewMetricsHandler(telemetryClient,
			logger.With("component", "metrics")),
		dashH: handler.NewDashHandler(cfg.Dash.User, cfg.Dash.Pass,
			logger.With("component", "dash")),
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Landing page and static assets
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, staticDir+"/index.html")
	})
	mux.HandleFunc("GET /success", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, staticDir+"/success.html")
	})
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	mux.HandleFunc("GET /robots.txt", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, staticDir+"/robots.txt")
	})

	mux.HandleFunc("GET /health", s.healthCheck)

	// Public form endpoints, rate-limited by client IP
	rl := middleware.RateLimit(s.rateLimiter, 10, time.Minute)
	mux.Handle("POST /api/subscribe", rl(http.HandlerFunc(s.waitlistH.Subscribe)))
	mux.Handle("POST /api/support", rl(http.HandlerFunc(s.supportH.Submit)))

	// Payments
	mux.HandleFunc("POST /api/create-checkout", s.checkoutH.Create)
	mux.HandleFunc("GET /api/confirm-checkout", s.checkoutH.Confirm)
	mux.HandleFunc("POST /api/purchase-webhook", s.webhookH.Handle)
	mux.HandleFunc("POST /api/add-pro-user", s.adminH.AddProUser)

	// Dashboard
	mux.HandleFunc("GET /api/metrics", s.metricsH.Get)
	mux.HandleFunc("GET /dash", s.dashH.Serve)

	return mux
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
