package api

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"safe-apple-bridge/internal/config"
	"safe-apple-bridge/internal/monitor"
	"safe-apple-bridge/internal/storage"
)

// Server is the main HTTP server for the bridge API.
type Server struct {
	httpServer *http.Server
	handlers   *Handlers
	cfg        *config.Config
	startTime  time.Time
}

// NewServer creates and configures the HTTP server with all routes and middleware.
func NewServer(cfg *config.Config, handlers *Handlers, db *storage.DB, metrics *monitor.Metrics) *Server {
	s := &Server{
		handlers:  handlers,
		cfg:       cfg,
		startTime: time.Now(),
	}

	if cfg.Security.AuthToken == "" {
		log.Warn().Msg("no auth token configured, all requests will be accepted")
	}

	// Operation API, wrapped with auth.
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /v1/mail/search", handlers.HandleMailSearch)
	apiMux.HandleFunc("GET /v1/mail/unread", handlers.HandleMailUnread)
	apiMux.HandleFunc("POST /v1/mail/send", handlers.HandleMailSend)
	apiMux.HandleFunc("POST /v1/messages/send", handlers.HandleMessageSend)
	apiMux.HandleFunc("POST /v1/messages/recent", handlers.HandleMessageRecent)
	apiMux.HandleFunc("POST /v1/contacts/search", handlers.HandleContactSearch)
	apiMux.HandleFunc("POST /v1/reminders", handlers.HandleReminderCreate)
	apiMux.HandleFunc("GET /v1/audit/logs", handlers.HandleAuditLogs)

	authedAPI := AuthMiddleware(cfg.Security.AuthToken)(apiMux)

	// Top-level mux: health/metrics bypass auth, everything else goes through auth
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth(db))
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.Handle("/", authedAPI)

	// Apply middleware chain (outermost first)
	var handler http.Handler = mux
	handler = MetricsMiddleware(metrics)(handler)
	handler = MaxBodyMiddleware(cfg.Server.MaxRequestBody)(handler)
	handler = LoggingMiddleware(handler)
	handler = RequestIDMiddleware(handler)
	handler = RecoveryMiddleware(handler)

	s.httpServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Start begins listening for requests. Uses TLS if configured.
func (s *Server) Start() error {
	if s.cfg.TLS.Enabled {
		log.Info().
			Str("addr", s.httpServer.Addr).
			Str("cert", s.cfg.TLS.CertFile).
			Msg("starting HTTPS server with TLS")

		s.httpServer.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
		return s.httpServer.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
	}

	log.Info().
		Str("addr", s.httpServer.Addr).
		Msg("starting HTTP server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(db *storage.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbOK := db == nil || db.Healthy(r.Context())

		resp := HealthResponse{
			Status:   "ok",
			Database: dbOK,
			Uptime:   time.Since(s.startTime).Round(time.Second).String(),
		}

		if !dbOK {
			resp.Status = "degraded"
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
