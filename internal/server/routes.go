package server

import (
	"net/http"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/namelens/sumlens/internal/errors"
	"github.com/namelens/sumlens/internal/observability"
	"github.com/namelens/sumlens/internal/server/handlers"
	servermw "github.com/namelens/sumlens/internal/server/middleware"
)

// Route paths.
const (
	SummarizePath = "/api/summarizer/summarize"
	SummariesPath = "/api/summarizer/summaries"
	AdminPath     = "/admin/signal"
)

func (s *Server) registerRoutes() {
	s.router.Get("/health", handlers.HealthHandler)
	s.router.Get("/health/live", handlers.LivenessHandler)
	s.router.Get("/health/ready", handlers.ReadinessHandler)
	s.router.Get("/health/startup", handlers.StartupHandler)

	s.router.Get("/version", handlers.VersionHandler)
	s.router.Get("/metrics", MetricsHandler)

	summarize := handlers.NewSummarizeHandler(s.opts.Summarizer)
	s.router.Method("POST", SummarizePath, summarize)
	s.router.Method("POST", SummarizePath+"/", summarize)

	s.registerSummaryHistory()
	s.registerAdminEndpoint()
}

// registerSummaryHistory exposes stored summaries to admin-token holders.
// Records carry client emails, addresses and input text, so without a token
// (or a store) the routes do not exist.
func (s *Server) registerSummaryHistory() {
	if s.opts.Summaries == nil {
		return
	}
	if s.opts.AdminToken == "" {
		if logger := observability.ServerLogger; logger != nil {
			logger.Debug("Summary history endpoints disabled (no admin token set)")
		}
		return
	}

	summaries := handlers.NewSummariesHandler(s.opts.Summaries)
	s.router.Group(func(r chi.Router) {
		r.Use(servermw.BearerAuth(s.opts.AdminToken, func(w http.ResponseWriter, req *http.Request) {
			HandleError(w, req, apperrors.NewUnauthorizedError("A valid admin bearer token is required"))
		}))
		r.Get(SummariesPath, summaries.List)
		r.Get(SummariesPath+"/", summaries.List)
		r.Get(SummariesPath+"/{id}", summaries.Get)
	})
}

// registerAdminEndpoint exposes the gofulmen signal handler behind a
// bearer token. Without a token the endpoint does not exist.
func (s *Server) registerAdminEndpoint() {
	logger := observability.ServerLogger
	if s.opts.AdminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no admin token set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: s.opts.AdminToken,
		RateLimit: 10,
		RateBurst: 5,
	})
	s.router.Post(AdminPath, handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", AdminPath),
			zap.String("rate_limit", "10/min, burst 5"))
		logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}
