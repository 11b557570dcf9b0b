// Package http provides the HTTP API for taskbotd.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskbotd/internal/policy"
	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

// saveTimeout bounds the detached session save that runs when the client
// does not ask to wait for persistence.
const saveTimeout = 5 * time.Second

// Server exposes the turn endpoint and operational endpoints.
type Server struct {
	echo    *echo.Echo
	store   session.Store
	policy  *policy.PhasedPolicy
	metrics *Metrics
	logger  *zap.Logger
	config  *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server.
func NewServer(store session.Store, pol *policy.PhasedPolicy, metrics *Metrics, logger *zap.Logger, cfg *Config) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("session store cannot be nil")
	}
	if pol == nil {
		return nil, fmt.Errorf("policy cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 8080}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(metrics.Middleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:    e,
		store:   store,
		policy:  pol,
		metrics: metrics,
		logger:  logger,
		config:  cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))

	v1 := s.echo.Group("/v1")
	v1.POST("/interaction", s.handleInteraction)
	v1.GET("/sessions/:id/response", s.handleLastResponse)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleInteraction runs one dialogue turn: load session, append the turn,
// step the policy, persist, respond.
func (s *Server) handleInteraction(c echo.Context) error {
	var req InteractionRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid interaction request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.SessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session_id field is required")
	}

	ctx := c.Request().Context()
	sess, err := s.store.Load(ctx, req.SessionID)
	if err != nil {
		s.logger.Error("loading session failed",
			zap.String("session_id", req.SessionID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "session store unavailable")
	}

	sess.Headless = req.Headless
	sess.ResumeTask = req.Resume == nil || *req.Resume
	sess.HasListPermissions = req.ListPermissions
	turn := sess.AddTurn(uuid.NewString(), req.Text, req.Intents)

	start := time.Now()
	out, err := s.policy.Step(ctx, sess)
	if err != nil {
		if errors.Is(err, policy.ErrRoutingLoop) {
			s.metrics.RoutingLoop()
			s.logger.Error("turn aborted on routing loop",
				zap.String("session_id", sess.ID), zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "routing failed")
		}
		s.logger.Error("turn failed",
			zap.String("session_id", sess.ID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "turn failed")
	}
	s.metrics.ObserveTurn(sess.Task.Phase, sess.State, time.Since(start))

	turn.AgentResponse = &session.AgentResponse{
		Interaction: *out,
		Time:        time.Now().UTC(),
	}

	if req.WaitSave {
		if err := s.store.Save(ctx, sess); err != nil {
			s.logger.Error("saving session failed",
				zap.String("session_id", sess.ID), zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "session store unavailable")
		}
	} else {
		s.saveDetached(sess)
	}

	return c.JSON(http.StatusOK, InteractionResponse{
		SessionID:   sess.ID,
		TurnID:      turn.ID,
		Interaction: *out,
	})
}

// saveDetached persists the session off the request path. A lost save costs
// one turn of context, which the next turn's classifier can absorb.
func (s *Server) saveDetached(sess *session.Session) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := s.store.Save(ctx, sess); err != nil {
			s.metrics.SaveFailure()
			s.logger.Error("detached session save failed",
				zap.String("session_id", sess.ID), zap.Error(err))
		}
	}()
}

// handleLastResponse returns the most recent agent response for a session.
func (s *Server) handleLastResponse(c echo.Context) error {
	id := c.Param("id")
	sess, err := s.store.Load(c.Request().Context(), id)
	if err != nil {
		s.logger.Error("loading session failed",
			zap.String("session_id", id), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "session store unavailable")
	}

	for i := len(sess.Turns) - 1; i >= 0; i-- {
		if resp := sess.Turns[i].AgentResponse; resp != nil {
			return c.JSON(http.StatusOK, InteractionResponse{
				SessionID:   sess.ID,
				TurnID:      sess.Turns[i].ID,
				Interaction: resp.Interaction,
			})
		}
	}
	return echo.NewHTTPError(http.StatusNotFound, "no response recorded for session")
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
