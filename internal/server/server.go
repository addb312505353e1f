// Package server exposes the coach service over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spigell/intraview/internal/interview"
)

const defaultMaxAudioBytes = 10 << 20

// Runs is the part of the coach service the API needs.
type Runs interface {
	StartReport(ctx context.Context, userID, jobDescription string) (string, error)
	FetchRun(ctx context.Context, runID string) (*interview.Run, error)
	ListRuns(ctx context.Context, userID string) ([]*interview.Run, error)
	RetryGeneration(ctx context.Context, runID string) (*interview.Run, error)
	CalculateScore(ctx context.Context, runID string) (*interview.Run, error)
	UpdateAnswer(ctx context.Context, runID string, loc interview.Locator, answer string) (*interview.Question, error)
	RetryQuestion(ctx context.Context, runID string, loc interview.Locator) (*interview.Question, error)
	TranscribeAnswer(ctx context.Context, runID string, loc interview.Locator, audio []byte, mimeType string) (*interview.Question, error)
}

// Config holds the HTTP settings.
type Config struct {
	Addr string
	// JWTSecret enables bearer authentication. Without it every request is anonymous.
	JWTSecret     string
	MaxAudioBytes int64
}

type Server struct {
	runs     Runs
	cfg      Config
	verifier *tokenVerifier
	logger   *zap.Logger
	engine   *gin.Engine
}

func New(runs Runs, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAudioBytes <= 0 {
		cfg.MaxAudioBytes = defaultMaxAudioBytes
	}

	s := &Server{
		runs:     runs,
		cfg:      cfg,
		verifier: newTokenVerifier(cfg.JWTSecret),
		logger:   logger,
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()

	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	runs := router.Group("/runs", s.identify())
	{
		runs.POST("", s.createRun)
		runs.GET("", requireUser(), s.listRuns)
		runs.GET("/:id", s.getRun)
		runs.POST("/:id/retry", s.retryGeneration)
		runs.POST("/:id/score", s.calculateScore)

		runs.POST("/:id/answers", s.submitAnswer)
		runs.POST("/:id/answers/reset", s.resetAnswer)

		runs.PUT("/:id/questions/:questionId/answer", s.submitAnswer)
		runs.DELETE("/:id/questions/:questionId/answer", s.resetAnswer)
		runs.POST("/:id/questions/:questionId/transcription", s.transcribeAnswer)
	}

	return router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(started)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			s.logger.Error("request failed", fields...)
		default:
			s.logger.Debug("request served", fields...)
		}
	}
}
