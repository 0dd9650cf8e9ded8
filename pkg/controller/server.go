package controller

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/usecase/chat"
	"github.com/m-mizutani/kioku/pkg/usecase/memory"
	"github.com/m-mizutani/kioku/pkg/usecase/search"
	"github.com/m-mizutani/kioku/pkg/utils/logging"
)

// Server exposes the memory and search usecases over HTTP.
type Server struct {
	echo   *echo.Echo
	memory *memory.UseCase
	search *search.UseCase
	chat   *chat.UseCase
}

// Option is a functional option for Server
type Option func(*Server)

// WithChat enables the chat endpoint
func WithChat(uc *chat.UseCase) Option {
	return func(s *Server) {
		s.chat = uc
	}
}

// New creates a new HTTP server over the given usecases
func New(memoryUC *memory.UseCase, searchUC *search.UseCase, opts ...Option) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:   e,
		memory: memoryUC,
		search: searchUC,
	}

	for _, opt := range opts {
		opt(s)
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	v1 := e.Group("/v1")
	v1.POST("/sessions", s.createSession)
	v1.GET("/sessions", s.listSessions)
	v1.GET("/sessions/:id", s.getSession)
	v1.DELETE("/sessions/:id", s.deleteSession)
	v1.POST("/events", s.createEvent)
	v1.GET("/events", s.getEvents)
	v1.POST("/documents", s.indexDocument)
	v1.POST("/search", s.searchDocuments)
	if s.chat != nil {
		v1.POST("/chat", s.sendChat)
	}

	return s
}

// Handler returns the underlying http.Handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves HTTP on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	logging.Default().Info("starting HTTP server", "addr", addr)
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return goerr.Wrap(err, "failed to start server", goerr.V("addr", addr))
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return goerr.Wrap(err, "failed to shut down server")
	}
	return nil
}
