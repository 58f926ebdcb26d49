package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tasktracker/internal/assistant"
	"tasktracker/internal/config"
	"tasktracker/internal/models"
	"tasktracker/internal/storage/sqlite"
)

// Options tune the HTTP layer.
type Options struct {
	StaticDir      string
	CORSOrigins    []string
	AssistantRate  float64
	AssistantBurst int
}

// Server provides HTTP handlers for the task tracker backend.
type Server struct {
	engine    *gin.Engine
	store     *sqlite.Store
	assistant *assistant.Bridge
	settings  *config.SettingsStore
	logger    *slog.Logger
	opts      Options
}

// New constructs the HTTP server with routes and middleware configured.
func New(store *sqlite.Store, bridge *assistant.Bridge, settings *config.SettingsStore, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(requestLogger(logger, "/api"))
	if len(opts.CORSOrigins) > 0 {
		router.Use(corsMiddleware(opts.CORSOrigins))
	}

	srv := &Server{
		engine:    router,
		store:     store,
		assistant: bridge,
		settings:  settings,
		logger:    logger,
		opts:      opts,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)

		projects := api.Group("/projects")
		{
			projects.GET("", s.handleListProjects)
			projects.POST("", s.handleCreateProject)
			projects.PUT("", s.handleReorderProjects)
			projects.PUT(":id", s.handleRenameProject)
			projects.DELETE(":id", s.handleDeleteProject)
			projects.POST(":id/move", s.handleMoveProject)
			projects.GET(":id/tasks", s.handleListTasks)
			projects.POST(":id/tasks", s.handleCreateTask)
			projects.GET(":id/board", s.handleBoard)
		}

		tasks := api.Group("/tasks")
		{
			tasks.GET(":id", s.handleGetTask)
			tasks.PUT(":id", s.handleUpdateTask)
			tasks.PATCH(":id/status", s.handleMoveTask)
			tasks.DELETE(":id", s.handleDeleteTask)
		}

		api.GET("/search", s.handleSearch)

		chat := api.Group("/assistant")
		{
			chat.GET("/messages", s.handleListMessages)
			chat.POST("/messages", rateLimiter(s.opts.AssistantRate, s.opts.AssistantBurst), s.handleSendMessage)
			chat.DELETE("/messages", s.handleResetMessages)
		}

		api.GET("/settings", s.handleGetSettings)
		api.PUT("/settings", s.handleUpdateSettings)
	}

	s.mountStatic()
}

// handleHealth reports readiness, including database reachability.
func (s *Server) handleHealth(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		s.respondError(c, http.StatusServiceUnavailable, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseID converts a path parameter to int64 with error handling.
func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier"})
		return 0, false
	}
	return id, true
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	var cfgErrs config.ValidationErrors
	switch {
	case errors.Is(err, models.ErrValidation), errors.As(err, &cfgErrs):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrForeignKey):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// fail responds with the status matching the error kind.
func (s *Server) fail(c *gin.Context, err error) {
	s.respondError(c, statusFor(err), err)
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(c.Request.Context(), level, "request failed",
		slog.String("path", c.FullPath()),
		slog.String("request_id", c.GetString(requestIDKey)),
		slog.String("error", err.Error()))
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
