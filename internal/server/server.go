package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"piktram/internal/models"
	"piktram/internal/reconcile"
	"piktram/internal/storage/sqldb"
)

// Reconciler is the task mutation surface the handlers depend on.
// *reconcile.Reconciler implements it.
type Reconciler interface {
	Create(ctx context.Context, caller models.Caller, in reconcile.NewTask) (reconcile.Outcome, error)
	SetStatus(ctx context.Context, caller models.Caller, taskID int64, raw string) (reconcile.Outcome, error)
	Reassign(ctx context.Context, caller models.Caller, taskID int64, projectID *int64) (reconcile.Outcome, error)
	Delete(ctx context.Context, caller models.Caller, taskID int64) (reconcile.Outcome, error)
	RecomputeProgress(ctx context.Context, caller models.Caller, projectID *int64) (reconcile.Progress, error)
	RecomputeAll(ctx context.Context, caller models.Caller) ([]reconcile.Progress, error)
}

var _ Reconciler = (*reconcile.Reconciler)(nil)

// Server provides HTTP handlers for the agency dashboard backend.
type Server struct {
	engine     *gin.Engine
	store      *sqldb.Store
	reconciler Reconciler
	logger     *slog.Logger
	staticDir  string
}

// New constructs the HTTP server with routes and middleware configured.
func New(store *sqldb.Store, reconciler Reconciler, logger *slog.Logger, staticDir string) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	srv := &Server{
		engine:     router,
		store:      store,
		reconciler: reconciler,
		logger:     logger,
		staticDir:  staticDir,
	}
	router.Use(srv.requestLogger())

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	s.engine.GET("/api/healthz", s.handleHealth)

	api := s.engine.Group("/api", s.requireCaller())
	{
		api.GET("/statuses", s.handleStatuses)
		api.GET("/board", s.handleBoard)
		api.POST("/recompute", s.handleRecomputeAll)

		projects := api.Group("/projects")
		{
			projects.GET("", s.handleListProjects)
			projects.POST("", s.handleCreateProject)
			projects.GET(":id", s.handleGetProject)
			projects.PUT(":id", s.handleUpdateProject)
			projects.DELETE(":id", s.handleDeleteProject)
			projects.GET(":id/tasks", s.handleListProjectTasks)
			projects.POST(":id/tasks", s.handleCreateProjectTask)
			projects.POST(":id/recompute", s.handleRecomputeProject)
		}

		tasks := api.Group("/tasks")
		{
			tasks.GET("", s.handleListTasks)
			tasks.POST("", s.handleCreateTask)
			tasks.GET(":id", s.handleGetTask)
			tasks.PATCH(":id", s.handleUpdateTask)
			tasks.DELETE(":id", s.handleDeleteTask)
			tasks.PUT(":id/status", s.handleSetStatus)
			tasks.PUT(":id/project", s.handleReassign)
			tasks.GET(":id/revisions", s.handleListRevisions)
		}

		api.GET("/notifications", s.handleListNotifications)
		api.POST("/notifications/:id/read", s.handleMarkNotificationRead)

		api.PUT("/users/:id", s.requireAdmin(), s.handleUpsertUser)
	}

	s.mountStatic()
}

// handleHealth reports readiness, including database reachability.
func (s *Server) handleHealth(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "driver": s.store.Driver()})
}

// requestLogger logs one line per API request.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		level := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.logger.Log(c.Request.Context(), level, "request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("took", time.Since(start)),
		)
	}
}

// parseID converts a path parameter to a positive int64.
func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier"})
		return 0, false
	}
	return id, true
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
