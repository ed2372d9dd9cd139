package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"piktram/internal/reconcile"
	"piktram/internal/storage/sqldb"
)

// writeErr maps domain errors to HTTP status codes.
func (s *Server) writeErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, reconcile.ErrTaskNotFound),
		errors.Is(err, reconcile.ErrProjectNotFound),
		errors.Is(err, sqldb.ErrNotificationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, reconcile.ErrInvalidTask),
		errors.Is(err, reconcile.ErrInvalidProject):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, sqldb.ErrProjectExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, reconcile.ErrProgressStale):
		s.logger.Warn("progress unavailable", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		s.respondError(c, http.StatusInternalServerError, err)
	}
}

// respondError logs the error and returns a JSON payload. Server errors
// hide the cause from the client.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}

func (s *Server) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
