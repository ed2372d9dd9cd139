package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"piktram/internal/models"
)

// HeaderUserID carries the authenticated user id set by the auth proxy.
const HeaderUserID = "X-User-ID"

const callerKey = "piktram.caller"

// requireCaller resolves the caller from HeaderUserID and the users table.
func (s *Server) requireCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseUUID(c.GetHeader(HeaderUserID))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid " + HeaderUserID})
			return
		}

		role, err := s.store.UserRole(c.Request.Context(), id)
		if err != nil {
			s.logger.Error("resolve caller role", slog.String("user", id), slog.String("error", err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.Set(callerKey, models.Caller{OwnerID: id, IsAdmin: role == models.RoleAdmin})
		c.Next()
	}
}

func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !callerOf(c).IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}

func callerOf(c *gin.Context) models.Caller {
	v, _ := c.Get(callerKey)
	caller, _ := v.(models.Caller)
	return caller
}

// ownerFor returns the owner a new row belongs to. Admins may create rows
// for another user; everyone else creates their own.
func ownerFor(caller models.Caller, requested string) (string, bool) {
	if requested == "" || requested == caller.OwnerID {
		return caller.OwnerID, true
	}
	if !caller.IsAdmin {
		return "", false
	}
	id, err := parseUUID(requested)
	if err != nil {
		return "", false
	}
	return id, true
}

func parseUUID(raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
