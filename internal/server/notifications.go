package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"piktram/internal/models"
)

// handleListNotifications returns the caller's newest notifications.
func (s *Server) handleListNotifications(c *gin.Context) {
	unread := false
	if raw := c.Query("unread"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			s.badRequest(c, errors.New("invalid unread"))
			return
		}
		unread = v
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	items, err := s.store.ListNotifications(c.Request.Context(), callerOf(c), unread, limit)
	if err != nil {
		s.writeErr(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"notifications": items})
}

// handleMarkNotificationRead flags a notification as read.
func (s *Server) handleMarkNotificationRead(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.store.MarkNotificationRead(c.Request.Context(), callerOf(c), id); err != nil {
		s.writeErr(c, err)
		return
	}
	respondSuccess(c, http.StatusNoContent, nil)
}

type userRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// handleUpsertUser sets a user's email and role. Admin only.
func (s *Server) handleUpsertUser(c *gin.Context) {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		s.badRequest(c, errors.New("invalid user id"))
		return
	}
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	switch req.Role {
	case "", models.RoleClient, models.RoleAdmin:
	default:
		s.badRequest(c, errors.New("role must be client or admin"))
		return
	}

	u := models.User{ID: id, Email: req.Email, Role: req.Role}
	if err := s.store.UpsertUser(c.Request.Context(), u); err != nil {
		s.writeErr(c, err)
		return
	}
	if u.Role == "" {
		u.Role = models.RoleClient
	}
	respondSuccess(c, http.StatusOK, gin.H{"user": u})
}
