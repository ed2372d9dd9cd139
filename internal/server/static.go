package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// mountStatic serves the built dashboard from staticDir and falls back to
// index.html for client-side routes. Unknown /api paths always get JSON.
func (s *Server) mountStatic() {
	index := s.staticFile("index.html")

	s.engine.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") || index == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
			return
		}
		c.File(index)
	})

	if s.staticDir == "" {
		s.logger.Warn("static directory not configured; API only mode")
		return
	}
	if info, err := os.Stat(s.staticDir); err != nil || !info.IsDir() {
		s.logger.Warn("static directory missing", "path", s.staticDir, "error", err)
		return
	}

	if index == "" {
		s.logger.Warn("index.html not found", "path", s.staticDir)
	} else {
		s.engine.GET("/", func(c *gin.Context) { c.File(index) })
	}
	if assets := filepath.Join(s.staticDir, "assets"); isDir(assets) {
		s.engine.StaticFS("/assets", gin.Dir(assets, false))
	}
	if favicon := s.staticFile("favicon.ico"); favicon != "" {
		s.engine.StaticFile("/favicon.ico", favicon)
	}
}

// staticFile returns the path of name inside staticDir, or "" when absent.
func (s *Server) staticFile(name string) string {
	if s.staticDir == "" {
		return ""
	}
	path := filepath.Join(s.staticDir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ""
	}
	return path
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
