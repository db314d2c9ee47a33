package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	organizationdomain "github.com/smallbiznis/notewall/internal/organization/domain"
)

// EstablishSession creates (or reloads) the coordinator of the caller.
func (s *Server) EstablishSession(c *gin.Context) {
	_, snapshot, err := s.registry.Establish(c.Request.Context(), c.GetString(contextEmailKey))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": snapshot})
}

// EndSession drops the caller's coordinator and cached details.
func (s *Server) EndSession(c *gin.Context) {
	if !s.registry.End(c.Request.Context(), c.GetString(contextEmailKey)) {
		AbortWithError(c, organizationdomain.ErrSessionNotFound)
		return
	}

	c.Status(http.StatusNoContent)
}
