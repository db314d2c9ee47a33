package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListNotes returns the caller's loaded note list with its per-day series.
func (s *Server) ListNotes(c *gin.Context) {
	coord := sessionCoordinator(c)
	if coord == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	notes := coord.Notes()
	series := s.projector.Project(nil, notes)
	c.JSON(http.StatusOK, gin.H{
		"data":        notes,
		"time_series": series.TimeSeries,
	})
}
