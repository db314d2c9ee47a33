package server

import (
	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/notewall/internal/observability/context"
	"github.com/smallbiznis/notewall/internal/organization/coordinator"
)

const (
	contextEmailKey       = "session_email"
	contextCoordinatorKey = "session_coordinator"
)

// SessionIdentity requires the gateway email header and puts it on the request context.
func (s *Server) SessionIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		email, ok := s.sessions.ReadEmail(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextEmailKey, email)
		c.Request = c.Request.WithContext(obscontext.WithActor(c.Request.Context(), email))
		c.Next()
	}
}

// SessionRequired resolves the coordinator of an established session.
func (s *Server) SessionRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		coord, err := s.registry.Get(c.Request.Context(), c.GetString(contextEmailKey))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextCoordinatorKey, coord)
		c.Next()
	}
}

func sessionCoordinator(c *gin.Context) *coordinator.Coordinator {
	value, ok := c.Get(contextCoordinatorKey)
	if !ok {
		return nil
	}
	coord, _ := value.(*coordinator.Coordinator)
	return coord
}
