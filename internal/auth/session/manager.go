package session

import (
	"net/textproto"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/notewall/internal/config"
)

const DefaultHeaderName = "X-User-Email"

// Manager reads the session identity forwarded by the upstream identity gateway.
// It never authenticates the caller itself.
type Manager struct {
	headerName string
}

func NewManager(cfg config.Config) *Manager {
	header := strings.TrimSpace(cfg.SessionHeader)
	if header == "" {
		header = DefaultHeaderName
	}
	return &Manager{headerName: textproto.CanonicalMIMEHeaderKey(header)}
}

func (m *Manager) HeaderName() string {
	return m.headerName
}

// ReadEmail returns the session email carried by the request.
func (m *Manager) ReadEmail(c *gin.Context) (string, bool) {
	email := strings.TrimSpace(c.GetHeader(m.headerName))
	if email == "" {
		return "", false
	}
	return email, true
}
