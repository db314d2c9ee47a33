package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/notewall/internal/config"
	"github.com/stretchr/testify/assert"
)

func newContext(header, value string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	c.Request = req
	return c
}

func TestReadEmailFromDefaultHeader(t *testing.T) {
	m := NewManager(config.Config{})
	assert.Equal(t, DefaultHeaderName, m.HeaderName())

	email, ok := m.ReadEmail(newContext("X-User-Email", " a@x.io "))
	assert.True(t, ok)
	assert.Equal(t, "a@x.io", email)
}

func TestReadEmailFromConfiguredHeader(t *testing.T) {
	m := NewManager(config.Config{SessionHeader: "x-forwarded-email"})

	email, ok := m.ReadEmail(newContext("X-Forwarded-Email", "b@x.io"))
	assert.True(t, ok)
	assert.Equal(t, "b@x.io", email)

	_, ok = m.ReadEmail(newContext("X-User-Email", "b@x.io"))
	assert.False(t, ok)
}

func TestReadEmailMissing(t *testing.T) {
	m := NewManager(config.Config{})

	_, ok := m.ReadEmail(newContext("", ""))
	assert.False(t, ok)
}
