package observability

import (
	"testing"

	"github.com/smallbiznis/notewall/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigClampsSamplingAndProtocol(t *testing.T) {
	cfg := LoadConfig(config.Config{
		OTLPProtocol:      "http/protobuf",
		OTELSamplingRatio: 4,
		Environment:       "production",
	})

	assert.Equal(t, "notewall", cfg.ServiceName)
	assert.Equal(t, "http", cfg.OtelExporterProtocol)
	assert.Equal(t, 0.1, cfg.OtelSamplingRatio)
	assert.False(t, cfg.Debug())
}

func TestDebugFollowsLevelOrEnvironment(t *testing.T) {
	assert.True(t, Config{LogLevel: "debug", Environment: "production"}.Debug())
	assert.True(t, Config{LogLevel: "info", Environment: "Local"}.Debug())
	assert.False(t, Config{LogLevel: "info"}.Debug())
}
