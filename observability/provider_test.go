package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(buf *bytes.Buffer) Provider {
	return NewProvider(&Config{
		ServiceName:      "ytdlpro",
		Environment:      "test",
		LogLevel:         "info",
		LogOutput:        buf,
		AdditionalFields: Fields{"version": "1.0.0"},
		Registerer:       prometheus.NewRegistry(),
	})
}

func TestNewProvider(t *testing.T) {
	provider := NewProvider(&Config{ServiceName: "ytdlpro", Registerer: prometheus.NewRegistry()})

	assert.NotNil(t, provider)
	assert.Implements(t, (*Provider)(nil), provider)
}

func TestDefaultProvider_Logger(t *testing.T) {
	var buf bytes.Buffer
	provider := newTestProvider(&buf)
	defer provider.Close()

	first := provider.Logger("coordinator")
	second := provider.Logger("coordinator")
	other := provider.Logger("remote")

	assert.Same(t, first, second)
	assert.NotSame(t, first, other)

	first.Info(context.Background(), "hello", nil)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ytdlpro.coordinator", entry["service"])
	assert.Equal(t, "coordinator", entry["component"])
	assert.Equal(t, "1.0.0", entry["version"])
}

func TestDefaultProvider_Metrics(t *testing.T) {
	var buf bytes.Buffer
	provider := newTestProvider(&buf)

	first := provider.Metrics("coordinator")
	second := provider.Metrics("coordinator")
	other := provider.Metrics("download-playlist")

	assert.Same(t, first, second)
	assert.NotSame(t, first, other)
	assert.NotPanics(t, func() { other.RecordSuccess("analyze") })
}
