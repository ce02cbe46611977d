package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://localhost:11434", cfg.Host)
	assert.Equal(t, "nomic-embed-text", cfg.EmbeddingModel)
}

func TestNewConfigOptions(t *testing.T) {
	cfg := NewConfig(
		WithHost("http://ollama.internal:11434/"),
		WithEmbeddingModel("all-minilm"),
		WithTimeout(30*time.Second),
	)
	require.NoError(t, cfg.Validate())

	// trailing slash trimmed by normalization
	assert.Equal(t, "http://ollama.internal:11434", cfg.Host)
	assert.Equal(t, "all-minilm", cfg.EmbeddingModel)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}

func TestConfigValidate(t *testing.T) {
	t.Run("missing host", func(t *testing.T) {
		cfg := NewConfig(WithHost(""))
		assert.ErrorIs(t, cfg.Validate(), ErrNotConfigured)
	})

	t.Run("missing embedding model", func(t *testing.T) {
		cfg := NewConfig(WithEmbeddingModel(""))
		assert.ErrorIs(t, cfg.Validate(), ErrNotConfigured)
	})
}
