package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "defaults", config: NewConfig(), wantErr: false},
		{name: "explicit worker count", config: Config{ParallelThreshold: 10, WorkerPoolSize: 4}, wantErr: false},
		{name: "zero threshold", config: Config{ParallelThreshold: 0}, wantErr: true},
		{name: "negative workers", config: Config{ParallelThreshold: 1, WorkerPoolSize: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSetConfig(t *testing.T) {
	defer Reset()

	require.NoError(t, SetConfig(Config{ParallelThreshold: 10, WorkerPoolSize: 2}))
	assert.Equal(t, 10, GetConfig().ParallelThreshold)

	assert.Error(t, SetConfig(Config{ParallelThreshold: -1}))
	// A rejected config leaves the previous one in place.
	assert.Equal(t, 10, GetConfig().ParallelThreshold)

	Reset()
	assert.Equal(t, DefaultParallelThreshold, GetConfig().ParallelThreshold)
}

func TestLoadFromFile(t *testing.T) {
	t.Run("missing keys keep defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("worker_pool_size: 3\n"), 0o644))

		c, err := LoadFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, DefaultParallelThreshold, c.ParallelThreshold)
		assert.Equal(t, 3, c.WorkerPoolSize)
	})

	t.Run("invalid values rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("parallel_threshold: -5\n"), 0o644))

		_, err := LoadFromFile(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
