// Package config holds the engine tuning knobs: when grouped
// aggregation fans out to the worker pool and how many workers it uses.
// A process-wide default is read under a lock and can be replaced
// wholesale or loaded from a YAML file.
package config

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Default values.
const (
	DefaultParallelThreshold = 64 // minimum group count before fan-out
)

// Config tunes engine execution. The zero value is not valid; start
// from NewConfig.
type Config struct {
	// ParallelThreshold is the minimum number of groups in a grouped
	// aggregation before work fans out to the worker pool.
	ParallelThreshold int `json:"parallel_threshold" yaml:"parallel_threshold"`
	// WorkerPoolSize is the number of workers; 0 means one per CPU.
	WorkerPoolSize int `json:"worker_pool_size" yaml:"worker_pool_size"`
}

var (
	globalConfig Config
	configMutex  sync.RWMutex
)

func init() {
	globalConfig = NewConfig()
}

// NewConfig returns the default configuration.
func NewConfig() Config {
	return Config{
		ParallelThreshold: DefaultParallelThreshold,
		WorkerPoolSize:    0,
	}
}

// Validate checks the configuration for impossible values.
func (c *Config) Validate() error {
	if c.ParallelThreshold <= 0 {
		return fmt.Errorf("ParallelThreshold must be positive, got %d", c.ParallelThreshold)
	}
	if c.WorkerPoolSize < 0 {
		return fmt.Errorf("WorkerPoolSize must be non-negative, got %d", c.WorkerPoolSize)
	}
	return nil
}

// GetConfig returns a copy of the process-wide configuration.
func GetConfig() Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// SetConfig replaces the process-wide configuration.
func SetConfig(c Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = c
	return nil
}

// Reset restores the default configuration.
func Reset() {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = NewConfig()
}

// LoadFromFile reads a YAML configuration file. Missing keys keep
// their defaults.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	c := NewConfig()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
