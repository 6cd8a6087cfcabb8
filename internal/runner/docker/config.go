package docker

import (
	"time"
)

// Config holds the sandbox container settings.
type Config struct {
	Image string
	// MemoryLimit is in bytes.
	MemoryLimit int64
	CPULimit    float64
	Timeout     time.Duration
	// PoolSize is the number of pre-warmed containers kept ready.
	PoolSize int
	// OutputLimit caps stdout and stderr separately, in bytes.
	OutputLimit int
}

func DefaultConfig() Config {
	return Config{
		Image:       "node:22-alpine",
		MemoryLimit: 128 * 1024 * 1024,
		CPULimit:    0.5,
		Timeout:     5 * time.Second,
		PoolSize:    2,
		OutputLimit: DefaultOutputLimit,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Image == "" {
		c.Image = d.Image
	}
	if c.MemoryLimit <= 0 {
		c.MemoryLimit = d.MemoryLimit
	}
	if c.CPULimit <= 0 {
		c.CPULimit = d.CPULimit
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.PoolSize <= 0 {
		c.PoolSize = d.PoolSize
	}
	if c.OutputLimit <= 0 {
		c.OutputLimit = d.OutputLimit
	}
	return c
}
