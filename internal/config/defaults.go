package config

import (
	"fmt"
	"runtime"
)

// DefaultSettings returns the built-in configuration.
func DefaultSettings() *Settings {
	return &Settings{
		Threads:       runtime.NumCPU(),
		Instances:     0,
		RetrieveCount: 10,
		WorkDir:       "",
		LogLevel:      "info",
	}
}

// Validate rejects settings no run could make progress with.
func (s *Settings) Validate() error {
	if s.Threads < 1 {
		return fmt.Errorf("threads must be at least 1, got %d", s.Threads)
	}
	if s.Instances < 0 {
		return fmt.Errorf("instances must not be negative, got %d", s.Instances)
	}
	if s.RetrieveCount < 1 {
		return fmt.Errorf("retrieve_count must be at least 1, got %d", s.RetrieveCount)
	}
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", s.LogLevel)
	}
	return nil
}
