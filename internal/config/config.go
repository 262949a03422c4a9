package config

import (
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	Endpoint       string
	AgentID        string
	CheckpointPath string
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	UnaryTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		Endpoint:       defaultEndpoint(),
		CheckpointPath: defaultCheckpointPath(),
		BackoffBase:    1 * time.Second,
		BackoffMax:     30 * time.Second,
		UnaryTimeout:   10 * time.Second,
	}
}

func defaultEndpoint() string {
	if ep := os.Getenv("AGENTDASH_ENDPOINT"); ep != "" {
		return ep
	}
	return "http://127.0.0.1:7799"
}

func defaultCheckpointPath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "agentdash", "checkpoints.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "agentdash.db"
	}
	return filepath.Join(home, ".local", "state", "agentdash", "checkpoints.db")
}
