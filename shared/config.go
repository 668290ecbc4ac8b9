package shared

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config holds everything the host has to provide through the environment.
// Transport and auth for the model backend are external configuration, not
// part of the workflow itself.
type Config struct {
	// APIKey authenticates against the OpenAI-compatible backend. Required.
	APIKey string

	// BaseURL overrides the backend endpoint. Empty means the client default.
	BaseURL string

	// Model is the chat model name sent with every request.
	Model string

	// CaptureCommand is the shell command that takes a screenshot. It runs
	// with CAPTURE_PATH exported to the file it must write.
	CaptureCommand string

	// CaptureDir is where capture files land. Defaults next to the user cache.
	CaptureDir string
}

const defaultModel = "gpt-4o"

// FromEnv loads configuration from SOLVER_* environment variables.
func FromEnv() (Config, error) {
	cfg := Config{
		APIKey:         os.Getenv("SOLVER_API_KEY"),
		BaseURL:        os.Getenv("SOLVER_BASE_URL"),
		Model:          os.Getenv("SOLVER_MODEL"),
		CaptureCommand: os.Getenv("SOLVER_CAPTURE_CMD"),
		CaptureDir:     os.Getenv("SOLVER_CAPTURE_DIR"),
	}
	if cfg.APIKey == "" {
		return Config{}, fmt.Errorf("api key SOLVER_API_KEY not set")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.CaptureDir == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve capture dir: %w", err)
		}
		cfg.CaptureDir = filepath.Join(cacheDir, "screensolver", "captures")
	}
	return cfg, nil
}
