package shared

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func init() {
	wd, err := os.Getwd()
	if err != nil {
		wd = ""
	}

	level := zerolog.InfoLevel
	if raw := os.Getenv("SOLVER_LOG_LEVEL"); raw != "" {
		if parsed, err := zerolog.ParseLevel(raw); err == nil {
			level = parsed
		}
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
		FormatCaller: func(i interface{}) string {
			path, ok := i.(string)
			if !ok {
				return ""
			}
			relPath, err := filepath.Rel(wd, path)
			if err != nil {
				relPath = path
			}
			return fmt.Sprintf("[%s]", relPath)
		},
		NoColor: false,
	}
	log.Logger = zerolog.New(consoleWriter).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()
}
