package capture

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"screensolver/shared"
)

// Source produces capture files. The workflow treats it as an opaque
// collaborator; hosts may plug in their own.
type Source interface {
	Capture(ctx context.Context) (Context, error)
}

// Grabber runs a host-configured shell command to take a screenshot. The
// command is interpreted in-process so pipes and quoting behave the same on
// every host, and it sees CAPTURE_PATH pointing at the file it must write.
type Grabber struct {
	command string
	dir     string
}

func NewGrabber(cfg shared.Config) *Grabber {
	return &Grabber{
		command: cfg.CaptureCommand,
		dir:     cfg.CaptureDir,
	}
}

func (g *Grabber) Capture(ctx context.Context) (Context, error) {
	if g.command == "" {
		return Context{}, fmt.Errorf("no capture command configured (SOLVER_CAPTURE_CMD)")
	}
	if err := os.MkdirAll(g.dir, 0755); err != nil {
		return Context{}, fmt.Errorf("create capture dir: %w", err)
	}
	path := filepath.Join(g.dir, "capture-"+uuid.NewString()+".png")

	file, err := syntax.NewParser().Parse(strings.NewReader(g.command), "capture")
	if err != nil {
		return Context{}, fmt.Errorf("parse capture command: %w", err)
	}
	env := expand.ListEnviron(append(os.Environ(), "CAPTURE_PATH="+path)...)
	runner, err := interp.New(
		interp.Env(env),
		interp.Dir(g.dir),
		interp.StdIO(nil, io.Discard, os.Stderr),
	)
	if err != nil {
		return Context{}, fmt.Errorf("init capture shell: %w", err)
	}
	if err := runner.Run(ctx, file); err != nil {
		return Context{}, fmt.Errorf("capture command: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Context{}, fmt.Errorf("read capture output: %w", err)
	}
	log.Debug().Str("path", path).Int("bytes", len(data)).Msg("capture taken")

	preview := "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
	return NewContext(path, preview), nil
}
