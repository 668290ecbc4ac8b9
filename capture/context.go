// Package capture holds the screenshot/audio references the workflow feeds to
// the model, and the bounded queues that own them.
package capture

import (
	"errors"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Context is an opaque reference to a captured screenshot or audio clip.
// The queue that holds it owns the backing file.
type Context struct {
	ID        string
	Path      string
	Preview   string // data URI for display and for sending to the model
	CreatedAt time.Time
}

func NewContext(path, preview string) Context {
	return Context{
		ID:        uuid.NewString(),
		Path:      path,
		Preview:   preview,
		CreatedAt: time.Now(),
	}
}

// RemoveFile deletes the backing file of an evicted or cleared capture.
// Queue state is the source of truth: a failed deletion is reported and
// otherwise ignored, leaving at worst an orphaned file.
func RemoveFile(c Context) {
	if c.Path == "" {
		return
	}
	if err := os.Remove(c.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("path", c.Path).Msg("remove capture file failed")
	}
}
