// Package draft keeps the composer's unsent work across reloads. A Persister
// writes a Draft snapshot to a Store on a debounce timer and offers it back
// on the next load while it is fresh.
package draft

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultKey       = "postly-draft"
	DefaultDelay     = 3 * time.Second
	DefaultFreshness = 24 * time.Hour
)

var ErrNotFound = errors.New("draft not found")

var draftLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	draftLogger = l
}

// Draft is the persisted snapshot of the composer's fields. Timestamp is in
// epoch milliseconds.
type Draft struct {
	Title              string  `json:"title"`
	Content            string  `json:"content"`
	Author             string  `json:"author"`
	Image              string  `json:"image"`
	SelectedCategories []int64 `json:"selectedCategories"`
	Timestamp          int64   `json:"timestamp"`
}

// IsEmpty reports whether the draft has neither a title nor content.
func (d Draft) IsEmpty() bool { return d.Title == "" && d.Content == "" }

// Age is the time elapsed between the draft's timestamp and now.
func (d Draft) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(d.Timestamp))
}

// snapshot is the draft as the save timer compares it: no timestamp, and
// an empty category list rather than a nil one.
func (d Draft) snapshot() Draft {
	d.Timestamp = 0
	if d.SelectedCategories == nil {
		d.SelectedCategories = []int64{}
	}
	return d
}

// Store is a key-value port for serialized drafts.
type Store interface {
	// Get returns ErrNotFound when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
	// Clear is a no-op when key is absent.
	Clear(ctx context.Context, key string) error
}
