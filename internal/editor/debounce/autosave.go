package debounce

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const DefaultAutoSaveDelay = 2 * time.Second

var debounceLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	debounceLogger = l
}

// SaveFunc persists one snapshot of a form value.
type SaveFunc[T any] func(ctx context.Context, v T) error

// AutoSaver saves a JSON-serializable value once edits have been idle for
// its delay. A value that serializes the same as the last one saved is not
// written again.
type AutoSaver[T any] struct {
	mu        sync.Mutex
	deb       *Debouncer
	save      SaveFunc[T]
	value     T
	last      []byte
	lastErr   error
	ctx       context.Context
	onSaved   func(T)
	onSkipped func(T)
	onFailed  func(error)
}

type AutoSaveOption[T any] func(*AutoSaver[T])

// WithSaved registers a callback run after every successful write.
func WithSaved[T any](f func(T)) AutoSaveOption[T] {
	return func(a *AutoSaver[T]) { a.onSaved = f }
}

// WithSkipped registers a callback run when a due value matches the last
// one written.
func WithSkipped[T any](f func(T)) AutoSaveOption[T] {
	return func(a *AutoSaver[T]) { a.onSkipped = f }
}

// WithContext sets the context passed to every save.
func WithContext[T any](ctx context.Context) AutoSaveOption[T] {
	return func(a *AutoSaver[T]) { a.ctx = ctx }
}

// WithFailed registers a callback run after a failed write.
func WithFailed[T any](f func(error)) AutoSaveOption[T] {
	return func(a *AutoSaver[T]) { a.onFailed = f }
}

func NewAutoSaver[T any](clock Clock, delay time.Duration, save SaveFunc[T], opts ...AutoSaveOption[T]) *AutoSaver[T] {
	if delay <= 0 {
		delay = DefaultAutoSaveDelay
	}
	a := &AutoSaver[T]{save: save, ctx: context.Background()}
	for _, opt := range opts {
		opt(a)
	}
	a.deb = NewDebouncer(clock, delay, a.run)
	return a
}

// Update records the latest value and restarts the idle timer.
func (a *AutoSaver[T]) Update(v T) {
	a.mu.Lock()
	a.value = v
	a.mu.Unlock()
	a.deb.Trigger()
}

// Reset makes v the saved baseline without writing it, and drops any
// pending save.
func (a *AutoSaver[T]) Reset(v T) {
	a.deb.Cancel()
	data, err := json.Marshal(v)
	if err != nil {
		debounceLogger.Error().Err(err).Msg("Error serializing auto-save value")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.value = v
	a.last = data
}

// Flush saves a pending value immediately. It reports whether a save was
// pending.
func (a *AutoSaver[T]) Flush() bool { return a.deb.Flush() }

func (a *AutoSaver[T]) Cancel() { a.deb.Cancel() }

func (a *AutoSaver[T]) Pending() bool { return a.deb.Pending() }

// Err returns the error from the most recent write attempt.
func (a *AutoSaver[T]) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

func (a *AutoSaver[T]) run() {
	a.mu.Lock()
	v := a.value
	last := a.last
	a.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		debounceLogger.Error().Err(err).Msg("Error serializing auto-save value")
		a.failed(err)
		return
	}
	if last != nil && bytes.Equal(data, last) {
		debounceLogger.Debug().Msg("Auto-save value unchanged, skipping write")
		if a.onSkipped != nil {
			a.onSkipped(v)
		}
		return
	}

	if err := a.save(a.ctx, v); err != nil {
		debounceLogger.Error().Err(err).Msg("Error auto-saving")
		a.failed(err)
		return
	}

	a.mu.Lock()
	a.last = data
	a.lastErr = nil
	a.mu.Unlock()
	if a.onSaved != nil {
		a.onSaved(v)
	}
}

func (a *AutoSaver[T]) failed(err error) {
	a.mu.Lock()
	a.lastErr = err
	a.mu.Unlock()
	if a.onFailed != nil {
		a.onFailed(err)
	}
}
