package draft

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/debemdeboas/postly/internal/editor/debounce"
)

type State int

const (
	Clean State = iota
	Dirty
	Persisting
)

func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	case Persisting:
		return "persisting"
	}
	return "unknown"
}

// Offer is a stored draft that is fresh enough to restore.
type Offer struct {
	Draft Draft
	Age   time.Duration
}

type Options struct {
	Key       string
	Delay     time.Duration
	Freshness time.Duration
	Clock     debounce.Clock
	// Context is passed to store writes made by the timer.
	Context context.Context
}

func (o Options) withDefaults() Options {
	if o.Key == "" {
		o.Key = DefaultKey
	}
	if o.Delay <= 0 {
		o.Delay = DefaultDelay
	}
	if o.Freshness <= 0 {
		o.Freshness = DefaultFreshness
	}
	if o.Clock == nil {
		o.Clock = debounce.RealClock
	}
	if o.Context == nil {
		o.Context = context.Background()
	}
	return o
}

// Persister moves between Clean, Dirty and Persisting. Tracked changes make
// it Dirty and restart the save timer; when the timer fires the full
// snapshot is written once and it returns to Clean, or to Dirty if the write
// failed.
type Persister struct {
	mu    sync.Mutex
	store Store
	opts  Options
	state State
	offer *Offer
	saver *debounce.AutoSaver[Draft]
}

func NewPersister(store Store, opts Options) *Persister {
	p := &Persister{store: store, opts: opts.withDefaults()}
	p.saver = debounce.NewAutoSaver(p.opts.Clock, p.opts.Delay, p.write,
		debounce.WithSkipped(func(Draft) { p.settle(Clean) }),
		debounce.WithContext[Draft](p.opts.Context))
	return p
}

func (p *Persister) Key() string { return p.opts.Key }

func (p *Persister) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Pending reports whether a save timer is live.
func (p *Persister) Pending() bool { return p.saver.Pending() }

// Load reads the store once. A fresh, non-empty draft is kept as the pending
// offer and returned. Corrupt, stale and empty drafts are cleared.
func (p *Persister) Load(ctx context.Context) *Offer {
	data, err := p.store.Get(ctx, p.opts.Key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		draftLogger.Error().Err(err).Str("key", p.opts.Key).Msg("Error reading draft")
		return nil
	}

	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		draftLogger.Warn().Err(err).Str("key", p.opts.Key).Msg("Discarding corrupt draft")
		p.clear(ctx)
		return nil
	}

	age := d.Age(p.opts.Clock.Now())
	if age >= p.opts.Freshness || d.IsEmpty() {
		draftLogger.Debug().Dur("age", age).Bool("empty", d.IsEmpty()).Msg("Discarding stale or empty draft")
		p.clear(ctx)
		return nil
	}

	p.mu.Lock()
	p.offer = &Offer{Draft: d, Age: age}
	p.mu.Unlock()
	return &Offer{Draft: d, Age: age}
}

// Restore consumes the pending offer. Restoring does not count as a change.
// A second call finds no offer and returns false.
func (p *Persister) Restore() (Draft, bool) {
	p.mu.Lock()
	offer := p.offer
	p.offer = nil
	if offer != nil {
		p.state = Clean
	}
	p.mu.Unlock()

	if offer == nil {
		return Draft{}, false
	}
	p.saver.Reset(offer.Draft.snapshot())
	return offer.Draft, true
}

// Discard drops the pending offer and clears the store. Repeating it is
// harmless.
func (p *Persister) Discard(ctx context.Context) error {
	p.mu.Lock()
	p.offer = nil
	p.mu.Unlock()
	return p.reset(ctx)
}

// Track records a change to the composer's fields.
func (p *Persister) Track(d Draft) {
	p.mu.Lock()
	p.state = Dirty
	p.mu.Unlock()
	p.saver.Update(d.snapshot())
}

// Flush writes a pending change now instead of waiting for the timer.
func (p *Persister) Flush() bool { return p.saver.Flush() }

// Submitted cancels any pending save and clears the stored draft.
func (p *Persister) Submitted(ctx context.Context) error {
	return p.reset(ctx)
}

// ConfirmLeave reports whether leaving now would lose unsaved work.
func (p *Persister) ConfirmLeave(title, content string) bool {
	return p.State() != Clean && (title != "" || content != "")
}

// Close stops the timer without writing.
func (p *Persister) Close() { p.saver.Cancel() }

func (p *Persister) reset(ctx context.Context) error {
	p.saver.Reset(Draft{}.snapshot())
	p.mu.Lock()
	p.state = Clean
	p.mu.Unlock()
	return p.clear(ctx)
}

func (p *Persister) clear(ctx context.Context) error {
	if err := p.store.Clear(ctx, p.opts.Key); err != nil {
		draftLogger.Error().Err(err).Str("key", p.opts.Key).Msg("Error clearing draft")
		return err
	}
	return nil
}

func (p *Persister) write(ctx context.Context, d Draft) error {
	p.mu.Lock()
	if p.state != Dirty || !p.saver.Pending() {
		p.state = Persisting
	}
	p.mu.Unlock()

	d.Timestamp = p.opts.Clock.Now().UnixMilli()
	data, err := json.Marshal(d)
	if err == nil {
		err = p.store.Set(ctx, p.opts.Key, data)
	}
	if err != nil {
		draftLogger.Error().Err(err).Str("key", p.opts.Key).Msg("Error saving draft")
		p.settle(Dirty)
		return err
	}

	draftLogger.Debug().Str("key", p.opts.Key).Int("bytes", len(data)).Msg("Draft saved")
	p.settle(Clean)
	return nil
}

// settle leaves Persisting, unless a newer change already made the state
// Dirty again.
func (p *Persister) settle(to State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if to == Clean && p.state == Dirty && p.saver.Pending() {
		return
	}
	p.state = to
}
