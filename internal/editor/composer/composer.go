// Package composer is the post editor's controller. It owns the content
// buffer and form fields, feeds every change to the draft persister, routes
// keyboard shortcuts and submits the finished post.
package composer

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/postly/internal/editor/codec"
	"github.com/debemdeboas/postly/internal/editor/content"
	"github.com/debemdeboas/postly/internal/editor/draft"
	"github.com/debemdeboas/postly/internal/editor/shortcut"
	"github.com/debemdeboas/postly/internal/model"
)

var (
	ErrRequired         = errors.New("Title and content are required")
	ErrSubmitInProgress = errors.New("a submission is already in progress")
)

var composerLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	composerLogger = l
}

// Submitter is the storage side of the composer.
type Submitter interface {
	SubmitPost(ctx context.Context, in model.PostInput) (*model.Post, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
}

// Updater saves changes to an existing post. Only needed for editing.
type Updater interface {
	UpdatePost(ctx context.Context, id int64, patch model.PostPatch) (*model.Post, error)
}

// Intent is work a shortcut asks of the surrounding UI because the composer
// cannot finish it alone.
type Intent string

const (
	IntentNone    Intent = ""
	IntentLink    Intent = "link"
	IntentImage   Intent = "image"
	IntentPublish Intent = "publish"
	IntentPreview Intent = "preview"
	IntentSave    Intent = "save"
)

// Result is a successful submission.
type Result struct {
	Post     *model.Post
	Location string
}

// Fields are the composer's form values apart from the content.
type Fields struct {
	Title      string
	Author     string
	Image      string
	Categories []int64
	Published  bool
}

type Composer struct {
	mu sync.Mutex

	buf    *content.Buffer
	fields Fields

	persister *draft.Persister
	submitter Submitter
	updater   Updater
	keys      *shortcut.Dispatcher

	editing    int64
	loading    bool
	submitting bool
	previewing bool
	intent     Intent

	categories []model.Category
}

type Option func(*Composer)

func WithUpdater(u Updater) Option {
	return func(c *Composer) { c.updater = u }
}

// WithKeyMap replaces the default shortcut bindings.
func WithKeyMap(km shortcut.KeyMap) Option {
	return func(c *Composer) { c.keys = shortcut.NewDispatcher(km.Table(c.actions())...) }
}

func New(p *draft.Persister, s Submitter, opts ...Option) *Composer {
	c := &Composer{
		buf:       content.NewBuffer(content.NewDocument()),
		persister: p,
		submitter: s,
	}
	c.keys = shortcut.NewDispatcher(shortcut.DefaultKeyMap().Table(c.actions())...)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mount loads the category list and the stored draft. The returned offer is
// non-nil when a fresh draft is waiting to be restored or discarded.
func (c *Composer) Mount(ctx context.Context) *draft.Offer {
	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
	}()

	if cats, err := c.submitter.ListCategories(ctx); err != nil {
		composerLogger.Error().Err(err).Msg("Error loading categories")
	} else {
		c.mu.Lock()
		c.categories = cats
		c.mu.Unlock()
	}

	return c.persister.Load(ctx)
}

// Edit fills the composer from an existing post. Submitting then updates it.
func (c *Composer) Edit(p *model.Post) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editing = p.ID
	c.fields = Fields{
		Title:      p.Title,
		Author:     p.Author,
		Image:      p.Image,
		Categories: p.CategoryIDs(),
		Published:  p.Published,
	}
	c.buf = content.NewBuffer(codec.ToDisplay(p.Content))
	c.buf.SetCaret(c.buf.Len())
}

// RestoreDraft applies the pending offer. Restoring is not itself a change.
func (c *Composer) RestoreDraft() bool {
	d, ok := c.persister.Restore()
	if !ok {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.fields.Title = d.Title
	c.fields.Author = d.Author
	c.fields.Image = d.Image
	c.fields.Categories = slices.Clone(d.SelectedCategories)
	c.buf = content.NewBuffer(codec.ToDisplay(d.Content))
	c.buf.SetCaret(c.buf.Len())
	composerLogger.Info().Str("title", d.Title).Msg("Draft restored")
	return true
}

// DiscardDraft drops the pending offer and the stored draft. The composer's
// fields are left as they are.
func (c *Composer) DiscardDraft(ctx context.Context) error {
	return c.persister.Discard(ctx)
}

func (c *Composer) Categories() []model.Category {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.categories)
}

func (c *Composer) Fields() Fields {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.fields
	f.Categories = slices.Clone(f.Categories)
	return f
}

func (c *Composer) Editing() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editing
}

func (c *Composer) SetTitle(title string) {
	c.update(func() { c.fields.Title = title })
}

func (c *Composer) SetAuthor(author string) {
	c.update(func() { c.fields.Author = author })
}

func (c *Composer) SetImage(url string) {
	c.update(func() { c.fields.Image = url })
}

func (c *Composer) SetPublished(published bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fields.Published = published
}

// ToggleCategory adds or removes a category from the selection.
func (c *Composer) ToggleCategory(id int64) {
	c.update(func() {
		if i := slices.Index(c.fields.Categories, id); i >= 0 {
			c.fields.Categories = slices.Delete(c.fields.Categories, i, i+1)
			return
		}
		c.fields.Categories = append(c.fields.Categories, id)
	})
}

// SetContent replaces the content with markdown, keeping the caret offset.
func (c *Composer) SetContent(markdown string) {
	c.update(func() { c.buf.Reload(codec.ToDisplay(markdown)) })
}

// SetContentHTML replaces the content with what the rich surface holds.
func (c *Composer) SetContentHTML(src string) {
	c.update(func() { c.buf.Reload(codec.ParseHTML(src)) })
}

// Content is the current content as stored markdown.
func (c *Composer) Content() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return codec.ToStorage(c.buf.Document())
}

// DisplayHTML is the content as the rich surface shows it.
func (c *Composer) DisplayHTML() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return codec.RenderHTML(c.buf.Document())
}

func (c *Composer) Select(anchor, focus int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.Select(anchor, focus)
}

func (c *Composer) Selection() content.Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Selection()
}

func (c *Composer) ActiveFormats() content.FormatSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.ActiveFormats()
}

// CurrentBlock is the block holding the caret, for the toolbar's block menu.
func (c *Composer) CurrentBlock() content.Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.BlockAt(c.buf.Selection().Focus)
}

func (c *Composer) Toggle(kind content.FormatKind) {
	c.update(func() { c.toggleLocked(kind) })
}

func (c *Composer) toggleLocked(kind content.FormatKind) {
	c.buf.Toggle(kind, c.buf.ActiveFormats().Has(kind))
}

func (c *Composer) InsertText(text string) {
	c.update(func() { c.buf.InsertText(text) })
}

func (c *Composer) InsertLineBreak() {
	c.update(func() { c.buf.InsertLineBreak() })
}

func (c *Composer) SplitBlock() {
	c.update(func() { c.buf.SplitBlock() })
}

func (c *Composer) DeleteBackward() {
	c.update(func() { c.buf.DeleteBackward() })
}

// InsertLink wraps the selection in a link, or inserts text as a new one.
// An empty href does nothing.
func (c *Composer) InsertLink(href, text string) {
	href = strings.TrimSpace(href)
	if href == "" {
		return
	}
	c.update(func() { c.buf.InsertLink(href, text) })
}

// InsertImage embeds an image at the caret. An empty src does nothing.
func (c *Composer) InsertImage(src, alt string) {
	src = strings.TrimSpace(src)
	if src == "" {
		return
	}
	c.update(func() { c.buf.InsertImage(src, alt) })
}

func (c *Composer) SetHeading(level int) {
	c.update(func() { c.buf.SetHeading(level) })
}

func (c *Composer) ToggleList(ordered bool) {
	c.update(func() { c.buf.ToggleList(ordered) })
}

func (c *Composer) ToggleQuote() {
	c.update(func() { c.buf.ToggleQuote() })
}

// Previewing reports whether the preview pane is showing.
func (c *Composer) Previewing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.previewing
}

func (c *Composer) TogglePreview() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.previewing = !c.previewing
	return c.previewing
}

// Save writes a pending draft change now.
func (c *Composer) Save() bool {
	return c.persister.Flush()
}

// HandleKey runs the shortcut bound to ev. Formatting shortcuts apply
// directly; the rest come back as an Intent. handled means the event must
// not reach the default behaviour.
func (c *Composer) HandleKey(ev shortcut.KeyEvent) (intent Intent, handled bool) {
	c.mu.Lock()
	c.intent = IntentNone
	handled = c.keys.Dispatch(ev)
	intent = c.intent
	c.mu.Unlock()

	switch intent {
	case IntentSave:
		c.Save()
	case IntentPreview:
		c.TogglePreview()
	}
	return intent, handled
}

// actions run with c.mu held.
func (c *Composer) actions() shortcut.Actions {
	edit := func(fn func()) func() {
		return func() {
			fn()
			c.trackLocked()
		}
	}
	want := func(i Intent) func() {
		return func() { c.intent = i }
	}
	return shortcut.Actions{
		Bold:         edit(func() { c.toggleLocked(content.Bold) }),
		Italic:       edit(func() { c.toggleLocked(content.Italic) }),
		Underline:    edit(func() { c.toggleLocked(content.Underline) }),
		Code:         edit(func() { c.toggleLocked(content.Code) }),
		NumberedList: edit(func() { c.buf.ToggleList(true) }),
		BulletList:   edit(func() { c.buf.ToggleList(false) }),
		Link:         want(IntentLink),
		Image:        want(IntentImage),
		Save:         want(IntentSave),
		Preview:      want(IntentPreview),
		Publish:      want(IntentPublish),
	}
}

// ConfirmLeave reports whether navigating away would lose unsaved work.
func (c *Composer) ConfirmLeave() bool {
	c.mu.Lock()
	title := c.fields.Title
	body := codec.ToStorage(c.buf.Document())
	c.mu.Unlock()
	return c.persister.ConfirmLeave(title, body)
}

// Submit validates and sends the post. On success the draft is cleared and
// the composer is emptied; on failure the collaborator's error is returned
// unchanged and the draft stays.
func (c *Composer) Submit(ctx context.Context) (Result, error) {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return Result{}, ErrSubmitInProgress
	}
	f := c.fields
	f.Categories = slices.Clone(f.Categories)
	body := codec.ToStorage(c.buf.Document())
	if strings.TrimSpace(f.Title) == "" || strings.TrimSpace(body) == "" {
		c.mu.Unlock()
		return Result{}, ErrRequired
	}
	editing := c.editing
	c.submitting = true
	c.mu.Unlock()

	post, err := c.send(ctx, editing, f, body)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false
	if err != nil {
		composerLogger.Error().Err(err).Str("title", f.Title).Msg("Error submitting post")
		return Result{}, err
	}

	if err := c.persister.Submitted(ctx); err != nil {
		composerLogger.Warn().Err(err).Msg("Post saved but the draft could not be cleared")
	}
	c.fields = Fields{}
	c.editing = 0
	c.buf = content.NewBuffer(content.NewDocument())
	composerLogger.Info().Int64("id", post.ID).Str("slug", post.Slug).Msg("Post submitted")
	return Result{Post: post, Location: post.Path()}, nil
}

func (c *Composer) send(ctx context.Context, editing int64, f Fields, body string) (*model.Post, error) {
	if editing != 0 && c.updater != nil {
		return c.updater.UpdatePost(ctx, editing, model.PostPatch{
			Title:       &f.Title,
			Content:     &body,
			Author:      &f.Author,
			Image:       &f.Image,
			Published:   &f.Published,
			CategoryIDs: &f.Categories,
		})
	}
	return c.submitter.SubmitPost(ctx, model.PostInput{
		Title:       f.Title,
		Content:     body,
		Author:      f.Author,
		Image:       f.Image,
		Published:   f.Published,
		CategoryIDs: f.Categories,
	})
}

// update applies fn under the lock and records the change.
func (c *Composer) update(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
	c.trackLocked()
}

func (c *Composer) trackLocked() {
	if c.loading {
		return
	}
	c.persister.Track(draft.Draft{
		Title:              c.fields.Title,
		Content:            codec.ToStorage(c.buf.Document()),
		Author:             c.fields.Author,
		Image:              c.fields.Image,
		SelectedCategories: slices.Clone(c.fields.Categories),
	})
}
