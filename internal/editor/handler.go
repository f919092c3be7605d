// Package editor serves the composer: its pages, the live preview partial,
// the draft API and image uploads.
package editor

import (
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/postly/internal/apperr"
	"github.com/debemdeboas/postly/internal/blog"
	"github.com/debemdeboas/postly/internal/config"
	"github.com/debemdeboas/postly/internal/editor/codec"
	"github.com/debemdeboas/postly/internal/editor/composer"
	"github.com/debemdeboas/postly/internal/editor/draft"
	"github.com/debemdeboas/postly/internal/editor/shortcut"
	"github.com/debemdeboas/postly/internal/images"
	"github.com/debemdeboas/postly/internal/model"
	"github.com/debemdeboas/postly/internal/render"
	"github.com/debemdeboas/postly/internal/routes"
	"github.com/debemdeboas/postly/internal/theme"
	"github.com/debemdeboas/postly/internal/util"
	"github.com/debemdeboas/postly/internal/web"
)

const maxFormBytes = 1 << 20

var validKey = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

var editorLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	editorLogger = l
}

type Options struct {
	DraftKey      string
	Delay         time.Duration
	Freshness     time.Duration
	MaxImageBytes int64
	// AllowedTypes narrows the accepted image types. Empty accepts every
	// type images.Validate knows.
	AllowedTypes []string
}

// OptionsFromConfig reads the draft and upload settings from c.
func OptionsFromConfig(c *config.Config) Options {
	return Options{
		DraftKey:      c.Drafts.Key,
		Delay:         c.Drafts.Delay(),
		Freshness:     c.Drafts.Freshness(),
		MaxImageBytes: int64(c.Images.MaxBytes),
		AllowedTypes:  c.Images.AllowedTypes,
	}
}

func (o Options) withDefaults() Options {
	if o.DraftKey == "" {
		o.DraftKey = draft.DefaultKey
	}
	if o.Delay <= 0 {
		o.Delay = draft.DefaultDelay
	}
	if o.Freshness <= 0 {
		o.Freshness = draft.DefaultFreshness
	}
	if o.MaxImageBytes <= 0 {
		o.MaxImageBytes = images.DefaultMaxBytes
	}
	return o
}

type Handler struct {
	svc    *blog.Service
	drafts draft.Store
	images images.Store
	tmpl   *web.Templates
	opts   Options
}

func NewHandler(svc *blog.Service, drafts draft.Store, imgs images.Store, tmpl *web.Templates, opts Options) *Handler {
	return &Handler{
		svc:    svc,
		drafts: drafts,
		images: imgs,
		tmpl:   tmpl,
		opts:   opts.withDefaults(),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+routes.NewPost, h.serveNew)
	mux.HandleFunc("POST "+routes.NewPost, h.submit)
	mux.HandleFunc("GET "+routes.EditPost, h.serveEdit)
	mux.HandleFunc("POST "+routes.EditPost, h.submit)

	mux.HandleFunc("POST "+routes.PartialsDraftPreview, h.preview)

	mux.HandleFunc("GET "+routes.APIDrafts, h.getDraft)
	mux.HandleFunc("PUT "+routes.APIDrafts, h.putDraft)
	mux.HandleFunc("DELETE "+routes.APIDrafts, h.deleteDraft)

	if h.images != nil {
		mux.HandleFunc("POST "+routes.APIImages, h.uploadImage)
	}
}

// draftKey is the storage key of the page's draft. Each edited post gets
// its own key so it cannot pick up the new-post draft.
func (h *Handler) draftKey(id int64) string {
	if id == 0 {
		return h.opts.DraftKey
	}
	return h.opts.DraftKey + "-" + strconv.FormatInt(id, 10)
}

type toolbarButton struct {
	Format   string
	Label    string
	Shortcut string
}

func toolbar(km shortcut.KeyMap) []toolbarButton {
	entries := []struct {
		format, label string
		b             key.Binding
	}{
		{"bold", "B", km.Bold},
		{"italic", "I", km.Italic},
		{"underline", "U", km.Underline},
		{"code", "Code", km.Code},
		{"link", "Link", km.Link},
		{"image", "Image", km.Image},
		{"ol", "1.", km.NumberedList},
		{"ul", "•", km.BulletList},
	}
	out := make([]toolbarButton, 0, len(entries))
	for _, e := range entries {
		out = append(out, toolbarButton{Format: e.format, Label: e.label, Shortcut: e.b.Help().Key})
	}
	return out
}

type categoryOption struct {
	model.Category
	Selected bool
}

type composerPage struct {
	*model.PageData

	DraftKey    string
	DebounceMs  int64
	FreshnessMs int64
	PostID      int64

	Title       string
	Author      string
	Image       string
	Published   bool
	ContentHTML template.HTML
	Categories  []categoryOption
	Toolbar     []toolbarButton
	Error       string
}

func (h *Handler) page(r *http.Request, title string, id int64, c *composer.Composer, formErr error) composerPage {
	f := c.Fields()
	options := make([]categoryOption, 0, len(c.Categories()))
	for _, cat := range c.Categories() {
		options = append(options, categoryOption{Category: cat, Selected: slices.Contains(f.Categories, cat.ID)})
	}

	data := composerPage{
		PageData:    model.NewPageData(r, title),
		DraftKey:    h.draftKey(id),
		DebounceMs:  h.opts.Delay.Milliseconds(),
		FreshnessMs: h.opts.Freshness.Milliseconds(),
		PostID:      id,
		Title:       f.Title,
		Author:      f.Author,
		Image:       f.Image,
		Published:   f.Published,
		ContentHTML: template.HTML(c.DisplayHTML()),
		Categories:  options,
		Toolbar:     toolbar(shortcut.DefaultKeyMap()),
	}
	if formErr != nil {
		data.Error = formMessage(formErr)
	}
	return data
}

func formMessage(err error) string {
	if errors.Is(err, composer.ErrRequired) {
		return err.Error()
	}
	return apperr.Message(err)
}

// newComposer builds a request-scoped composer over the shared draft store.
// The caller must close the returned persister.
func (h *Handler) newComposer(r *http.Request, id int64) (*composer.Composer, *draft.Persister) {
	p := draft.NewPersister(h.drafts, draft.Options{
		Key:       h.draftKey(id),
		Delay:     h.opts.Delay,
		Freshness: h.opts.Freshness,
		Context:   r.Context(),
	})
	c := composer.New(p, h.svc, composer.WithUpdater(h.svc))
	return c, p
}

func (h *Handler) serveNew(w http.ResponseWriter, r *http.Request) {
	c, p := h.newComposer(r, 0)
	defer p.Close()
	c.Mount(r.Context())

	h.tmpl.Render(w, config.TemplateComposer, http.StatusOK, h.page(r, "New post", 0, c, nil))
}

func (h *Handler) serveEdit(w http.ResponseWriter, r *http.Request) {
	id, err := web.PathID(r, "post")
	if err != nil {
		h.tmpl.Error(w, r, err)
		return
	}
	post, err := h.svc.GetPostByID(r.Context(), id)
	if err != nil {
		h.tmpl.Error(w, r, err)
		return
	}

	c, p := h.newComposer(r, id)
	defer p.Close()
	c.Mount(r.Context())
	c.Edit(post)

	h.tmpl.Render(w, config.TemplateComposer, http.StatusOK, h.page(r, "Edit "+post.Title, id, c, nil))
}

// submit handles the composer form. On failure the page is shown again with
// the entered values and the draft is written at once.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.tmpl.Error(w, r, apperr.NewValidation("form", "Could not read the form"))
		return
	}

	var id int64
	if r.PathValue("id") != "" {
		var err error
		if id, err = web.PathID(r, "post"); err != nil {
			h.tmpl.Error(w, r, err)
			return
		}
	}

	c, p := h.newComposer(r, id)
	defer p.Close()
	c.Mount(r.Context())

	if id != 0 {
		post, err := h.svc.GetPostByID(r.Context(), id)
		if err != nil {
			h.tmpl.Error(w, r, err)
			return
		}
		c.Edit(post)
	}
	applyForm(c, r)

	res, err := c.Submit(r.Context())
	if err != nil {
		c.Save()
		status := http.StatusBadRequest
		if !errors.Is(err, composer.ErrRequired) {
			status = apperr.HTTPStatus(err)
		}
		if status >= http.StatusInternalServerError {
			h.tmpl.Error(w, r, err)
			return
		}
		title := "New post"
		if id != 0 {
			title = "Edit post"
		}
		h.tmpl.Render(w, config.TemplateComposer, status, h.page(r, title, id, c, err))
		return
	}

	http.Redirect(w, r, res.Location, http.StatusSeeOther)
}

// applyForm copies the posted fields into c. The content arrives either as
// the editor's HTML or as markdown.
func applyForm(c *composer.Composer, r *http.Request) {
	c.SetTitle(r.PostFormValue("title"))
	c.SetAuthor(r.PostFormValue("author"))
	c.SetImage(r.PostFormValue("image"))
	c.SetPublished(r.PostFormValue("published") != "")

	want := make([]int64, 0, len(r.PostForm["categoryIds"]))
	for _, v := range r.PostForm["categoryIds"] {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			want = append(want, id)
		}
	}
	have := c.Fields().Categories
	for _, id := range have {
		if !slices.Contains(want, id) {
			c.ToggleCategory(id)
		}
	}
	for _, id := range want {
		if !slices.Contains(have, id) {
			c.ToggleCategory(id)
		}
	}

	if src, ok := r.PostForm["contentHtml"]; ok {
		c.SetContentHTML(strings.Join(src, ""))
	} else {
		c.SetContent(r.PostFormValue("content"))
	}
}

// markdownFrom returns the markdown a preview or draft request carries.
func markdownFrom(contentHTML *string, markdown string) string {
	if contentHTML != nil {
		return codec.ToStorage(codec.ParseHTML(*contentHTML))
	}
	return markdown
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Could not read the form", http.StatusBadRequest)
		return
	}

	var contentHTML *string
	if src, ok := r.PostForm["contentHtml"]; ok {
		joined := strings.Join(src, "")
		contentHTML = &joined
	}
	md := markdownFrom(contentHTML, r.PostFormValue("content"))
	syntaxTheme := theme.GetSyntaxThemeFromRequest(r)

	w.Header().Set(config.HCType, config.CTypeHTML+"; charset=utf-8")
	if r.URL.Query().Get("view") == "source" {
		out, err := render.HighlightMarkdown(md, syntaxTheme)
		if err != nil {
			editorLogger.Warn().Err(err).Msg("Falling back to plain markdown source")
			out = `<pre class="markdown-source">` + htmlEscape(md) + `</pre>`
		}
		w.Write([]byte(out))
		return
	}

	out, _ := render.RenderMarkdownCached([]byte(md), util.ContentHashString(md), syntaxTheme)
	w.Write(out)
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&#34;", "'", "&#39;")

func htmlEscape(s string) string { return htmlEscaper.Replace(s) }

// draftBody is a draft as the browser sends and receives it. ContentHTML
// is the content as editor markup.
type draftBody struct {
	draft.Draft
	ContentHTML *string `json:"contentHtml,omitempty"`
	AgeMs       int64   `json:"ageMs,omitempty"`
}

func (h *Handler) keyFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := r.PathValue("key")
	if !validKey.MatchString(key) {
		writeError(w, apperr.NewValidation("key", "Invalid draft key"))
		return "", false
	}
	return key, true
}

// getDraft returns the stored draft while it is fresh. Stale, empty and
// unreadable drafts are removed and reported as missing.
func (h *Handler) getDraft(w http.ResponseWriter, r *http.Request) {
	key, ok := h.keyFrom(w, r)
	if !ok {
		return
	}

	p := draft.NewPersister(h.drafts, draft.Options{Key: key, Freshness: h.opts.Freshness, Context: r.Context()})
	defer p.Close()
	offer := p.Load(r.Context())
	if offer == nil {
		writeError(w, apperr.NewNotFound("draft", key))
		return
	}

	contentHTML := codec.RenderHTML(codec.ToDisplay(offer.Draft.Content))
	writeJSON(w, http.StatusOK, draftBody{
		Draft:       offer.Draft,
		ContentHTML: &contentHTML,
		AgeMs:       offer.Age.Milliseconds(),
	})
}

func (h *Handler) putDraft(w http.ResponseWriter, r *http.Request) {
	key, ok := h.keyFrom(w, r)
	if !ok {
		return
	}

	var body draftBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBytes)).Decode(&body); err != nil {
		writeError(w, apperr.NewValidation("body", "Invalid draft"))
		return
	}

	d := body.Draft
	d.Content = markdownFrom(body.ContentHTML, d.Content)
	if d.SelectedCategories == nil {
		d.SelectedCategories = []int64{}
	}
	if d.IsEmpty() {
		if err := h.drafts.Clear(r.Context(), key); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	d.Timestamp = time.Now().UnixMilli()

	data, err := json.Marshal(d)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.drafts.Set(r.Context(), key, data); err != nil {
		editorLogger.Error().Err(err).Str("key", key).Msg("Failed to save draft")
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteDraft(w http.ResponseWriter, r *http.Request) {
	key, ok := h.keyFrom(w, r)
	if !ok {
		return
	}
	if err := h.drafts.Clear(r.Context(), key); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) uploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxImageBytes+maxFormBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperr.NewValidation("file", "No file provided"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.opts.MaxImageBytes+1))
	if err != nil {
		writeError(w, apperr.NewValidation("file", "Could not read the upload"))
		return
	}

	contentType, err := images.Validate(header.Header.Get(config.HCType), data, h.opts.MaxImageBytes)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(h.opts.AllowedTypes) > 0 && !slices.Contains(h.opts.AllowedTypes, contentType) {
		writeError(w, apperr.NewValidation("file", "Image type "+contentType+" is not accepted"))
		return
	}

	url, err := h.images.Put(r.Context(), images.NewName(contentType), contentType, data)
	if err != nil {
		editorLogger.Error().Err(err).Str("filename", header.Filename).Msg("Failed to store image")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		editorLogger.Error().Err(err).Msg("Request failed")
	}
	writeJSON(w, status, map[string]errorBody{"error": {
		Code:    apperr.Code(err),
		Message: apperr.Message(err),
		Field:   apperr.Field(err),
	}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		editorLogger.Error().Err(err).Msg("Failed to encode response")
	}
}
