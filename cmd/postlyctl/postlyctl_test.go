package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debemdeboas/postly/internal/blog"
	"github.com/debemdeboas/postly/internal/db"
	"github.com/debemdeboas/postly/internal/model"
	"github.com/debemdeboas/postly/internal/repository"
	"github.com/debemdeboas/postly/internal/rpc"
)

func newServer(t *testing.T) (*blog.Service, string) {
	t.Helper()
	database := db.NewSQLite(db.MemoryPath)
	require.NoError(t, database.InitDB())
	t.Cleanup(func() { database.Close() })

	svc := blog.NewService(repository.NewDBPostRepository(database), repository.NewDBCategoryRepository(database))
	mux := http.NewServeMux()
	mux.Handle(rpc.PathPrefix+"{procedure}", rpc.NewServer(svc))
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return svc, ts.URL
}

// execute runs the CLI with fresh flag values and returns its stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	importURL, importPublish, importCategories, importAuthor = "", false, nil, ""
	listDrafts, listSearch, listCategory, listLimit, listJSON = false, "", "", 50, false
	categoriesJSON, draftKey = false, ""
	composeTitle, composeAuthor, composeImage, composeCategories = "", "", "", nil
	composePublish, composeHTML, composeEdit = false, false, 0
	composeRestore, composeDiscard, composeSaveOnly = false, false, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestParseMarkdown(t *testing.T) {
	withFrontMatter := []byte(`%%%
title = "Notes on Go"
image = "https://example.com/cover.png"
categories = ["go", "Tools"]

[[author]]
fullname = "Ann Writer"
%%%

Some *text*.
`)
	doc := parseMarkdown("notes.md", withFrontMatter)
	assert.Equal(t, "Notes on Go", doc.Title)
	assert.Equal(t, "Ann Writer", doc.Author)
	assert.Equal(t, "https://example.com/cover.png", doc.Image)
	assert.Equal(t, []string{"go", "Tools"}, doc.Categories)
	assert.Equal(t, "Some *text*.\n", doc.Content)

	doc = parseMarkdown("heading.md", []byte("# From the heading\n\nBody"))
	assert.Equal(t, "From the heading", doc.Title)
	assert.Equal(t, "Body", doc.Content)

	doc = parseMarkdown("dir/file-name.md", []byte("Just a body"))
	assert.Equal(t, "file-name", doc.Title)
	assert.Equal(t, "Just a body", doc.Content)
}

func TestParseHTML(t *testing.T) {
	doc, err := parseHTML("page.html", "<h1>Hello</h1><p>Some <strong>bold</strong> words</p>")
	require.NoError(t, err)
	assert.Equal(t, "Hello", doc.Title)
	assert.Contains(t, doc.Content, "**bold**")
	assert.NotContains(t, doc.Content, "<p>")
}

func TestReadDocumentRejectsUnknownTypes(t *testing.T) {
	path := writeFile(t, t.TempDir(), "notes.txt", "plain")

	_, err := readDocument(path)
	assert.Error(t, err)
}

func TestImportCommand(t *testing.T) {
	svc, url := newServer(t)
	ctx := context.Background()
	cat, err := svc.CreateCategory(ctx, model.CategoryInput{Name: "Go"})
	require.NoError(t, err)

	dir := t.TempDir()
	md := writeFile(t, dir, "first.md", "%%%\ntitle = \"Imported\"\ncategories = [\"go\"]\n%%%\nHello *there*")
	page := writeFile(t, dir, "second.html", "<h1>From HTML</h1><p>Converted</p>")

	out, err := execute(t, "", "--server", url, "import", "--publish", "--author", "Bob", md, page)
	require.NoError(t, err)
	assert.Contains(t, out, "first.md -> /posts/imported")
	assert.Contains(t, out, "second.html -> /posts/from-html")

	post, err := svc.GetPostBySlug(ctx, "imported", false)
	require.NoError(t, err)
	assert.True(t, post.Published)
	assert.Equal(t, "Bob", post.Author)
	assert.Equal(t, "Hello *there*", post.Content)
	assert.Equal(t, []int64{cat.ID}, post.CategoryIDs())
}

func TestImportDirectory(t *testing.T) {
	svc, url := newServer(t)
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "# Alpha\n\nFirst")
	writeFile(t, dir, "b.html", "<h1>Beta</h1><p>Second</p>")
	writeFile(t, dir, "notes.txt", "skipped")

	out, err := execute(t, "", "--server", url, "import", dir)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "->"))

	drafts, err := svc.ListPosts(context.Background(), model.PostFilter{Published: new(bool)})
	require.NoError(t, err)
	assert.Len(t, drafts, 2, "Expected imports to stay unpublished without --publish")
}

func TestImportUnknownCategory(t *testing.T) {
	svc, url := newServer(t)
	md := writeFile(t, t.TempDir(), "post.md", "# Title\n\nBody")

	_, err := execute(t, "", "--server", url, "import", "--category", "missing", md)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown category "missing"`)

	_, err = svc.GetPostBySlug(context.Background(), "title", true)
	assert.Error(t, err, "Expected nothing to be created")
}

func TestImportNeedsInput(t *testing.T) {
	_, err := execute(t, "", "import")
	assert.Error(t, err)
}

func TestPostsList(t *testing.T) {
	svc, url := newServer(t)
	ctx := context.Background()
	_, err := svc.CreatePost(ctx, model.PostInput{Title: "Live post", Content: "x", Published: true})
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, model.PostInput{Title: "Hidden post", Content: "y"})
	require.NoError(t, err)

	out, err := execute(t, "", "--server", url, "posts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Live post")
	assert.Contains(t, out, "SLUG")
	assert.NotContains(t, out, "Hidden post")

	out, err = execute(t, "", "--server", url, "posts", "list", "--drafts")
	require.NoError(t, err)
	assert.Contains(t, out, "Hidden post")
	assert.Contains(t, out, "draft")

	out, err = execute(t, "", "--server", url, "posts", "list", "--json")
	require.NoError(t, err)
	var posts []model.Post
	require.NoError(t, json.Unmarshal([]byte(out), &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, "live-post", posts[0].Slug)
}

func TestPostsTableEmpty(t *testing.T) {
	assert.Equal(t, "No posts.", postsTable(nil))
}

func TestCategoriesCommands(t *testing.T) {
	_, url := newServer(t)

	out, err := execute(t, "", "--server", url, "categories", "add", "Cooking", "Food and such")
	require.NoError(t, err)
	assert.Contains(t, out, "Created cooking")

	out, err = execute(t, "", "--server", url, "categories", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Cooking")
	assert.Contains(t, out, "Food and such")

	_, err = execute(t, "", "--server", url, "categories", "add", " ")
	assert.Error(t, err, "Expected a blank name to be rejected")
}

func TestComposeDraftLifecycle(t *testing.T) {
	svc, url := newServer(t)
	dir := t.TempDir()
	drafts := filepath.Join(dir, "drafts")
	cfgPath := writeFile(t, dir, "config.yaml", "drafts:\n  store: file\n  dir: "+drafts+"\n")
	stored := filepath.Join(drafts, "postly-draft.json")

	out, err := execute(t, "Draft *body*", "--server", url, "--config", cfgPath,
		"compose", "--save-only", "--title", "Later")
	require.NoError(t, err)
	assert.Contains(t, out, `Saved draft "postly-draft"`)
	assert.FileExists(t, stored)

	out, err = execute(t, "", "--config", cfgPath, "drafts", "show")
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "Later"`)

	out, err = execute(t, "", "--server", url, "--config", cfgPath, "compose", "--restore", "--publish")
	require.NoError(t, err)
	assert.Equal(t, "/posts/later\n", out)
	assert.NoFileExists(t, stored)

	post, err := svc.GetPostBySlug(context.Background(), "later", false)
	require.NoError(t, err)
	assert.Equal(t, "Draft *body*", post.Content)
}

func TestComposeKeepsDraftOnRejection(t *testing.T) {
	_, url := newServer(t)
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", "drafts:\n  store: file\n  dir: "+dir+"\n")

	_, err := execute(t, "A body without a title", "--server", url, "--config", cfgPath, "compose")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "draft kept")
	assert.FileExists(t, filepath.Join(dir, "postly-draft.json"))

	out, err := execute(t, "", "--config", cfgPath, "drafts", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared")
	assert.NoFileExists(t, filepath.Join(dir, "postly-draft.json"))
}

func TestComposeRefusesToOverwriteStoredDraft(t *testing.T) {
	_, url := newServer(t)
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", "drafts:\n  store: file\n  dir: "+dir+"\n")
	stored := filepath.Join(dir, "postly-draft.json")

	_, err := execute(t, "Keep me", "--server", url, "--config", cfgPath,
		"compose", "--save-only", "--title", "Precious")
	require.NoError(t, err)

	_, err = execute(t, "Another body", "--server", url, "--config", cfgPath, "compose", "--title", "Other")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--restore")
	assert.Contains(t, err.Error(), "--discard")

	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Precious")
	assert.NotContains(t, string(data), "Other")
}

func TestOpenDraftStoreRejectsMemory(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", "drafts:\n  store: memory\n")

	_, err := execute(t, "", "--config", cfgPath, "drafts", "clear")
	assert.Error(t, err)
}
