package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	readability "github.com/go-shiori/go-readability"
	"github.com/spf13/cobra"

	"github.com/debemdeboas/postly/internal/model"
	"github.com/debemdeboas/postly/internal/rpc"
	"github.com/debemdeboas/postly/internal/util"
)

const fetchTimeout = 30 * time.Second

var (
	importURL        string
	importPublish    bool
	importCategories []string
	importAuthor     string
)

var importCmd = &cobra.Command{
	Use:   "import [file|dir...]",
	Short: "Import Markdown or HTML files, or a web article, as posts",
	Long: `Import creates one post per file. Markdown files may start with a %%%
TOML block carrying title, author, image and categories. HTML files and
articles fetched with --url are converted to Markdown first. A directory
imports every Markdown and HTML file directly inside it.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && importURL == "" {
			return fmt.Errorf("give at least one file or --url")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client := newClient()

		paths, err := expandPaths(args)
		if err != nil {
			return err
		}

		var docs []document
		for _, path := range paths {
			doc, err := readDocument(path)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}
		if importURL != "" {
			doc, err := fetchDocument(importURL)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}

		for _, doc := range docs {
			post, err := importDocument(ctx, client, doc)
			if err != nil {
				return fmt.Errorf("importing %s: %w", doc.Source, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", doc.Source, post.Path())
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importURL, "url", "", "Fetch an article from this URL and import it")
	importCmd.Flags().BoolVar(&importPublish, "publish", false, "Publish the imported posts instead of keeping them as drafts")
	importCmd.Flags().StringSliceVar(&importCategories, "category", nil, "Category slug or name to attach (repeatable)")
	importCmd.Flags().StringVar(&importAuthor, "author", "", "Author for posts that do not name one")
	rootCmd.AddCommand(importCmd)
}

// document is a post waiting to be imported.
type document struct {
	Source     string
	Title      string
	Author     string
	Image      string
	Content    string
	Categories []string
}

// expandPaths replaces each directory with the importable files in it,
// sorted by name.
func expandPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("reading directory %s: %w", arg, err)
		}
		for _, e := range entries {
			if !e.IsDir() && importable(e.Name()) {
				paths = append(paths, filepath.Join(arg, e.Name()))
			}
		}
	}
	return paths, nil
}

func importable(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown", ".html", ".htm":
		return true
	}
	return false
}

func readDocument(path string) (document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return document{}, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return parseMarkdown(path, data), nil
	case ".html", ".htm":
		return parseHTML(path, string(data))
	}
	return document{}, fmt.Errorf("%s: unsupported file type", path)
}

// parseMarkdown takes the title from the front matter, then from a leading
// "# " heading, then from the file name.
func parseMarkdown(path string, data []byte) document {
	doc := document{Source: path, Content: string(data)}

	if fm, err := util.GetFrontMatter(data); err == nil {
		doc.Title = fm.Title
		doc.Author = fm.AuthorName()
		doc.Image = fm.Image
		doc.Categories = fm.Categories
		doc.Content = string(fm.Body)
	} else {
		ctlLogger.Debug().Err(err).Str("path", path).Msg("No front matter")
	}

	if doc.Title == "" {
		doc.Title, doc.Content = splitHeading(doc.Content)
	}
	if doc.Title == "" {
		doc.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return doc
}

// splitHeading removes a leading level one heading and returns its text.
func splitHeading(content string) (string, string) {
	trimmed := strings.TrimLeft(content, "\n")
	if !strings.HasPrefix(trimmed, "# ") {
		return "", content
	}
	line, rest, _ := strings.Cut(trimmed, "\n")
	return strings.TrimSpace(strings.TrimPrefix(line, "# ")), strings.TrimLeft(rest, "\n")
}

func parseHTML(path, src string) (document, error) {
	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(src)
	if err != nil {
		return document{}, fmt.Errorf("converting %s: %w", path, err)
	}
	doc := document{Source: path}
	doc.Title, doc.Content = splitHeading(markdown)
	if doc.Title == "" {
		doc.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return doc, nil
}

func fetchDocument(url string) (document, error) {
	article, err := readability.FromURL(url, fetchTimeout)
	if err != nil {
		return document{}, fmt.Errorf("fetching %s: %w", url, err)
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(article.Content)
	if err != nil {
		return document{}, fmt.Errorf("converting %s: %w", url, err)
	}

	return document{
		Source:  url,
		Title:   article.Title,
		Author:  article.Byline,
		Image:   article.Image,
		Content: markdown,
	}, nil
}

func importDocument(ctx context.Context, client *rpc.Client, doc document) (*model.Post, error) {
	ids, err := resolveCategories(ctx, client, append(doc.Categories, importCategories...))
	if err != nil {
		return nil, err
	}

	author := doc.Author
	if author == "" {
		author = importAuthor
	}

	post, err := client.SubmitPost(ctx, model.PostInput{
		Title:       doc.Title,
		Content:     strings.TrimSpace(doc.Content),
		Author:      author,
		Image:       doc.Image,
		Published:   importPublish,
		CategoryIDs: ids,
	})
	if err != nil {
		return nil, err
	}
	ctlLogger.Info().Int64("id", post.ID).Str("slug", post.Slug).Str("source", doc.Source).Msg("Imported")
	return post, nil
}

// resolveCategories maps slugs or names onto existing category ids.
// Unknown categories are an error so a typo does not silently drop one.
func resolveCategories(ctx context.Context, client *rpc.Client, refs []string) ([]int64, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	cats, err := client.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	var ids []int64
	seen := make(map[int64]bool)
	for _, ref := range refs {
		id, ok := findCategory(cats, ref)
		if !ok {
			return nil, fmt.Errorf("unknown category %q", ref)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func findCategory(cats []model.Category, ref string) (int64, bool) {
	slug := util.Slugify(ref)
	for _, c := range cats {
		if c.Slug == ref || c.Slug == slug || strings.EqualFold(c.Name, ref) {
			return c.ID, true
		}
	}
	return 0, false
}
