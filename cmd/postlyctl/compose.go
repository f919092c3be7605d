package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/debemdeboas/postly/internal/apperr"
	"github.com/debemdeboas/postly/internal/editor/composer"
	"github.com/debemdeboas/postly/internal/editor/draft"
)

var (
	composeTitle      string
	composeAuthor     string
	composeImage      string
	composeCategories []string
	composePublish    bool
	composeHTML       bool
	composeEdit       int64
	composeRestore    bool
	composeDiscard    bool
	composeSaveOnly   bool
)

var composeCmd = &cobra.Command{
	Use:   "compose [file]",
	Short: "Write a post from a file or stdin through the composer",
	Long: `Compose reads Markdown (or HTML with --html) from a file or stdin and
submits it the way the web composer does. The work is kept in the configured
draft store until the server accepts it, so a failed submission can be
picked up again with --restore.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, closeStore, err := openDraftStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		client := newClient()
		key := keyOrDefault(cfg)
		if composeEdit != 0 {
			key += "-" + strconv.FormatInt(composeEdit, 10)
		}
		p := draft.NewPersister(store, draft.Options{
			Key:       key,
			Delay:     cfg.Drafts.Delay(),
			Freshness: cfg.Drafts.Freshness(),
			Context:   ctx,
		})
		defer p.Close()
		c := composer.New(p, client, composer.WithUpdater(client))

		if composeEdit != 0 {
			post, err := client.GetPostByID(ctx, composeEdit)
			if err != nil {
				return err
			}
			c.Edit(post)
		}

		if offer := c.Mount(ctx); offer != nil {
			switch {
			case composeRestore:
				c.RestoreDraft()
				fmt.Fprintf(cmd.ErrOrStderr(), "Restored %q from %s ago\n", offer.Draft.Title, offer.Age.Round(time.Second))
			case composeDiscard:
				if err := c.DiscardDraft(ctx); err != nil {
					return err
				}
			default:
				return fmt.Errorf("a draft %q from %s ago is stored under %q; use --restore or --discard",
					offer.Draft.Title, offer.Age.Round(time.Second), key)
			}
		}

		if err := applyComposeInput(cmd, c, args); err != nil {
			return err
		}
		c.Save()

		if composeSaveOnly {
			fmt.Fprintf(cmd.OutOrStdout(), "Saved draft %q\n", key)
			return nil
		}

		res, err := c.Submit(ctx)
		if err != nil {
			if errors.Is(err, composer.ErrRequired) || apperr.IsValidation(err) {
				return fmt.Errorf("%w (draft kept under %q)", err, key)
			}
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Location)
		return nil
	},
}

func init() {
	f := composeCmd.Flags()
	f.StringVarP(&composeTitle, "title", "t", "", "Post title")
	f.StringVar(&composeAuthor, "author", "", "Author name")
	f.StringVar(&composeImage, "image", "", "Cover image URL")
	f.StringSliceVar(&composeCategories, "category", nil, "Category slug or name to attach (repeatable)")
	f.BoolVar(&composePublish, "publish", false, "Publish instead of keeping the post unpublished")
	f.BoolVar(&composeHTML, "html", false, "Treat the input as HTML")
	f.Int64Var(&composeEdit, "edit", 0, "Update the post with this id instead of creating one")
	f.BoolVar(&composeRestore, "restore", false, "Start from the stored draft")
	f.BoolVar(&composeDiscard, "discard", false, "Throw the stored draft away")
	f.BoolVar(&composeSaveOnly, "save-only", false, "Only save the draft, do not submit")
	composeCmd.MarkFlagsMutuallyExclusive("restore", "discard")
	rootCmd.AddCommand(composeCmd)
}

// applyComposeInput layers the flags and the body over whatever the
// composer already holds. Empty flags leave fields alone.
func applyComposeInput(cmd *cobra.Command, c *composer.Composer, args []string) error {
	if composeTitle != "" {
		c.SetTitle(composeTitle)
	}
	if composeAuthor != "" {
		c.SetAuthor(composeAuthor)
	}
	if composeImage != "" {
		c.SetImage(composeImage)
	}
	if composePublish || composeEdit == 0 {
		c.SetPublished(composePublish)
	}
	if len(composeCategories) > 0 {
		selected := make(map[int64]bool)
		for _, id := range c.Fields().Categories {
			selected[id] = true
		}
		for _, ref := range composeCategories {
			id, ok := findCategory(c.Categories(), ref)
			if !ok {
				return fmt.Errorf("unknown category %q", ref)
			}
			if !selected[id] {
				c.ToggleCategory(id)
				selected[id] = true
			}
		}
	}

	body, err := readBody(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	if body == "" {
		return nil
	}
	if composeHTML {
		c.SetContentHTML(body)
	} else {
		c.SetContent(body)
	}
	return nil
}

// readBody reads the named file, or stdin when it is "-" or absent. An
// interactive stdin with no file gives an empty body.
func readBody(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		return string(data), err
	}
	if f, ok := stdin.(*os.File); ok && len(args) == 0 {
		if info, err := f.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
			return "", nil
		}
	}
	data, err := io.ReadAll(stdin)
	return string(data), err
}
