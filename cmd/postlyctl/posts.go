package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/debemdeboas/postly/internal/model"
	"github.com/debemdeboas/postly/internal/rpc"
)

const dateLayout = "2006-01-02"

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	draftStyle  = cellStyle.Foreground(lipgloss.Color("241"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

var (
	listDrafts   bool
	listSearch   string
	listCategory string
	listLimit    int
	listJSON     bool
)

var postsCmd = &cobra.Command{
	Use:   "posts",
	Short: "Work with posts",
}

var postsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List posts, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := rpc.GetAllInput{Search: listSearch, CategorySlug: listCategory, Limit: listLimit}
		if listDrafts {
			published := false
			in.Published = &published
		}

		posts, err := newClient().ListPosts(cmd.Context(), in)
		if err != nil {
			return err
		}
		if listJSON {
			return writeJSON(cmd.OutOrStdout(), posts)
		}
		fmt.Fprintln(cmd.OutOrStdout(), postsTable(posts))
		return nil
	},
}

func init() {
	postsListCmd.Flags().BoolVar(&listDrafts, "drafts", false, "List unpublished posts instead of published ones")
	postsListCmd.Flags().StringVarP(&listSearch, "search", "s", "", "Only posts whose title or content matches")
	postsListCmd.Flags().StringVarP(&listCategory, "category", "c", "", "Only posts in this category slug")
	postsListCmd.Flags().IntVarP(&listLimit, "limit", "n", 50, "Maximum number of posts")
	postsListCmd.Flags().BoolVar(&listJSON, "json", false, "Print JSON instead of a table")
	postsCmd.AddCommand(postsListCmd)
	rootCmd.AddCommand(postsCmd)
}

// postsTable renders posts one per row. Unpublished rows are dimmed.
func postsTable(posts []model.Post) string {
	if len(posts) == 0 {
		return "No posts."
	}

	rows := make([][]string, 0, len(posts))
	for _, p := range posts {
		status := "published"
		if !p.Published {
			status = "draft"
		}
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10),
			p.Title,
			p.Slug,
			categoryNames(p.Categories),
			status,
			p.CreatedAt.Format(dateLayout),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("ID", "TITLE", "SLUG", "CATEGORIES", "STATUS", "CREATED").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row >= 0 && row < len(posts) && !posts[row].Published:
				return draftStyle
			}
			return cellStyle
		})
	return t.String()
}

func categoryNames(cats []model.Category) string {
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	return strings.Join(names, ", ")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
