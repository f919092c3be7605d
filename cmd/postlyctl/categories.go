package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/debemdeboas/postly/internal/model"
)

var categoriesJSON bool

var categoriesCmd = &cobra.Command{
	Use:     "categories",
	Aliases: []string{"cats"},
	Short:   "Work with categories",
}

var categoriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories by name",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cats, err := newClient().ListCategories(cmd.Context())
		if err != nil {
			return err
		}
		if categoriesJSON {
			return writeJSON(cmd.OutOrStdout(), cats)
		}
		fmt.Fprintln(cmd.OutOrStdout(), categoriesTable(cats))
		return nil
	},
}

var categoriesAddCmd = &cobra.Command{
	Use:   "add <name> [description]",
	Short: "Create a category",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := model.CategoryInput{Name: args[0]}
		if len(args) == 2 {
			in.Description = args[1]
		}
		cat, err := newClient().CreateCategory(cmd.Context(), in)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%d)\n", cat.Slug, cat.ID)
		return nil
	},
}

func init() {
	categoriesListCmd.Flags().BoolVar(&categoriesJSON, "json", false, "Print JSON instead of a table")
	categoriesCmd.AddCommand(categoriesListCmd, categoriesAddCmd)
	rootCmd.AddCommand(categoriesCmd)
}

func categoriesTable(cats []model.Category) string {
	if len(cats) == 0 {
		return "No categories."
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("ID", "NAME", "SLUG", "DESCRIPTION").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, c := range cats {
		t.Row(strconv.FormatInt(c.ID, 10), c.Name, c.Slug, c.Description)
	}
	return t.String()
}
