package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/debemdeboas/postly/internal/config"
	"github.com/debemdeboas/postly/internal/db"
	"github.com/debemdeboas/postly/internal/editor/draft"
	"github.com/debemdeboas/postly/internal/util/compression"
)

var draftKey string

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "Inspect or clear the stored composer draft",
}

var draftsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored draft as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, closeStore, err := openDraftStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		data, err := store.Get(cmd.Context(), keyOrDefault(cfg))
		if errors.Is(err, draft.ErrNotFound) {
			fmt.Fprintln(cmd.OutOrStdout(), "No draft.")
			return nil
		}
		if err != nil {
			return err
		}
		var d draft.Draft
		if err := json.Unmarshal(data, &d); err != nil {
			return fmt.Errorf("stored draft is corrupt: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s ago\n", d.Age(time.Now()).Round(time.Second))
		return writeJSON(cmd.OutOrStdout(), d)
	},
}

var draftsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored draft",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, closeStore, err := openDraftStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		key := keyOrDefault(cfg)
		if err := store.Clear(cmd.Context(), key); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared draft %q\n", key)
		return nil
	},
}

func init() {
	draftsCmd.PersistentFlags().StringVar(&draftKey, "key", "", "Draft key (defaults to drafts.key from the configuration)")
	draftsCmd.AddCommand(draftsShowCmd, draftsClearCmd)
	rootCmd.AddCommand(draftsCmd)
}

func keyOrDefault(cfg *config.Config) string {
	if draftKey != "" {
		return draftKey
	}
	if cfg.Drafts.Key != "" {
		return cfg.Drafts.Key
	}
	return draft.DefaultKey
}

// openDraftStore opens the store the server is configured with. The memory
// store lives inside the server process and cannot be reached from here.
func openDraftStore(ctx context.Context, cfg *config.Config) (draft.Store, func(), error) {
	c := cfg.Drafts
	compressor, err := compression.New(c.Compression)
	if err != nil {
		return nil, nil, err
	}

	switch c.Store {
	case "file":
		s, err := draft.NewFileStore(c.Dir)
		return s, func() {}, err
	case "redis":
		client, err := draft.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		return draft.NewRedisStore(client, "postly:drafts", c.Freshness(), compressor), func() { client.Close() }, nil
	case "sqlite", "":
		database := db.NewSQLite(cfg.Database.Path)
		if err := database.InitDB(); err != nil {
			return nil, nil, fmt.Errorf(config.ErrInitializeDatabaseFmt, err)
		}
		return draft.NewSQLStore(database, compressor), func() { database.Close() }, nil
	case "memory":
		return nil, nil, errors.New("the memory draft store is only reachable inside the server")
	}
	return nil, nil, errors.New("unknown draft store " + c.Store)
}
