package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/joho/godotenv"
	"github.com/meghashyamc/linkindex/api"
	"github.com/meghashyamc/linkindex/config"
	"github.com/meghashyamc/linkindex/db/kvdb"
	"github.com/meghashyamc/linkindex/db/searchdb"
	"github.com/meghashyamc/linkindex/logger"
	"github.com/meghashyamc/linkindex/services/persistence"
	"github.com/spf13/cobra"
)

func main() {
	godotenv.Load()

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var env string

	cmd := &cobra.Command{
		Use:           "linkindex",
		Short:         "Self-hosted full-text search over bookmarked web pages",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), env)
		},
	}
	cmd.PersistentFlags().StringVar(&env, "env", "", "config environment to load (defaults to $ENV, then local)")

	cmd.AddCommand(newServeCmd(&env), newInspectCmd(&env))

	return cmd
}

func newServeCmd(env *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP search service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), *env)
		},
	}
}

func serve(ctx context.Context, env string) error {
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	return api.Run(ctx, cfg)
}

type inspectOutput struct {
	Stats     searchdb.Stats `json:"stats"`
	Documents []inspectEntry `json:"documents,omitempty"`
}

type inspectEntry struct {
	ID     uint64        `json:"id"`
	URL    string        `json:"url"`
	Title  *string       `json:"title"`
	Tags   searchdb.Tags `json:"tags"`
	Length int           `json:"length"`
}

func newInspectCmd(env *string) *cobra.Command {
	var listDocuments bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print statistics of the saved index",
		Long: `Open the snapshot file under the configured storage path, restore it
into memory and print its statistics as JSON. The service must not be running,
since the snapshot file is locked while it is open.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*env)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return inspect(cmd, cfg, listDocuments)
		},
	}
	cmd.Flags().BoolVar(&listDocuments, "documents", false, "also list every stored document")

	return cmd
}

func inspect(cmd *cobra.Command, cfg *config.Config, listDocuments bool) error {
	log := logger.New(cfg.GetLogLevel())

	store, err := kvdb.New(logger.WithComponent(log, "kvdb"), cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	db := searchdb.New(logger.WithComponent(log, "searchdb"))
	snapshot, err := persistence.ReadSnapshot(store)
	switch {
	case errors.Is(err, kvdb.ErrNotFound):
		log.Info("no snapshot saved yet", "path", cfg.GetKVDBPath())
	case err != nil:
		return err
	default:
		if err := db.Restore(snapshot); err != nil {
			return err
		}
	}

	output := inspectOutput{Stats: db.Stats()}
	if listDocuments && snapshot != nil {
		for _, doc := range snapshot.Documents {
			output.Documents = append(output.Documents, inspectEntry{
				ID:     doc.ID,
				URL:    doc.URL,
				Title:  doc.Title,
				Tags:   doc.Tags,
				Length: doc.Length,
			})
		}
		sort.Slice(output.Documents, func(i, j int) bool { return output.Documents[i].ID < output.Documents[j].ID })
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
