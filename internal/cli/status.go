package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tourrag/internal/adapter/store"
	"tourrag/internal/app"
	"tourrag/internal/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index and local store status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()

	fmt.Printf("Embedding: %s/%s (%d dims)\n", cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.Dimension)

	if index := app.NewIndex(cfg); index == nil {
		fmt.Println("Index:     disabled (local-only)")
	} else {
		info, err := index.GetCollection(ctx)
		switch {
		case errors.Is(err, domain.ErrCollectionNotFound):
			fmt.Printf("Index:     collection %q not found at %s (run 'rag ingest')\n", index.Name(), cfg.Index.URL)
		case err != nil:
			fmt.Printf("Index:     unavailable at %s: %v\n", cfg.Index.URL, err)
		default:
			fmt.Printf("Index:     %s at %s, %d points, %d dims, status %s\n",
				info.Name, cfg.Index.URL, info.PointsCount, info.Dimension, info.Status)
			if info.Dimension != 0 && info.Dimension != cfg.Embedding.Dimension {
				fmt.Printf("           warning: collection dimension differs from embedding.dimension\n")
			}
		}
	}

	local := app.NewLocalStore(cfg, GetRootDir())
	records, err := local.Load(ctx)
	switch {
	case errors.Is(err, domain.ErrStoreNotFound):
		fmt.Printf("Local:     no store at %s\n", local.Path())
	case err != nil:
		fmt.Printf("Local:     unreadable %s: %v\n", local.Path(), err)
	default:
		fmt.Printf("Local:     %d records in %s\n", len(records), local.Path())
	}

	if bolt, ok := local.(*store.BoltStore); ok && err == nil {
		if info, ierr := bolt.Info(); ierr == nil {
			fmt.Printf("           schema v%d, %s, saved %s\n", info.Version, info.Model, info.SavedAt.Format("2006-01-02 15:04"))
			if rebuild, reason := store.SchemaFromConfig(cfg).NeedsRebuild(*info); rebuild {
				fmt.Printf("           rebuild recommended: %s\n", reason)
			}
		}
	}

	return nil
}
