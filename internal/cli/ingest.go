package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"tourrag/config"
	"tourrag/internal/adapter/chunker"
	"tourrag/internal/adapter/fs"
	"tourrag/internal/adapter/source"
	"tourrag/internal/app"
	"tourrag/internal/usecase"
)

var (
	ingestLocalCopy bool
	ingestLocalOnly bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir...]",
	Short: "Chunk, embed and upload source documents",
	Long: `Load attraction documents (.json, .txt, .md, .html), cut them into overlapping
windows, embed every window and replace the vector index collection with the result.

With --local-copy the records are also written to the local embedding store used by
the offline fallback. With --local-only the vector index is not contacted at all.

Examples:
  rag ingest                      # Ingest the configured source dirs
  rag ingest data/mauritius       # Ingest a specific directory
  rag ingest --local-copy         # Index and local store`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().BoolVar(&ingestLocalCopy, "local-copy", false, "also write the local embedding store")
	ingestCmd.Flags().BoolVar(&ingestLocalOnly, "local-only", false, "write only the local embedding store")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()
	root := GetRootDir()

	dirs := app.SourceDirs(cfg, root)
	if len(args) > 0 {
		dirs = dirs[:0]
		for _, a := range args {
			abs, err := filepath.Abs(a)
			if err != nil {
				return fmt.Errorf("invalid path: %w", err)
			}
			dirs = append(dirs, abs)
		}
	}
	for _, d := range dirs {
		info, err := os.Stat(d)
		if err != nil {
			return fmt.Errorf("source directory does not exist: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("source path is not a directory: %s", d)
		}
	}

	embedder, err := app.NewEmbedder(ctx, cfg)
	if err != nil {
		return err
	}

	chk, err := chunker.NewWindowChunker(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return err
	}
	fmt.Printf("Chunking: %d chars, %d overlap\n", chk.Size(), chk.Overlap())

	var dest usecase.Destination
	if !ingestLocalOnly && !cfg.Index.Disabled {
		dest.Index = app.NewIndex(cfg)
	}
	if ingestLocalCopy || dest.Index == nil {
		if err := config.EnsureRAGDir(root); err != nil {
			return fmt.Errorf("failed to create .rag directory: %w", err)
		}
		dest.Local = app.NewLocalStore(cfg, root)
	}

	loader := source.NewLoader(fs.NewWalker(cfg.Sources.Includes, cfg.Sources.Excludes), dirs, logger)
	fmt.Printf("Scanning %d source dir(s)...\n", len(dirs))

	docs, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load sources: %w", err)
	}
	if len(docs) == 0 {
		return fmt.Errorf("no source documents found in %v", dirs)
	}
	fmt.Printf("Loaded %d documents\n", len(docs))

	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var startTime time.Time

	progressCallback := func(done, total int) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		_ = bar.Set(done)

		elapsed := time.Since(startTime)
		if rate := float64(done) / elapsed.Seconds(); rate > 0 {
			eta := time.Duration(float64(total-done)/rate) * time.Second
			bar.Describe(fmt.Sprintf("[cyan]Embedding[reset] ETA: %s", formatDuration(eta)))
		}
	}

	ingestUC := usecase.NewIngestUseCase(embedder, chk, dest, logger).WithProgress(progressCallback)

	report, err := ingestUC.Ingest(ctx, docs)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("\nIngestion complete (run %s):\n", report.RunID)
	fmt.Printf("  Documents:  %d (%d skipped)\n", report.Documents, report.Skipped)
	fmt.Printf("  Chunks:     %d\n", report.Chunks)
	fmt.Printf("  Embedded:   %d\n", report.Processed)
	fmt.Printf("  Failed:     %d\n", report.Failed)
	fmt.Printf("  Uploaded:   %d\n", report.Uploaded)
	fmt.Printf("  Duration:   %s\n", formatDuration(report.Duration))

	if len(report.Warnings) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, w := range report.Warnings {
			fmt.Printf("  - %s\n", w)
		}
	}

	if dest.Index != nil {
		fmt.Printf("\nCollection: %s at %s\n", dest.Index.Name(), cfg.Index.URL)
	}
	if dest.Local != nil {
		fmt.Printf("Local store: %s\n", dest.Local.Path())
	}
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
