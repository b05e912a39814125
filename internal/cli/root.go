package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"tourrag/config"
	"tourrag/internal/common"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	logger  arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:   "rag",
	Short: "Tourist attraction assistant - retrieval-augmented answers over your travel notes",
	Long: `rag ingests documents about tourist attractions into a vector index and answers
questions with retrieved context. When the index cannot help, retrieval falls back to
keyword matching and then to a local embedding store.

Example usage:
  rag ingest                          # Chunk, embed and upload ./data
  rag query -q "quiet beaches"        # Show what retrieval finds
  rag chat                            # Interactive assistant
  rag serve                           # HTTP chat API on :8080`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		// stdout carries the protocol stream for mcp.
		if cmd.Name() == "mcp" {
			logger = common.InitFileLogger(cfg, rootDir, "mcp")
		} else {
			logger = common.InitLogger(cfg)
		}

		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./rag.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
