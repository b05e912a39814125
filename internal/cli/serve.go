package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"tourrag/internal/app"
	"tourrag/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP chat API",
	Long: `Serve the chat API:

  POST /api/chat      streamed text/plain answer
  GET  /api/chat/ws   websocket, one frame per chunk then {"done":true}
  GET  /api/health    index and local store status`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()

	a, err := app.New(ctx, cfg, GetRootDir(), logger)
	if err != nil {
		return err
	}
	chat, err := a.NewChat(ctx)
	if err != nil {
		return err
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := server.New(addr, server.Deps{
		Chat:   chat,
		Index:  a.Index,
		Local:  a.Local,
		Logger: logger,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
