package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"docsearch/internal/adapter/extractor"
	"docsearch/internal/adapter/fs"
	"docsearch/internal/intake"
	"docsearch/internal/server"
	"docsearch/internal/usecase"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web interface",
	Long: `Start the HTTP server: an upload form, the search endpoint and downloads of
the last report of each browser session. A background janitor removes stale
upload directories and expired sessions.

Examples:
  docsearch serve
  docsearch serve --addr 127.0.0.1:8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	if err := os.MkdirAll(cfg.Server.UploadDir, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	st, err := openStore(cfg, GetRootDir())
	if err != nil {
		return err
	}
	defer st.Close()

	registry := extractor.NewRegistry()
	reportUC := usecase.NewReportUseCase(fs.NewWalker(nil, nil), usecase.NewFileProcessor(registry))

	srv, err := server.New(cfg, reportUC, st, registry.Extensions())
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	janitor := intake.NewJanitor(srv.Intake().Root(), cfg.Server.ScratchMaxAge, st, cfg.Store.SessionTTL)
	if err := janitor.Start(cfg.Server.JanitorSchedule); err != nil {
		return fmt.Errorf("failed to start janitor: %w", err)
	}
	defer janitor.Stop()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("upload_dir", cfg.Server.UploadDir).
		Str("store", cfg.Store.Backend).
		Str("janitor", cfg.Server.JanitorSchedule).
		Msg("Starting docsearch server")

	return srv.ListenAndServe(ctx)
}
