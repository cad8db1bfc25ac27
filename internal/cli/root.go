package cli

import (
	"fmt"
	"os"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"docsearch/config"
	"docsearch/internal/adapter/memstore"
	"docsearch/internal/adapter/store"
	"docsearch/internal/port"
)

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "docsearch",
	Short: "Contextual search over PDF, Word, Excel and text documents",
	Long: `docsearch extracts text from a directory of documents (PDF, DOCX, XLSX, XLS, TXT),
finds every case-insensitive occurrence of the search terms and reports each one with
surrounding context.

Example usage:
  docsearch search ./contracts -t "penalty;termination"   # Search a directory
  docsearch show                                          # Print the last saved report
  docsearch serve                                         # Start the web interface`,
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

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		setupLogger(cfg.Logging)

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./docsearch.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "working directory holding config and store (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

// setupLogger points the default logger at stderr so reports on stdout stay clean.
func setupLogger(lc config.LoggingConfig) {
	logger := log.Logger{
		Level: log.ParseLevel(lc.Level),
	}
	if lc.Format == "json" {
		logger.Writer = &log.IOWriter{Writer: os.Stderr}
	} else {
		logger.Writer = &log.ConsoleWriter{Writer: os.Stderr, ColorOutput: log.IsTerminal(os.Stderr.Fd())}
	}
	log.DefaultLogger = logger
}

// openStore opens the configured report store. The bolt store is migrated to
// the current schema before use.
func openStore(cfg *config.Config, dir string) (port.ReportStore, error) {
	if cfg.Store.Backend == "memory" {
		return memstore.NewMemoryStore(cfg.Store.MaxSessions, cfg.Store.SessionTTL), nil
	}

	if err := cfg.EnsureStoreDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	st, err := store.NewBoltStore(cfg.StorePath(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to open report store: %w", err)
	}

	result, err := st.EnsureSchema()
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to migrate report store: %w", err)
	}
	if result.NeedsRebuild || result.NeedsMigration {
		log.Info().Int("from", result.OldVersion).Int("to", result.NewVersion).Str("reason", result.Reason).Msg("Report store migrated")
	}

	return st, nil
}

// requirePersistentStore rejects the memory backend for commands whose report
// must outlive the process.
func requirePersistentStore(cfg *config.Config) error {
	if cfg.Store.Backend == "memory" {
		return fmt.Errorf("store.backend is %q: saved reports would be lost when the command exits; use the bolt backend", cfg.Store.Backend)
	}
	return nil
}
