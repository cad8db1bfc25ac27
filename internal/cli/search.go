package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/phuslu/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docsearch/internal/adapter/extractor"
	"docsearch/internal/adapter/fs"
	"docsearch/internal/domain"
	"docsearch/internal/usecase"
)

// cliSession is the store key under which `search --save` keeps its report.
const cliSession = "cli"

var (
	searchTerms    string
	searchContext  int
	searchJSON     bool
	searchOutput   string
	searchSave     bool
	searchProgress bool
)

var searchCmd = &cobra.Command{
	Use:   "search <dir>",
	Short: "Search the documents of a directory",
	Long: `Search every PDF, DOCX, XLSX, XLS and TXT file directly inside a directory
for the given terms and print the contextual search report.

Terms are separated by the configured separator (";" by default).

Examples:
  docsearch search ./docs -t "invoice;due date"
  docsearch search ./docs -t budget -c 80 --json -o report.json
  docsearch search ./docs -t budget --save && docsearch show`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchTerms, "terms", "t", "", "search terms (required)")
	searchCmd.Flags().IntVarP(&searchContext, "context", "c", -1, "context characters on each side of a match (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output the structured report as JSON")
	searchCmd.Flags().StringVarP(&searchOutput, "output", "o", "", "write the report to a file instead of stdout")
	searchCmd.Flags().BoolVar(&searchSave, "save", false, "keep the report in the bolt store for `docsearch show`")
	searchCmd.Flags().BoolVar(&searchProgress, "progress", true, "show a progress bar on stderr")
	searchCmd.MarkFlagRequired("terms")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	dir, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	terms := splitTerms(searchTerms, cfg.Search.TermSeparator)
	if len(terms) == 0 {
		return fmt.Errorf("no search terms given")
	}

	if searchSave {
		if err := requirePersistentStore(cfg); err != nil {
			return err
		}
	}

	contextChars := cfg.Search.ClampContext(searchContext)

	registry := extractor.NewRegistry()
	reportUC := usecase.NewReportUseCase(fs.NewWalker(nil, nil), usecase.NewFileProcessor(registry))

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	var progress usecase.ProgressFunc
	if searchProgress {
		progress = newProgressBar()
	}

	report, err := reportUC.GenerateWithProgress(ctx, dir, terms, contextChars, progress)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchSave {
		if err := saveReport(*report); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if searchOutput != "" {
		f, err := os.Create(searchOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := writeReport(out, report, searchJSON); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if searchOutput != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Report written to: %s\n", searchOutput)
	}
	return nil
}

func saveReport(report domain.Report) error {
	st, err := openStore(GetConfig(), GetRootDir())
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Put(cliSession, report); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	log.Debug().Str("session", cliSession).Msg("Report saved")
	return nil
}

func writeReport(w io.Writer, report *domain.Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(report.Structured)
	}
	_, err := fmt.Fprintln(w, report.Text)
	return err
}

// newProgressBar returns a callback that lazily creates the bar once the
// total is known.
func newProgressBar() usecase.ProgressFunc {
	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var startTime time.Time

	return func(done, total int, name string) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Searching[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(os.Stderr)
				}),
			)
		}

		bar.Set(done)

		if done > 0 && done < total {
			rate := float64(done) / time.Since(startTime).Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-done)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Searching[reset] %s ETA: %s", name, formatDuration(eta)))
			}
		}
	}
}

// splitTerms splits raw on sep, trims each term and drops blanks.
func splitTerms(raw, sep string) []string {
	var terms []string
	for _, t := range strings.Split(raw, sep) {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
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
