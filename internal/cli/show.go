package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the last saved search report",
	Long: `Print the report saved by the last 'docsearch search --save'.

Examples:
  docsearch show
  docsearch show --json`,
	Args: cobra.NoArgs,
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showJSON, "json", false, "output the structured report as JSON")
}

func runShow(cmd *cobra.Command, args []string) error {
	if err := requirePersistentStore(GetConfig()); err != nil {
		return err
	}

	st, err := openStore(GetConfig(), GetRootDir())
	if err != nil {
		return err
	}
	defer st.Close()

	stored, ok, err := st.Get(cliSession)
	if err != nil {
		return fmt.Errorf("failed to load report: %w", err)
	}
	if !ok {
		return fmt.Errorf("no saved report found. Run 'docsearch search <dir> -t <terms> --save' first")
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Report saved at %s\n", stored.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	return writeReport(cmd.OutOrStdout(), &stored.Report, showJSON)
}
