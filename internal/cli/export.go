package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pricelens/backend/internal/domain"
)

type ExportCmd struct {
	cli    *CLI
	format string
	outDir string
}

func NewExportCmd(cli *CLI) *cobra.Command {
	ec := &ExportCmd{cli: cli}
	cmd := &cobra.Command{
		Use:   "export FILE.json",
		Short: "Re-export saved JSON analysis results",
		Args:  cobra.ExactArgs(1),
		RunE:  ec.run,
	}

	cmd.Flags().StringVar(&ec.format, "format", "", "Output format: full, competitors, history or json")
	cmd.Flags().StringVar(&ec.outDir, "out", "", "Directory to write the export file to (default prints it)")

	_ = cmd.MarkFlagRequired("format")

	return cmd
}

func (ec *ExportCmd) run(_ *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	var results domain.AnalysisResult
	if err := json.Unmarshal(data, &results); err != nil {
		return fmt.Errorf("invalid analysis results in %s: %w", args[0], err)
	}

	_, logger, err := ec.cli.setup()
	if err != nil {
		return err
	}
	logger = logger.With().Str("source", args[0]).Logger()

	return ec.cli.writeResults(logger, ec.format, ec.outDir, results)
}
