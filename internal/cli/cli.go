// Package cli implements the pricelens command-line interface.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/app"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/export"
)

// AnalysisService is what the analyze and batch commands run against
type AnalysisService interface {
	AnalyzeProduct(ctx context.Context, request domain.AnalysisRequest) (*domain.ProductAnalysis, error)
	AnalyzeBatch(ctx context.Context, products []domain.CsvProduct) (domain.AnalysisResult, error)
}

// ServiceFactory builds the analysis service and a function releasing it
type ServiceFactory func(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (AnalysisService, func(), error)

// Options contain configuration for the CLI
type Options struct {
	Output    io.Writer
	ErrOutput io.Writer
	Exporter  *export.Exporter
	Services  ServiceFactory
}

// CLI represents the command-line interface
type CLI struct {
	out      io.Writer
	errOut   io.Writer
	exporter *export.Exporter
	services ServiceFactory

	configFile string
	logLevel   string

	rootCmd *cobra.Command
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.ErrOutput == nil {
		opts.ErrOutput = os.Stderr
	}
	if opts.Exporter == nil {
		opts.Exporter = export.NewExporter()
	}
	if opts.Services == nil {
		opts.Services = appServices
	}

	cli := &CLI{
		out:      opts.Output,
		errOut:   opts.ErrOutput,
		exporter: opts.Exporter,
		services: opts.Services,
	}

	cli.rootCmd = cli.newRootCmd()
	return cli
}

// ExecuteContext runs the command named by args
func (cli *CLI) ExecuteContext(ctx context.Context, args ...string) error {
	cli.rootCmd.SetArgs(args)
	return cli.rootCmd.ExecuteContext(ctx)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pricelens",
		Short:         "Competitive price analysis tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(cli.out)
	cmd.SetErr(cli.errOut)

	cmd.PersistentFlags().StringVar(&cli.configFile, "config", "", "Path to a config file (default searches ./config.yaml)")
	cmd.PersistentFlags().StringVar(&cli.logLevel, "log-level", "", "Override the configured log level")

	cmd.AddCommand(NewAnalyzeCmd(cli))
	cmd.AddCommand(NewBatchCmd(cli))
	cmd.AddCommand(NewValidateCmd(cli))
	cmd.AddCommand(NewExportCmd(cli))
	cmd.AddCommand(NewServeCmd(cli))

	return cmd
}

// setup loads configuration and builds the logger. CLI logs go to the error
// stream so results on the output stream stay clean.
func (cli *CLI) setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(cli.configFile)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if cli.logLevel != "" {
		cfg.Log.Level = cli.logLevel
	}
	return cfg, app.NewLogger(cfg.Log, cli.errOut), nil
}

func appServices(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (AnalysisService, func(), error) {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return a.Analysis, a.Close, nil
}
