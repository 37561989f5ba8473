package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/export"
)

type AnalyzeCmd struct {
	cli         *CLI
	url         string
	name        string
	price       float64
	competitors []string
	format      string
	outDir      string
}

func NewAnalyzeCmd(cli *CLI) *cobra.Command {
	ac := &AnalyzeCmd{cli: cli}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a single product by URL, or by name and price",
		Args:  cobra.NoArgs,
		RunE:  ac.run,
	}

	cmd.Flags().StringVar(&ac.url, "url", "", "Product page URL")
	cmd.Flags().StringVar(&ac.name, "name", "", "Product name (with --price)")
	cmd.Flags().Float64Var(&ac.price, "price", 0, "Current price (with --name)")
	cmd.Flags().StringArrayVar(&ac.competitors, "competitor", nil, "Competitor URL, repeatable")
	cmd.Flags().StringVar(&ac.format, "format", string(export.FormatJSON), "Output format: full, competitors, history or json")
	cmd.Flags().StringVar(&ac.outDir, "out", "", "Directory to write the export file to (default prints it)")

	return cmd
}

func (ac *AnalyzeCmd) request(cmd *cobra.Command) (domain.AnalysisRequest, error) {
	subject := domain.Subject{
		URL:         strings.TrimSpace(ac.url),
		ProductName: strings.TrimSpace(ac.name),
	}
	if cmd.Flags().Changed("price") {
		price := ac.price
		subject.CurrentPrice = &price
	}
	if !subject.Valid() {
		return domain.AnalysisRequest{}, fmt.Errorf("%w: provide --url, or --name with a non-negative --price", domain.ErrInvalidRequest)
	}
	return domain.AnalysisRequest{Subject: subject, CompetitorURLs: ac.competitors}, nil
}

func (ac *AnalyzeCmd) run(cmd *cobra.Command, _ []string) error {
	request, err := ac.request(cmd)
	if err != nil {
		return err
	}
	if _, err := export.ParseFormat(ac.format); err != nil {
		return err
	}

	cfg, logger, err := ac.cli.setup()
	if err != nil {
		return err
	}

	service, release, err := ac.cli.services(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer release()

	analysis, err := service.AnalyzeProduct(cmd.Context(), request)
	if err != nil {
		return fmt.Errorf("failed to analyze %s: %w", request.Subject.Label(), err)
	}

	return ac.cli.writeResults(logger, ac.format, ac.outDir, domain.AnalysisResult{analysis})
}
