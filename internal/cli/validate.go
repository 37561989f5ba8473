package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type ValidateCmd struct {
	cli *CLI
}

func NewValidateCmd(cli *CLI) *cobra.Command {
	vc := &ValidateCmd{cli: cli}
	return &cobra.Command{
		Use:   "validate FILE.csv",
		Short: "Check a product CSV without analyzing it",
		Args:  cobra.ExactArgs(1),
		RunE:  vc.run,
	}
}

func (vc *ValidateCmd) run(_ *cobra.Command, args []string) error {
	products, err := readProducts(args[0])
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(vc.cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT\tPRICE\tURL\tCOMPETITORS")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%g\t%s\t%s\n", p.ProductName, p.CurrentPrice, p.UserProductURL, strings.Join(p.CompetitorURLs, " "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err = fmt.Fprintf(vc.cli.out, "%d products valid\n", len(products))
	return err
}
