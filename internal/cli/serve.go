package cli

import (
	"github.com/spf13/cobra"

	"github.com/pricelens/backend/internal/app"
)

type ServeCmd struct {
	cli *CLI
}

func NewServeCmd(cli *CLI) *cobra.Command {
	sc := &ServeCmd{cli: cli}
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Args:  cobra.NoArgs,
		RunE:  sc.run,
	}
}

// run serves until the command context is cancelled
func (sc *ServeCmd) run(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := sc.cli.setup()
	if err != nil {
		return err
	}

	a, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Serve(cmd.Context())
}
