package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/export"
)

// writeResults renders results in format. With an output directory the file
// is written there under its export name and the path is printed; otherwise
// the rendered bytes go to the output stream. Empty results only warn.
func (cli *CLI) writeResults(logger zerolog.Logger, format, outDir string, results domain.AnalysisResult) error {
	f, err := export.ParseFormat(format)
	if err != nil {
		return fmt.Errorf("%w (supported: %v)", err, export.Formats)
	}

	file, err := cli.exporter.Export(f, results)
	if errors.Is(err, domain.ErrNothingToExport) {
		logger.Warn().Msg("no data to export")
		return nil
	}
	if err != nil {
		return err
	}

	if outDir == "" {
		_, err = cli.out.Write(file.Data)
		if err == nil && len(file.Data) > 0 && file.Data[len(file.Data)-1] != '\n' {
			_, err = fmt.Fprintln(cli.out)
		}
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(outDir, file.Name)
	if err := os.WriteFile(path, file.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	logger.Info().Str("path", path).Int("bytes", len(file.Data)).Msg("export written")
	_, err = fmt.Fprintln(cli.out, path)
	return err
}
