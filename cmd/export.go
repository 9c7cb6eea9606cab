package main

import (
	"fmt"
	"os"

	"github.com/desertthunder/encore/internal/formatter"
	"github.com/desertthunder/encore/internal/shared"
)

// writeExport writes l to disk in format. coverURL is only used by the markdown export.
func (r *Runner) writeExport(l *formatter.Listing, format, output, coverURL string) error {
	r.logger.Info("exporting listing", "id", l.ID, "format", format, "tracks", len(l.Tracks))

	switch format {
	case "csv":
		res, err := formatter.WriteCSVExport(l, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Tracks written to %s\n", res.TracksFile)
		r.writePlain("✓ Metadata written to %s\n", res.MetadataFile)
	case "markdown", "md":
		res, err := formatter.WriteMarkdownExport(l, output, coverURL)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported to %s/\n", res.Directory)
		for _, f := range res.Files {
			r.writePlain("  %s\n", f)
		}
	case "text", "txt":
		path, err := formatter.WriteTextExport(l, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported to %s\n", path)
	case "json":
		if output == "" {
			output = l.ID + ".json"
		}
		data, err := formatter.ExportToJSON(l)
		if err != nil {
			return err
		}
		if err := os.WriteFile(output, data, 0644); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
		r.writePlain("✓ Exported to %s\n", output)
	default:
		return fmt.Errorf("%w: unknown format %q (csv, markdown, text, json)", shared.ErrInvalidFlag, format)
	}
	return nil
}
