package tasks

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/services"
	"github.com/desertthunder/encore/internal/shared"
)

// CoverFunc resolves a playlist's cover image to a downloadable URL.
type CoverFunc func(ctx context.Context, imageName string) (string, error)

// PlaylistExportResult is the outcome of exporting one playlist.
type PlaylistExportResult struct {
	PlaylistID    string   `json:"playlist_id"`
	PlaylistTitle string   `json:"playlist_title"`
	TrackCount    int      `json:"track_count"`
	Success       bool     `json:"success"`
	Files         []string `json:"files,omitempty"`
	Error         error    `json:"-"`
	// Message carries Error into the manifest.
	Message string `json:"error,omitempty"`
}

// BulkExportResult summarizes a [Exporter.BulkExport] run.
type BulkExportResult struct {
	Format            string                 `json:"format"`
	OutputDirectory   string                 `json:"output_directory"`
	TotalPlaylists    int                    `json:"total_playlists"`
	SuccessfulExports int                    `json:"successful_exports"`
	FailedExports     int                    `json:"failed_exports"`
	Results           []PlaylistExportResult `json:"results"`
	ManifestPath      string                 `json:"-"`
}

// Exporter exports playlists from a library to local files.
type Exporter struct {
	library services.Library
	logger  *log.Logger
}

// NewExporter creates an Exporter reading from library.
func NewExporter(library services.Library, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Exporter{library: library, logger: shared.WithLogger(logger, "component", "export")}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Exporter) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
