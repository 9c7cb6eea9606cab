package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/desertthunder/encore/internal/formatter"
	"github.com/desertthunder/encore/internal/shared"
	"golang.org/x/time/rate"
)

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     string    // Export format: json, csv, markdown, text
	OutputDir  string    // Base output directory (default: encore_export_{epoch})
	NumWorkers int       // Concurrent workers (default: 5, at most 10)
	RateLimit  float64   // Playlist fetches per second (default: 5)
	Cover      CoverFunc // Optional cover resolver for markdown exports
}

type exportJob struct {
	index   int
	listing *formatter.Listing
	cover   string
}

// BulkExport exports the playlists in ids concurrently and writes a manifest of the results.
//
// Playlists are fetched one at a time under the rate limit and rendered by a pool of workers.
// Failures are recorded per playlist. The returned error is only set when the output
// directory or manifest cannot be written, or ctx ends before every playlist was attempted.
func (e *Exporter) BulkExport(ctx context.Context, prog chan<- ProgressUpdate, ids []string, opts BulkExportOpts) (*BulkExportResult, error) {
	if e.library == nil {
		return nil, fmt.Errorf("%w: music server not configured", shared.ErrServiceUnavailable)
	}

	if opts.Format == "" {
		opts.Format = "json"
	}
	if !validFormat(opts.Format) {
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, opts.Format)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("encore_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		Format:          opts.Format,
		OutputDirectory: opts.OutputDir,
		TotalPlaylists:  len(ids),
		Results:         make([]PlaylistExportResult, 0, len(ids)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan exportJob, len(ids))
	type indexed struct {
		index int
		res   PlaylistExportResult
	}
	results := make(chan indexed, len(ids))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if ctx.Err() != nil {
					return
				}
				results <- indexed{job.index, e.exportOne(job, opts)}
			}
		}()
	}

	e.sendProgress(prog, fetchingPlaylistsUpdate(len(ids)))
	// The producer also reports fetch failures, so results stays open until it returns.
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(jobs)
		for i, id := range ids {
			if err := limiter.Wait(ctx); err != nil {
				return
			}

			p, err := e.library.GetPlaylistByID(ctx, id)
			if err != nil {
				results <- indexed{i, PlaylistExportResult{
					PlaylistID:    id,
					PlaylistTitle: fmt.Sprintf("Unknown (%s)", id),
					Error:         fmt.Errorf("failed to fetch playlist: %w", err),
				}}
				continue
			}

			job := exportJob{index: i, listing: formatter.PlaylistListing(*p)}
			if opts.Cover != nil && opts.Format == "markdown" {
				if url, err := opts.Cover(ctx, p.ImageName); err == nil {
					job.cover = url
				} else {
					e.logger.Debug("no cover for playlist", "playlist", id, "error", err)
				}
			}
			jobs <- job
			e.sendProgress(prog, exportingPlaylistUpdate(i+1, len(ids), p.Title))
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make([]indexed, 0, len(ids))
	for r := range results {
		collected = append(collected, r)
		res := r.res
		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(len(collected), len(ids), res.PlaylistTitle, len(res.Files)))
		} else {
			result.FailedExports++
			e.logger.Warn("playlist export failed", "playlist", res.PlaylistID, "error", res.Error)
			e.sendProgress(prog, exportFailedUpdate(len(collected), len(ids), res.PlaylistTitle, res.Error))
		}
	}

	sort.Slice(collected, func(a, b int) bool { return collected[a].index < collected[b].index })
	for _, r := range collected {
		if r.res.Error != nil {
			r.res.Message = r.res.Error.Error()
		}
		result.Results = append(result.Results, r.res)
	}

	if err := ctx.Err(); err != nil && len(collected) < len(ids) {
		return result, fmt.Errorf("export interrupted after %d of %d playlists: %w", len(collected), len(ids), err)
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := writeManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	e.sendProgress(prog, manifestUpdate(manifestPath))

	e.logger.Info("bulk export finished",
		"dir", opts.OutputDir, "ok", result.SuccessfulExports, "failed", result.FailedExports)
	return result, nil
}

// exportOne renders a single playlist into opts.OutputDir.
func (e *Exporter) exportOne(j exportJob, opts BulkExportOpts) PlaylistExportResult {
	l := j.listing
	result := PlaylistExportResult{
		PlaylistID:    l.ID,
		PlaylistTitle: l.Title,
		TrackCount:    len(l.Tracks),
		Files:         []string{},
	}

	switch opts.Format {
	case "csv":
		res, err := formatter.WriteCSVExport(l, filepath.Join(opts.OutputDir, l.ID))
		if err != nil {
			result.Error = fmt.Errorf("CSV export failed: %w", err)
			return result
		}
		result.Files = []string{res.TracksFile, res.MetadataFile}

	case "markdown":
		res, err := formatter.WriteMarkdownExport(l, filepath.Join(opts.OutputDir, l.ID), j.cover)
		if err != nil {
			result.Error = fmt.Errorf("markdown export failed: %w", err)
			return result
		}
		result.Files = res.Files

	case "text":
		path, err := formatter.WriteTextExport(l, filepath.Join(opts.OutputDir, l.ID+"_tracks.txt"))
		if err != nil {
			result.Error = fmt.Errorf("text export failed: %w", err)
			return result
		}
		result.Files = []string{path}

	default:
		path := filepath.Join(opts.OutputDir, l.ID+".json")
		data, err := formatter.ExportToJSON(l)
		if err != nil {
			result.Error = err
			return result
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			result.Error = fmt.Errorf("JSON write failed: %w", err)
			return result
		}
		result.Files = []string{path}
	}

	result.Success = true
	return result
}

func validFormat(format string) bool {
	switch format {
	case "json", "csv", "markdown", "text":
		return true
	}
	return false
}

func writeManifest(result *BulkExportResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
