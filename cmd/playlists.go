package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/encore/internal/formatter"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/desertthunder/encore/internal/tasks"
	"github.com/urfave/cli/v3"
)

// PlaylistsList lists the user's playlists, favorites included.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.requireLibrary()
	if err != nil {
		return err
	}

	playlists, err := lib.GetPlaylists(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, true)
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		title := p.Title
		if p.IsFavorites() {
			title = "★ " + title
		}
		r.writePlain("%d. %s\n", i+1, title)
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d (%s)\n", p.TrackCount, formatter.FormatDuration(p.Duration))
		r.writePlain("\n")
	}
	return nil
}

// PlaylistsShow prints a playlist with its tracks.
func (r *Runner) PlaylistsShow(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	lib, err := r.requireLibrary()
	if err != nil {
		return err
	}

	p, err := lib.GetPlaylistByID(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(p, true)
	}

	l := formatter.PlaylistListing(*p)
	r.writePlainHeader(l.Title)
	r.writePlain("Tracks: %d  Duration: %s\n\n", len(l.Tracks), formatter.FormatDuration(l.TotalDuration()))
	for i, t := range l.Tracks {
		r.writePlain("%d. %s\n", i+1, trackLine(t))
	}
	return nil
}

// PlaylistsExport writes a playlist to disk. Markdown exports include the cover image.
func (r *Runner) PlaylistsExport(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	lib, err := r.requireLibrary()
	if err != nil {
		return err
	}

	format := cmd.String("format")
	if format == "" {
		return fmt.Errorf("%w: --format", shared.ErrMissingArgument)
	}

	p, err := lib.GetPlaylistByID(ctx, id)
	if err != nil {
		return err
	}

	cover := ""
	if r.api != nil {
		cover = r.api.CoverURL(p.ImageName)
	}
	return r.writeExport(formatter.PlaylistListing(*p), format, cmd.String("output"), cover)
}

// PlaylistsExportAll exports every playlist into one directory with a manifest.
func (r *Runner) PlaylistsExportAll(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.requireLibrary()
	if err != nil {
		return err
	}

	playlists, err := lib.GetPlaylists(ctx)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(playlists))
	for _, p := range playlists {
		ids = append(ids, p.ID)
	}

	opts := tasks.BulkExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  r.config.Server.RateLimit,
	}
	if r.api != nil {
		opts.Cover = func(ctx context.Context, name string) (string, error) {
			return r.api.CoverURL(name), nil
		}
	}

	prog := make(chan tasks.ProgressUpdate, len(ids)*2+2)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range prog {
			r.writePlain("%s\n", u.Message)
		}
	}()

	result, err := tasks.NewExporter(lib, r.logger).BulkExport(ctx, prog, ids, opts)
	close(prog)
	<-done
	if err != nil {
		return err
	}

	r.writePlainln("✓ Exported %d of %d playlists to %s", result.SuccessfulExports, result.TotalPlaylists, result.OutputDirectory)
	if result.FailedExports > 0 {
		r.writePlain("✗ %d failed, see %s\n", result.FailedExports, result.ManifestPath)
	}
	return nil
}

// PlaylistsAdd adds a track to a playlist.
func (r *Runner) PlaylistsAdd(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.requireLibrary()
	if err != nil {
		return err
	}

	playlistID, trackID := cmd.String("playlist"), cmd.String("track")
	if err := lib.AddTrackToPlaylist(ctx, playlistID, trackID); err != nil {
		return err
	}

	r.logger.Info("track added to playlist", "playlist", playlistID, "track", trackID)
	return r.writePlain("✓ Added %s to %s\n", trackID, playlistID)
}

// PlaylistsRemove removes a track from a playlist.
func (r *Runner) PlaylistsRemove(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.requireLibrary()
	if err != nil {
		return err
	}

	playlistID, trackID := cmd.String("playlist"), cmd.String("track")
	if err := lib.RemoveTrackFromPlaylist(ctx, playlistID, trackID); err != nil {
		return err
	}

	r.logger.Info("track removed from playlist", "playlist", playlistID, "track", trackID)
	return r.writePlain("✓ Removed %s from %s\n", trackID, playlistID)
}

// PlaylistsCreate creates an empty playlist and prints its id.
func (r *Runner) PlaylistsCreate(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.requireLibrary()
	if err != nil {
		return err
	}

	p, err := lib.CreatePlaylist(ctx, cmd.String("title"))
	if err != nil {
		return err
	}

	r.logger.Info("playlist created", "playlist", p.ID)
	return r.writePlain("✓ Created %s (%s)\n", p.Title, p.ID)
}

// PlaylistsRename changes a playlist's title.
func (r *Runner) PlaylistsRename(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	lib, err := r.requireLibrary()
	if err != nil {
		return err
	}

	title := cmd.String("title")
	if err := lib.RenamePlaylist(ctx, id, title); err != nil {
		return err
	}

	r.logger.Info("playlist renamed", "playlist", id)
	return r.writePlain("✓ Renamed %s to %s\n", id, title)
}

// PlaylistsDelete deletes a playlist. Its tracks stay in the library.
func (r *Runner) PlaylistsDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	lib, err := r.requireLibrary()
	if err != nil {
		return err
	}

	if err := lib.DeletePlaylist(ctx, id); err != nil {
		return err
	}

	r.logger.Info("playlist deleted", "playlist", id)
	return r.writePlain("✓ Deleted %s\n", id)
}
