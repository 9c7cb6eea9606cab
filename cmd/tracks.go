package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/encore/internal/formatter"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/urfave/cli/v3"
)

// TracksList lists the library, or exports it when --format is given.
func (r *Runner) TracksList(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.requireLibrary()
	if err != nil {
		return err
	}

	query := cmd.String("query")
	r.logger.Debug("listing tracks", "query", query)

	tracks, err := lib.GetTracks(ctx, query)
	if err != nil {
		return err
	}

	if format := cmd.String("format"); format != "" {
		return r.writeExport(formatter.LibraryListing(tracks), format, cmd.String("output"), "")
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}

	r.writePlain("Found %d tracks:\n\n", len(tracks))
	for i, t := range tracks {
		r.writePlain("%d. %s\n", i+1, trackLine(t))
		r.writePlain("   ID: %s\n", t.ID)
	}
	return nil
}

// TracksShow prints a single track and refreshes its row in the local cache.
func (r *Runner) TracksShow(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	lib, err := r.requireLibrary()
	if err != nil {
		return err
	}

	track, err := lib.GetTrackByID(ctx, id)
	if err != nil {
		return err
	}

	if repo, err := r.trackRepository(); err != nil {
		r.logger.Warn("track cache unavailable", "error", err)
	} else if err := repo.Upsert(*track); err != nil {
		r.logger.Warn("failed to cache track", "track", id, "error", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(track, true)
	}

	r.writePlainHeader(track.Title)
	r.writePlain("Artist:   %s\n", track.Artist)
	r.writePlain("Duration: %s\n", formatter.FormatDuration(track.Duration))
	r.writePlain("Favorite: %t\n", track.Favorite)
	r.writePlain("Audio:    %s\n", track.TrackName)
	if cover := track.Cover(); cover != "" && r.api != nil {
		r.writePlain("Cover:    %s\n", r.api.CoverURL(cover))
	}
	r.writePlain("ID:       %s\n", track.ID)
	return nil
}

// TracksDelete removes a track from the server and from the local cache.
func (r *Runner) TracksDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	lib, err := r.requireLibrary()
	if err != nil {
		return err
	}

	if err := lib.DeleteTrack(ctx, id); err != nil {
		return err
	}
	r.forget(id)

	r.logger.Info("track deleted", "track", id)
	return r.writePlain("✓ Deleted track %s\n", id)
}

// TracksFavorite adds a track to the favorites playlist.
func (r *Runner) TracksFavorite(ctx context.Context, cmd *cli.Command) error {
	return r.setFavorite(ctx, cmd, true)
}

// TracksUnfavorite removes a track from the favorites playlist.
func (r *Runner) TracksUnfavorite(ctx context.Context, cmd *cli.Command) error {
	return r.setFavorite(ctx, cmd, false)
}

func (r *Runner) setFavorite(ctx context.Context, cmd *cli.Command, favorite bool) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	lib, err := r.requireLibrary()
	if err != nil {
		return err
	}

	if favorite {
		err = lib.AddFavorite(ctx, id)
	} else {
		err = lib.RemoveFavorite(ctx, id)
	}
	if err != nil {
		return err
	}
	// The cached row carries the old flag.
	r.forget(id)

	if favorite {
		return r.writePlain("✓ Added %s to favorites\n", id)
	}
	return r.writePlain("✓ Removed %s from favorites\n", id)
}

// forget drops a track's cached row. A missing row or database is not an error.
func (r *Runner) forget(id string) {
	repo, err := r.trackRepository()
	if err != nil {
		r.logger.Debug("track cache unavailable", "error", err)
		return
	}
	if err := repo.Delete(id); err != nil && !errors.Is(err, shared.ErrTrackNotFound) {
		r.logger.Warn("failed to evict cached track", "track", id, "error", err)
	}
}

func requireID(cmd *cli.Command) (string, error) {
	id := cmd.StringArg("id")
	if id == "" {
		return "", fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}
	return id, nil
}

func trackLine(t models.Track) string {
	star := ""
	if t.Favorite {
		star = " ★"
	}
	return fmt.Sprintf("%s - %s [%s]%s", t.Artist, t.Title, formatter.FormatDuration(t.Duration), star)
}
