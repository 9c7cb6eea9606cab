package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/encore/internal/formatter"
	"github.com/urfave/cli/v3"
)

// CacheList prints the track records held in the local cache.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.trackRepository()
	if err != nil {
		return err
	}

	tracks, err := repo.List()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}

	r.writePlainHeader(fmt.Sprintf("Cached tracks (%d)", len(tracks)))
	for _, t := range tracks {
		r.writePlain("%-36s  %s - %s [%s]\n", t.ID, t.Artist, t.Title, formatter.FormatDuration(t.Duration))
	}
	return nil
}

// CacheClear removes every cached track record.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.trackRepository()
	if err != nil {
		return err
	}

	n, err := repo.Purge()
	if err != nil {
		return err
	}

	r.logger.Info("track cache cleared", "removed", n)
	return r.writePlain("✓ Removed %d cached tracks\n", n)
}
