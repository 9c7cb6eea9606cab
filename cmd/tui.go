package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/encore/internal/keys"
	"github.com/desertthunder/encore/internal/playback"
	"github.com/desertthunder/encore/internal/repositories"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/desertthunder/encore/internal/ui"
	"github.com/urfave/cli/v3"
)

// Play launches the interactive player.
//
// With a configured token the player starts on the server library; otherwise, or with --demo,
// it plays the bundled demo tracks.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cfg.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(cfg.Log.Level))
	r.SetLogger(fileLogger)

	authenticated := cfg.Authenticated() && !cmd.Bool("demo") && r.api != nil
	r.logger.Info("starting player", "authenticated", authenticated, "server", cfg.Server.BaseURL)

	blobs := playback.NewBlobStore()
	// Demo hosts must not see the server token, so the opener gets a plain client.
	device := playback.NewSpeakerDevice(
		playback.NewOpener(blobs, nil),
		cfg.Player.SampleRate,
		time.Duration(cfg.Player.BufferMS)*time.Millisecond,
		r.logger,
	)

	sessionCfg := playback.SessionConfig{
		Device:        device,
		Blobs:         blobs,
		Keys:          keys.NewBus(),
		Authenticated: authenticated,
	}
	opts := ui.Options{
		Keys:         sessionCfg.Keys,
		PlaylistID:   cmd.String("playlist"),
		PollInterval: time.Duration(cfg.Player.PollMS) * time.Millisecond,
		Logger:       r.logger,
	}

	if r.api != nil {
		repo, err := r.trackRepository()
		if err != nil {
			r.logger.Warn("track cache database unavailable, caching in memory only", "error", err)
		}

		cache := repositories.NewTrackCache(ctx, r.api, repo, r.logger)
		defer cache.Wait()

		sessionCfg.Audio = r.api
		sessionCfg.Tracks = cache
		opts.Library = r.library
		opts.Tracks = cache
	}

	session := playback.NewSession(ctx, sessionCfg, r.logger)
	defer session.Close()

	model := ui.NewModel(ctx, session, opts)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
