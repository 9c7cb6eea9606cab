package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/encore/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthStatus checks the server's /health endpoint with the configured credentials.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if r.api == nil {
		return fmt.Errorf("%w: music server not configured", shared.ErrServiceUnavailable)
	}

	r.logger.Info("checking auth status", "server", r.config.Server.BaseURL)

	if err := r.api.Health(ctx); err != nil {
		return err
	}

	r.writePlain("✓ Service is healthy\n")
	r.writePlain("Server: %s\n", r.config.Server.BaseURL)
	switch {
	case r.config.Player.Demo:
		r.writePlain("Mode: demo (player.demo is set)\n")
	case r.config.Authenticated():
		r.writePlain("Authentication: ✓ Token configured\n")
	default:
		r.writePlain("Authentication: ✗ No token, the player will use demo tracks\n")
	}
	return nil
}
