// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles setup operations for the database and configuration file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize the track cache database and run migrations",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Revert the newest applied migration",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write a config.toml populated with defaults",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Check that the server is reachable and accepts the configured token (calls /health)",
				Action: r.AuthStatus,
			},
		},
	}
}

func exportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Export format: csv, markdown, text or json",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output path (defaults to the listing ID)",
		},
	}
}

func idArg() []cli.Argument {
	return []cli.Argument{&cli.StringArg{Name: "id"}}
}

func membershipFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "playlist",
			Aliases:  []string{"p"},
			Usage:    "Playlist ID",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "track",
			Aliases:  []string{"t"},
			Usage:    "Track ID",
			Required: true,
		},
	}
}

// tracksCommand handles track operations against the music server
func tracksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tracks",
		Usage: "Track operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List tracks, optionally filtered by a search query",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "Search query",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				}, exportFlags()...),
				Action: r.TracksList,
			},
			{
				Name:      "show",
				Usage:     "Show a single track and refresh its cached record",
				Arguments: idArg(),
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.TracksShow,
			},
			{
				Name:      "delete",
				Usage:     "Delete a track from the server",
				Arguments: idArg(),
				Action:    r.TracksDelete,
			},
			{
				Name:      "favorite",
				Usage:     "Add a track to favorites",
				Arguments: idArg(),
				Action:    r.TracksFavorite,
			},
			{
				Name:      "unfavorite",
				Usage:     "Remove a track from favorites",
				Arguments: idArg(),
				Action:    r.TracksUnfavorite,
			},
		},
	}
}

func titleFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "title",
		Aliases:  []string{"t"},
		Usage:    "Playlist title",
		Required: true,
	}
}

// playlistsCommand handles playlist operations against the music server
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlists",
		Usage: "Playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List playlists",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PlaylistsList,
			},
			{
				Name:      "show",
				Usage:     "Show a playlist and its tracks",
				Arguments: idArg(),
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PlaylistsShow,
			},
			{
				Name:      "export",
				Usage:     "Export a playlist to CSV, Markdown (with cover), text or JSON",
				Arguments: idArg(),
				Flags:     exportFlags(),
				Action:    r.PlaylistsExport,
			},
			{
				Name:  "export-all",
				Usage: "Export every playlist concurrently and write a manifest",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: csv, markdown, text or json",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (defaults to encore_export_{epoch})",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent export workers",
						Value: 5,
					},
				},
				Action: r.PlaylistsExportAll,
			},
			{
				Name:   "create",
				Usage:  "Create an empty playlist",
				Flags:  []cli.Flag{titleFlag()},
				Action: r.PlaylistsCreate,
			},
			{
				Name:      "rename",
				Usage:     "Change a playlist's title",
				Arguments: idArg(),
				Flags:     []cli.Flag{titleFlag()},
				Action:    r.PlaylistsRename,
			},
			{
				Name:      "delete",
				Usage:     "Delete a playlist (its tracks are kept)",
				Arguments: idArg(),
				Action:    r.PlaylistsDelete,
			},
			{
				Name:   "add",
				Usage:  "Add a track to a playlist",
				Flags:  membershipFlags(),
				Action: r.PlaylistsAdd,
			},
			{
				Name:   "remove",
				Usage:  "Remove a track from a playlist",
				Flags:  membershipFlags(),
				Action: r.PlaylistsRemove,
			},
		},
	}
}

// cacheCommand handles the local track record cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and clear the local track cache",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List cached track records",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CacheList,
			},
			{
				Name:   "clear",
				Usage:  "Remove every cached track record",
				Action: r.CacheClear,
			},
		},
	}
}

// playCommand returns the top-level command for the interactive player.
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "play",
		Aliases: []string{"tui", "ui"},
		Usage:   "Launch the interactive player",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "demo",
				Usage: "Play the bundled demo tracks without contacting the server",
			},
			&cli.StringFlag{
				Name:  "playlist",
				Usage: "Open the player on a playlist",
			},
		},
		Action: r.Play,
	}
}
