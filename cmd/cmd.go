// submodule cmd contains command definitions
package main

import (
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/studyx/internal/services"
)

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: true,
		},
	}
}

func limitFlag(value int) cli.Flag {
	return &cli.IntFlag{
		Name:    "limit",
		Aliases: []string{"n"},
		Usage:   "Maximum number of results",
		Value:   value,
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml if missing, then initialize the database and run migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Roll back the most recent migration instead",
			},
		},
		Action: r.Setup,
	}
}

// timerCommand drives the persisted session timer
func timerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "timer",
		Aliases: []string{"t"},
		Usage:   "Pomodoro session timer",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show the current phase, remaining time and counters",
				Flags:  jsonFlags(),
				Action: r.TimerStatus,
			},
			{
				Name:  "start",
				Usage: "Run the timer in the foreground (Ctrl+C pauses and exits)",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "phases",
						Usage: "Stop after this many completed phases (0 runs until interrupted)",
					},
					&cli.BoolFlag{
						Name:    "quiet",
						Aliases: []string{"q"},
						Usage:   "Only print phase completions",
					},
				},
				Action: r.TimerStart,
			},
			{
				Name:   "reset",
				Usage:  "Return to a full focus countdown (counters and streak are kept)",
				Action: r.TimerReset,
			},
			{
				Name:  "adjust",
				Usage: "Add or remove minutes from the paused countdown (never below one minute)",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "minutes",
						Aliases:  []string{"m"},
						Usage:    "Minutes to add (negative to remove)",
						Required: true,
					},
				},
				Action: r.TimerAdjust,
			},
		},
	}
}

func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Daily focus totals, streak and all-time counters",
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:    "days",
				Aliases: []string{"d"},
				Usage:   "Number of days to show, ending today",
				Value:   7,
			},
		}, jsonFlags()...),
		Action: r.Stats,
	}
}

// historyCommand lists and exports completed phases
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Completed study sessions",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recorded sessions, newest first",
				Flags: append([]cli.Flag{
					limitFlag(20),
					&cli.StringFlag{
						Name:  "phase",
						Usage: "Only show focus or break sessions",
					},
					&cli.StringFlag{
						Name:  "since",
						Usage: "Earliest study date (YYYY-MM-DD)",
					},
				}, jsonFlags()...),
				Action: r.HistoryList,
			},
			{
				Name:  "export",
				Usage: "Export the full history to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "csv, markdown, txt, json or yaml",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: study_history.{ext})",
					},
					&cli.IntFlag{
						Name:  "days",
						Usage: "Days of daily totals included in the summary",
						Value: 30,
					},
				},
				Action: r.HistoryExport,
			},
			{
				Name:  "archive",
				Usage: "Export one file per month plus a manifest",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "csv, markdown, txt, json or yaml",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output-dir",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: studyx_archive_{epoch})",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent writers",
						Value: 4,
					},
				},
				Action: r.HistoryArchive,
			},
		},
	}
}

// spotifyCommand handles the focus-music panel
func spotifyCommand(r *Runner) *cli.Command {
	configFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		}
	}
	deviceFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:  "device",
			Usage: "Spotify device ID (default: the active device)",
		}
	}

	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify focus music",
		Commands: []*cli.Command{
			{
				Name:   "auth",
				Usage:  "Authenticate with Spotify using OAuth2",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SpotifyAuth,
			},
			{
				Name:   "profile",
				Usage:  "Show the connected Spotify account",
				Flags:  append([]cli.Flag{configFlag()}, jsonFlags()...),
				Action: r.SpotifyProfile,
			},
			{
				Name:   "playlists",
				Usage:  "List your playlists",
				Flags:  append([]cli.Flag{configFlag(), limitFlag(50)}, jsonFlags()...),
				Action: r.SpotifyPlaylists,
			},
			{
				Name:  "top",
				Usage: "Your top tracks or artists",
				Flags: append([]cli.Flag{
					configFlag(),
					limitFlag(20),
					&cli.StringFlag{
						Name:  "type",
						Usage: "tracks or artists",
						Value: "tracks",
					},
					&cli.StringFlag{
						Name:  "range",
						Usage: "short_term, medium_term or long_term",
						Value: string(services.MediumTerm),
					},
				}, jsonFlags()...),
				Action: r.SpotifyTop,
			},
			{
				Name:   "recent",
				Usage:  "Recently played tracks",
				Flags:  append([]cli.Flag{configFlag(), limitFlag(20)}, jsonFlags()...),
				Action: r.SpotifyRecent,
			},
			{
				Name:      "search",
				Usage:     "Search tracks, artists and playlists, loosening the query when nothing matches",
				Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
				Flags: append([]cli.Flag{
					configFlag(),
					limitFlag(10),
					&cli.StringSliceFlag{
						Name:  "type",
						Usage: "Result types: track, artist, playlist",
					},
					&cli.BoolFlag{
						Name:  "exact",
						Usage: "Disable fallback queries",
					},
				}, jsonFlags()...),
				Action: r.SpotifySearch,
			},
			{
				Name:  "recommend",
				Usage: "Focus-friendly recommendations",
				Flags: append([]cli.Flag{
					configFlag(),
					limitFlag(20),
					&cli.StringSliceFlag{
						Name:  "genre",
						Usage: "Seed genres (default: ambient, chill, study)",
					},
					&cli.StringSliceFlag{
						Name:  "artist",
						Usage: "Seed artist IDs",
					},
					&cli.StringSliceFlag{
						Name:  "track",
						Usage: "Seed track IDs",
					},
					&cli.FloatFlag{
						Name:  "energy",
						Usage: "Target energy 0..1",
					},
					&cli.FloatFlag{
						Name:  "instrumentalness",
						Usage: "Target instrumentalness 0..1",
					},
				}, jsonFlags()...),
				Action: r.SpotifyRecommend,
			},
			{
				Name:   "genres",
				Usage:  "Genres accepted as recommendation seeds",
				Flags:  append([]cli.Flag{configFlag()}, jsonFlags()...),
				Action: r.SpotifyGenres,
			},
			{
				Name:  "play",
				Usage: "Resume playback, or start a playlist or tracks",
				Flags: []cli.Flag{
					configFlag(),
					deviceFlag(),
					&cli.StringFlag{
						Name:  "context",
						Usage: "Playlist, album or artist URI",
					},
					&cli.StringSliceFlag{
						Name:  "uri",
						Usage: "Track URIs",
					},
				},
				Action: r.SpotifyPlay,
			},
			{
				Name:   "pause",
				Usage:  "Pause playback",
				Flags:  []cli.Flag{configFlag(), deviceFlag()},
				Action: r.SpotifyPause,
			},
			{
				Name:   "next",
				Usage:  "Skip to the next track",
				Flags:  []cli.Flag{configFlag(), deviceFlag()},
				Action: r.SpotifyNext,
			},
			{
				Name:   "previous",
				Usage:  "Go back to the previous track",
				Flags:  []cli.Flag{configFlag(), deviceFlag()},
				Action: r.SpotifyPrevious,
			},
			{
				Name:      "volume",
				Usage:     "Set the playback volume (0-100)",
				Arguments: []cli.Argument{&cli.StringArg{Name: "percent"}},
				Flags:     []cli.Flag{configFlag(), deviceFlag()},
				Action:    r.SpotifyVolume,
			},
		},
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Host the ticking timer behind a local JSON dashboard API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default: [server] host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (default: [server] port)",
			},
		},
		Action: r.Serve,
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"ui"},
		Usage:   "Interactive timer with stats and focus music",
		Action:  r.TUI,
	}
}
