// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand writes config.toml and brings the database schema up.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml, the database and the schema",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// dbCommand handles schema migration operations.
func dbCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "db",
		Usage: "Database schema operations",
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Apply pending migrations",
				Action: r.DbMigrate,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.DbRollback,
			},
			{
				Name:   "status",
				Usage:  "Show applied and pending migrations",
				Action: r.DbStatus,
			},
		},
	}
}

// authCommand handles Spotify authentication.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authenticate with Spotify using OAuth2",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show the current authentication state",
				Action: r.AuthStatus,
			},
		},
	}
}

// tagCommand handles catalog edits. Every action routes through the tagger so
// active playlists react to the change before the command exits.
func tagCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tag",
		Usage: "Rate, tag and annotate catalog items",
		Commands: []*cli.Command{
			{
				Name:  "rate",
				Usage: "Set an item's rating (1-10, 0 clears)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "key"},
					&cli.StringArg{Name: "value"},
				},
				Action: r.TagRate,
			},
			{
				Name:  "energy",
				Usage: "Set an item's energy (1-10, 0 clears)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "key"},
					&cli.StringArg{Name: "value"},
				},
				Action: r.TagEnergy,
			},
			{
				Name:  "tempo",
				Usage: "Set an item's tempo in BPM (0 clears)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "key"},
					&cli.StringArg{Name: "value"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "fetch",
						Usage: "Read BPM from the provider's audio analysis instead of VALUE",
					},
				},
				Action: r.TagTempo,
			},
			{
				Name:  "toggle",
				Usage: "Toggle a category:subcategory:id tag on an item",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "key"},
					&cli.StringArg{Name: "tag"},
				},
				Action: r.TagToggle,
			},
			{
				Name:  "batch",
				Usage: "Apply a JSON file of edits as one batch",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to a JSON array of edits",
						Required: true,
					},
				},
				Action: r.TagBatch,
			},
		},
	}
}

// itemsCommand handles catalog inspection and enrichment.
func itemsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "items",
		Usage: "Inspect and enrich the local catalog",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List catalog items",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "tag",
						Usage: "Only items carrying this tag",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.ItemsList,
			},
			{
				Name:  "show",
				Usage: "Show one item with its cached metadata",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "key"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.ItemsShow,
			},
			{
				Name:  "enrich",
				Usage: "Fetch remote metadata and tempo for resolvable items",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent fetchers",
						Value: 4,
					},
					&cli.IntFlag{
						Name:  "rate",
						Usage: "Requests per second shared by all workers",
						Value: 5,
					},
					&cli.BoolFlag{
						Name:  "skip-tempo",
						Usage: "Fetch metadata only, leave tempo untouched",
					},
					&cli.StringSliceFlag{
						Name:  "key",
						Usage: "Restrict the run to this key (repeatable)",
					},
				},
				Action: r.ItemsEnrich,
			},
		},
	}
}

// tagsCommand handles the tag taxonomy.
func tagsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "Manage the tag taxonomy",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List known tags grouped by category",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "category",
						Usage: "Only tags in this category",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.TagsList,
			},
			{
				Name:  "add",
				Usage: "Register a category:subcategory:id tag",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "tag"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "label",
						Usage: "Display label for the tag",
					},
				},
				Action: r.TagsAdd,
			},
			{
				Name:    "rm",
				Aliases: []string{"remove"},
				Usage:   "Remove a tag from the taxonomy",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "tag"},
				},
				Action: r.TagsRemove,
			},
		},
	}
}

// playlistCommand handles smart playlist management. Criteria flags are shared
// between create and set-criteria.
func playlistCommand(r *Runner) *cli.Command {
	criteriaFlags := []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "include",
			Usage: "Tag the item must carry (repeatable)",
		},
		&cli.StringSliceFlag{
			Name:  "exclude",
			Usage: "Tag the item must not carry (repeatable)",
		},
		&cli.StringFlag{
			Name:  "match",
			Usage: "Include-tag mode: all or any",
		},
		&cli.StringSliceFlag{
			Name:  "rating",
			Usage: "Acceptable rating value (repeatable)",
		},
		&cli.IntFlag{
			Name:  "energy-min",
			Usage: "Minimum energy",
		},
		&cli.IntFlag{
			Name:  "energy-max",
			Usage: "Maximum energy",
		},
		&cli.IntFlag{
			Name:  "tempo-min",
			Usage: "Minimum tempo in BPM",
		},
		&cli.IntFlag{
			Name:  "tempo-max",
			Usage: "Maximum tempo in BPM",
		},
	}

	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Manage smart playlists",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a remote playlist bound to criteria",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "description",
						Aliases: []string{"d"},
						Usage:   "Playlist description",
					},
				}, criteriaFlags...),
				Action: r.PlaylistCreate,
			},
			{
				Name:  "list",
				Usage: "List registered smart playlists",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.PlaylistList,
			},
			{
				Name:  "show",
				Usage: "Show a playlist and what a sync would change",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PlaylistShow,
			},
			{
				Name:      "set-criteria",
				Usage:     "Replace a playlist's criteria and queue a sync",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     criteriaFlags,
				Action:    r.PlaylistSetCriteria,
			},
			{
				Name:      "activate",
				Usage:     "Activate a playlist and queue a sync",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.PlaylistActivate,
			},
			{
				Name:      "deactivate",
				Usage:     "Deactivate a playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.PlaylistDeactivate,
			},
			{
				Name:      "rm",
				Aliases:   []string{"remove"},
				Usage:     "Forget a playlist (the remote collection stays)",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.PlaylistRemove,
			},
		},
	}
}

// syncCommand handles reconciliation runs and the audit log.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Reconcile playlists with the remote service",
		Commands: []*cli.Command{
			{
				Name:  "now",
				Usage: "Run a full reconciliation",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "id",
						Usage: "Only this playlist",
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Every active playlist",
					},
				},
				Action: r.SyncNow,
			},
			{
				Name:   "prune",
				Usage:  "Drop playlists whose remote collection is gone",
				Action: r.SyncPrune,
			},
			{
				Name:  "log",
				Usage: "Show recent sync runs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: 20,
					},
					&cli.StringFlag{
						Name:  "playlist",
						Usage: "Only runs for this collection id",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SyncLog,
			},
		},
	}
}

// exportCommand writes the library to a file.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the library (items, playlists, taxonomy)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: json, csv or md",
				Value: "json",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path",
			},
		},
		Action: r.Export,
	}
}

// importCommand restores a library export.
func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import a library export file",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "file"},
		},
		Action: r.Import,
	}
}

// tuiCommand returns the top-level TUI command for interactive playlist sync.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive sync interface",
		Action:  r.TUI,
	}
}

// serveCommand runs the long-lived callback and ops server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the OAuth callback and ops server (/health, /metrics)",
		Action: r.Serve,
	}
}
