// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// googleFlag switches the authentication detour to the browser-based Google sign-in.
func googleFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "google",
		Usage: "Sign in with Google if no session is live",
	}
}

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
	}
}

func projectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "Only show colleges whose name contains this text",
		},
		&cli.StringFlag{
			Name:    "sort",
			Aliases: []string{"s"},
			Usage:   "Sort colleges by name or requests",
			Value:   "name",
		},
		&cli.StringFlag{
			Name:  "dir",
			Usage: "Sort direction (asc, desc)",
			Value: "asc",
		},
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file or initialize the database",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write an example config file to the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Create the database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

func catalogCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "catalog",
		Aliases: []string{"cat"},
		Usage:   "Browse the course catalog",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List courses grouped by college",
				Flags:  append(projectionFlags(), jsonFlags()...),
				Action: r.CatalogList,
			},
			{
				Name:  "show",
				Usage: "Show the courses of one college",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "course", Usage: "Filter by course name"},
					&cli.StringFlag{Name: "department", Usage: "Filter by department"},
					&cli.StringFlag{Name: "semester", Usage: "Filter by semester"},
				},
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "college"},
				},
				Action: r.CatalogShow,
			},
			{
				Name:  "export",
				Usage: "Export the catalog as text, JSON, CSV or XLSX",
				Flags: append(projectionFlags(),
					&cli.StringFlag{
						Name:  "format",
						Usage: "Export format (text, json, csv, xlsx)",
						Value: "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: catalog.<ext>)",
					},
				),
				Action: r.CatalogExport,
			},
			{
				Name:  "share",
				Usage: "Print a share message for a course",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "link", Usage: "Link appended to the message"},
				},
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.CatalogShare,
			},
		},
	}
}

func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the signed-in identity",
		Commands: []*cli.Command{
			{
				Name:  "signin",
				Usage: "Sign in with email and password",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Usage: "Account email (prompted when empty)"},
				},
				Action: r.AuthSignIn,
			},
			{
				Name:  "signup",
				Usage: "Create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Full name (prompted when empty)"},
					&cli.StringFlag{Name: "email", Usage: "Account email (prompted when empty)"},
				},
				Action: r.AuthSignUp,
			},
			{
				Name:   "google",
				Usage:  "Sign in with Google in the browser",
				Action: r.AuthGoogle,
			},
			{
				Name:   "signout",
				Usage:  "Sign out and forget requested courses",
				Action: r.AuthSignOut,
			},
			{
				Name:   "status",
				Usage:  "Show the signed-in identity",
				Flags:  jsonFlags(),
				Action: r.AuthStatus,
			},
		},
	}
}

func requestCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "request",
		Usage: "Request an existing course",
		Flags: []cli.Flag{googleFlag()},
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Action: r.Request,
	}
}

func submitCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "submit",
		Usage: "Propose a new course",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "college", Usage: "College name"},
			&cli.StringFlag{Name: "semester", Usage: "Semester number"},
			&cli.StringFlag{Name: "course", Usage: "Course name"},
			&cli.StringFlag{Name: "department", Usage: "Department"},
			googleFlag(),
		},
		Action: r.Submit,
	}
}

func uploadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Usage:     "Upload course materials for a requested course",
		ArgsUsage: "<files...>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "record",
				Aliases:  []string{"r"},
				Usage:    "Course id (or composite key of a course submitted in this session)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "title",
				Usage: "Course title used in the folder name (default: looked up in the catalog)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the batch result as JSON",
			},
		},
		Action: r.Upload,
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Browse and request courses interactively",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the TUI runs",
				Value: "./tmp/kplor-tui.log",
			},
			&cli.StringFlag{Name: "link", Usage: "Link appended to share messages"},
		},
		Action: r.TUI,
	}
}
