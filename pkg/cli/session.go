package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/m-mizutani/kioku/pkg/model"
	"github.com/m-mizutani/kioku/pkg/usecase/memory"
	"github.com/urfave/cli/v3"
)

func sessionCommand() *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "Manage conversation sessions",
		Commands: []*cli.Command{
			sessionNewCommand(),
			sessionShowCommand(),
			sessionListCommand(),
			sessionDeleteCommand(),
		},
	}
}

func sessionNewCommand() *cli.Command {
	var (
		cfg     config
		actorID string
		title   string
		tags    []string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "actor-id",
			Aliases:     []string{"a"},
			Usage:       "Actor the session belongs to",
			Sources:     cli.EnvVars("KIOKU_ACTOR_ID"),
			Destination: &actorID,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "title",
			Aliases:     []string{"t"},
			Usage:       "Session title",
			Destination: &title,
		},
		&cli.StringSliceFlag{
			Name:        "tag",
			Usage:       "Session tag (repeatable)",
			Destination: &tags,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "new",
		Usage: "Start a new session",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogging()

			uc, repo, err := cfg.newMemoryUseCase(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			session, err := uc.CreateSession(ctx, &memory.CreateSessionInput{
				ActorID: model.ActorID(actorID),
				Title:   title,
				Tags:    tags,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "%s\n", session.ID)
			return nil
		},
	}
}

func sessionShowCommand() *cli.Command {
	var (
		cfg     config
		actorID string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "actor-id",
			Aliases:     []string{"a"},
			Usage:       "Actor to attribute the session to when it is created",
			Sources:     cli.EnvVars("KIOKU_ACTOR_ID"),
			Destination: &actorID,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:      "show",
		Usage:     "Show a session, creating it if it does not exist",
		ArgsUsage: "<session-id>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogging()

			if c.Args().Len() != 1 {
				return cli.Exit("session id is required", 1)
			}

			uc, repo, err := cfg.newMemoryUseCase(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			session, err := uc.GetSession(ctx, model.SessionID(c.Args().First()), model.ActorID(actorID))
			if err != nil {
				return err
			}

			return printJSON(c, session)
		},
	}
}

func sessionListCommand() *cli.Command {
	var (
		cfg     config
		actorID string
		limit   int64
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "actor-id",
			Aliases:     []string{"a"},
			Usage:       "Actor whose sessions to list",
			Sources:     cli.EnvVars("KIOKU_ACTOR_ID"),
			Destination: &actorID,
			Required:    true,
		},
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "Maximum number of sessions",
			Destination: &limit,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List sessions of an actor, newest first",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogging()

			uc, repo, err := cfg.newMemoryUseCase(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			sessions, err := uc.ListSessions(ctx, model.ActorID(actorID), int(limit))
			if err != nil {
				return err
			}

			return printJSON(c, sessions)
		},
	}
}

func sessionDeleteCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a session and all of its events",
		ArgsUsage: "<session-id>",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogging()

			if c.Args().Len() != 1 {
				return cli.Exit("session id is required", 1)
			}

			uc, repo, err := cfg.newMemoryUseCase(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			deleted, err := uc.DeleteSession(ctx, model.SessionID(c.Args().First()))
			if err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "deleted: %v\n", deleted)
			return nil
		},
	}
}

func printJSON(c *cli.Command, v any) error {
	enc := json.NewEncoder(c.Root().Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
