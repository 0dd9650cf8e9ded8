package cli

import (
	"context"

	"github.com/m-mizutani/kioku/pkg/model"
	"github.com/m-mizutani/kioku/pkg/usecase/memory"
	"github.com/urfave/cli/v3"
)

func eventCommand() *cli.Command {
	return &cli.Command{
		Name:  "event",
		Usage: "Record and query conversation events",
		Commands: []*cli.Command{
			eventAddCommand(),
			eventListCommand(),
		},
	}
}

func eventAddCommand() *cli.Command {
	var (
		cfg       config
		sessionID string
		actorID   string
		role      string
		content   string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "session-id",
			Aliases:     []string{"s"},
			Usage:       "Session to append to",
			Sources:     cli.EnvVars("KIOKU_SESSION_ID"),
			Destination: &sessionID,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "actor-id",
			Aliases:     []string{"a"},
			Usage:       "Actor the event belongs to",
			Sources:     cli.EnvVars("KIOKU_ACTOR_ID"),
			Destination: &actorID,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "role",
			Usage:       "Event role (USER, ASSISTANT, SYSTEM)",
			Value:       string(model.RoleUser),
			Destination: &role,
		},
		&cli.StringFlag{
			Name:        "content",
			Aliases:     []string{"c"},
			Usage:       "Event content",
			Destination: &content,
			Required:    true,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "add",
		Usage: "Append a conversation event",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogging()

			uc, repo, err := cfg.newMemoryUseCase(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			event, err := uc.CreateEvent(ctx, &memory.CreateEventInput{
				SessionID: model.SessionID(sessionID),
				ActorID:   model.ActorID(actorID),
				Role:      model.Role(role),
				Content:   content,
			})
			if err != nil {
				return err
			}

			return printJSON(c, event)
		},
	}
}

func eventListCommand() *cli.Command {
	var (
		cfg       config
		sessionID string
		actorID   string
		limit     int64
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "session-id",
			Aliases:     []string{"s"},
			Usage:       "List events of this session, oldest first",
			Sources:     cli.EnvVars("KIOKU_SESSION_ID"),
			Destination: &sessionID,
		},
		&cli.StringFlag{
			Name:        "actor-id",
			Aliases:     []string{"a"},
			Usage:       "List events of this actor across sessions, newest first",
			Sources:     cli.EnvVars("KIOKU_ACTOR_ID"),
			Destination: &actorID,
		},
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "Maximum number of events",
			Destination: &limit,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List conversation events",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogging()

			uc, repo, err := cfg.newMemoryUseCase(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			events, err := uc.GetEvents(ctx, &memory.GetEventsInput{
				SessionID: model.SessionID(sessionID),
				ActorID:   model.ActorID(actorID),
				Limit:     int(limit),
			})
			if err != nil {
				return err
			}

			return printJSON(c, events)
		},
	}
}
