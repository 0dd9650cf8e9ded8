package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
	"github.com/m-mizutani/kioku/pkg/usecase/chat"
	"github.com/urfave/cli/v3"
)

func chatCommand() *cli.Command {
	var (
		cfg       config
		sessionID string
		actorID   string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "session-id",
			Aliases:     []string{"s"},
			Usage:       "Session to chat in (a new one is created when empty)",
			Sources:     cli.EnvVars("KIOKU_SESSION_ID"),
			Destination: &sessionID,
		},
		&cli.StringFlag{
			Name:        "actor-id",
			Aliases:     []string{"a"},
			Usage:       "Actor the conversation belongs to",
			Sources:     cli.EnvVars("KIOKU_ACTOR_ID"),
			Destination: &actorID,
			Required:    true,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive chat with memory and document retrieval",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogging()

			uc, repo, err := cfg.newChatUseCase(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			sid := model.SessionID(sessionID)
			if sid == "" {
				sid = model.NewSessionID()
				fmt.Fprintf(c.Root().Writer, "session: %s\n", sid)
			}

			rl, err := readline.New("> ")
			if err != nil {
				return goerr.Wrap(err, "failed to open terminal")
			}
			defer rl.Close()

			fmt.Fprintf(c.Root().Writer, "Chat session started. Type 'exit' to quit.\n")

			for {
				line, err := rl.Readline()
				if err != nil {
					if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
						break
					}
					return goerr.Wrap(err, "failed to read input")
				}
				if line == "exit" {
					break
				}
				if line == "" {
					continue
				}

				sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				sp.Start()
				reply, err := uc.Send(ctx, &chat.SendInput{
					SessionID: sid,
					ActorID:   model.ActorID(actorID),
					Message:   line,
				})
				sp.Stop()
				if err != nil {
					return goerr.Wrap(err, "failed to send message")
				}

				fmt.Fprintf(c.Root().Writer, "%s\n", reply.Content)
			}

			fmt.Fprintf(c.Root().Writer, "\nChat session completed\n")
			return nil
		},
	}
}
