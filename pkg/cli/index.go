package cli

import (
	"context"

	"github.com/m-mizutani/kioku/pkg/usecase/search"
	"github.com/urfave/cli/v3"
)

func indexCommand() *cli.Command {
	var (
		cfg     config
		content string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "content",
			Aliases:     []string{"c"},
			Usage:       "Text to index",
			Destination: &content,
			Required:    true,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "index",
		Usage: "Embed and index a document for semantic search",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogging()

			uc, err := cfg.newSearchUseCase(ctx)
			if err != nil {
				return err
			}

			doc, err := uc.Index(ctx, &search.IndexInput{Content: content})
			if err != nil {
				return err
			}

			return printJSON(c, map[string]any{"id": doc.ID})
		},
	}
}
