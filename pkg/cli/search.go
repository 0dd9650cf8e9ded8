package cli

import (
	"context"

	"github.com/m-mizutani/kioku/pkg/usecase/search"
	"github.com/urfave/cli/v3"
)

func searchCommand() *cli.Command {
	var (
		cfg      config
		limit    int64
		minScore float64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "Maximum number of results",
			Destination: &limit,
		},
		&cli.FloatFlag{
			Name:        "min-score",
			Usage:       "Minimum similarity score",
			Value:       search.DefaultMinScore,
			Destination: &minScore,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:      "search",
		Usage:     "Search indexed documents by meaning",
		ArgsUsage: "<query>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogging()

			if c.Args().Len() != 1 {
				return cli.Exit("query is required", 1)
			}

			uc, err := cfg.newSearchUseCase(ctx)
			if err != nil {
				return err
			}

			results, err := uc.SearchScored(ctx, &search.QueryInput{
				Query:    c.Args().First(),
				Limit:    int(limit),
				MinScore: &minScore,
			})
			if err != nil {
				return err
			}

			type result struct {
				ID      string  `json:"id"`
				Content string  `json:"content"`
				Score   float64 `json:"score"`
			}
			out := make([]result, 0, len(results))
			for _, r := range results {
				out = append(out, result{
					ID:      string(r.Document.ID),
					Content: r.Document.Content,
					Score:   r.Score,
				})
			}
			return printJSON(c, out)
		},
	}
}
