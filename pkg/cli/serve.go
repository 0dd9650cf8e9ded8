package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/kioku/pkg/controller"
	"github.com/m-mizutani/kioku/pkg/usecase/chat"
	"github.com/m-mizutani/kioku/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

func serveCommand() *cli.Command {
	var (
		cfg  config
		addr string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Listen address",
			Value:       "127.0.0.1:8080",
			Sources:     cli.EnvVars("KIOKU_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogging()

			memoryUC, repo, err := cfg.newMemoryUseCase(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			searchUC, err := cfg.newSearchUseCase(ctx)
			if err != nil {
				return err
			}

			opts := []controller.Option{}
			if generator, err := cfg.newGenerator(ctx); err == nil {
				opts = append(opts, controller.WithChat(chat.New(memoryUC, searchUC, generator)))
			} else {
				logging.Default().Warn("chat endpoint disabled", "error", err)
			}

			srv := controller.New(memoryUC, searchUC, opts...)

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start(addr)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
