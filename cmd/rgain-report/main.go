package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/replaygain/version"
)

func main() {
	ctx := context.Background()

	appl := &cli.Command{
		Name:    version.Name(),
		Usage:   "Generate and summarize ReplayGain reports for a music collection",
		Version: version.Version() + " " + version.Commit(),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"D"},
				Usage:   "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}

			return ctx, nil
		},
		Commands: []*cli.Command{
			reportCommand(),
			digestCommand(),
		},
	}

	if err := appl.Run(ctx, os.Args); err != nil {
		slog.Error("failed to run", "error", err)
		os.Exit(1)
	}
}
