package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/genaiconf/internal/logger"
	"github.com/samcharles93/genaiconf/pkg/genconfig"
)

func validateCmd() *cli.Command {
	var overlayPath string

	return &cli.Command{
		Name:      "validate",
		Usage:     "Load a model directory's configuration and check its invariants",
		ArgsUsage: "<model-dir>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "overlay",
				Usage:       "path to a partial JSON document merged over the configuration",
				Destination: &overlayPath,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.Args().First()
			if dir == "" {
				return fmt.Errorf("model directory argument is required")
			}

			log := logger.FromContext(ctx)
			cfg, err := loadConfig(dir, overlayPath)
			if err != nil {
				return err
			}

			log.Info("configuration valid",
				"dir", dir,
				"type", cfg.Model.Type,
				"context_length", cfg.Model.ContextLength,
				"providers", cfg.Model.Decoder.SessionOptions.Providers,
			)
			fmt.Println("OK")
			return nil
		},
	}
}

func loadConfig(dir, overlayPath string) (*genconfig.Config, error) {
	var overlay string
	if overlayPath != "" {
		raw, err := os.ReadFile(overlayPath)
		if err != nil {
			return nil, fmt.Errorf("reading overlay: %w", err)
		}
		overlay = string(raw)
	}
	return genconfig.Load(dir, overlay)
}
