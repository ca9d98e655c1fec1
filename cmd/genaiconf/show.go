package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

func showCmd() *cli.Command {
	var (
		overlayPath string
		format      string
	)

	return &cli.Command{
		Name:      "show",
		Usage:     "Load a configuration and print the fully bound result",
		ArgsUsage: "<model-dir>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "overlay",
				Usage:       "path to a partial JSON document merged over the configuration",
				Destination: &overlayPath,
			},
			&cli.StringFlag{
				Name:        "format",
				Aliases:     []string{"f"},
				Usage:       "output format: json or yaml",
				Value:       "json",
				Destination: &format,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.Args().First()
			if dir == "" {
				return fmt.Errorf("model directory argument is required")
			}

			cfg, err := loadConfig(dir, overlayPath)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			case "yaml":
				// Route through the JSON tags so both formats show the
				// document field names.
				raw, err := json.Marshal(cfg)
				if err != nil {
					return err
				}
				var tree map[string]any
				if err := json.Unmarshal(raw, &tree); err != nil {
					return err
				}
				return yaml.NewEncoder(os.Stdout).Encode(tree)
			default:
				return fmt.Errorf("unknown format %q, want json or yaml", format)
			}
		},
	}
}
