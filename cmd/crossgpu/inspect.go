package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/crossgpu-ml/crossgpu/transformer"
)

func inspectCmd() *cli.Command {
	var modelPath string

	return &cli.Command{
		Name:  "inspect",
		Usage: "Print a model file's configuration",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "model",
				Aliases:     []string{"m"},
				Usage:       "path to .cgpu model file",
				Required:    true,
				Destination: &modelPath,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			model, err := transformer.LoadFile(modelPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load model: %v", err), 1)
			}
			if err := model.Config.WriteJSON(os.Stdout); err != nil {
				return cli.Exit(fmt.Sprintf("error: write config: %v", err), 1)
			}
			fmt.Printf("\nestimated f32 size: %d bytes\n", model.Config.EstimateSize())
			return nil
		},
	}
}
