package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/crossgpu-ml/crossgpu/transformer"
)

func createCmd() *cli.Command {
	var (
		out     string
		seed    int64
		dModel  int64
		nHeads  int64
		nLayers int64
		dFF     int64
	)

	return &cli.Command{
		Name:  "create",
		Usage: "Create a randomly initialized model file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output model path",
				Value:       "model.cgpu",
				Destination: &out,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "weight initialization seed",
				Value:       42,
				Destination: &seed,
			},
			&cli.Int64Flag{
				Name:        "d-model",
				Usage:       "hidden size",
				Destination: &dModel,
			},
			&cli.Int64Flag{
				Name:        "n-heads",
				Usage:       "attention heads",
				Destination: &nHeads,
			},
			&cli.Int64Flag{
				Name:        "n-layers",
				Usage:       "transformer layers",
				Destination: &nLayers,
			},
			&cli.Int64Flag{
				Name:        "d-ff",
				Usage:       "feed-forward hidden size",
				Destination: &dFF,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := transformer.Tiny()
			if dModel > 0 {
				cfg.DModel = int(dModel)
			}
			if nHeads > 0 {
				cfg.NHeads = int(nHeads)
			}
			if nLayers > 0 {
				cfg.NLayers = int(nLayers)
			}
			if dFF > 0 {
				cfg.DFF = int(dFF)
			}

			log.Info().
				Int("d_model", cfg.DModel).
				Int("n_layers", cfg.NLayers).
				Int("size_bytes", cfg.EstimateSize()).
				Msg("initializing model")

			model, err := transformer.NewRandomModel(cfg, seed)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: create model: %v", err), 1)
			}
			if err := model.SaveFile(out); err != nil {
				return cli.Exit(fmt.Sprintf("error: save model: %v", err), 1)
			}
			log.Info().Str("path", out).Msg("model written")
			return nil
		},
	}
}
