package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/crossgpu-ml/crossgpu/quant"
	"github.com/crossgpu-ml/crossgpu/transformer"
)

func quantizeCmd() *cli.Command {
	var (
		in     string
		out    string
		scheme string
		scale  float64
		zero   int64
	)

	return &cli.Command{
		Name:  "quantize",
		Usage: "Round-trip model weights through the quantization codec",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "in",
				Aliases:     []string{"i"},
				Usage:       "input model path",
				Required:    true,
				Destination: &in,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output model path",
				Required:    true,
				Destination: &out,
			},
			&cli.StringFlag{
				Name:        "scheme",
				Usage:       "quantization scheme (int8, int8-asym, int4)",
				Value:       "int8",
				Destination: &scheme,
			},
			&cli.Float64Flag{
				Name:        "scale",
				Usage:       "quantization scale",
				Value:       0.01,
				Destination: &scale,
			},
			&cli.Int64Flag{
				Name:        "zero-point",
				Usage:       "zero point for int8-asym",
				Value:       128,
				Destination: &zero,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			var params quant.Params
			switch scheme {
			case "int8":
				params = quant.Int8Symmetric(float32(scale))
			case "int8-asym":
				params = quant.Int8Asymmetric(float32(scale), int32(zero))
			case "int4":
				params = quant.Int4Symmetric(float32(scale))
			default:
				return cli.Exit(fmt.Sprintf("error: unknown scheme %q", scheme), 1)
			}

			model, err := transformer.LoadFile(in)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load model: %v", err), 1)
			}
			log.Info().Str("scheme", scheme).Float64("scale", scale).Msg("quantizing weights")

			quantized, err := model.QuantizeWeights(params)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: quantize: %v", err), 1)
			}
			if err := quantized.SaveFile(out); err != nil {
				return cli.Exit(fmt.Sprintf("error: save model: %v", err), 1)
			}
			log.Info().Str("path", out).Msg("quantized model written")
			return nil
		},
	}
}
