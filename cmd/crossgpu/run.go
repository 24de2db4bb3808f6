package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	_ "github.com/crossgpu-ml/crossgpu/backend/cpu"
	"github.com/crossgpu-ml/crossgpu/device"
	"github.com/crossgpu-ml/crossgpu/tokenizer"
	"github.com/crossgpu-ml/crossgpu/transformer"
)

func runCmd() *cli.Command {
	var (
		modelPath string
		prompt    string
		encoding  string
		backend   string
	)

	return &cli.Command{
		Name:  "run",
		Usage: "Run a forward pass over a prompt",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "model",
				Aliases:     []string{"m"},
				Usage:       "path to .cgpu model file",
				Required:    true,
				Destination: &modelPath,
			},
			&cli.StringFlag{
				Name:        "prompt",
				Aliases:     []string{"p"},
				Usage:       "prompt text to tokenize",
				Value:       "Hello, world!",
				Destination: &prompt,
			},
			&cli.StringFlag{
				Name:        "encoding",
				Usage:       "tiktoken encoding name",
				Value:       "cl100k_base",
				Destination: &encoding,
			},
			&cli.StringFlag{
				Name:        "backend",
				Usage:       "backend family (cpu, webgpu, vulkan, metal, dx12); default picks by platform",
				Destination: &backend,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			model, err := transformer.LoadFile(modelPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load model: %v", err), 1)
			}

			devType := device.DefaultForPlatform()
			if backend != "" {
				devType, err = parseBackend(backend)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
			}
			dev, err := device.Open(devType)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: open device: %v", err), 1)
			}
			log.Info().Str("device", dev.Name()).Msg("device selected")

			tok, err := tokenizer.NewTikToken(encoding)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load tokenizer: %v", err), 1)
			}
			ids, err := tok.Encode(prompt)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: encode prompt: %v", err), 1)
			}
			// The tiktoken vocabulary is larger than most model configs;
			// fold ids into range so any model file accepts the prompt.
			for i := range ids {
				ids[i] %= model.Config.VocabSize
			}
			log.Info().Int("tokens", len(ids)).Msg("prompt encoded")

			input, err := model.EmbedTokens(ids)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: embed prompt: %v", err), 1)
			}

			start := time.Now()
			out, err := model.Forward(dev, input)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: forward pass: %v", err), 1)
			}
			elapsed := time.Since(start)

			values, err := out.Float32s()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: read output: %v", err), 1)
			}
			d := model.Config.DModel
			last := values[(len(ids)-1)*d : len(ids)*d]
			preview := last
			if len(preview) > 8 {
				preview = preview[:8]
			}

			fmt.Printf("output shape: %v\n", out.Shape())
			fmt.Printf("final hidden state (first %d): %v\n", len(preview), preview)
			fmt.Printf("elapsed: %s (%.1f tokens/s)\n", elapsed, float64(len(ids))/elapsed.Seconds())
			return nil
		},
	}
}

func parseBackend(name string) (device.Type, error) {
	switch name {
	case "cpu":
		return device.CPU, nil
	case "webgpu":
		return device.WebGPU, nil
	case "vulkan":
		return device.Vulkan, nil
	case "metal":
		return device.Metal, nil
	case "dx12":
		return device.DX12, nil
	}
	return device.CPU, fmt.Errorf("unknown backend %q", name)
}
