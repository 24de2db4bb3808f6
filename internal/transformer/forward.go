package transformer

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/crossgpu-ml/crossgpu/internal/device"
	"github.com/crossgpu-ml/crossgpu/internal/tensor"
)

// Forward runs one full inference pass over the supplied device and returns
// the final hidden states. The pass is stateless: no KV cache is retained,
// attention context is regenerated from scratch every call.
//
// Input must be an F32 tensor shaped [seq_len, d_model]. The pass either
// fully completes or fails atomically with the first error encountered;
// errors from lower layers are annotated and forwarded, never swallowed.
func (m *Model) Forward(dev device.Device, input *tensor.Tensor) (*tensor.Tensor, error) {
	if input.Rank() != 2 || input.Shape()[1] != m.Config.DModel {
		return nil, &tensor.ShapeMismatchError{
			Expected: tensor.Shape{-1, m.Config.DModel},
			Actual:   input.Shape().Clone(),
		}
	}
	if input.DType() != tensor.F32 {
		return nil, &tensor.DTypeError{Want: tensor.F32, Got: input.DType()}
	}

	log.Debug().
		Str("device", dev.Name()).
		Int("seq_len", input.Shape()[0]).
		Int("layers", m.Config.NLayers).
		Msg("starting forward pass")

	x, err := dev.Upload(input)
	if err != nil {
		return nil, fmt.Errorf("upload input: %w", err)
	}

	eps := m.Config.LayerNormEps
	heads := float32(m.Config.NHeads)
	for i, layer := range m.Layers {
		w, err := uploadLayer(dev, layer)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}

		// Attention block with residual connection and post-norm.
		attnOut, err := dev.Dispatch(device.WithParams(device.Attention, heads),
			[]*device.GPUTensor{x, w.wq, w.wk, w.wv, w.wo})
		if err != nil {
			return nil, fmt.Errorf("layer %d attention: %w", i, err)
		}
		x, err = dev.Dispatch(device.NewKernel(device.Add), []*device.GPUTensor{x, attnOut})
		if err != nil {
			return nil, fmt.Errorf("layer %d attention residual: %w", i, err)
		}
		x, err = dev.Dispatch(device.WithParams(device.LayerNorm, eps),
			[]*device.GPUTensor{x, w.g1, w.b1})
		if err != nil {
			return nil, fmt.Errorf("layer %d norm1: %w", i, err)
		}

		// Feed-forward block: fused GEMM+GELU, second GEMM, residual, norm.
		ff, err := dev.Dispatch(device.NewKernel(device.FusedGemmGelu),
			[]*device.GPUTensor{x, w.w1})
		if err != nil {
			return nil, fmt.Errorf("layer %d ffn up: %w", i, err)
		}
		ff, err = dev.Dispatch(device.NewKernel(device.MatMul), []*device.GPUTensor{ff, w.w2})
		if err != nil {
			return nil, fmt.Errorf("layer %d ffn down: %w", i, err)
		}
		x, err = dev.Dispatch(device.NewKernel(device.Add), []*device.GPUTensor{x, ff})
		if err != nil {
			return nil, fmt.Errorf("layer %d ffn residual: %w", i, err)
		}
		x, err = dev.Dispatch(device.WithParams(device.LayerNorm, eps),
			[]*device.GPUTensor{x, w.g2, w.b2})
		if err != nil {
			return nil, fmt.Errorf("layer %d norm2: %w", i, err)
		}

		log.Debug().Int("layer", i).Msg("layer complete")
	}

	gain, err := dev.Upload(m.FinalNorm.Gain)
	if err != nil {
		return nil, fmt.Errorf("upload final norm gain: %w", err)
	}
	bias, err := dev.Upload(m.FinalNorm.Bias)
	if err != nil {
		return nil, fmt.Errorf("upload final norm bias: %w", err)
	}
	x, err = dev.Dispatch(device.WithParams(device.LayerNorm, eps),
		[]*device.GPUTensor{x, gain, bias})
	if err != nil {
		return nil, fmt.Errorf("final norm: %w", err)
	}

	if err := dev.Synchronize(); err != nil {
		return nil, fmt.Errorf("synchronize: %w", err)
	}
	out, err := dev.Download(x)
	if err != nil {
		return nil, fmt.Errorf("download output: %w", err)
	}

	log.Debug().Str("device", dev.Name()).Msg("forward pass complete")
	return out, nil
}

// layerHandles are one layer's weights resident on the device for the
// duration of a single pass.
type layerHandles struct {
	wq, wk, wv, wo *device.GPUTensor
	w1, w2         *device.GPUTensor
	g1, b1, g2, b2 *device.GPUTensor
}

func uploadLayer(dev device.Device, layer LayerWeights) (*layerHandles, error) {
	h := &layerHandles{}
	uploads := []struct {
		name string
		src  *tensor.Tensor
		dst  **device.GPUTensor
	}{
		{"wq", layer.Attention.WQ, &h.wq},
		{"wk", layer.Attention.WK, &h.wk},
		{"wv", layer.Attention.WV, &h.wv},
		{"wo", layer.Attention.WO, &h.wo},
		{"w1", layer.FeedForward.W1, &h.w1},
		{"w2", layer.FeedForward.W2, &h.w2},
		{"ln1 gain", layer.LN1.Gain, &h.g1},
		{"ln1 bias", layer.LN1.Bias, &h.b1},
		{"ln2 gain", layer.LN2.Gain, &h.g2},
		{"ln2 bias", layer.LN2.Bias, &h.b2},
	}
	for _, u := range uploads {
		gt, err := dev.Upload(u.src)
		if err != nil {
			return nil, fmt.Errorf("upload %s: %w", u.name, err)
		}
		*u.dst = gt
	}
	return h, nil
}
