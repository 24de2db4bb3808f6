package transformer

import (
	"math"
	"testing"

	"github.com/crossgpu-ml/crossgpu/internal/quant"
	"github.com/crossgpu-ml/crossgpu/internal/tensor"
)

func TestQuantizeWeightsRoundTrip(t *testing.T) {
	model, err := NewRandomModel(testConfig(), 31)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}

	quantized, err := model.QuantizeWeights(quant.Int8Symmetric(0.001))
	if err != nil {
		t.Fatalf("quantize: %v", err)
	}

	// Projection weights are lossy but close; the scale bounds the error.
	orig := model.Layers[0].Attention.WQ.Float32sUnchecked()
	lossy := quantized.Layers[0].Attention.WQ.Float32sUnchecked()
	changed := false
	for i := range orig {
		diff := math.Abs(float64(orig[i] - lossy[i]))
		if diff > 0.001 {
			t.Fatalf("wq[%d]: |%v - %v| = %v exceeds scale", i, orig[i], lossy[i], diff)
		}
		if orig[i] != lossy[i] {
			changed = true
		}
	}
	if !changed {
		t.Fatal("quantization left wq byte-identical; expected lossy values")
	}

	// Embeddings and norms pass through untouched.
	if quantized.TokenEmbedding != model.TokenEmbedding {
		t.Fatal("token embedding should be shared, not quantized")
	}
	if quantized.Layers[0].LN1.Gain != model.Layers[0].LN1.Gain {
		t.Fatal("layer norm gain should be shared, not quantized")
	}

	if quantized.Layers[0].Attention.WQ.DType() != tensor.F32 {
		t.Fatal("round-tripped weights must come back as f32")
	}
}

func TestQuantizeWeightsRejectsBadParams(t *testing.T) {
	model, err := NewZeroModel(testConfig())
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	if _, err := model.QuantizeWeights(quant.Int8Symmetric(0)); err == nil {
		t.Fatal("expected error for non-positive scale")
	}
}
