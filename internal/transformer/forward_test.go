package transformer

import (
	"errors"
	"math"
	"testing"

	_ "github.com/crossgpu-ml/crossgpu/internal/backend/cpu"
	"github.com/crossgpu-ml/crossgpu/internal/device"
	"github.com/crossgpu-ml/crossgpu/internal/tensor"
)

func testConfig() Config {
	return Config{
		DModel:       4,
		NHeads:       2,
		NLayers:      2,
		DFF:          8,
		VocabSize:    16,
		MaxSeqLen:    8,
		LayerNormEps: 1e-5,
	}
}

func openCPU(t *testing.T) device.Device {
	t.Helper()
	dev, err := device.Open(device.CPU)
	if err != nil {
		t.Fatalf("open cpu device: %v", err)
	}
	return dev
}

func TestForwardZeroWeights(t *testing.T) {
	cfg := testConfig()
	model, err := NewZeroModel(cfg)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}

	input, err := tensor.FromFloat32(tensor.Shape{3, 4}, []float32{
		0.1, -0.2, 0.3, -0.4,
		1.0, 2.0, 3.0, 4.0,
		-1.0, 0.5, 0.0, 2.5,
	})
	if err != nil {
		t.Fatalf("input: %v", err)
	}

	out, err := model.Forward(openCPU(t), input)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if !out.Shape().Equal(tensor.Shape{3, 4}) {
		t.Fatalf("output shape = %v, want [3 4]", out.Shape())
	}
	values, err := out.Float32s()
	if err != nil {
		t.Fatalf("output values: %v", err)
	}
	for i, v := range values {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("output[%d] = %v, want finite", i, v)
		}
	}
}

func TestForwardRandomWeightsDeterministic(t *testing.T) {
	cfg := testConfig()
	model, err := NewRandomModel(cfg, 42)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	dev := openCPU(t)

	input, err := model.EmbedTokens([]int{1, 2, 3})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}

	first, err := model.Forward(dev, input)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	second, err := model.Forward(dev, input)
	if err != nil {
		t.Fatalf("forward again: %v", err)
	}

	a := first.Float32sUnchecked()
	b := second.Float32sUnchecked()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("pass 1 and pass 2 differ at %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestForwardRejectsBadInput(t *testing.T) {
	model, err := NewZeroModel(testConfig())
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	dev := openCPU(t)

	wrongWidth, _ := tensor.New(tensor.Shape{3, 5}, tensor.F32)
	var shapeErr *tensor.ShapeMismatchError
	if _, err := model.Forward(dev, wrongWidth); !errors.As(err, &shapeErr) {
		t.Fatalf("expected ShapeMismatchError, got %v", err)
	}

	wrongRank, _ := tensor.New(tensor.Shape{4}, tensor.F32)
	if _, err := model.Forward(dev, wrongRank); !errors.As(err, &shapeErr) {
		t.Fatalf("expected ShapeMismatchError, got %v", err)
	}

	wrongType, _ := tensor.New(tensor.Shape{3, 4}, tensor.I8)
	var dtypeErr *tensor.DTypeError
	if _, err := model.Forward(dev, wrongType); !errors.As(err, &dtypeErr) {
		t.Fatalf("expected DTypeError, got %v", err)
	}
}

func TestEmbedTokens(t *testing.T) {
	model, err := NewRandomModel(testConfig(), 7)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}

	out, err := model.EmbedTokens([]int{0, 5})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if !out.Shape().Equal(tensor.Shape{2, 4}) {
		t.Fatalf("shape = %v, want [2 4]", out.Shape())
	}

	tok := model.TokenEmbedding.Float32sUnchecked()
	pos := model.PositionEmbedding.Float32sUnchecked()
	values := out.Float32sUnchecked()
	d := model.Config.DModel
	for c := 0; c < d; c++ {
		want := tok[5*d+c] + pos[1*d+c]
		if values[1*d+c] != want {
			t.Fatalf("embed[1][%d] = %v, want %v", c, values[1*d+c], want)
		}
	}

	if _, err := model.EmbedTokens(nil); err == nil {
		t.Fatal("expected error for empty sequence")
	}
	if _, err := model.EmbedTokens([]int{99}); err == nil {
		t.Fatal("expected error for out-of-vocabulary id")
	}
	if _, err := model.EmbedTokens(make([]int, 100)); err == nil {
		t.Fatal("expected error past max_seq_len")
	}
}

func TestNewModelRejectsBadShapes(t *testing.T) {
	cfg := testConfig()
	model, err := NewZeroModel(cfg)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}

	bad, _ := tensor.New(tensor.Shape{2, 2}, tensor.F32)
	layers := make([]LayerWeights, len(model.Layers))
	copy(layers, model.Layers)
	layers[1].Attention.WK = bad

	if _, err := NewModel(cfg, model.TokenEmbedding, model.PositionEmbedding, layers, model.FinalNorm); err == nil {
		t.Fatal("expected shape error for bad wk")
	}
	if _, err := NewModel(cfg, model.TokenEmbedding, model.PositionEmbedding, model.Layers[:1], model.FinalNorm); err == nil {
		t.Fatal("expected error for wrong layer count")
	}
}
