package device

import (
	"fmt"

	"github.com/crossgpu-ml/crossgpu/internal/tensor"
)

// Kind enumerates the closed kernel catalog. Every backend implements
// exactly this set; the shape rules live in OutputShape so no backend ever
// sees an ill-formed call.
type Kind int

// Kernel catalog.
const (
	// MatMul multiplies [m,k] x [k,n] -> [m,n].
	MatMul Kind = iota
	// LayerNorm normalizes over the last axis:
	// y = (x - mean) / sqrt(var + eps) * gain + bias.
	// Inputs: x, gain, bias. Params: epsilon.
	LayerNorm
	// Softmax normalizes over the last axis, stabilized by subtracting the
	// row maximum before exponentiation.
	Softmax
	// GELU is elementwise x * 0.5 * (1 + erf(x/sqrt(2))).
	GELU
	// FusedGemmGelu is MatMul followed by GELU in a single dispatch.
	FusedGemmGelu
	// FusedGemmLayerNorm is MatMul followed by LayerNorm in a single
	// dispatch. Inputs: a, b, gain, bias. Params: epsilon.
	FusedGemmLayerNorm
	// Attention performs the full multi-head block in one dispatch: QKV
	// projection, head split, scaled dot-product with full (non-causal)
	// attention, softmax, head merge, output projection.
	// Inputs: x, wq, wk, wv, wo. Params: head count.
	Attention
	// Add is the elementwise residual add of two same-shaped tensors.
	Add
)

// String returns the kernel kind name.
func (k Kind) String() string {
	switch k {
	case MatMul:
		return "MatMul"
	case LayerNorm:
		return "LayerNorm"
	case Softmax:
		return "Softmax"
	case GELU:
		return "GELU"
	case FusedGemmGelu:
		return "FusedGemmGelu"
	case FusedGemmLayerNorm:
		return "FusedGemmLayerNorm"
	case Attention:
		return "Attention"
	case Add:
		return "Add"
	default:
		return "Unknown"
	}
}

// Kernel is an immutable descriptor of one compute operation. Constructing
// a Kernel never touches a device.
type Kernel struct {
	Kind   Kind
	Params []float32 // e.g. epsilon for LayerNorm, head count for Attention
}

// NewKernel creates a kernel descriptor with no parameters.
func NewKernel(kind Kind) Kernel {
	return Kernel{Kind: kind}
}

// WithParams creates a kernel descriptor with parameters.
func WithParams(kind Kind, params ...float32) Kernel {
	return Kernel{Kind: kind, Params: params}
}

// OutputShape checks the kernel's arity and shape preconditions against the
// input shapes and returns the shape of the single output. Violations fail
// with ShapeMismatchError before any backend submission.
func OutputShape(k Kernel, inputs []tensor.Shape) (tensor.Shape, error) {
	switch k.Kind {
	case MatMul, FusedGemmGelu:
		if err := wantInputs(k.Kind, inputs, 2); err != nil {
			return nil, err
		}
		return matmulShape(inputs[0], inputs[1])

	case FusedGemmLayerNorm:
		if err := wantInputs(k.Kind, inputs, 4); err != nil {
			return nil, err
		}
		out, err := matmulShape(inputs[0], inputs[1])
		if err != nil {
			return nil, err
		}
		if err := normParamShape(out, inputs[2], inputs[3]); err != nil {
			return nil, err
		}
		return out, nil

	case LayerNorm:
		if err := wantInputs(k.Kind, inputs, 3); err != nil {
			return nil, err
		}
		if inputs[0].Rank() < 1 {
			return nil, &tensor.ShapeMismatchError{Expected: tensor.Shape{1}, Actual: inputs[0].Clone()}
		}
		if err := normParamShape(inputs[0], inputs[1], inputs[2]); err != nil {
			return nil, err
		}
		return inputs[0].Clone(), nil

	case Softmax:
		if err := wantInputs(k.Kind, inputs, 1); err != nil {
			return nil, err
		}
		if inputs[0].Rank() < 1 {
			return nil, &tensor.ShapeMismatchError{Expected: tensor.Shape{1}, Actual: inputs[0].Clone()}
		}
		return inputs[0].Clone(), nil

	case GELU:
		if err := wantInputs(k.Kind, inputs, 1); err != nil {
			return nil, err
		}
		return inputs[0].Clone(), nil

	case Add:
		if err := wantInputs(k.Kind, inputs, 2); err != nil {
			return nil, err
		}
		if !inputs[0].Equal(inputs[1]) {
			return nil, &tensor.ShapeMismatchError{Expected: inputs[0].Clone(), Actual: inputs[1].Clone()}
		}
		return inputs[0].Clone(), nil

	case Attention:
		return attentionShape(k, inputs)

	default:
		return nil, &GPUError{Message: fmt.Sprintf("unknown kernel kind %d", k.Kind)}
	}
}

func wantInputs(kind Kind, inputs []tensor.Shape, n int) error {
	if len(inputs) != n {
		return &tensor.ShapeMismatchError{
			Expected: tensor.Shape{n},
			Actual:   tensor.Shape{len(inputs)},
		}
	}
	return nil
}

func matmulShape(a, b tensor.Shape) (tensor.Shape, error) {
	if a.Rank() != 2 || b.Rank() != 2 || a[1] != b[0] {
		return nil, &tensor.ShapeMismatchError{Expected: a.Clone(), Actual: b.Clone()}
	}
	return tensor.Shape{a[0], b[1]}, nil
}

// normParamShape checks that gain and bias are vectors matching the last
// axis of the normalized tensor.
func normParamShape(x, gain, bias tensor.Shape) error {
	d := x[x.Rank()-1]
	want := tensor.Shape{d}
	if !gain.Equal(want) {
		return &tensor.ShapeMismatchError{Expected: want, Actual: gain.Clone()}
	}
	if !bias.Equal(want) {
		return &tensor.ShapeMismatchError{Expected: want, Actual: bias.Clone()}
	}
	return nil
}

func attentionShape(k Kernel, inputs []tensor.Shape) (tensor.Shape, error) {
	if err := wantInputs(Attention, inputs, 5); err != nil {
		return nil, err
	}
	x := inputs[0]
	if x.Rank() != 2 {
		return nil, &tensor.ShapeMismatchError{Expected: tensor.Shape{-1, -1}, Actual: x.Clone()}
	}
	d := x[1]
	proj := tensor.Shape{d, d}
	for _, w := range inputs[1:] {
		if !w.Equal(proj) {
			return nil, &tensor.ShapeMismatchError{Expected: proj, Actual: w.Clone()}
		}
	}
	if len(k.Params) < 1 {
		return nil, &GPUError{Message: "attention kernel requires a head-count parameter"}
	}
	heads := int(k.Params[0])
	if heads <= 0 || d%heads != 0 {
		return nil, &GPUError{
			Message: fmt.Sprintf("attention: %d heads do not divide d_model %d", heads, d),
		}
	}
	return x.Clone(), nil
}
