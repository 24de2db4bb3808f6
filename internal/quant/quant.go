// Package quant implements the quantization codec: linear mappings between
// floating-point tensors and reduced-precision packed representations.
package quant

import (
	"math"

	"github.com/crossgpu-ml/crossgpu/internal/tensor"
)

// Scheme selects the quantization mapping.
type Scheme int

// Supported quantization schemes.
const (
	// SymmetricInt8 maps to signed 8-bit with no offset.
	SymmetricInt8 Scheme = iota
	// AsymmetricInt8 maps to the unsigned 8-bit lane with a zero point.
	AsymmetricInt8
	// Int4 maps to signed 4-bit, packed two elements per byte.
	Int4
)

// String returns a human-readable scheme name.
func (s Scheme) String() string {
	switch s {
	case SymmetricInt8:
		return "int8-symmetric"
	case AsymmetricInt8:
		return "int8-asymmetric"
	case Int4:
		return "int4"
	default:
		return "unknown"
	}
}

// Params carries the scale and zero point for one quantization mapping.
// Scale must be positive; ZeroPoint is 0 for the symmetric schemes.
type Params struct {
	Scheme    Scheme
	Scale     float32
	ZeroPoint int32
}

// Int8Symmetric creates symmetric 8-bit quantization parameters.
func Int8Symmetric(scale float32) Params {
	return Params{Scheme: SymmetricInt8, Scale: scale}
}

// Int8Asymmetric creates asymmetric 8-bit quantization parameters.
func Int8Asymmetric(scale float32, zeroPoint int32) Params {
	return Params{Scheme: AsymmetricInt8, Scale: scale, ZeroPoint: zeroPoint}
}

// Int4Symmetric creates 4-bit quantization parameters.
func Int4Symmetric(scale float32) Params {
	return Params{Scheme: Int4, Scale: scale}
}

// Error reports an invalid quantization request: a non-positive scale, a
// non-float source, or a non-quantized dequantize input.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return "quantization error: " + e.Reason
}

// Quantize converts a floating-point tensor (F32 or F16) to the packed
// representation selected by params. Values outside the representable range
// saturate; they never wrap around.
func Quantize(t *tensor.Tensor, params Params) (*tensor.Tensor, error) {
	if params.Scale <= 0 {
		return nil, &Error{Reason: "scale must be positive"}
	}
	values, err := floatValues(t)
	if err != nil {
		return nil, err
	}

	switch params.Scheme {
	case SymmetricInt8:
		out := make([]byte, len(values))
		for i, x := range values {
			out[i] = byte(roundClamp(x/params.Scale, -127, 127))
		}
		return tensor.FromRaw(t.Shape(), tensor.I8, out)

	case AsymmetricInt8:
		out := make([]byte, len(values))
		for i, x := range values {
			q := roundClamp(x/params.Scale+float32(params.ZeroPoint), 0, 255)
			out[i] = byte(q)
		}
		return tensor.FromRaw(t.Shape(), tensor.I8, out)

	case Int4:
		// Two consecutive elements per byte: low nibble holds the earlier
		// element. An odd tail leaves the final high nibble zero.
		out := make([]byte, (len(values)+1)/2)
		for i, x := range values {
			q := roundClamp(x/params.Scale, -8, 7)
			nibble := byte(q) & 0x0F
			if i%2 == 0 {
				out[i/2] = nibble
			} else {
				out[i/2] |= nibble << 4
			}
		}
		return tensor.FromRaw(t.Shape(), tensor.I4, out)

	default:
		return nil, &Error{Reason: "unknown scheme"}
	}
}

// Dequantize inverts Quantize, producing an F32 tensor. The round trip is
// lossy: each element differs from the original by at most one scale step
// for values inside the representable range.
func Dequantize(t *tensor.Tensor, params Params) (*tensor.Tensor, error) {
	if params.Scale <= 0 {
		return nil, &Error{Reason: "scale must be positive"}
	}

	switch t.DType() {
	case tensor.I8:
		data := t.Data()
		values := make([]float32, len(data))
		if params.Scheme == AsymmetricInt8 {
			for i, b := range data {
				values[i] = float32(int32(b)-params.ZeroPoint) * params.Scale
			}
		} else {
			for i, b := range data {
				values[i] = float32(int8(b)) * params.Scale
			}
		}
		return tensor.FromFloat32(t.Shape(), values)

	case tensor.I4:
		n := t.NumElements()
		values := make([]float32, n)
		for i := 0; i < n; i++ {
			b := t.Data()[i/2]
			var nibble byte
			if i%2 == 0 {
				nibble = b & 0x0F
			} else {
				nibble = b >> 4
			}
			values[i] = float32(signExtend4(nibble)) * params.Scale
		}
		return tensor.FromFloat32(t.Shape(), values)

	default:
		return nil, &Error{Reason: "can only dequantize i8 or i4 tensors, got " + t.DType().String()}
	}
}

// floatValues returns the tensor's elements as float32, accepting F32
// directly and decoding F16.
func floatValues(t *tensor.Tensor) ([]float32, error) {
	switch t.DType() {
	case tensor.F32:
		return t.Float32s()
	case tensor.F16:
		f32, err := t.ToFloat32()
		if err != nil {
			return nil, err
		}
		return f32.Float32s()
	default:
		return nil, &Error{Reason: "can only quantize floating-point tensors, got " + t.DType().String()}
	}
}

func roundClamp(x, lo, hi float32) int32 {
	r := float32(math.Round(float64(x)))
	if r < lo {
		r = lo
	}
	if r > hi {
		r = hi
	}
	return int32(r)
}

func signExtend4(nibble byte) int8 {
	if nibble&0x08 != 0 {
		return int8(nibble | 0xF0)
	}
	return int8(nibble)
}
