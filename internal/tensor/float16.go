package tensor

import (
	"encoding/binary"

	"github.com/x448/float16"
)

// ToFloat16 converts an F32 tensor to a new F16 tensor. Values outside the
// half-precision range saturate to ±Inf per IEEE 754 conversion rules.
func (t *Tensor) ToFloat16() (*Tensor, error) {
	src, err := t.Float32s()
	if err != nil {
		return nil, err
	}
	out, err := New(t.shape, F16)
	if err != nil {
		return nil, err
	}
	for i, v := range src {
		binary.LittleEndian.PutUint16(out.data[i*2:], float16.Fromfloat32(v).Bits())
	}
	return out, nil
}

// ToFloat32 converts an F16 tensor to a new F32 tensor.
func (t *Tensor) ToFloat32() (*Tensor, error) {
	if t.dtype != F16 {
		return nil, &DTypeError{Want: F16, Got: t.dtype}
	}
	out, err := New(t.shape, F32)
	if err != nil {
		return nil, err
	}
	dst := out.Float32sUnchecked()
	for i := range dst {
		dst[i] = float16.Frombits(binary.LittleEndian.Uint16(t.data[i*2:])).Float32()
	}
	return out, nil
}
