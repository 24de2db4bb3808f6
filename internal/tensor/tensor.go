// Package tensor implements the host-side tensor data model: a contiguous
// byte buffer paired with a shape and an element type.
package tensor

import (
	"fmt"
	"math"
	"unsafe"
)

// Tensor is an n-dimensional array stored as a contiguous byte buffer.
// The invariant len(Data) == ceil(NumElements*Bits/8) holds for every
// tensor constructed through this package.
type Tensor struct {
	shape Shape
	dtype DataType
	data  []byte
}

// ByteSize returns the buffer size in bytes required for a tensor of the
// given shape and dtype. It fails with InvalidDimensionError on a negative
// dimension or an element-count overflow.
func ByteSize(shape Shape, dtype DataType) (int, error) {
	n := 1
	for i, dim := range shape {
		if dim < 0 {
			return 0, &InvalidDimensionError{
				Reason: fmt.Sprintf("negative dimension %d at index %d", dim, i),
			}
		}
		if dim != 0 && n > math.MaxInt/dim {
			return 0, &InvalidDimensionError{Reason: "element count overflows int"}
		}
		n *= dim
	}
	bits := dtype.Bits()
	if bits == 0 {
		return 0, &InvalidDimensionError{Reason: "unknown dtype"}
	}
	if n > (math.MaxInt-7)/bits {
		return 0, &InvalidDimensionError{Reason: "byte length overflows int"}
	}
	return (n*bits + 7) / 8, nil
}

// New creates a zero-filled tensor with the given shape and dtype.
func New(shape Shape, dtype DataType) (*Tensor, error) {
	size, err := ByteSize(shape, dtype)
	if err != nil {
		return nil, err
	}
	return &Tensor{
		shape: shape.Clone(),
		dtype: dtype,
		data:  make([]byte, size),
	}, nil
}

// FromFloat32 creates an F32 tensor from a float32 slice. The slice length
// must equal the shape's element count.
func FromFloat32(shape Shape, values []float32) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if len(values) != shape.NumElements() {
		return nil, &ShapeMismatchError{
			Expected: Shape{shape.NumElements()},
			Actual:   Shape{len(values)},
		}
	}
	t, err := New(shape, F32)
	if err != nil {
		return nil, err
	}
	copy(t.Float32sUnchecked(), values)
	return t, nil
}

// FromRaw creates a tensor that takes ownership of an existing byte buffer.
// The buffer length must match the shape and dtype exactly.
func FromRaw(shape Shape, dtype DataType, data []byte) (*Tensor, error) {
	size, err := ByteSize(shape, dtype)
	if err != nil {
		return nil, err
	}
	if len(data) != size {
		return nil, &InvalidDimensionError{
			Reason: fmt.Sprintf("data size %d does not match expected size %d for shape %v", len(data), size, shape),
		}
	}
	return &Tensor{shape: shape.Clone(), dtype: dtype, data: data}, nil
}

// Shape returns the tensor's shape. Callers must not mutate it.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// DType returns the tensor's element type.
func (t *Tensor) DType() DataType {
	return t.dtype
}

// Data returns the raw byte buffer.
func (t *Tensor) Data() []byte {
	return t.data
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return t.shape.NumElements()
}

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int {
	return t.shape.Rank()
}

// ByteLen returns the buffer size in bytes.
func (t *Tensor) ByteLen() int {
	return len(t.data)
}

// Reshape returns a tensor with a new shape sharing the same byte buffer.
// The new shape's element count must equal the current one; the bytes are
// never copied.
func (t *Tensor) Reshape(newShape Shape) (*Tensor, error) {
	if err := newShape.Validate(); err != nil {
		return nil, err
	}
	if newShape.NumElements() != t.shape.NumElements() {
		return nil, &ShapeMismatchError{
			Expected: t.shape.Clone(),
			Actual:   newShape.Clone(),
		}
	}
	return &Tensor{shape: newShape.Clone(), dtype: t.dtype, data: t.data}, nil
}

// Clone returns a deep copy with its own byte buffer.
func (t *Tensor) Clone() *Tensor {
	data := make([]byte, len(t.data))
	copy(data, t.data)
	return &Tensor{shape: t.shape.Clone(), dtype: t.dtype, data: data}
}

// Float32s returns the buffer as a mutable []float32 view. It fails with
// DTypeError when the dtype is not F32; no operation reinterprets bytes
// across dtypes.
func (t *Tensor) Float32s() ([]float32, error) {
	if t.dtype != F32 {
		return nil, &DTypeError{Want: F32, Got: t.dtype}
	}
	return t.Float32sUnchecked(), nil
}

// Float32sUnchecked returns the float32 view without a dtype check. Only
// for use on buffers known to hold F32 data.
func (t *Tensor) Float32sUnchecked() []float32 {
	if len(t.data) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&t.data[0])), len(t.data)/4)
}
