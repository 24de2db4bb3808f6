package tensor

import (
	"errors"
	"testing"
)

func TestDataTypeBits(t *testing.T) {
	tests := []struct {
		dtype DataType
		bits  int
	}{
		{F32, 32},
		{F16, 16},
		{I8, 8},
		{I4, 4},
	}

	for _, tt := range tests {
		if got := tt.dtype.Bits(); got != tt.bits {
			t.Errorf("%s.Bits() = %d, want %d", tt.dtype, got, tt.bits)
		}
	}
}

func TestShapeNumElements(t *testing.T) {
	tests := []struct {
		shape    Shape
		expected int
	}{
		{Shape{}, 1}, // Scalar
		{Shape{5}, 5},
		{Shape{3, 4}, 12},
		{Shape{2, 3, 4}, 24},
		{Shape{2, 0, 4}, 0}, // Zero-sized dims are legal
	}

	for _, tt := range tests {
		if got := tt.shape.NumElements(); got != tt.expected {
			t.Errorf("Shape%v.NumElements() = %d, want %d", tt.shape, got, tt.expected)
		}
	}
}

func TestShapeValidate(t *testing.T) {
	if err := (Shape{3, 4}).Validate(); err != nil {
		t.Errorf("Shape{3,4}.Validate() failed: %v", err)
	}
	if err := (Shape{3, -4}).Validate(); err == nil {
		t.Error("Shape{3,-4}.Validate() should fail")
	}
}

func TestNewByteLength(t *testing.T) {
	tests := []struct {
		shape Shape
		dtype DataType
		bytes int
	}{
		{Shape{2, 3}, F32, 24},
		{Shape{2, 3}, F16, 12},
		{Shape{2, 3}, I8, 6},
		{Shape{2, 3}, I4, 3}, // ceil(6*4/8)
		{Shape{3}, I4, 2},    // ceil(3*4/8), odd element count
		{Shape{}, F32, 4},    // scalar
		{Shape{0, 5}, F32, 0},
	}

	for _, tt := range tests {
		tensor, err := New(tt.shape, tt.dtype)
		if err != nil {
			t.Fatalf("New(%v, %s) failed: %v", tt.shape, tt.dtype, err)
		}
		if got := tensor.ByteLen(); got != tt.bytes {
			t.Errorf("New(%v, %s).ByteLen() = %d, want %d", tt.shape, tt.dtype, got, tt.bytes)
		}
	}
}

func TestNewInvalidDimension(t *testing.T) {
	var invErr *InvalidDimensionError

	_, err := New(Shape{2, -3}, F32)
	if !errors.As(err, &invErr) {
		t.Errorf("New with negative dim: got %v, want InvalidDimensionError", err)
	}

	// Element count overflow.
	_, err = New(Shape{1 << 32, 1 << 32}, F32)
	if !errors.As(err, &invErr) {
		t.Errorf("New with overflowing shape: got %v, want InvalidDimensionError", err)
	}
}

func TestFromFloat32(t *testing.T) {
	tensor, err := FromFloat32(Shape{2, 2}, []float32{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("FromFloat32 failed: %v", err)
	}
	if tensor.DType() != F32 {
		t.Errorf("dtype = %s, want f32", tensor.DType())
	}
	vals, err := tensor.Float32s()
	if err != nil {
		t.Fatalf("Float32s failed: %v", err)
	}
	if vals[3] != 4 {
		t.Errorf("vals[3] = %v, want 4", vals[3])
	}

	var mismatch *ShapeMismatchError
	_, err = FromFloat32(Shape{2, 2}, []float32{1, 2, 3})
	if !errors.As(err, &mismatch) {
		t.Errorf("FromFloat32 with short slice: got %v, want ShapeMismatchError", err)
	}
}

func TestFromRaw(t *testing.T) {
	tensor, err := FromRaw(Shape{3}, I4, []byte{0x21, 0x03})
	if err != nil {
		t.Fatalf("FromRaw failed: %v", err)
	}
	if tensor.NumElements() != 3 {
		t.Errorf("NumElements = %d, want 3", tensor.NumElements())
	}

	var invErr *InvalidDimensionError
	_, err = FromRaw(Shape{3}, I4, []byte{0x21, 0x03, 0x00})
	if !errors.As(err, &invErr) {
		t.Errorf("FromRaw with oversized buffer: got %v, want InvalidDimensionError", err)
	}
}

func TestReshapeSharesBytes(t *testing.T) {
	tensor, err := FromFloat32(Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatalf("FromFloat32 failed: %v", err)
	}

	reshaped, err := tensor.Reshape(Shape{3, 2})
	if err != nil {
		t.Fatalf("Reshape failed: %v", err)
	}
	if !reshaped.Shape().Equal(Shape{3, 2}) {
		t.Errorf("shape = %v, want [3 2]", reshaped.Shape())
	}
	// The byte buffer is shared, not copied.
	if &reshaped.Data()[0] != &tensor.Data()[0] {
		t.Error("Reshape copied the byte buffer")
	}

	var mismatch *ShapeMismatchError
	_, err = tensor.Reshape(Shape{4, 2})
	if !errors.As(err, &mismatch) {
		t.Errorf("Reshape to wrong element count: got %v, want ShapeMismatchError", err)
	}
}

func TestFloat32sTypeChecked(t *testing.T) {
	tensor, err := New(Shape{4}, I8)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	var dterr *DTypeError
	if _, err := tensor.Float32s(); !errors.As(err, &dterr) {
		t.Errorf("Float32s on i8 tensor: got %v, want DTypeError", err)
	}
}

func TestFloat16RoundTrip(t *testing.T) {
	src, err := FromFloat32(Shape{4}, []float32{0, 1, -2.5, 1024})
	if err != nil {
		t.Fatalf("FromFloat32 failed: %v", err)
	}

	half, err := src.ToFloat16()
	if err != nil {
		t.Fatalf("ToFloat16 failed: %v", err)
	}
	if half.DType() != F16 || half.ByteLen() != 8 {
		t.Fatalf("half tensor: dtype %s, %d bytes", half.DType(), half.ByteLen())
	}

	back, err := half.ToFloat32()
	if err != nil {
		t.Fatalf("ToFloat32 failed: %v", err)
	}
	vals, _ := back.Float32s()
	for i, want := range []float32{0, 1, -2.5, 1024} {
		if vals[i] != want {
			t.Errorf("vals[%d] = %v, want %v (exactly representable in f16)", i, vals[i], want)
		}
	}
}
