package tensor

import "fmt"

// ShapeMismatchError reports an operation whose input shapes (or element
// counts) are incompatible. It is always recoverable by the caller
// correcting its shapes.
type ShapeMismatchError struct {
	Expected Shape
	Actual   Shape
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("tensor shape mismatch: expected %v, got %v", e.Expected, e.Actual)
}

// InvalidDimensionError reports a malformed tensor construction: a negative
// dimension, an element-count overflow, or a byte buffer whose length does
// not match the shape and dtype.
type InvalidDimensionError struct {
	Reason string
}

func (e *InvalidDimensionError) Error() string {
	return "invalid tensor dimension: " + e.Reason
}

// DTypeError reports an access that would reinterpret bytes across element
// types, such as taking a float32 view of a quantized tensor.
type DTypeError struct {
	Want DataType
	Got  DataType
}

func (e *DTypeError) Error() string {
	return fmt.Sprintf("tensor dtype is %s, not %s", e.Got, e.Want)
}
