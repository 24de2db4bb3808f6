// Copyright 2025 CrossGPU. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for the CrossGPU tensor data model.
//
// A tensor is a contiguous byte buffer paired with a shape and an element
// type. Sub-byte types (I4) pack two elements per byte; buffer sizes always
// round up to whole bytes.
//
// Example:
//
//	t, err := tensor.New(tensor.Shape{2, 3}, tensor.F32)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	values, _ := t.Float32s()
package tensor

import (
	"github.com/crossgpu-ml/crossgpu/internal/tensor"
)

// DataType represents the element type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	F32 DataType = tensor.F32
	F16 DataType = tensor.F16
	I8  DataType = tensor.I8
	I4  DataType = tensor.I4
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} is a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// Tensor is an n-dimensional array stored as a contiguous byte buffer.
type Tensor = tensor.Tensor

// Error types.
type (
	// ShapeMismatchError reports incompatible shapes.
	ShapeMismatchError = tensor.ShapeMismatchError
	// InvalidDimensionError reports an ill-formed shape.
	InvalidDimensionError = tensor.InvalidDimensionError
	// DTypeError reports an operation on the wrong element type.
	DTypeError = tensor.DTypeError
)

// New creates a zero-filled tensor with the given shape and dtype.
func New(shape Shape, dtype DataType) (*Tensor, error) {
	return tensor.New(shape, dtype)
}

// FromFloat32 creates an F32 tensor from a float32 slice.
func FromFloat32(shape Shape, values []float32) (*Tensor, error) {
	return tensor.FromFloat32(shape, values)
}

// FromRaw creates a tensor that takes ownership of an existing byte buffer.
func FromRaw(shape Shape, dtype DataType, data []byte) (*Tensor, error) {
	return tensor.FromRaw(shape, dtype, data)
}

// ByteSize returns the buffer size in bytes for a shape and dtype.
func ByteSize(shape Shape, dtype DataType) (int, error) {
	return tensor.ByteSize(shape, dtype)
}
