// Copyright 2025 CrossGPU. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package quant provides the public API for the quantization codec:
// lossy conversion between float tensors and int8/int4 representations.
package quant

import (
	"github.com/crossgpu-ml/crossgpu/internal/quant"
	"github.com/crossgpu-ml/crossgpu/internal/tensor"
)

// Scheme identifies a quantization scheme.
type Scheme = quant.Scheme

// Quantization schemes.
const (
	SymmetricInt8  Scheme = quant.SymmetricInt8
	AsymmetricInt8 Scheme = quant.AsymmetricInt8
	Int4           Scheme = quant.Int4
)

// Params carries the scheme, scale, and zero point of one quantization.
type Params = quant.Params

// Error reports an invalid quantization request.
type Error = quant.Error

// Int8Symmetric builds symmetric int8 parameters with the given scale.
func Int8Symmetric(scale float32) Params {
	return quant.Int8Symmetric(scale)
}

// Int8Asymmetric builds asymmetric int8 parameters.
func Int8Asymmetric(scale float32, zeroPoint int32) Params {
	return quant.Int8Asymmetric(scale, zeroPoint)
}

// Int4Symmetric builds symmetric int4 parameters with the given scale.
func Int4Symmetric(scale float32) Params {
	return quant.Int4Symmetric(scale)
}

// Quantize converts a float tensor into the quantized representation the
// params describe. Out-of-range values saturate, never wrap.
func Quantize(t *tensor.Tensor, params Params) (*tensor.Tensor, error) {
	return quant.Quantize(t, params)
}

// Dequantize converts a quantized tensor back to F32.
func Dequantize(t *tensor.Tensor, params Params) (*tensor.Tensor, error) {
	return quant.Dequantize(t, params)
}
