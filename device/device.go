// Copyright 2025 CrossGPU. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package device provides the public API for the backend-agnostic device
// contract: the Device interface every backend implements, the kernel
// catalog, and platform-based device selection.
//
// Example:
//
//	dev, err := device.Open(device.DefaultForPlatform())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	gt, _ := dev.Upload(t)
//	out, _ := dev.Dispatch(device.NewKernel(device.Softmax), []*device.GPUTensor{gt})
package device

import (
	"github.com/crossgpu-ml/crossgpu/internal/device"
)

// Device is the capability contract every compute backend implements.
type Device = device.Device

// GPUTensor is an opaque handle to device-resident tensor data.
type GPUTensor = device.GPUTensor

// GPUError reports a backend execution failure.
type GPUError = device.GPUError

// Kernel is an immutable descriptor of one compute operation.
type Kernel = device.Kernel

// Kind enumerates the closed kernel catalog.
type Kind = device.Kind

// Kernel catalog.
const (
	MatMul             Kind = device.MatMul
	LayerNorm          Kind = device.LayerNorm
	Softmax            Kind = device.Softmax
	GELU               Kind = device.GELU
	FusedGemmGelu      Kind = device.FusedGemmGelu
	FusedGemmLayerNorm Kind = device.FusedGemmLayerNorm
	Attention          Kind = device.Attention
	Add                Kind = device.Add
)

// NewKernel creates a kernel descriptor with no parameters.
func NewKernel(kind Kind) Kernel {
	return device.NewKernel(kind)
}

// WithParams creates a kernel descriptor with parameters.
func WithParams(kind Kind, params ...float32) Kernel {
	return device.WithParams(kind, params...)
}

// Type identifies a backend family.
type Type = device.Type

// Backend families.
const (
	CPU    Type = device.CPU
	WebGPU Type = device.WebGPU
	Vulkan Type = device.Vulkan
	Metal  Type = device.Metal
	DX12   Type = device.DX12
)

// Factory constructs a device for a registered backend family.
type Factory = device.Factory

// Register makes a backend available to Open. Backends call this from
// their package init.
func Register(t Type, f Factory) {
	device.Register(t, f)
}

// Open returns a device of the requested family, falling back to CPU when
// the family is unregistered or unavailable.
func Open(t Type) (Device, error) {
	return device.Open(t)
}

// ForPlatform returns the preferred backend family for a GOOS value.
func ForPlatform(goos string) Type {
	return device.ForPlatform(goos)
}

// DefaultForPlatform returns the preferred backend family for the current
// platform.
func DefaultForPlatform() Type {
	return device.DefaultForPlatform()
}
