// Copyright 2025 CrossGPU. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu exposes the pure-Go reference backend. Importing it
// registers the backend with the device package, so blank imports are
// enough for callers that open devices by type.
package cpu

import (
	internalcpu "github.com/crossgpu-ml/crossgpu/internal/backend/cpu"
	"github.com/crossgpu-ml/crossgpu/device"
)

// Backend is the CPU device implementation. It runs every kernel in the
// catalog in plain Go and serves as the semantic reference for GPU
// backends.
type Backend = internalcpu.Backend

// Compile-time check that Backend implements device.Device.
var _ device.Device = (*Backend)(nil)

// New creates a CPU backend.
func New() *Backend {
	return internalcpu.New()
}
