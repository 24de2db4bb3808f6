package device

import (
	"runtime"
	"sync"
)

// Type enumerates the backend kinds a platform can prefer.
type Type int

// Backend kinds.
const (
	CPU Type = iota
	WebGPU
	Vulkan
	Metal
	DX12
)

// String returns the backend kind name.
func (t Type) String() string {
	switch t {
	case CPU:
		return "cpu"
	case WebGPU:
		return "webgpu"
	case Vulkan:
		return "vulkan"
	case Metal:
		return "metal"
	case DX12:
		return "dx12"
	default:
		return "unknown"
	}
}

// platformDefaults maps a platform tag to its preferred backend kind. The
// mapping is data, not control flow; callers can bypass it entirely by
// opening a backend kind explicitly.
var platformDefaults = map[string]Type{
	"darwin":  Metal,
	"ios":     Metal,
	"windows": DX12,
	"linux":   Vulkan,
	"android": Vulkan,
	"js":      WebGPU,
	"wasip1":  WebGPU,
}

// ForPlatform returns the preferred backend kind for a platform tag, with
// CPU as the universal fallback.
func ForPlatform(goos string) Type {
	if t, ok := platformDefaults[goos]; ok {
		return t
	}
	return CPU
}

// DefaultForPlatform returns the preferred backend kind for the current
// platform.
func DefaultForPlatform() Type {
	return ForPlatform(runtime.GOOS)
}

// Factory constructs a Device. Backends register one at init time.
type Factory func() (Device, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[Type]Factory)
)

// Register makes a backend available to Open. It is intended to be called
// from a backend package's init function, in the manner of database/sql
// drivers.
func Register(t Type, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[t] = f
}

// Open constructs a Device of the requested kind, falling back to CPU when
// the kind is unregistered, fails to construct, or probes unavailable. It
// fails with GPUError only when no usable backend exists at all.
func Open(t Type) (Device, error) {
	if dev, err := open(t); err == nil && dev.Available() {
		return dev, nil
	}
	if t == CPU {
		return nil, &GPUError{Message: "cpu backend is not registered"}
	}
	dev, err := open(CPU)
	if err != nil {
		return nil, err
	}
	return dev, nil
}

func open(t Type) (Device, error) {
	registryMu.RLock()
	f, ok := registry[t]
	registryMu.RUnlock()
	if !ok {
		return nil, &GPUError{Message: "no registered backend for " + t.String()}
	}
	return f()
}
