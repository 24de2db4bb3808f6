// Package device defines the capability contract every compute backend
// satisfies: tensor upload/download, kernel dispatch, synchronization, and
// the pure identity queries. The transformer orchestrator composes these
// operations and nothing else, which is what keeps it substitutable across
// backends.
package device

import (
	"fmt"

	"github.com/crossgpu-ml/crossgpu/internal/tensor"
)

// Device is the backend contract. Implementations: the in-tree CPU backend
// plus the external WebGPU, Vulkan, Metal, and DirectX 12 adapters.
//
// Kernels dispatched in sequence on one Device execute in submission order.
// Dispatch may return once the work is enqueued; Synchronize blocks until
// everything previously dispatched has completed, and Download synchronizes
// internally before reading. Concurrent calls from multiple goroutines must
// be serialized by the caller.
type Device interface {
	// Upload copies host bytes into device-owned memory, preserving shape
	// and dtype exactly.
	Upload(t *tensor.Tensor) (*GPUTensor, error)

	// Dispatch executes one kernel against device-resident inputs and
	// produces one device-resident output. Arity and shape compatibility
	// are checked before submission.
	Dispatch(k Kernel, inputs []*GPUTensor) (*GPUTensor, error)

	// Download copies device memory back to a host tensor with matching
	// shape and dtype.
	Download(gt *GPUTensor) (*tensor.Tensor, error)

	// Synchronize blocks until all previously dispatched kernels on this
	// device have completed.
	Synchronize() error

	// Name returns the device name. Pure query, never fails.
	Name() string

	// Available reports whether the backend can run on this host. Pure
	// query, never fails.
	Available() bool
}

// GPUTensor is a device-resident tensor handle. It is exclusively owned by
// the Device that minted it; passing it to another device's Dispatch or
// Download is a contract violation rejected with GPUError.
type GPUTensor struct {
	shape  tensor.Shape
	dtype  tensor.DataType
	handle any    // backend-specific memory reference, opaque to callers
	owner  Device // the device that minted this handle
}

// NewGPUTensor mints a device-resident handle. Only backend implementations
// call this; owner must be the Device creating the handle.
func NewGPUTensor(shape tensor.Shape, dtype tensor.DataType, handle any, owner Device) *GPUTensor {
	return &GPUTensor{
		shape:  shape.Clone(),
		dtype:  dtype,
		handle: handle,
		owner:  owner,
	}
}

// Shape returns the handle's shape, mirroring the source tensor at upload.
func (g *GPUTensor) Shape() tensor.Shape {
	return g.shape
}

// DType returns the handle's element type.
func (g *GPUTensor) DType() tensor.DataType {
	return g.dtype
}

// Handle returns the backend-specific memory reference.
func (g *GPUTensor) Handle() any {
	return g.handle
}

// OwnedBy reports whether dev minted this handle.
func (g *GPUTensor) OwnedBy(dev Device) bool {
	return g.owner == dev
}

// ValidateDispatch performs the contract-layer preconditions for a dispatch
// on dev: every input handle must be owned by dev, and the kernel's arity
// and shape rules must hold. It returns the output shape the backend must
// produce. Backends call this before touching their command queue.
func ValidateDispatch(dev Device, k Kernel, inputs []*GPUTensor) (tensor.Shape, error) {
	for i, in := range inputs {
		if in == nil {
			return nil, &GPUError{Message: "dispatch: nil input tensor"}
		}
		if !in.OwnedBy(dev) {
			return nil, &GPUError{
				Message: fmt.Sprintf("dispatch: input %d is owned by a different device", i),
			}
		}
	}
	shapes := make([]tensor.Shape, len(inputs))
	for i, in := range inputs {
		shapes[i] = in.Shape()
	}
	return OutputShape(k, shapes)
}
