// Package cpu implements the reference Device: a synchronous, host-memory
// backend that every platform can fall back to.
package cpu

import (
	"github.com/crossgpu-ml/crossgpu/internal/device"
	"github.com/crossgpu-ml/crossgpu/internal/tensor"
)

func init() {
	device.Register(device.CPU, func() (device.Device, error) {
		return New(), nil
	})
}

// Backend is the CPU implementation of the device contract. Dispatch runs
// the kernel to completion before returning, so Synchronize has nothing to
// wait for. Internal parallelism, if any, stays invisible to callers.
type Backend struct{}

// New creates a CPU backend.
func New() *Backend {
	return &Backend{}
}

// Name returns the device name.
func (b *Backend) Name() string {
	return "cpu"
}

// Available reports backend availability; the CPU backend always is.
func (b *Backend) Available() bool {
	return true
}

// buffer is the backend-private memory behind a GPUTensor handle.
type buffer struct {
	data []byte
}

// Upload copies host bytes into backend-owned memory.
func (b *Backend) Upload(t *tensor.Tensor) (*device.GPUTensor, error) {
	buf := &buffer{data: make([]byte, t.ByteLen())}
	copy(buf.data, t.Data())
	return device.NewGPUTensor(t.Shape(), t.DType(), buf, b), nil
}

// Download copies backend memory back to a host tensor.
func (b *Backend) Download(gt *device.GPUTensor) (*tensor.Tensor, error) {
	if !gt.OwnedBy(b) {
		return nil, &device.GPUError{Message: "download: tensor is owned by a different device"}
	}
	buf := gt.Handle().(*buffer)
	data := make([]byte, len(buf.data))
	copy(data, buf.data)
	return tensor.FromRaw(gt.Shape(), gt.DType(), data)
}

// Synchronize is a no-op: every dispatch completed before it returned.
func (b *Backend) Synchronize() error {
	return nil
}

// Dispatch validates the call against the contract layer, then executes the
// kernel immediately on the host.
func (b *Backend) Dispatch(k device.Kernel, inputs []*device.GPUTensor) (*device.GPUTensor, error) {
	outShape, err := device.ValidateDispatch(b, k, inputs)
	if err != nil {
		return nil, err
	}

	args := make([][]float32, len(inputs))
	for i, in := range inputs {
		if in.DType() != tensor.F32 {
			return nil, &device.GPUError{
				Message: "dispatch: cpu kernels require f32 inputs, got " + in.DType().String(),
			}
		}
		args[i] = asFloat32(in.Handle().(*buffer).data)
	}

	out := make([]float32, outShape.NumElements())
	switch k.Kind {
	case device.MatMul:
		shapeA := inputs[0].Shape()
		gemm(out, args[0], args[1], shapeA[0], shapeA[1], outShape[1])
	case device.LayerNorm:
		layerNorm(out, args[0], args[1], args[2], lastDim(outShape), epsilon(k))
	case device.Softmax:
		softmax(out, args[0], lastDim(outShape))
	case device.GELU:
		gelu(out, args[0])
	case device.FusedGemmGelu:
		shapeA := inputs[0].Shape()
		gemm(out, args[0], args[1], shapeA[0], shapeA[1], outShape[1])
		gelu(out, out)
	case device.FusedGemmLayerNorm:
		shapeA := inputs[0].Shape()
		gemm(out, args[0], args[1], shapeA[0], shapeA[1], outShape[1])
		layerNorm(out, out, args[2], args[3], lastDim(outShape), epsilon(k))
	case device.Attention:
		shapeX := inputs[0].Shape()
		attention(out, args[0], args[1], args[2], args[3], args[4],
			shapeX[0], shapeX[1], int(k.Params[0]))
	case device.Add:
		for i := range out {
			out[i] = args[0][i] + args[1][i]
		}
	default:
		return nil, &device.GPUError{Message: "cpu backend: unimplemented kernel " + k.Kind.String()}
	}

	return device.NewGPUTensor(outShape, tensor.F32, &buffer{data: asBytes(out)}, b), nil
}

func lastDim(s tensor.Shape) int {
	return s[s.Rank()-1]
}

// epsilon returns the layer-norm epsilon parameter, defaulting to 1e-5.
func epsilon(k device.Kernel) float32 {
	if len(k.Params) > 0 {
		return k.Params[0]
	}
	return 1e-5
}
