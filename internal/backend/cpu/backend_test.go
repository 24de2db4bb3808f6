package cpu

import (
	"errors"
	"math"
	"testing"

	"github.com/crossgpu-ml/crossgpu/internal/device"
	"github.com/crossgpu-ml/crossgpu/internal/tensor"
)

func uploadFloats(t *testing.T, b *Backend, shape tensor.Shape, values []float32) *device.GPUTensor {
	t.Helper()
	host, err := tensor.FromFloat32(shape, values)
	if err != nil {
		t.Fatalf("FromFloat32 failed: %v", err)
	}
	gt, err := b.Upload(host)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	return gt
}

func downloadFloats(t *testing.T, b *Backend, gt *device.GPUTensor) []float32 {
	t.Helper()
	host, err := b.Download(gt)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	values, err := host.Float32s()
	if err != nil {
		t.Fatalf("Float32s failed: %v", err)
	}
	return values
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	b := New()
	values := []float32{1, 2, 3, 4, 5, 6}
	gt := uploadFloats(t, b, tensor.Shape{2, 3}, values)

	if !gt.Shape().Equal(tensor.Shape{2, 3}) || gt.DType() != tensor.F32 {
		t.Fatalf("handle shape/dtype = %v/%s", gt.Shape(), gt.DType())
	}

	got := downloadFloats(t, b, gt)
	for i, want := range values {
		if got[i] != want {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want)
		}
	}
}

func TestUploadPreservesQuantizedDtype(t *testing.T) {
	b := New()
	host, err := tensor.FromRaw(tensor.Shape{3}, tensor.I4, []byte{0x21, 0x03})
	if err != nil {
		t.Fatalf("FromRaw failed: %v", err)
	}
	gt, err := b.Upload(host)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if gt.DType() != tensor.I4 {
		t.Errorf("dtype = %s, want i4", gt.DType())
	}

	back, err := b.Download(gt)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if back.Data()[0] != 0x21 || back.Data()[1] != 0x03 {
		t.Errorf("bytes = %v, want [0x21 0x03]", back.Data())
	}
}

func TestMatMul(t *testing.T) {
	b := New()
	a := uploadFloats(t, b, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	c := uploadFloats(t, b, tensor.Shape{3, 2}, []float32{7, 8, 9, 10, 11, 12})

	out, err := b.Dispatch(device.NewKernel(device.MatMul), []*device.GPUTensor{a, c})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if !out.Shape().Equal(tensor.Shape{2, 2}) {
		t.Fatalf("output shape = %v, want [2 2]", out.Shape())
	}

	got := downloadFloats(t, b, out)
	want := []float32{58, 64, 139, 154}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMatMulShapeMismatch(t *testing.T) {
	b := New()
	a := uploadFloats(t, b, tensor.Shape{2, 3}, make([]float32, 6))
	c := uploadFloats(t, b, tensor.Shape{4, 2}, make([]float32, 8))

	var mismatch *tensor.ShapeMismatchError
	_, err := b.Dispatch(device.NewKernel(device.MatMul), []*device.GPUTensor{a, c})
	if !errors.As(err, &mismatch) {
		t.Errorf("got %v, want ShapeMismatchError", err)
	}
}

func TestLayerNorm(t *testing.T) {
	b := New()
	x := uploadFloats(t, b, tensor.Shape{1, 3}, []float32{1, 2, 3})
	gain := uploadFloats(t, b, tensor.Shape{3}, []float32{1, 1, 1})
	bias := uploadFloats(t, b, tensor.Shape{3}, []float32{0, 0, 0})

	out, err := b.Dispatch(device.WithParams(device.LayerNorm, 1e-5),
		[]*device.GPUTensor{x, gain, bias})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	got := downloadFloats(t, b, out)

	var mean, variance float64
	for _, v := range got {
		mean += float64(v)
	}
	mean /= 3
	for _, v := range got {
		variance += (float64(v) - mean) * (float64(v) - mean)
	}
	variance /= 3

	if math.Abs(mean) > 1e-5 {
		t.Errorf("normalized mean = %v, want ~0", mean)
	}
	if math.Abs(variance-1) > 1e-3 {
		t.Errorf("normalized variance = %v, want ~1", variance)
	}
}

func TestSoftmax(t *testing.T) {
	b := New()
	// Large magnitudes verify the max-subtraction stabilization.
	x := uploadFloats(t, b, tensor.Shape{2, 3}, []float32{1000, 1001, 1002, -5, 0, 5})

	out, err := b.Dispatch(device.NewKernel(device.Softmax), []*device.GPUTensor{x})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	got := downloadFloats(t, b, out)
	for row := 0; row < 2; row++ {
		var sum float64
		for i := 0; i < 3; i++ {
			v := got[row*3+i]
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				t.Fatalf("row %d element %d is not finite: %v", row, i, v)
			}
			sum += float64(v)
		}
		if math.Abs(sum-1) > 1e-5 {
			t.Errorf("row %d sums to %v, want 1", row, sum)
		}
	}
}

func TestGELU(t *testing.T) {
	b := New()
	x := uploadFloats(t, b, tensor.Shape{3}, []float32{-1, 0, 1})

	out, err := b.Dispatch(device.NewKernel(device.GELU), []*device.GPUTensor{x})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	got := downloadFloats(t, b, out)
	want := []float64{-0.158655, 0, 0.841345} // x * Phi(x)
	for i := range want {
		if math.Abs(float64(got[i])-want[i]) > 1e-4 {
			t.Errorf("gelu[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFusedGemmGeluMatchesUnfused(t *testing.T) {
	b := New()
	a := uploadFloats(t, b, tensor.Shape{2, 2}, []float32{0.5, -1, 2, 0.25})
	w := uploadFloats(t, b, tensor.Shape{2, 3}, []float32{1, 0, -1, 0.5, 2, 1})

	fused, err := b.Dispatch(device.NewKernel(device.FusedGemmGelu), []*device.GPUTensor{a, w})
	if err != nil {
		t.Fatalf("fused dispatch failed: %v", err)
	}

	mm, err := b.Dispatch(device.NewKernel(device.MatMul), []*device.GPUTensor{a, w})
	if err != nil {
		t.Fatalf("matmul dispatch failed: %v", err)
	}
	unfused, err := b.Dispatch(device.NewKernel(device.GELU), []*device.GPUTensor{mm})
	if err != nil {
		t.Fatalf("gelu dispatch failed: %v", err)
	}

	got := downloadFloats(t, b, fused)
	want := downloadFloats(t, b, unfused)
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("fused[%d] = %v, unfused = %v", i, got[i], want[i])
		}
	}
}

func TestFusedGemmLayerNormMatchesUnfused(t *testing.T) {
	b := New()
	a := uploadFloats(t, b, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
	w := uploadFloats(t, b, tensor.Shape{2, 3}, []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6})
	gain := uploadFloats(t, b, tensor.Shape{3}, []float32{1, 2, 0.5})
	bias := uploadFloats(t, b, tensor.Shape{3}, []float32{0.1, -0.1, 0})

	fused, err := b.Dispatch(device.WithParams(device.FusedGemmLayerNorm, 1e-5),
		[]*device.GPUTensor{a, w, gain, bias})
	if err != nil {
		t.Fatalf("fused dispatch failed: %v", err)
	}

	mm, err := b.Dispatch(device.NewKernel(device.MatMul), []*device.GPUTensor{a, w})
	if err != nil {
		t.Fatalf("matmul dispatch failed: %v", err)
	}
	unfused, err := b.Dispatch(device.WithParams(device.LayerNorm, 1e-5),
		[]*device.GPUTensor{mm, gain, bias})
	if err != nil {
		t.Fatalf("layernorm dispatch failed: %v", err)
	}

	got := downloadFloats(t, b, fused)
	want := downloadFloats(t, b, unfused)
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("fused[%d] = %v, unfused = %v", i, got[i], want[i])
		}
	}
}

func TestAdd(t *testing.T) {
	b := New()
	x := uploadFloats(t, b, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
	y := uploadFloats(t, b, tensor.Shape{2, 2}, []float32{10, 20, 30, 40})

	out, err := b.Dispatch(device.NewKernel(device.Add), []*device.GPUTensor{x, y})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	got := downloadFloats(t, b, out)
	want := []float32{11, 22, 33, 44}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestAttentionUniformWeightsAveragesValues(t *testing.T) {
	b := New()
	s, d := 3, 4

	x := uploadFloats(t, b, tensor.Shape{s, d}, []float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
	})
	// Zero Q/K projections make all attention weights uniform; identity V/O
	// make each output row the mean of the input rows.
	zero := make([]float32, d*d)
	eye := make([]float32, d*d)
	for i := 0; i < d; i++ {
		eye[i*d+i] = 1
	}
	wq := uploadFloats(t, b, tensor.Shape{d, d}, zero)
	wk := uploadFloats(t, b, tensor.Shape{d, d}, zero)
	wv := uploadFloats(t, b, tensor.Shape{d, d}, eye)
	wo := uploadFloats(t, b, tensor.Shape{d, d}, eye)

	out, err := b.Dispatch(device.WithParams(device.Attention, 2),
		[]*device.GPUTensor{x, wq, wk, wv, wo})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if !out.Shape().Equal(tensor.Shape{s, d}) {
		t.Fatalf("output shape = %v, want [%d %d]", out.Shape(), s, d)
	}

	got := downloadFloats(t, b, out)
	want := []float32{1.0 / 3, 1.0 / 3, 1.0 / 3, 0}
	for row := 0; row < s; row++ {
		for col := 0; col < d; col++ {
			if math.Abs(float64(got[row*d+col]-want[col])) > 1e-5 {
				t.Errorf("out[%d,%d] = %v, want %v", row, col, got[row*d+col], want[col])
			}
		}
	}
}

func TestDispatchRejectsScalarSoftmax(t *testing.T) {
	b := New()
	gt := uploadFloats(t, b, tensor.Shape{}, []float32{1.5})

	var mismatch *tensor.ShapeMismatchError
	_, err := b.Dispatch(device.NewKernel(device.Softmax), []*device.GPUTensor{gt})
	if !errors.As(err, &mismatch) {
		t.Errorf("got %v, want ShapeMismatchError", err)
	}
}

func TestDispatchRejectsQuantizedInput(t *testing.T) {
	b := New()
	host, err := tensor.New(tensor.Shape{4}, tensor.I8)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	gt, err := b.Upload(host)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	var gpuErr *device.GPUError
	_, err = b.Dispatch(device.NewKernel(device.Softmax), []*device.GPUTensor{gt})
	if !errors.As(err, &gpuErr) {
		t.Errorf("got %v, want GPUError", err)
	}
}

func TestSynchronizeNoop(t *testing.T) {
	if err := New().Synchronize(); err != nil {
		t.Errorf("Synchronize failed: %v", err)
	}
}
