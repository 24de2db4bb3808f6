package cpu

import (
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/crossgpu-ml/crossgpu/internal/parallel"
)

// par controls row-wise kernel parallelism across cores.
var par = parallel.DefaultConfig()

// gemm computes c = a @ b for row-major [m,k] x [k,n] operands via SGEMM.
func gemm(c, a, b []float32, m, k, n int) {
	if m == 0 || k == 0 || n == 0 {
		for i := range c {
			c[i] = 0
		}
		return
	}
	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1,
		blas32.General{Rows: m, Cols: k, Stride: k, Data: a},
		blas32.General{Rows: k, Cols: n, Stride: n, Data: b},
		0,
		blas32.General{Rows: m, Cols: n, Stride: n, Data: c})
}

// layerNorm normalizes each row of x over its last axis:
// y = (x - mean) / sqrt(var + eps) * gain + bias.
// dst and x may alias.
func layerNorm(dst, x, gain, bias []float32, d int, eps float32) {
	if d == 0 {
		return
	}
	parallel.For(len(x)/d, func(row int) {
		in := x[row*d : (row+1)*d]
		out := dst[row*d : (row+1)*d]

		var mean float32
		for _, v := range in {
			mean += v
		}
		mean /= float32(d)

		var variance float32
		for _, v := range in {
			diff := v - mean
			variance += diff * diff
		}
		variance /= float32(d)

		invStd := 1 / float32(math.Sqrt(float64(variance+eps)))
		for i, v := range in {
			out[i] = (v-mean)*invStd*gain[i] + bias[i]
		}
	}, par)
}

// softmax normalizes each row of x over its last axis, subtracting the row
// maximum before exponentiation for numerical stability.
// dst and x may alias.
func softmax(dst, x []float32, d int) {
	if d == 0 {
		return
	}
	parallel.For(len(x)/d, func(row int) {
		in := x[row*d : (row+1)*d]
		out := dst[row*d : (row+1)*d]

		maxVal := float32(math.Inf(-1))
		for _, v := range in {
			if v > maxVal {
				maxVal = v
			}
		}

		var sum float32
		for i, v := range in {
			e := float32(math.Exp(float64(v - maxVal)))
			out[i] = e
			sum += e
		}
		for i := range out {
			out[i] /= sum
		}
	}, par)
}

// gelu applies the exact (erf-based) GELU elementwise:
// y = x * 0.5 * (1 + erf(x / sqrt(2))).
// dst and x may alias.
func gelu(dst, x []float32) {
	parallel.For(len(x), func(i int) {
		v := x[i]
		dst[i] = v * 0.5 * float32(1+math.Erf(float64(v)/math.Sqrt2))
	}, par)
}

// attention runs the full multi-head block for x [s,d] with projection
// weights [d,d] each: QKV projection, per-head scaled dot-product with full
// (non-causal) attention, head merge, output projection.
func attention(dst, x, wq, wk, wv, wo []float32, s, d, heads int) {
	if s == 0 || d == 0 {
		return
	}
	q := make([]float32, s*d)
	k := make([]float32, s*d)
	v := make([]float32, s*d)
	gemm(q, x, wq, s, d, d)
	gemm(k, x, wk, s, d, d)
	gemm(v, x, wv, s, d, d)

	headDim := d / heads
	scale := 1 / float32(math.Sqrt(float64(headDim)))

	// Heads are independent; each worker owns its own scores buffer.
	ctx := make([]float32, s*d)
	parallel.ForWorkers(heads, func(h int) {
		scores := make([]float32, s*s)
		off := h * headDim

		// scores[i,j] = <q_i, k_j> * scale over this head's slice.
		for i := 0; i < s; i++ {
			for j := 0; j < s; j++ {
				var dot float32
				for c := 0; c < headDim; c++ {
					dot += q[i*d+off+c] * k[j*d+off+c]
				}
				scores[i*s+j] = dot * scale
			}
		}
		softmax(scores, scores, s)

		// ctx_i = sum_j scores[i,j] * v_j.
		for i := 0; i < s; i++ {
			for c := 0; c < headDim; c++ {
				var sum float32
				for j := 0; j < s; j++ {
					sum += scores[i*s+j] * v[j*d+off+c]
				}
				ctx[i*d+off+c] = sum
			}
		}
	})

	gemm(dst, ctx, wo, s, d, d)
}
