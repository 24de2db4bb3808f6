package transformer

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"

	"github.com/crossgpu-ml/crossgpu/internal/tensor"
)

// Binary model format, little-endian throughout:
//
//	magic   "CGPU"
//	version u32
//	config  u64 byte length, then JSON
//	tensors in a fixed order, each as:
//	  rank u64, dims u64..., dtype tag u8, byte length u64, raw bytes
//
// Tensor order: token embedding, position embedding, then per layer
// wq wk wv wo w1 w2 ln1.gain ln1.bias ln2.gain ln2.bias, then the final
// norm gain and bias.

var formatMagic = [4]byte{'C', 'G', 'P', 'U'}

const formatVersion uint32 = 1

// dtypeTag maps DataType to its on-disk tag byte.
func dtypeTag(dt tensor.DataType) (byte, error) {
	switch dt {
	case tensor.F32:
		return 0, nil
	case tensor.F16:
		return 1, nil
	case tensor.I8:
		return 2, nil
	case tensor.I4:
		return 3, nil
	}
	return 0, &SerializationError{Reason: fmt.Sprintf("unknown dtype %d", dt)}
}

func tagDType(tag byte) (tensor.DataType, error) {
	switch tag {
	case 0:
		return tensor.F32, nil
	case 1:
		return tensor.F16, nil
	case 2:
		return tensor.I8, nil
	case 3:
		return tensor.I4, nil
	}
	return 0, &ModelLoadError{Reason: fmt.Sprintf("unknown dtype tag %d", tag)}
}

// Save writes the model to w in the binary format above.
func (m *Model) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.Write(formatMagic[:]); err != nil {
		return &SerializationError{Reason: "write magic", Err: err}
	}
	if err := binary.Write(bw, binary.LittleEndian, formatVersion); err != nil {
		return &SerializationError{Reason: "write version", Err: err}
	}

	cfg, err := json.Marshal(m.Config)
	if err != nil {
		return &SerializationError{Reason: "marshal config", Err: err}
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(cfg))); err != nil {
		return &SerializationError{Reason: "write config length", Err: err}
	}
	if _, err := bw.Write(cfg); err != nil {
		return &SerializationError{Reason: "write config", Err: err}
	}

	for _, nt := range m.orderedTensors() {
		if err := writeTensor(bw, nt.name, nt.t); err != nil {
			return err
		}
	}

	if err := bw.Flush(); err != nil {
		return &SerializationError{Reason: "flush", Err: err}
	}
	return nil
}

// SaveFile writes the model to path, creating or truncating the file.
func (m *Model) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return &SerializationError{Reason: "create " + path, Err: err}
	}
	if err := m.Save(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return &SerializationError{Reason: "close " + path, Err: err}
	}
	return nil
}

// Load reads a model written by Save and revalidates every shape against
// the embedded configuration.
func Load(r io.Reader) (*Model, error) {
	br := bufio.NewReader(r)

	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, &ModelLoadError{Reason: "read magic", Err: err}
	}
	if magic != formatMagic {
		return nil, &ModelLoadError{Reason: fmt.Sprintf("bad magic %q", magic[:])}
	}
	var version uint32
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, &ModelLoadError{Reason: "read version", Err: err}
	}
	if version != formatVersion {
		return nil, &ModelLoadError{Reason: fmt.Sprintf("unsupported version %d", version)}
	}

	var cfgLen uint64
	if err := binary.Read(br, binary.LittleEndian, &cfgLen); err != nil {
		return nil, &ModelLoadError{Reason: "read config length", Err: err}
	}
	if cfgLen > 1<<20 {
		return nil, &ModelLoadError{Reason: fmt.Sprintf("config length %d is implausible", cfgLen)}
	}
	cfgBytes := make([]byte, cfgLen)
	if _, err := io.ReadFull(br, cfgBytes); err != nil {
		return nil, &ModelLoadError{Reason: "read config", Err: err}
	}
	var cfg Config
	if err := json.Unmarshal(cfgBytes, &cfg); err != nil {
		return nil, &ModelLoadError{Reason: "parse config", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &ModelLoadError{Reason: "invalid config", Err: err}
	}

	read := func(name string) (*tensor.Tensor, error) {
		return readTensor(br, name)
	}

	tokenEmb, err := read("token embedding")
	if err != nil {
		return nil, err
	}
	posEmb, err := read("position embedding")
	if err != nil {
		return nil, err
	}

	layers := make([]LayerWeights, cfg.NLayers)
	for i := range layers {
		var lw LayerWeights
		fields := []struct {
			name string
			dst  **tensor.Tensor
		}{
			{"wq", &lw.Attention.WQ},
			{"wk", &lw.Attention.WK},
			{"wv", &lw.Attention.WV},
			{"wo", &lw.Attention.WO},
			{"w1", &lw.FeedForward.W1},
			{"w2", &lw.FeedForward.W2},
			{"ln1 gain", &lw.LN1.Gain},
			{"ln1 bias", &lw.LN1.Bias},
			{"ln2 gain", &lw.LN2.Gain},
			{"ln2 bias", &lw.LN2.Bias},
		}
		for _, f := range fields {
			t, err := read(fmt.Sprintf("layer %d %s", i, f.name))
			if err != nil {
				return nil, err
			}
			*f.dst = t
		}
		layers[i] = lw
	}

	var finalNorm LayerNormWeights
	if finalNorm.Gain, err = read("final norm gain"); err != nil {
		return nil, err
	}
	if finalNorm.Bias, err = read("final norm bias"); err != nil {
		return nil, err
	}

	m, err := NewModel(cfg, tokenEmb, posEmb, layers, finalNorm)
	if err != nil {
		return nil, &ModelLoadError{Reason: "shape validation", Err: err}
	}
	return m, nil
}

// LoadFile reads a model from path.
func LoadFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ModelLoadError{Reason: "open " + path, Err: err}
	}
	defer f.Close()
	return Load(f)
}

func writeTensor(w io.Writer, name string, t *tensor.Tensor) error {
	shape := t.Shape()
	if err := binary.Write(w, binary.LittleEndian, uint64(shape.Rank())); err != nil {
		return &SerializationError{Reason: name + ": write rank", Err: err}
	}
	for _, dim := range shape {
		if err := binary.Write(w, binary.LittleEndian, uint64(dim)); err != nil {
			return &SerializationError{Reason: name + ": write dims", Err: err}
		}
	}
	tag, err := dtypeTag(t.DType())
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte{tag}); err != nil {
		return &SerializationError{Reason: name + ": write dtype", Err: err}
	}
	data := t.Data()
	if err := binary.Write(w, binary.LittleEndian, uint64(len(data))); err != nil {
		return &SerializationError{Reason: name + ": write length", Err: err}
	}
	if _, err := w.Write(data); err != nil {
		return &SerializationError{Reason: name + ": write data", Err: err}
	}
	return nil
}

func readTensor(r io.Reader, name string) (*tensor.Tensor, error) {
	var rank uint64
	if err := binary.Read(r, binary.LittleEndian, &rank); err != nil {
		return nil, &ModelLoadError{Reason: name + ": read rank", Err: err}
	}
	if rank > 8 {
		return nil, &ModelLoadError{Reason: fmt.Sprintf("%s: rank %d is implausible", name, rank)}
	}
	shape := make(tensor.Shape, rank)
	for i := range shape {
		var dim uint64
		if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
			return nil, &ModelLoadError{Reason: name + ": read dims", Err: err}
		}
		shape[i] = int(dim)
	}
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return nil, &ModelLoadError{Reason: name + ": read dtype", Err: err}
	}
	dt, err := tagDType(tag[0])
	if err != nil {
		return nil, err
	}
	var length uint64
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, &ModelLoadError{Reason: name + ": read length", Err: err}
	}
	want, err := tensor.ByteSize(shape, dt)
	if err != nil {
		return nil, &ModelLoadError{Reason: name + ": invalid shape", Err: err}
	}
	if uint64(want) != length {
		return nil, &ModelLoadError{
			Reason: fmt.Sprintf("%s: byte length %d does not match shape %v %s", name, length, shape, dt),
		}
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, &ModelLoadError{Reason: name + ": read data", Err: err}
	}
	t, err := tensor.FromRaw(shape, dt, data)
	if err != nil {
		return nil, &ModelLoadError{Reason: name + ": construct tensor", Err: err}
	}
	return t, nil
}

type namedTensor struct {
	name string
	t    *tensor.Tensor
}

func (m *Model) orderedTensors() []namedTensor {
	out := []namedTensor{
		{"token embedding", m.TokenEmbedding},
		{"position embedding", m.PositionEmbedding},
	}
	for i, layer := range m.Layers {
		prefix := fmt.Sprintf("layer %d ", i)
		out = append(out,
			namedTensor{prefix + "wq", layer.Attention.WQ},
			namedTensor{prefix + "wk", layer.Attention.WK},
			namedTensor{prefix + "wv", layer.Attention.WV},
			namedTensor{prefix + "wo", layer.Attention.WO},
			namedTensor{prefix + "w1", layer.FeedForward.W1},
			namedTensor{prefix + "w2", layer.FeedForward.W2},
			namedTensor{prefix + "ln1 gain", layer.LN1.Gain},
			namedTensor{prefix + "ln1 bias", layer.LN1.Bias},
			namedTensor{prefix + "ln2 gain", layer.LN2.Gain},
			namedTensor{prefix + "ln2 bias", layer.LN2.Bias},
		)
	}
	out = append(out,
		namedTensor{"final norm gain", m.FinalNorm.Gain},
		namedTensor{"final norm bias", m.FinalNorm.Bias},
	)
	return out
}
