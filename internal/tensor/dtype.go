package tensor

// DataType identifies the element width and interpretation of a tensor's
// byte buffer.
type DataType int

// Supported element types.
const (
	F32 DataType = iota // 32-bit floating point
	F16                 // 16-bit floating point
	I8                  // 8-bit signed integer (quantized)
	I4                  // 4-bit signed integer, packed two per byte
)

// Bits returns the number of bits one element occupies.
func (dt DataType) Bits() int {
	switch dt {
	case F32:
		return 32
	case F16:
		return 16
	case I8:
		return 8
	case I4:
		return 4
	default:
		return 0
	}
}

// String returns a human-readable name.
func (dt DataType) String() string {
	switch dt {
	case F32:
		return "f32"
	case F16:
		return "f16"
	case I8:
		return "i8"
	case I4:
		return "i4"
	default:
		return "unknown"
	}
}

// Valid reports whether dt is one of the supported element types.
func (dt DataType) Valid() bool {
	return dt >= F32 && dt <= I4
}
