package cpu

import "unsafe"

// asFloat32 reinterprets a byte buffer as its float32 view without copying.
func asFloat32(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&data[0])), len(data)/4)
}

// asBytes reinterprets a float32 slice as its byte view without copying.
func asBytes(values []float32) []byte {
	if len(values) == 0 {
		return []byte{}
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&values[0])), len(values)*4)
}
