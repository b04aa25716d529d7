package embedding

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeVector packs a float32 vector into a little-endian byte blob suitable
// for storage in the embeddings table.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector unpacks a byte blob produced by EncodeVector back into a
// float32 vector of the given dimension.
func DecodeVector(b []byte, dim int) ([]float32, error) {
	if len(b) != dim*4 {
		return nil, fmt.Errorf("embedding: blob length %d does not match dimension %d", len(b), dim)
	}
	v := make([]float32, dim)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : i*4+4]))
	}
	return v, nil
}
