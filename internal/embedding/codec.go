package embedding

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeVector packs a float32 vector as raw little-endian bytes, four
// bytes per element with no header. This is the wire format of the
// artifact_embeddings.vector column and what sqlite-vec expects.
func EncodeVector(vec []float32) []byte {
	out := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// DecodeVector unpacks raw little-endian float32 bytes.
func DecodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(blob))
	}
	out := make([]float32, len(blob)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return out, nil
}
