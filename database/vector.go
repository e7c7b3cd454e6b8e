package database

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"productmatcher/types"
)

// ErrVectorLengthMismatch indicates two vectors have different dimensions
var ErrVectorLengthMismatch = errors.New("vector length mismatch")

// EncodeEmbedding packs v as little-endian float32 values
func EncodeEmbedding(v types.EmbeddingVector) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

// DecodeEmbedding unpacks a blob written by EncodeEmbedding
func DecodeEmbedding(blob []byte) (types.EmbeddingVector, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob of %d bytes is not a float32 array", len(blob))
	}
	v := make(types.EmbeddingVector, len(blob)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return v, nil
}

// Dot returns the inner product of a and b, which equals cosine
// similarity when both are unit length.
func Dot(a, b types.EmbeddingVector) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrVectorLengthMismatch
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot, nil
}
