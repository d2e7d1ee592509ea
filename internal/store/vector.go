package store

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// encodeVector converts a float32 slice to bytes: an int32 length prefix
// followed by little-endian float32 values. Empty vectors encode as a bare
// zero-length prefix.
func encodeVector(vector []float32) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, int32(len(vector))); err != nil {
		return nil, fmt.Errorf("encode vector length: %w", err)
	}
	for _, val := range vector {
		if err := binary.Write(buf, binary.LittleEndian, val); err != nil {
			return nil, fmt.Errorf("encode vector value: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// decodeVector converts stored bytes back to a float32 slice. A nil or
// empty blob decodes as an empty vector.
func decodeVector(data []byte) ([]float32, error) {
	if len(data) == 0 {
		return []float32{}, nil
	}
	if len(data) < 4 {
		return nil, ErrInvalidVector
	}

	buf := bytes.NewReader(data)
	var length int32
	if err := binary.Read(buf, binary.LittleEndian, &length); err != nil {
		return nil, fmt.Errorf("decode vector length: %w", err)
	}
	if length < 0 || buf.Len() < int(length)*4 {
		return nil, ErrInvalidVector
	}
	if length == 0 {
		return []float32{}, nil
	}

	vector := make([]float32, length)
	for i := int32(0); i < length; i++ {
		if err := binary.Read(buf, binary.LittleEndian, &vector[i]); err != nil {
			return nil, fmt.Errorf("decode vector value at index %d: %w", i, err)
		}
	}
	return vector, nil
}
