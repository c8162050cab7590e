package tuple

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/jvjhfhg/simpledb/pkg/types"
)

// Encode serializes t's fields back to back, in schema order, using each
// field's own fixed-width Serialize. The result is always exactly
// t.TupleDesc.GetSize() bytes, which is what lets a heap page slot it in
// without a length prefix.
func Encode(t *Tuple) ([]byte, error) {
	var buf bytes.Buffer
	for i := 0; i < t.TupleDesc.NumFields(); i++ {
		field, err := t.GetField(i)
		if err != nil {
			return nil, err
		}
		if field == nil {
			return nil, fmt.Errorf("field %d is unset", i)
		}
		if err := field.Serialize(&buf); err != nil {
			return nil, fmt.Errorf("serialize field %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Decode reconstructs a tuple matching desc from data, which must be
// exactly desc.GetSize() bytes.
func Decode(desc *TupleDescription, data []byte) (*Tuple, error) {
	t := NewTuple(desc)
	r := bytes.NewReader(data)

	for i, fieldType := range desc.Types {
		field, err := decodeField(fieldType, r)
		if err != nil {
			return nil, fmt.Errorf("decode field %d: %w", i, err)
		}
		if err := t.SetField(i, field); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func decodeField(fieldType types.Type, r *bytes.Reader) (types.Field, error) {
	switch fieldType {
	case types.IntType:
		var buf [8]byte
		if _, err := r.Read(buf[:]); err != nil {
			return nil, err
		}
		return types.NewIntField(int64(binary.BigEndian.Uint64(buf[:]))), nil

	case types.StringType:
		var lenBuf [4]byte
		if _, err := r.Read(lenBuf[:]); err != nil {
			return nil, err
		}
		length := binary.BigEndian.Uint32(lenBuf[:])

		content := make([]byte, types.StringMaxSize)
		if _, err := r.Read(content); err != nil {
			return nil, err
		}
		return types.NewStringField(string(content[:length])), nil

	default:
		return nil, fmt.Errorf("unsupported field type %v", fieldType)
	}
}
