package types

import (
	"encoding/binary"
	"io"
	"strconv"

	"github.com/jvjhfhg/simpledb/pkg/primitives"
)

// IntField represents a signed 64-bit integer field.
type IntField struct {
	Value int64
}

func NewIntField(value int64) *IntField {
	return &IntField{Value: value}
}

func (f *IntField) Serialize(w io.Writer) error {
	bytes := make([]byte, 8)
	binary.BigEndian.PutUint64(bytes, uint64(f.Value))
	_, err := w.Write(bytes)
	return err
}

func (f *IntField) Compare(op primitives.Predicate, other Field) (bool, error) {
	otherField, ok := other.(*IntField)
	if !ok {
		return false, nil
	}
	return compareOrdered(f.Value, otherField.Value, op), nil
}

func (f *IntField) Type() Type {
	return IntType
}

func (f *IntField) String() string {
	return strconv.FormatInt(f.Value, 10)
}

func (f *IntField) Equals(other Field) bool {
	otherField, ok := other.(*IntField)
	if !ok {
		return false
	}
	return f.Value == otherField.Value
}
