package types

import (
	"encoding/binary"
	"io"
	"strings"

	"github.com/jvjhfhg/simpledb/pkg/primitives"
)

// StringMaxSize is the fixed capacity, in bytes, of every string field's
// on-disk slot. Values longer than this are truncated on construction.
const StringMaxSize = 256

// StringField represents a fixed-capacity string field. Every StringField
// serializes to the same width (a 4-byte length prefix plus StringMaxSize
// bytes of padded content) regardless of the value's actual length, which
// keeps tuple slot sizing independent of field contents.
type StringField struct {
	Value string
}

// NewStringField creates a StringField, truncating value to StringMaxSize
// if necessary.
func NewStringField(value string) *StringField {
	if len(value) > StringMaxSize {
		value = value[:StringMaxSize]
	}
	return &StringField{Value: value}
}

func (s *StringField) Compare(op primitives.Predicate, other Field) (bool, error) {
	otherField, ok := other.(*StringField)
	if !ok {
		return false, nil
	}
	cmp := strings.Compare(s.Value, otherField.Value)

	switch op {
	case primitives.Equals:
		return cmp == 0, nil
	case primitives.LessThan:
		return cmp < 0, nil
	case primitives.GreaterThan:
		return cmp > 0, nil
	case primitives.LessThanOrEqual:
		return cmp <= 0, nil
	case primitives.GreaterThanOrEqual:
		return cmp >= 0, nil
	case primitives.NotEqual:
		return cmp != 0, nil
	default:
		return false, nil
	}
}

func (s *StringField) Serialize(w io.Writer) error {
	length := len(s.Value)

	lengthBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(lengthBytes, uint32(length))
	if _, err := w.Write(lengthBytes); err != nil {
		return err
	}

	if _, err := w.Write([]byte(s.Value)); err != nil {
		return err
	}

	padding := make([]byte, StringMaxSize-length)
	_, err := w.Write(padding)
	return err
}

func (s *StringField) Type() Type {
	return StringType
}

func (s *StringField) String() string {
	return s.Value
}

func (s *StringField) Equals(other Field) bool {
	otherField, ok := other.(*StringField)
	if !ok {
		return false
	}
	return s.Value == otherField.Value
}
