package types

import (
	"io"

	"github.com/jvjhfhg/simpledb/pkg/primitives"
)

// Field is a single value stored in a tuple. Every concrete field
// implementation has a fixed serialized width given by its Type, so that
// tuple layout never needs to inspect values.
type Field interface {
	// Serialize writes this field's on-disk representation to w.
	Serialize(w io.Writer) error

	// Compare applies op between this field and other, which must be the
	// same concrete type. Comparing across mismatched types is not an
	// error; it returns false.
	Compare(op primitives.Predicate, other Field) (bool, error)

	// Type reports this field's Type.
	Type() Type

	// String renders the field's value for display.
	String() string

	// Equals reports whether other is a field of the same type and value.
	Equals(other Field) bool
}
