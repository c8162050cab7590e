// Package transaction identifies the transactions that the lock manager and
// buffer pool serialize access on behalf of.
package transaction

import (
	"github.com/google/uuid"
)

// ID names a transaction for the lifetime of a single run of the lock
// manager and buffer pool. Two IDs are equal only if minted from the same
// Begin call.
type ID struct {
	uuid uuid.UUID
}

// Begin mints a new, globally unique transaction ID.
func Begin() ID {
	return ID{uuid: uuid.New()}
}

// Equals reports whether two IDs name the same transaction.
func (t ID) Equals(other ID) bool {
	return t.uuid == other.uuid
}

// String returns a short, human-readable rendering of the ID, suitable for
// structured log fields and error messages.
func (t ID) String() string {
	return t.uuid.String()
}
