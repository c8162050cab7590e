// Package storageerr defines the error taxonomy shared by every storage
// core component: the buffer pool, lock table, heap file, and statistics
// layer all report failures through these four kinds.
package storageerr

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

// Sentinel kinds. Components that only need to signal "which kind of
// failure" without structured context return these directly; components
// that need to carry context wrap one of these via Unwrap so callers can
// still errors.Is against the kind.
var (
	ErrTransactionAborted    = errors.New("transaction aborted")
	ErrCapacityExhausted     = errors.New("buffer pool capacity exhausted")
	ErrIO                    = errors.New("storage I/O error")
	ErrPreconditionViolation = errors.New("precondition violation")
)

// TransactionAbortedError reports that the lock manager aborted a
// transaction to break a deadlock cycle discovered in the wait-for graph.
type TransactionAbortedError struct {
	TransactionID string
	PageID        string
}

func NewTransactionAbortedError(tid, pid string) *TransactionAbortedError {
	return &TransactionAbortedError{TransactionID: tid, PageID: pid}
}

func (e *TransactionAbortedError) Error() string {
	return fmt.Sprintf("transaction %s aborted: deadlock detected waiting for page %s", e.TransactionID, e.PageID)
}

func (e *TransactionAbortedError) Unwrap() error { return ErrTransactionAborted }

// CapacityExhaustedError reports that the buffer pool is full and every
// buffered page is dirty, so NO-STEAL eviction has no clean victim.
type CapacityExhaustedError struct {
	PoolCapacity int
	DirtyPages   int
}

func NewCapacityExhaustedError(capacity, dirty int) *CapacityExhaustedError {
	return &CapacityExhaustedError{PoolCapacity: capacity, DirtyPages: dirty}
}

func (e *CapacityExhaustedError) Error() string {
	return fmt.Sprintf(
		"buffer pool capacity exhausted: all %s of %s buffered pages are dirty, no clean page to evict",
		humanize.Comma(int64(e.DirtyPages)), humanize.Comma(int64(e.PoolCapacity)),
	)
}

func (e *CapacityExhaustedError) Unwrap() error { return ErrCapacityExhausted }

// IOError wraps a failure reading or writing a page to the backing file.
type IOError struct {
	Op     string // "read" or "write"
	PageID string
	Cause  error
}

func NewIOError(op, pid string, cause error) *IOError {
	return &IOError{Op: op, PageID: pid, Cause: cause}
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.PageID, e.Cause)
}

func (e *IOError) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, ErrIO) succeed without discarding the underlying
// cause's own identity.
func (e *IOError) Is(target error) bool { return target == ErrIO }

// PreconditionViolationError reports a violated access-method invariant,
// such as inserting into a page with no free slots or deleting a record ID
// that does not name an occupied slot.
type PreconditionViolationError struct {
	Operation string
	Detail    string
}

func NewPreconditionViolationError(operation, detail string) *PreconditionViolationError {
	return &PreconditionViolationError{Operation: operation, Detail: detail}
}

func (e *PreconditionViolationError) Error() string {
	return fmt.Sprintf("precondition violation in %s: %s", e.Operation, e.Detail)
}

func (e *PreconditionViolationError) Unwrap() error { return ErrPreconditionViolation }
