// Package lock implements page-granularity two-phase locking with shared
// and exclusive modes, lock upgrade, and a wait-for graph deadlock
// detector.
package lock

import (
	"sync"

	"github.com/jvjhfhg/simpledb/pkg/concurrency/transaction"
	"github.com/jvjhfhg/simpledb/pkg/storage"
)

// status classifies the holders of a single page so TryAcquire can be
// expressed as a small table instead of scanning the holder set on every
// call.
type status int

const (
	idle status = iota
	singleShared
	multiShared
	singleExclusive
)

// Table grants and tracks SHARED/EXCLUSIVE page locks. It does no waiting
// and no deadlock detection itself — TryAcquire returns immediately,
// succeeding or failing; the caller (the buffer pool, consulting a
// WaitForGraph) decides whether to retry or abort.
type Table struct {
	mu sync.Mutex

	// byPage maps a page to the set of transactions holding a lock on it
	// and the mode each holds.
	byPage map[storage.PageId]map[transaction.ID]Mode

	// byTxn is the inverse index, used to release every lock a
	// transaction holds in one pass at commit/abort.
	byTxn map[transaction.ID]map[storage.PageId]Mode
}

// NewTable creates an empty lock table.
func NewTable() *Table {
	return &Table{
		byPage: make(map[storage.PageId]map[transaction.ID]Mode),
		byTxn:  make(map[transaction.ID]map[storage.PageId]Mode),
	}
}

func (t *Table) statusOf(pid storage.PageId) status {
	holders := t.byPage[pid]
	switch len(holders) {
	case 0:
		return idle
	case 1:
		for _, mode := range holders {
			if mode == Exclusive {
				return singleExclusive
			}
			return singleShared
		}
	}
	return multiShared
}

func (t *Table) grant(tid transaction.ID, pid storage.PageId, mode Mode) {
	if t.byPage[pid] == nil {
		t.byPage[pid] = make(map[transaction.ID]Mode)
	}
	if t.byTxn[tid] == nil {
		t.byTxn[tid] = make(map[storage.PageId]Mode)
	}
	t.byPage[pid][tid] = mode
	t.byTxn[tid][pid] = mode
}

// TryAcquire attempts to grant tid the requested mode on pid, returning
// whether the lock was granted. It never blocks.
//
// The grant/deny table, by current status and requested mode:
//
//	status           SHARED request              EXCLUSIVE request
//	idle             grant                        grant
//	singleShared     grant (-> multiShared)        grant iff tid is the sole holder (upgrade)
//	multiShared      grant                         deny
//	singleExclusive  grant iff tid is the holder    grant iff tid is the holder (re-entrant)
func (t *Table) TryAcquire(tid transaction.ID, pid storage.PageId, mode Mode) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.statusOf(pid)

	if mode == Shared {
		switch st {
		case idle, singleShared, multiShared:
			t.grant(tid, pid, Shared)
			return true
		default: // singleExclusive
			_, ok := t.byPage[pid][tid]
			return ok
		}
	}

	// Exclusive request.
	switch st {
	case idle:
		t.grant(tid, pid, Exclusive)
		return true
	case singleExclusive:
		_, ok := t.byPage[pid][tid]
		return ok
	case singleShared:
		if _, ok := t.byPage[pid][tid]; ok {
			t.grant(tid, pid, Exclusive)
			return true
		}
		return false
	default: // multiShared
		return false
	}
}

// Release drops tid's lock on pid, if any.
func (t *Table) Release(tid transaction.ID, pid storage.PageId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.release(tid, pid)
}

func (t *Table) release(tid transaction.ID, pid storage.PageId) {
	if holders, ok := t.byPage[pid]; ok {
		delete(holders, tid)
		if len(holders) == 0 {
			delete(t.byPage, pid)
		}
	}
	if pages, ok := t.byTxn[tid]; ok {
		delete(pages, pid)
		if len(pages) == 0 {
			delete(t.byTxn, tid)
		}
	}
}

// ReleaseAll drops every lock tid holds and returns the set of pages it
// had locked, so the caller can decide what to do with those pages (flush
// on commit, discard on abort).
func (t *Table) ReleaseAll(tid transaction.ID) []storage.PageId {
	t.mu.Lock()
	defer t.mu.Unlock()

	pages := t.byTxn[tid]
	held := make([]storage.PageId, 0, len(pages))
	for pid := range pages {
		held = append(held, pid)
	}
	for _, pid := range held {
		t.release(tid, pid)
	}
	return held
}

// Holds reports whether tid currently holds any lock on pid.
func (t *Table) Holds(tid transaction.ID, pid storage.PageId) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.byPage[pid][tid]
	return ok
}

// HoldersOf returns the transactions currently holding a lock on pid.
// Used by the wait-for graph's BFS; callers must not mutate the result.
func (t *Table) HoldersOf(pid storage.PageId) []transaction.ID {
	t.mu.Lock()
	defer t.mu.Unlock()
	holders := make([]transaction.ID, 0, len(t.byPage[pid]))
	for tid := range t.byPage[pid] {
		holders = append(holders, tid)
	}
	return holders
}
