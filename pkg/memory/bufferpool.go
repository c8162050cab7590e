package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/jvjhfhg/simpledb/pkg/concurrency/lock"
	"github.com/jvjhfhg/simpledb/pkg/concurrency/transaction"
	"github.com/jvjhfhg/simpledb/pkg/logging"
	"github.com/jvjhfhg/simpledb/pkg/primitives"
	"github.com/jvjhfhg/simpledb/pkg/storage"
	"github.com/jvjhfhg/simpledb/pkg/storageerr"
	"github.com/jvjhfhg/simpledb/pkg/tuple"
)

const (
	retryBase = time.Millisecond
	retryCap  = 50 * time.Millisecond
)

// retryDelay grows the wait between failed lock attempts, doubling each
// time up to retryCap.
func retryDelay(attempt int) time.Duration {
	d := retryBase << attempt
	if d > retryCap || d <= 0 {
		return retryCap
	}
	return d
}

// BufferPool caches a fixed number of pages in memory and enforces
// two-phase locking on every access. It runs NO-STEAL: a page dirtied by
// an uncommitted transaction is never written to disk, so eviction only
// ever considers clean pages, and commit must FORCE every dirty page to
// disk before returning.
type BufferPool struct {
	mu sync.Mutex

	capacity int
	pages    map[storage.PageId]Page
	lru      *lruIndex
	sources  map[primitives.TableID]AccessMethod

	// lockMu serializes the grant/deny decision against the wait-for
	// graph: TryAcquire, HasCycle, and AddWait/RemoveWait for a given
	// request must be seen as one atomic step, or two transactions racing
	// the same page could each observe "no cycle yet" and both proceed to
	// wait, masking a deadlock neither one detects.
	lockMu sync.Mutex
	locks  *lock.Table
	waits  *lock.WaitForGraph
}

// New creates a buffer pool that holds at most capacity pages at once.
func New(capacity int) *BufferPool {
	return &BufferPool{
		capacity: capacity,
		pages:    make(map[storage.PageId]Page),
		lru:      newLRUIndex(),
		sources:  make(map[primitives.TableID]AccessMethod),
		locks:    lock.NewTable(),
		waits:    lock.NewWaitForGraph(),
	}
}

// RegisterSource tells the pool how to read and write the pages of
// tableID on a cache miss or flush. A heap file registers itself here
// when opened.
func (bp *BufferPool) RegisterSource(tableID primitives.TableID, src AccessMethod) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.sources[tableID] = src
}

// GetPage returns the page identified by pid, acquiring the requested
// lock on behalf of tid first. It blocks, retrying the lock request, until
// the lock is granted or the wait-for graph finds that granting it would
// deadlock, in which case tid is the victim and GetPage returns a
// TransactionAbortedError.
func (bp *BufferPool) GetPage(tid transaction.ID, pid storage.PageId, mode lock.Mode) (Page, error) {
	if err := bp.acquireLock(tid, pid, mode); err != nil {
		return nil, err
	}

	bp.mu.Lock()
	if p, ok := bp.pages[pid]; ok {
		bp.lru.touch(pid)
		bp.mu.Unlock()
		return p, nil
	}
	src, ok := bp.sources[pid.TableID]
	bp.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no registered page source for table %d", pid.TableID)
	}

	// Disk I/O happens outside bp.mu: pid's lock already serializes this
	// read against writers of the same page, and holding bp.mu across it
	// would block every other page in the pool on one disk read.
	p, err := src.ReadPage(pid)
	if err != nil {
		return nil, storageerr.NewIOError("read", pid.String(), err)
	}

	bp.mu.Lock()
	defer bp.mu.Unlock()
	if existing, ok := bp.pages[pid]; ok {
		bp.lru.touch(pid)
		return existing, nil
	}
	if err := bp.cacheLocked(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (bp *BufferPool) acquireLock(tid transaction.ID, pid storage.PageId, mode lock.Mode) error {
	for attempt := 0; ; attempt++ {
		granted, abort := bp.tryGrantOrRegisterWait(tid, pid, mode)
		if granted {
			return nil
		}
		if abort {
			logging.WithLock(tid.String(), pid.String()).Warn("aborting transaction to break deadlock")
			return storageerr.NewTransactionAbortedError(tid.String(), pid.String())
		}
		time.Sleep(retryDelay(attempt))
	}
}

// tryGrantOrRegisterWait performs the grant/deny decision and the
// wait-for-graph update as a single atomic step: either the lock is
// granted (and any pending-wait edge for it cleared), or the request
// would deadlock (and tid should abort), or it is recorded as a new
// pending edge so a later cycle check can see it.
func (bp *BufferPool) tryGrantOrRegisterWait(tid transaction.ID, pid storage.PageId, mode lock.Mode) (granted, abort bool) {
	bp.lockMu.Lock()
	defer bp.lockMu.Unlock()

	if bp.locks.TryAcquire(tid, pid, mode) {
		bp.waits.RemoveWait(tid, pid)
		return true, false
	}

	if bp.waits.HasCycle(tid, pid, bp.locks) {
		bp.waits.Forget(tid)
		return false, true
	}

	bp.waits.AddWait(tid, pid)
	return false, false
}

// cacheLocked inserts p into the pool, evicting a clean page first if the
// pool is already at capacity. Callers must hold bp.mu.
func (bp *BufferPool) cacheLocked(p Page) error {
	if _, ok := bp.pages[p.ID()]; !ok && len(bp.pages) >= bp.capacity {
		if err := bp.evictLocked(); err != nil {
			return err
		}
	}
	bp.pages[p.ID()] = p
	bp.lru.touch(p.ID())
	return nil
}

// evictLocked discards the least recently used clean page. Dirty pages
// are never written out here: NO-STEAL means a page written by an
// uncommitted transaction must stay in memory until that transaction
// commits or aborts.
func (bp *BufferPool) evictLocked() error {
	dirty := 0
	for _, pid := range bp.lru.oldestFirst() {
		page := bp.pages[pid]
		if _, isDirty := page.Dirty(); isDirty {
			dirty++
			continue
		}
		delete(bp.pages, pid)
		bp.lru.remove(pid)
		return nil
	}
	return storageerr.NewCapacityExhaustedError(bp.capacity, dirty)
}

// ReleasePage releases tid's lock on pid without ending the transaction.
// Rarely correct to call directly; prefer TransactionComplete.
func (bp *BufferPool) ReleasePage(tid transaction.ID, pid storage.PageId) {
	bp.locks.Release(tid, pid)
}

// IsCached reports whether pid currently has a resident entry in the pool.
func (bp *BufferPool) IsCached(pid storage.PageId) bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	_, ok := bp.pages[pid]
	return ok
}

// HoldsLock reports whether tid currently holds a lock on pid.
func (bp *BufferPool) HoldsLock(tid transaction.ID, pid storage.PageId) bool {
	return bp.locks.Holds(tid, pid)
}

// InsertTuple delegates to tableID's access method, then marks every page
// the insert touched dirty with tid and re-asserts it into the cache.
func (bp *BufferPool) InsertTuple(tid transaction.ID, tableID primitives.TableID, t *tuple.Tuple) ([]Page, error) {
	bp.mu.Lock()
	src, ok := bp.sources[tableID]
	bp.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no registered access method for table %d", tableID)
	}

	modified, err := src.InsertTuple(tid, t)
	if err != nil {
		return nil, err
	}
	return bp.reassertDirty(tid, modified)
}

// DeleteTuple delegates to t's table's access method, then marks the page
// it modified dirty with tid and re-asserts it into the cache.
func (bp *BufferPool) DeleteTuple(tid transaction.ID, tableID primitives.TableID, t *tuple.Tuple) ([]Page, error) {
	bp.mu.Lock()
	src, ok := bp.sources[tableID]
	bp.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no registered access method for table %d", tableID)
	}

	modified, err := src.DeleteTuple(tid, t)
	if err != nil {
		return nil, err
	}
	return bp.reassertDirty(tid, modified)
}

func (bp *BufferPool) reassertDirty(tid transaction.ID, pages []Page) ([]Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	for _, p := range pages {
		p.MarkDirty(true, tid)
		if err := bp.cacheLocked(p); err != nil {
			return nil, err
		}
	}
	return pages, nil
}

// TransactionComplete ends tid, committing or aborting it, and releases
// every lock it held.
//
// On commit, every dirty page tid touched is flushed to disk before this
// method returns (FORCE). On abort, every dirty page tid touched is
// dropped from the cache without being written, so its on-disk image
// (and any in-memory copy another transaction might read next) reflects
// only committed data (NO-STEAL's complement: uncommitted writes never
// escape to disk, so there is nothing to undo).
func (bp *BufferPool) TransactionComplete(tid transaction.ID, commit bool) error {
	bp.mu.Lock()
	held := make([]storage.PageId, 0)
	for pid, p := range bp.pages {
		if dirtyTid, isDirty := p.Dirty(); isDirty && dirtyTid.Equals(tid) {
			held = append(held, pid)
		}
	}
	bp.mu.Unlock()

	if commit {
		for _, pid := range held {
			if err := bp.flushPage(pid); err != nil {
				return err
			}
		}
	} else {
		bp.mu.Lock()
		for _, pid := range held {
			delete(bp.pages, pid)
			bp.lru.remove(pid)
		}
		bp.mu.Unlock()
	}

	bp.waits.Forget(tid)
	bp.locks.ReleaseAll(tid)
	return nil
}

// FlushAllPages writes every dirty page to disk. Breaks NO-STEAL if called
// mid-transaction; intended for orderly shutdown only.
func (bp *BufferPool) FlushAllPages() error {
	bp.mu.Lock()
	pids := make([]storage.PageId, 0, len(bp.pages))
	for pid := range bp.pages {
		pids = append(pids, pid)
	}
	bp.mu.Unlock()

	for _, pid := range pids {
		if err := bp.flushPage(pid); err != nil {
			return err
		}
	}
	return nil
}

// DiscardPage flushes pid if dirty, then unconditionally removes it from
// the cache. Used by an access method when a page it just brought into
// the pool becomes ineligible for reuse, so a later GetPage re-reads it
// from disk rather than trusting a pool entry tied to a failed operation.
func (bp *BufferPool) DiscardPage(pid storage.PageId) error {
	err := bp.flushPage(pid)

	bp.mu.Lock()
	delete(bp.pages, pid)
	bp.lru.remove(pid)
	bp.mu.Unlock()

	return err
}

func (bp *BufferPool) flushPage(pid storage.PageId) error {
	bp.mu.Lock()
	page, ok := bp.pages[pid]
	bp.mu.Unlock()
	if !ok {
		return nil
	}

	if _, isDirty := page.Dirty(); !isDirty {
		return nil
	}

	bp.mu.Lock()
	src, ok := bp.sources[pid.TableID]
	bp.mu.Unlock()
	if !ok {
		return fmt.Errorf("no registered page source for table %d", pid.TableID)
	}

	if err := src.WritePage(page); err != nil {
		return storageerr.NewIOError("write", pid.String(), err)
	}
	page.MarkDirty(false, transaction.ID{})
	return nil
}
