package heap

import (
	"github.com/jvjhfhg/simpledb/pkg/concurrency/lock"
	"github.com/jvjhfhg/simpledb/pkg/concurrency/transaction"
	"github.com/jvjhfhg/simpledb/pkg/memory"
	"github.com/jvjhfhg/simpledb/pkg/primitives"
	"github.com/jvjhfhg/simpledb/pkg/storage"
	"github.com/jvjhfhg/simpledb/pkg/storageerr"
	"github.com/jvjhfhg/simpledb/pkg/tuple"
)

// Iterator performs a restartable sequential scan over every tuple in a
// heap file, page by page, slot by slot. Every page it touches is fetched
// through the buffer pool under tid's SHARED lock: a scan never reads a
// page's bytes directly off disk, so it always sees a consistent,
// lock-protected view of pages another transaction might concurrently be
// writing.
type Iterator struct {
	file *File
	tid  transaction.ID
	bp   *memory.BufferPool

	pageNo  int
	numPage int
	page    *Page
	slot    int

	opened bool
}

// NewIterator builds a scan over file on tid's behalf. Call Open before
// HasNext/Next.
func NewIterator(file *File, tid transaction.ID, bp *memory.BufferPool) *Iterator {
	return &Iterator{file: file, tid: tid, bp: bp}
}

// Open positions the iterator at the first tuple of the file.
func (it *Iterator) Open() error {
	numPages, err := it.file.NumPages()
	if err != nil {
		return err
	}
	it.numPage = int(numPages)
	it.pageNo = 0
	it.slot = 0
	it.page = nil
	it.opened = true
	return it.loadPage()
}

// loadPage fetches pageNo (if any pages remain) and positions slot at its
// first occupied entry, advancing across empty pages as needed.
func (it *Iterator) loadPage() error {
	for it.pageNo < it.numPage {
		pid := storage.NewPageId(it.file.tableID, primitives.PageNumber(it.pageNo))
		p, err := it.bp.GetPage(it.tid, pid, lock.Shared)
		if err != nil {
			return err
		}
		hp := p.(*Page)

		for it.slot < hp.NumSlots() {
			if hp.IsSlotUsed(it.slot) {
				it.page = hp
				return nil
			}
			it.slot++
		}

		it.pageNo++
		it.slot = 0
	}

	it.page = nil
	return nil
}

// HasNext reports whether another tuple remains.
func (it *Iterator) HasNext() (bool, error) {
	if !it.opened {
		return false, storageerr.NewPreconditionViolationError("heap.Iterator.HasNext", "iterator not opened")
	}
	return it.page != nil, nil
}

// Next returns the current tuple and advances past it.
func (it *Iterator) Next() (*tuple.Tuple, error) {
	if !it.opened {
		return nil, storageerr.NewPreconditionViolationError("heap.Iterator.Next", "iterator not opened")
	}
	if it.page == nil {
		return nil, storageerr.NewPreconditionViolationError("heap.Iterator.Next", "no more tuples")
	}

	t, err := it.page.GetTuple(it.slot)
	if err != nil {
		return nil, err
	}

	it.slot++
	if err := it.loadPage(); err != nil {
		return nil, err
	}
	return t, nil
}

// Rewind restarts the scan from the first tuple.
func (it *Iterator) Rewind() error {
	return it.Open()
}

// Close releases the iterator. The buffer pool locks it acquired are held
// until the owning transaction completes, per two-phase locking.
func (it *Iterator) Close() {
	it.opened = false
	it.page = nil
}
