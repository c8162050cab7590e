// Package memory implements the fixed-capacity buffer pool: page caching
// with NO-STEAL/FORCE discipline, LRU eviction that skips dirty pages, and
// the two-phase locking protocol that gates every page access.
package memory

import (
	"github.com/jvjhfhg/simpledb/pkg/concurrency/transaction"
	"github.com/jvjhfhg/simpledb/pkg/storage"
	"github.com/jvjhfhg/simpledb/pkg/tuple"
)

// Page is a page resident in the buffer pool. Access methods (heap files,
// and in principle index files) supply their own concrete implementation;
// the buffer pool only needs to cache, dirty-track, and serialize them.
type Page interface {
	ID() storage.PageId

	// Dirty reports the transaction that last wrote this page, if any.
	Dirty() (transaction.ID, bool)

	// MarkDirty sets or clears this page's dirty bit.
	MarkDirty(dirty bool, tid transaction.ID)

	// PageData returns this page's on-disk byte representation.
	PageData() []byte
}

// PageSource reads and writes the pages of a single table's backing file.
// A heap file is the PageSource for its own pages; the buffer pool calls
// into it only on a cache miss or a flush, never bypassing the cache for a
// page it already holds.
type PageSource interface {
	ReadPage(pid storage.PageId) (Page, error)
	WritePage(p Page) error
}

// AccessMethod is a PageSource that also knows how to insert and delete
// tuples within its own pages. The buffer pool's InsertTuple/DeleteTuple
// delegate to it, then mark every page it reports modified as dirty and
// re-assert that page into the cache, exactly as if it had just been
// fetched via GetPage.
type AccessMethod interface {
	PageSource

	// InsertTuple finds or creates room for t and returns every page the
	// insert touched.
	InsertTuple(tid transaction.ID, t *tuple.Tuple) ([]Page, error)

	// DeleteTuple removes the tuple named by t.RecordID and returns the
	// one page it modified.
	DeleteTuple(tid transaction.ID, t *tuple.Tuple) ([]Page, error)
}
