package heap

import (
	"fmt"

	"github.com/jvjhfhg/simpledb/pkg/concurrency/lock"
	"github.com/jvjhfhg/simpledb/pkg/concurrency/transaction"
	"github.com/jvjhfhg/simpledb/pkg/config"
	"github.com/jvjhfhg/simpledb/pkg/memory"
	"github.com/jvjhfhg/simpledb/pkg/primitives"
	"github.com/jvjhfhg/simpledb/pkg/storage"
	"github.com/jvjhfhg/simpledb/pkg/tuple"
)

// File is a heap file: an unordered sequence of fixed-size pages, each
// laid out per Page, that the buffer pool mediates every access to. File
// implements memory.AccessMethod and registers itself with a BufferPool
// at construction time.
type File struct {
	store   *storage.PageStore
	tableID primitives.TableID
	desc    *tuple.TupleDescription
	bp      *memory.BufferPool
}

// Open opens (creating if necessary) the heap file backing path and
// registers it with bp so the pool can route reads, writes, inserts, and
// deletes for this table's pages through it.
func Open(path primitives.Filepath, desc *tuple.TupleDescription, bp *memory.BufferPool) (*File, error) {
	store, err := storage.OpenPageStore(path)
	if err != nil {
		return nil, err
	}

	f := &File{
		store:   store,
		tableID: primitives.NewTableIDFromFileID(store.FileID()),
		desc:    desc,
		bp:      bp,
	}
	bp.RegisterSource(f.tableID, f)
	return f, nil
}

// TableID returns the table identifier this file's pages are keyed under.
func (f *File) TableID() primitives.TableID {
	return f.tableID
}

// TupleDesc returns the schema of tuples stored in this file.
func (f *File) TupleDesc() *tuple.TupleDescription {
	return f.desc
}

// NumPages returns how many pages this file currently holds.
func (f *File) NumPages() (primitives.PageNumber, error) {
	return f.store.NumPages()
}

// ReadPage implements memory.PageSource.
func (f *File) ReadPage(pid storage.PageId) (memory.Page, error) {
	data, err := f.store.ReadPage(pid.PageNumber)
	if err != nil {
		return nil, err
	}
	return ParsePage(pid, f.desc, config.PageSize(), data)
}

// WritePage implements memory.PageSource.
func (f *File) WritePage(p memory.Page) error {
	hp, ok := p.(*Page)
	if !ok {
		return fmt.Errorf("heap file received non-heap page %T", p)
	}
	return f.store.WritePage(hp.id.PageNumber, hp.PageData())
}

// InsertTuple implements memory.AccessMethod. It scans existing pages for
// a free slot, acquiring each EXCLUSIVE via the buffer pool; if none has
// room, it extends the file by one page, writing an empty page directly
// through the PageStore (the append itself takes no page lock), then
// acquires that page EXCLUSIVE via the buffer pool and inserts there.
func (f *File) InsertTuple(tid transaction.ID, t *tuple.Tuple) ([]memory.Page, error) {
	numPages, err := f.store.NumPages()
	if err != nil {
		return nil, err
	}

	for pageNo := primitives.PageNumber(0); pageNo < numPages; pageNo++ {
		pid := storage.NewPageId(f.tableID, pageNo)
		page, err := f.bp.GetPage(tid, pid, lock.Exclusive)
		if err != nil {
			return nil, err
		}

		hp := page.(*Page)
		if hp.EmptySlots() > 0 {
			if _, err := hp.InsertTuple(t); err != nil {
				return nil, err
			}
			return []memory.Page{hp}, nil
		}
	}

	newPageNo, err := f.store.AllocateNewPage()
	if err != nil {
		return nil, err
	}
	empty := NewEmptyPage(storage.NewPageId(f.tableID, newPageNo), f.desc, config.PageSize())
	if err := f.store.WritePage(newPageNo, empty.PageData()); err != nil {
		return nil, err
	}

	pid := storage.NewPageId(f.tableID, newPageNo)
	page, err := f.bp.GetPage(tid, pid, lock.Exclusive)
	if err != nil {
		return nil, err
	}
	hp := page.(*Page)
	if _, err := hp.InsertTuple(t); err != nil {
		// A page we just allocated and cached cannot hold the tuple it
		// was allocated for (t.desc's slot width exceeds what this page
		// size can hold at all, so every future page would fail the
		// same way). It is ineligible for reuse: discard it from the
		// pool rather than leave a cache entry no insert can ever use.
		_ = f.bp.DiscardPage(pid)
		return nil, err
	}
	return []memory.Page{hp}, nil
}

// DeleteTuple implements memory.AccessMethod.
func (f *File) DeleteTuple(tid transaction.ID, t *tuple.Tuple) ([]memory.Page, error) {
	if t.RecordID == nil {
		return nil, fmt.Errorf("cannot delete tuple with no record id")
	}

	page, err := f.bp.GetPage(tid, t.RecordID.PageID, lock.Exclusive)
	if err != nil {
		return nil, err
	}

	hp := page.(*Page)
	if err := hp.DeleteTuple(t.RecordID.SlotNum); err != nil {
		return nil, err
	}
	return []memory.Page{hp}, nil
}
