package memory

import (
	"fmt"
	"testing"
	"time"

	"github.com/jvjhfhg/simpledb/pkg/concurrency/lock"
	"github.com/jvjhfhg/simpledb/pkg/concurrency/transaction"
	"github.com/jvjhfhg/simpledb/pkg/primitives"
	"github.com/jvjhfhg/simpledb/pkg/storage"
	"github.com/jvjhfhg/simpledb/pkg/storageerr"
	"github.com/jvjhfhg/simpledb/pkg/tuple"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePage is a minimal Page implementation backed by an in-memory byte
// slice, used to exercise the buffer pool without a real heap file.
type fakePage struct {
	id      storage.PageId
	data    []byte
	dirty   bool
	dirtyBy transaction.ID
}

func (p *fakePage) ID() storage.PageId {
	return p.id
}

func (p *fakePage) Dirty() (transaction.ID, bool) {
	return p.dirtyBy, p.dirty
}

func (p *fakePage) MarkDirty(dirty bool, tid transaction.ID) {
	p.dirty = dirty
	if dirty {
		p.dirtyBy = tid
	}
}

func (p *fakePage) PageData() []byte {
	return p.data
}

// fakeSource is an AccessMethod over a fixed number of preallocated
// fakePages; InsertTuple/DeleteTuple are no-ops that just report the
// first page as modified, which is all the buffer pool tests need.
type fakeSource struct {
	tableID primitives.TableID
	pages   map[storage.PageId]*fakePage
	reads   int
	writes  int
}

func newFakeSource(tableID primitives.TableID, numPages int) *fakeSource {
	s := &fakeSource{tableID: tableID, pages: make(map[storage.PageId]*fakePage)}
	for i := 0; i < numPages; i++ {
		pid := storage.NewPageId(tableID, primitives.PageNumber(i))
		s.pages[pid] = &fakePage{id: pid, data: []byte(fmt.Sprintf("page-%d", i))}
	}
	return s
}

func (s *fakeSource) ReadPage(pid storage.PageId) (Page, error) {
	s.reads++
	p, ok := s.pages[pid]
	if !ok {
		return nil, fmt.Errorf("no such page %s", pid)
	}
	return p, nil
}

func (s *fakeSource) WritePage(p Page) error {
	s.writes++
	return nil
}

func (s *fakeSource) InsertTuple(tid transaction.ID, t *tuple.Tuple) ([]Page, error) {
	for _, p := range s.pages {
		return []Page{p}, nil
	}
	return nil, fmt.Errorf("no pages")
}

func (s *fakeSource) DeleteTuple(tid transaction.ID, t *tuple.Tuple) ([]Page, error) {
	return s.InsertTuple(tid, t)
}

func TestBufferPool_GetPageCachesOnMiss(t *testing.T) {
	bp := New(10)
	src := newFakeSource(1, 3)
	bp.RegisterSource(1, src)

	tid := transaction.Begin()
	pid := storage.NewPageId(1, 0)

	p1, err := bp.GetPage(tid, pid, lock.Shared)
	require.NoError(t, err)
	p2, err := bp.GetPage(tid, pid, lock.Shared)
	require.NoError(t, err)

	assert.Same(t, p1, p2)
	assert.Equal(t, 1, src.reads)
}

func TestBufferPool_SharedLocksDoNotBlockEachOther(t *testing.T) {
	bp := New(10)
	src := newFakeSource(1, 1)
	bp.RegisterSource(1, src)

	t1, t2 := transaction.Begin(), transaction.Begin()
	pid := storage.NewPageId(1, 0)

	_, err := bp.GetPage(t1, pid, lock.Shared)
	require.NoError(t, err)
	_, err = bp.GetPage(t2, pid, lock.Shared)
	require.NoError(t, err)

	assert.True(t, bp.HoldsLock(t1, pid))
	assert.True(t, bp.HoldsLock(t2, pid))
}

func TestBufferPool_EvictsCleanPageWhenFull(t *testing.T) {
	bp := New(2)
	src := newFakeSource(1, 3)
	bp.RegisterSource(1, src)
	tid := transaction.Begin()

	p0 := storage.NewPageId(1, 0)
	p1 := storage.NewPageId(1, 1)
	p2 := storage.NewPageId(1, 2)

	_, err := bp.GetPage(tid, p0, lock.Shared)
	require.NoError(t, err)
	_, err = bp.GetPage(tid, p1, lock.Shared)
	require.NoError(t, err)

	// Both p0 and p1 are cached; fetching p2 must evict one (p0, the
	// least recently touched) since the pool's capacity is 2.
	_, err = bp.GetPage(tid, p2, lock.Shared)
	require.NoError(t, err)

	assert.Equal(t, 2, bp.lru.len())
}

func TestBufferPool_EvictionSkipsDirtyPages(t *testing.T) {
	bp := New(1)
	src := newFakeSource(1, 2)
	bp.RegisterSource(1, src)
	tid := transaction.Begin()

	p0 := storage.NewPageId(1, 0)
	page, err := bp.GetPage(tid, p0, lock.Exclusive)
	require.NoError(t, err)
	page.MarkDirty(true, tid)

	p1 := storage.NewPageId(1, 1)
	_, err = bp.GetPage(tid, p1, lock.Exclusive)
	require.Error(t, err)
	assert.ErrorIs(t, err, storageerr.ErrCapacityExhausted)
}

func TestBufferPool_AbortDiscardsDirtyPagesWithoutFlush(t *testing.T) {
	bp := New(10)
	src := newFakeSource(1, 1)
	bp.RegisterSource(1, src)
	tid := transaction.Begin()

	pid := storage.NewPageId(1, 0)
	page, err := bp.GetPage(tid, pid, lock.Exclusive)
	require.NoError(t, err)
	page.MarkDirty(true, tid)

	require.NoError(t, bp.TransactionComplete(tid, false))

	assert.False(t, bp.HoldsLock(tid, pid))
	_, ok := bp.pages[pid]
	assert.False(t, ok)
}

func TestBufferPool_CommitFlushesDirtyPages(t *testing.T) {
	bp := New(10)
	src := newFakeSource(1, 1)
	bp.RegisterSource(1, src)
	tid := transaction.Begin()

	pid := storage.NewPageId(1, 0)
	page, err := bp.GetPage(tid, pid, lock.Exclusive)
	require.NoError(t, err)
	page.MarkDirty(true, tid)

	require.NoError(t, bp.TransactionComplete(tid, true))

	_, dirty := page.Dirty()
	assert.False(t, dirty)
	assert.False(t, bp.HoldsLock(tid, pid))
}

func TestBufferPool_DiscardPageFlushesDirtyPageThenRemoves(t *testing.T) {
	bp := New(10)
	src := newFakeSource(1, 1)
	bp.RegisterSource(1, src)
	tid := transaction.Begin()

	pid := storage.NewPageId(1, 0)
	page, err := bp.GetPage(tid, pid, lock.Exclusive)
	require.NoError(t, err)
	page.MarkDirty(true, tid)

	require.NoError(t, bp.DiscardPage(pid))

	assert.Equal(t, 1, src.writes)
	_, ok := bp.pages[pid]
	assert.False(t, ok)
}

func TestBufferPool_DiscardPageOnCleanPageSkipsFlush(t *testing.T) {
	bp := New(10)
	src := newFakeSource(1, 1)
	bp.RegisterSource(1, src)
	tid := transaction.Begin()

	pid := storage.NewPageId(1, 0)
	_, err := bp.GetPage(tid, pid, lock.Shared)
	require.NoError(t, err)

	require.NoError(t, bp.DiscardPage(pid))

	assert.Equal(t, 0, src.writes)
	_, ok := bp.pages[pid]
	assert.False(t, ok)
}

// blockingSource wraps a fakeSource, stalling ReadPage for one chosen
// page until released, so tests can prove an unrelated page's GetPage
// isn't serialized behind it.
type blockingSource struct {
	*fakeSource
	stallOn storage.PageId
	entered chan struct{}
	release chan struct{}
}

func (s *blockingSource) ReadPage(pid storage.PageId) (Page, error) {
	if pid == s.stallOn {
		close(s.entered)
		<-s.release
	}
	return s.fakeSource.ReadPage(pid)
}

func TestBufferPool_GetPageDoesNotHoldPoolLockDuringRead(t *testing.T) {
	bp := New(10)
	p0 := storage.NewPageId(1, 0)
	p1 := storage.NewPageId(1, 1)
	src := &blockingSource{
		fakeSource: newFakeSource(1, 2),
		stallOn:    p0,
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	bp.RegisterSource(1, src)
	tid := transaction.Begin()

	done := make(chan struct{})
	go func() {
		_, err := bp.GetPage(tid, p0, lock.Shared)
		assert.NoError(t, err)
		close(done)
	}()

	<-src.entered // first call is now blocked inside ReadPage(p0)

	// A concurrent fetch of an unrelated page must not wait on the
	// stalled read: if GetPage still held bp.mu across src.ReadPage,
	// this would block until release is closed below.
	unrelatedDone := make(chan struct{})
	go func() {
		_, err := bp.GetPage(tid, p1, lock.Shared)
		assert.NoError(t, err)
		close(unrelatedDone)
	}()

	select {
	case <-unrelatedDone:
	case <-time.After(time.Second):
		t.Fatal("GetPage on an unrelated page blocked behind another page's disk read")
	}

	close(src.release)
	<-done
}

func TestBufferPool_InsertTupleMarksPageDirty(t *testing.T) {
	bp := New(10)
	src := newFakeSource(1, 1)
	bp.RegisterSource(1, src)
	tid := transaction.Begin()

	modified, err := bp.InsertTuple(tid, 1, nil)
	require.NoError(t, err)
	require.Len(t, modified, 1)
	_, dirty := modified[0].Dirty()
	assert.True(t, dirty)
}
