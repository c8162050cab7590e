package memory

import (
	"container/list"

	"github.com/jvjhfhg/simpledb/pkg/storage"
)

// lruIndex tracks page access order so the buffer pool can find the least
// recently used page when it needs to evict. It only orders pages; it has
// no opinion about which ones are dirty.
type lruIndex struct {
	order *list.List // front = most recently used
	elems map[storage.PageId]*list.Element
}

func newLRUIndex() *lruIndex {
	return &lruIndex{
		order: list.New(),
		elems: make(map[storage.PageId]*list.Element),
	}
}

// touch marks pid as just accessed, inserting it if new.
func (l *lruIndex) touch(pid storage.PageId) {
	if el, ok := l.elems[pid]; ok {
		l.order.MoveToFront(el)
		return
	}
	l.elems[pid] = l.order.PushFront(pid)
}

// remove drops pid from the index entirely.
func (l *lruIndex) remove(pid storage.PageId) {
	if el, ok := l.elems[pid]; ok {
		l.order.Remove(el)
		delete(l.elems, pid)
	}
}

// oldestFirst returns every tracked page ID ordered from least to most
// recently used, for the eviction walk that skips dirty pages.
func (l *lruIndex) oldestFirst() []storage.PageId {
	ids := make([]storage.PageId, 0, l.order.Len())
	for el := l.order.Back(); el != nil; el = el.Prev() {
		ids = append(ids, el.Value.(storage.PageId))
	}
	return ids
}

func (l *lruIndex) len() int {
	return l.order.Len()
}
