package lock

import (
	"sync"

	"github.com/jvjhfhg/simpledb/pkg/concurrency/transaction"
	"github.com/jvjhfhg/simpledb/pkg/storage"
)

// WaitForGraph records which pages each transaction is currently blocked
// waiting to lock. It answers one question — would granting tid's request
// for pid complete a cycle? — via a bipartite breadth-first search that
// alternates between page nodes (expanded to their current holders via the
// lock Table) and transaction nodes (expanded to their own pending pages).
type WaitForGraph struct {
	mu      sync.Mutex
	pending map[transaction.ID]map[storage.PageId]struct{}
}

// NewWaitForGraph creates an empty graph.
func NewWaitForGraph() *WaitForGraph {
	return &WaitForGraph{pending: make(map[transaction.ID]map[storage.PageId]struct{})}
}

// AddWait records that tid is now blocked waiting for pid.
func (g *WaitForGraph) AddWait(tid transaction.ID, pid storage.PageId) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending[tid] == nil {
		g.pending[tid] = make(map[storage.PageId]struct{})
	}
	g.pending[tid][pid] = struct{}{}
}

// RemoveWait clears a previously recorded wait, typically once the lock
// has actually been granted.
func (g *WaitForGraph) RemoveWait(tid transaction.ID, pid storage.PageId) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if pages, ok := g.pending[tid]; ok {
		delete(pages, pid)
		if len(pages) == 0 {
			delete(g.pending, tid)
		}
	}
}

// Forget drops every wait recorded for tid, called once a transaction
// commits, aborts, or is itself chosen as a deadlock victim.
func (g *WaitForGraph) Forget(tid transaction.ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.pending, tid)
}

// HasCycle reports whether granting tid a lock on pid would close a cycle
// in the wait-for graph, i.e. whether tid is reachable from pid by
// alternately following "page -> current holders" edges (from table) and
// "transaction -> pages it awaits" edges (from this graph). A positive
// result means some holder of pid (transitively) is itself blocked waiting
// on a page tid already holds, so granting the new wait would deadlock.
func (g *WaitForGraph) HasCycle(tid transaction.ID, pid storage.PageId, table *Table) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	visitedPages := map[storage.PageId]struct{}{pid: {}}
	visitedTxns := map[transaction.ID]struct{}{}
	queue := []storage.PageId{pid}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, holder := range table.HoldersOf(current) {
			if holder.Equals(tid) {
				return true
			}
			if _, seen := visitedTxns[holder]; seen {
				continue
			}
			visitedTxns[holder] = struct{}{}

			for awaited := range g.pending[holder] {
				if _, seen := visitedPages[awaited]; seen {
					continue
				}
				visitedPages[awaited] = struct{}{}
				queue = append(queue, awaited)
			}
		}
	}

	return false
}
