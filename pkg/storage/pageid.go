package storage

import (
	"fmt"

	"github.com/jvjhfhg/simpledb/pkg/primitives"
)

// PageId names a page by the table it belongs to and its zero-based offset
// within that table's heap file. Unlike the pointer-identity PageDescriptor
// it replaces, PageId is a plain comparable value: two PageId values with
// equal fields are the same page, regardless of which call produced them,
// so PageId can be used directly as a map key in the buffer pool, lock
// table, and wait-for graph.
type PageId struct {
	TableID    primitives.TableID
	PageNumber primitives.PageNumber
}

// NewPageId constructs a PageId for the given table and page number.
func NewPageId(tableID primitives.TableID, pageNumber primitives.PageNumber) PageId {
	return PageId{TableID: tableID, PageNumber: pageNumber}
}

// String returns a human-readable rendering, suitable for log fields and
// error messages.
func (p PageId) String() string {
	return fmt.Sprintf("PageId(table=%d, page=%d)", p.TableID, p.PageNumber)
}
