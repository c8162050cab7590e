// Package storage is the root of the storage engine's disk layer.
//
// Data is organised into fixed-size pages, by default 4 KiB, that are read
// and written as atomic units through PageStore. PageId names a page by
// table and offset as a plain comparable value, so it can serve directly as
// a map key in the buffer pool, lock table, and wait-for graph.
//
// # Sub-packages
//
//   - [github.com/jvjhfhg/simpledb/pkg/storage/heap] – Heap file: an
//     unordered collection of pages storing fixed-size tuple slots behind a
//     bitmap occupancy header. Supports insert, delete-by-record-id, and a
//     restartable sequential scan.
//
// Index-structured access methods and write-ahead logging are out of scope
// for this package; see the design ledger for the rationale.
package storage
