package heap

import (
	"path/filepath"
	"testing"

	"github.com/jvjhfhg/simpledb/pkg/concurrency/lock"
	"github.com/jvjhfhg/simpledb/pkg/concurrency/transaction"
	"github.com/jvjhfhg/simpledb/pkg/config"
	"github.com/jvjhfhg/simpledb/pkg/memory"
	"github.com/jvjhfhg/simpledb/pkg/primitives"
	"github.com/jvjhfhg/simpledb/pkg/storage"
	"github.com/jvjhfhg/simpledb/pkg/tuple"
	"github.com/jvjhfhg/simpledb/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFile(t *testing.T) (*File, *memory.BufferPool) {
	dir := t.TempDir()
	desc := mustDesc(t)
	bp := memory.New(50)
	file, err := Open(primitives.Filepath(filepath.Join(dir, "test.heap")), desc, bp)
	require.NoError(t, err)
	return file, bp
}

func insertRow(t *testing.T, bp *memory.BufferPool, file *File, tid transaction.ID, id int64, name string) *tuple.Tuple {
	tup := tuple.NewTuple(file.TupleDesc())
	require.NoError(t, tup.SetField(0, types.NewIntField(id)))
	require.NoError(t, tup.SetField(1, types.NewStringField(name)))
	_, err := bp.InsertTuple(tid, file.TableID(), tup)
	require.NoError(t, err)
	return tup
}

func TestFile_InsertGrowsFileWhenFull(t *testing.T) {
	file, bp := newTestFile(t)
	tid := transaction.Begin()

	slotsPerPage := numSlotsForPage(4096, int(file.TupleDesc().GetSize()))
	for i := 0; i < slotsPerPage+1; i++ {
		insertRow(t, bp, file, tid, int64(i), "row")
	}
	require.NoError(t, bp.TransactionComplete(tid, true))

	numPages, err := file.NumPages()
	require.NoError(t, err)
	assert.Equal(t, primitives.PageNumber(2), numPages)
}

func TestFile_InsertDiscardsFreshPageThatCannotHoldTuple(t *testing.T) {
	config.SetPageSize(4)
	defer config.ResetPageSize()

	file, bp := newTestFile(t)
	tid := transaction.Begin()

	tup := tuple.NewTuple(file.TupleDesc())
	require.NoError(t, tup.SetField(0, types.NewIntField(1)))
	require.NoError(t, tup.SetField(1, types.NewStringField("x")))

	_, err := bp.InsertTuple(tid, file.TableID(), tup)
	require.Error(t, err)
	require.NoError(t, bp.TransactionComplete(tid, false))

	pid := storage.NewPageId(file.TableID(), 0)
	assert.False(t, bp.IsCached(pid), "the unusable freshly-allocated page must not remain cached")
}

func TestFile_InsertAndReadBack(t *testing.T) {
	file, bp := newTestFile(t)
	tid := transaction.Begin()

	insertRow(t, bp, file, tid, 1, "alice")
	insertRow(t, bp, file, tid, 2, "bob")
	require.NoError(t, bp.TransactionComplete(tid, true))

	numPages, err := file.NumPages()
	require.NoError(t, err)
	assert.Equal(t, primitives.PageNumber(1), numPages)

	readTid := transaction.Begin()
	it := NewIterator(file, readTid, bp)
	require.NoError(t, it.Open())

	seen := map[int64]string{}
	for {
		has, err := it.HasNext()
		require.NoError(t, err)
		if !has {
			break
		}
		tup, err := it.Next()
		require.NoError(t, err)
		idField, _ := tup.GetField(0)
		nameField, _ := tup.GetField(1)
		seen[idField.(*types.IntField).Value] = nameField.(*types.StringField).Value
	}
	it.Close()
	require.NoError(t, bp.TransactionComplete(readTid, true))

	assert.Equal(t, map[int64]string{1: "alice", 2: "bob"}, seen)
}

func TestFile_DeleteTupleRemovesIt(t *testing.T) {
	file, bp := newTestFile(t)
	tid := transaction.Begin()

	tup := insertRow(t, bp, file, tid, 5, "carol")
	require.NoError(t, bp.TransactionComplete(tid, true))

	deleteTid := transaction.Begin()
	_, err := bp.DeleteTuple(deleteTid, file.TableID(), tup)
	require.NoError(t, err)
	require.NoError(t, bp.TransactionComplete(deleteTid, true))

	readTid := transaction.Begin()
	pid := tup.RecordID.PageID
	page, err := bp.GetPage(readTid, pid, lock.Shared)
	require.NoError(t, err)
	hp := page.(*Page)
	assert.False(t, hp.IsSlotUsed(tup.RecordID.SlotNum))
	require.NoError(t, bp.TransactionComplete(readTid, true))
}

func TestFile_InsertReusesFreedSlot(t *testing.T) {
	file, bp := newTestFile(t)
	tid := transaction.Begin()

	tup := insertRow(t, bp, file, tid, 1, "x")
	require.NoError(t, bp.TransactionComplete(tid, true))

	delTid := transaction.Begin()
	_, err := bp.DeleteTuple(delTid, file.TableID(), tup)
	require.NoError(t, err)
	require.NoError(t, bp.TransactionComplete(delTid, true))

	insTid := transaction.Begin()
	insertRow(t, bp, file, insTid, 2, "y")
	require.NoError(t, bp.TransactionComplete(insTid, true))

	numPages, err := file.NumPages()
	require.NoError(t, err)
	assert.Equal(t, primitives.PageNumber(1), numPages)
}
