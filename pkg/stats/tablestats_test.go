package stats

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jvjhfhg/simpledb/pkg/concurrency/transaction"
	"github.com/jvjhfhg/simpledb/pkg/memory"
	"github.com/jvjhfhg/simpledb/pkg/primitives"
	"github.com/jvjhfhg/simpledb/pkg/storage/heap"
	"github.com/jvjhfhg/simpledb/pkg/tuple"
	"github.com/jvjhfhg/simpledb/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestTable(t *testing.T, rows int) (*heap.File, *memory.BufferPool) {
	dir := t.TempDir()
	desc, err := tuple.NewTupleDesc([]types.Type{types.IntType, types.StringType}, []string{"id", "name"})
	require.NoError(t, err)

	bp := memory.New(50)
	file, err := heap.Open(primitives.Filepath(filepath.Join(dir, "t.heap")), desc, bp)
	require.NoError(t, err)

	tid := transaction.Begin()
	for i := 0; i < rows; i++ {
		tup := tuple.NewTuple(desc)
		require.NoError(t, tup.SetField(0, types.NewIntField(int64(i))))
		require.NoError(t, tup.SetField(1, types.NewStringField(fmt.Sprintf("row-%d", i))))
		_, err := bp.InsertTuple(tid, file.TableID(), tup)
		require.NoError(t, err)
	}
	require.NoError(t, bp.TransactionComplete(tid, true))

	return file, bp
}

func TestTableStats_CountsEveryTuple(t *testing.T) {
	file, bp := buildTestTable(t, 50)
	ts, err := NewTableStats(file, bp, 10, 1000)
	require.NoError(t, err)
	assert.Equal(t, 50, ts.TotalTuples())
}

func TestTableStats_EstimateScanCost(t *testing.T) {
	file, bp := buildTestTable(t, 50)
	ts, err := NewTableStats(file, bp, 10, 1000)
	require.NoError(t, err)

	numPages, err := file.NumPages()
	require.NoError(t, err)
	assert.Equal(t, float64(int(numPages)*1000), ts.EstimateScanCost(int(numPages)))
}

func TestTableStats_EstimateTableCardinality(t *testing.T) {
	file, bp := buildTestTable(t, 100)
	ts, err := NewTableStats(file, bp, 10, 1000)
	require.NoError(t, err)

	assert.Equal(t, 50, ts.EstimateTableCardinality(0.5))
	assert.Equal(t, 0, ts.EstimateTableCardinality(0))
}

func TestTableStats_EstimateSelectivityOnIntColumn(t *testing.T) {
	file, bp := buildTestTable(t, 100)
	ts, err := NewTableStats(file, bp, 10, 1000)
	require.NoError(t, err)

	sel, err := ts.EstimateSelectivity(0, primitives.LessThan, types.NewIntField(50))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, sel, 0.15)
}

func TestTableStats_Registry(t *testing.T) {
	file, bp := buildTestTable(t, 10)
	ts, err := NewTableStats(file, bp, 10, 1000)
	require.NoError(t, err)

	SetTableStats("people", ts)
	got, ok := GetTableStats("people")
	require.True(t, ok)
	assert.Equal(t, ts, got)

	_, ok = GetTableStats("nonexistent-table")
	assert.False(t, ok)
}
