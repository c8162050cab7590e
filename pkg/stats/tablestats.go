package stats

import (
	"fmt"
	"math"
	"sync"

	"github.com/jvjhfhg/simpledb/pkg/concurrency/transaction"
	"github.com/jvjhfhg/simpledb/pkg/memory"
	"github.com/jvjhfhg/simpledb/pkg/primitives"
	"github.com/jvjhfhg/simpledb/pkg/storage/heap"
	"github.com/jvjhfhg/simpledb/pkg/types"
)

// TableStats holds per-column selectivity histograms for one table,
// built by scanning its heap file exactly twice: once to discover each
// integer column's value range, and once to populate every histogram
// now that the ranges are known.
type TableStats struct {
	ioCostPerPage int
	numTuples     int

	isInt            []bool
	intHistograms    []*IntHistogram
	stringHistograms []*StringHistogram
}

// NewTableStats scans file under a throwaway transaction to build
// histograms over every field, using numBuckets bins per histogram and
// ioCostPerPage as the per-page I/O cost assumed by EstimateScanCost.
func NewTableStats(file *heap.File, bp *memory.BufferPool, numBuckets, ioCostPerPage int) (*TableStats, error) {
	tid := transaction.Begin()
	defer bp.TransactionComplete(tid, true)

	desc := file.TupleDesc()
	numFields := desc.NumFields()

	ts := &TableStats{
		ioCostPerPage:    ioCostPerPage,
		isInt:            make([]bool, numFields),
		intHistograms:    make([]*IntHistogram, numFields),
		stringHistograms: make([]*StringHistogram, numFields),
	}

	min := make([]int64, numFields)
	max := make([]int64, numFields)
	for i := 0; i < numFields; i++ {
		fieldType, err := desc.TypeAtIndex(i)
		if err != nil {
			return nil, err
		}
		if fieldType == types.IntType {
			ts.isInt[i] = true
			min[i] = math.MaxInt64
			max[i] = math.MinInt64
		}
	}

	it := heap.NewIterator(file, tid, bp)
	if err := it.Open(); err != nil {
		return nil, err
	}
	for {
		has, err := it.HasNext()
		if err != nil {
			return nil, err
		}
		if !has {
			break
		}
		t, err := it.Next()
		if err != nil {
			return nil, err
		}
		ts.numTuples++

		for i := 0; i < numFields; i++ {
			if !ts.isInt[i] {
				continue
			}
			field, err := t.GetField(i)
			if err != nil {
				return nil, err
			}
			v := field.(*types.IntField).Value
			if v < min[i] {
				min[i] = v
			}
			if v > max[i] {
				max[i] = v
			}
		}
	}
	it.Close()

	for i := 0; i < numFields; i++ {
		if ts.isInt[i] {
			ts.intHistograms[i] = NewIntHistogram(numBuckets, min[i], max[i])
		} else {
			ts.stringHistograms[i] = NewStringHistogram(numBuckets)
		}
	}

	if err := it.Rewind(); err != nil {
		return nil, err
	}
	for {
		has, err := it.HasNext()
		if err != nil {
			return nil, err
		}
		if !has {
			break
		}
		t, err := it.Next()
		if err != nil {
			return nil, err
		}

		for i := 0; i < numFields; i++ {
			field, err := t.GetField(i)
			if err != nil {
				return nil, err
			}
			if ts.isInt[i] {
				ts.intHistograms[i].AddValue(field.(*types.IntField).Value)
			} else {
				ts.stringHistograms[i].AddValue(field.(*types.StringField).Value)
			}
		}
	}
	it.Close()

	return ts, nil
}

// EstimateScanCost estimates the I/O cost of a full sequential scan,
// assuming every page read is a cold miss against the buffer pool.
func (ts *TableStats) EstimateScanCost(numPages int) float64 {
	return float64(numPages) * float64(ts.ioCostPerPage)
}

// EstimateTableCardinality estimates how many tuples satisfy a predicate
// of the given selectivity, given the table's total tuple count n:
// floor(n * selectivityFactor).
func (ts *TableStats) EstimateTableCardinality(selectivityFactor float64) int {
	return int(float64(ts.numTuples) * selectivityFactor)
}

// TotalTuples returns the number of tuples counted during construction.
func (ts *TableStats) TotalTuples() int {
	return ts.numTuples
}

// EstimateSelectivity estimates the selectivity of `field op constant`
// using that field's histogram.
func (ts *TableStats) EstimateSelectivity(field int, op primitives.Predicate, constant types.Field) (float64, error) {
	if field < 0 || field >= len(ts.isInt) {
		return 0, fmt.Errorf("field index %d out of range", field)
	}
	if ts.isInt[field] {
		v, ok := constant.(*types.IntField)
		if !ok {
			return 0, fmt.Errorf("field %d is an integer column, got %T", field, constant)
		}
		return ts.intHistograms[field].EstimateSelectivity(op, v.Value), nil
	}

	v, ok := constant.(*types.StringField)
	if !ok {
		return 0, fmt.Errorf("field %d is a string column, got %T", field, constant)
	}
	return ts.stringHistograms[field].EstimateSelectivity(op, v.Value), nil
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*TableStats)
)

// SetTableStats registers stats under tableName, replacing any previous
// entry.
func SetTableStats(tableName string, stats *TableStats) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[tableName] = stats
}

// GetTableStats returns the registered stats for tableName, if any.
func GetTableStats(tableName string) (*TableStats, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[tableName]
	return s, ok
}
