// Command storagecore-bench exercises the buffer pool, lock table, heap
// file, and table statistics against a scratch heap file on disk.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/jvjhfhg/simpledb/pkg/concurrency/transaction"
	"github.com/jvjhfhg/simpledb/pkg/config"
	"github.com/jvjhfhg/simpledb/pkg/logging"
	"github.com/jvjhfhg/simpledb/pkg/memory"
	"github.com/jvjhfhg/simpledb/pkg/primitives"
	"github.com/jvjhfhg/simpledb/pkg/stats"
	"github.com/jvjhfhg/simpledb/pkg/storage/heap"
	"github.com/jvjhfhg/simpledb/pkg/tuple"
	"github.com/jvjhfhg/simpledb/pkg/types"
)

// CLI defines the command-line interface for storagecore-bench.
var CLI struct {
	LogLevel string  `default:"info" help:"Log level: debug, info, warn, or error"`
	Load     LoadCmd `cmd:"" help:"Insert rows into a fresh heap file and report buffer pool stats"`
	Scan     ScanCmd `cmd:"" help:"Insert rows, then scan and print table statistics"`
}

// LoadCmd inserts a batch of synthetic rows and reports how the pool
// fared.
type LoadCmd struct {
	File     string `arg:"" help:"Path to the heap file to create or reuse" type:"path"`
	Rows     int    `default:"1000" help:"Number of rows to insert"`
	Capacity int    `default:"50" help:"Buffer pool page capacity"`
}

func (c *LoadCmd) Run() error {
	desc, err := tuple.NewTupleDesc(
		[]types.Type{types.IntType, types.StringType},
		[]string{"id", "name"},
	)
	if err != nil {
		return err
	}

	bp := memory.New(c.Capacity)
	file, err := heap.Open(primitives.Filepath(c.File), desc, bp)
	if err != nil {
		return err
	}

	tid := transaction.Begin()
	for i := 0; i < c.Rows; i++ {
		t := tuple.NewTuple(desc)
		if err := t.SetField(0, types.NewIntField(int64(i))); err != nil {
			return err
		}
		if err := t.SetField(1, types.NewStringField(fmt.Sprintf("row-%d", i))); err != nil {
			return err
		}
		if _, err := bp.InsertTuple(tid, file.TableID(), t); err != nil {
			return err
		}
	}

	if err := bp.TransactionComplete(tid, true); err != nil {
		return err
	}

	numPages, err := file.NumPages()
	if err != nil {
		return err
	}
	fmt.Printf("Inserted %d rows into %s\n", c.Rows, c.File)
	fmt.Printf("  Pages on disk: %d\n", numPages)
	return nil
}

// ScanCmd inserts a batch of rows, scans them back, and prints selectivity
// estimates from a fresh TableStats.
type ScanCmd struct {
	File     string `arg:"" help:"Path to the heap file to create or reuse" type:"path"`
	Rows     int    `default:"1000" help:"Number of rows to insert before scanning"`
	Capacity int    `default:"50" help:"Buffer pool page capacity"`
	Buckets  int    `default:"100" help:"Histogram bucket count"`
}

func (c *ScanCmd) Run() error {
	desc, err := tuple.NewTupleDesc(
		[]types.Type{types.IntType, types.StringType},
		[]string{"id", "name"},
	)
	if err != nil {
		return err
	}

	bp := memory.New(c.Capacity)
	file, err := heap.Open(primitives.Filepath(c.File), desc, bp)
	if err != nil {
		return err
	}

	loadTid := transaction.Begin()
	for i := 0; i < c.Rows; i++ {
		t := tuple.NewTuple(desc)
		if err := t.SetField(0, types.NewIntField(int64(i))); err != nil {
			return err
		}
		if err := t.SetField(1, types.NewStringField(fmt.Sprintf("row-%d", i))); err != nil {
			return err
		}
		if _, err := bp.InsertTuple(loadTid, file.TableID(), t); err != nil {
			return err
		}
	}
	if err := bp.TransactionComplete(loadTid, true); err != nil {
		return err
	}

	ts, err := stats.NewTableStats(file, bp, c.Buckets, config.DefaultIOCostPerPage)
	if err != nil {
		return err
	}
	stats.SetTableStats(c.File, ts)

	numPages, err := file.NumPages()
	if err != nil {
		return err
	}

	fmt.Printf("Table: %s\n", c.File)
	fmt.Printf("  Tuples:    %d\n", ts.TotalTuples())
	fmt.Printf("  Pages:     %d\n", numPages)
	fmt.Printf("  Scan cost: %.0f\n", ts.EstimateScanCost(int(numPages)))

	midpoint := int64(c.Rows / 2)
	sel, err := ts.EstimateSelectivity(0, primitives.LessThan, types.NewIntField(midpoint))
	if err != nil {
		return err
	}
	fmt.Printf("  P(id < %d) estimate: %.4f\n", midpoint, sel)
	fmt.Printf("  Estimated matching rows: %d\n", ts.EstimateTableCardinality(sel))

	return nil
}

func main() {
	ctx := kong.Parse(&CLI)

	if err := logging.Init(logging.Config{
		Level:  logging.LogLevel(strings.ToUpper(CLI.LogLevel)),
		Format: "text",
	}); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	defer logging.Close()

	if err := ctx.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
