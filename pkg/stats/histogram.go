// Package stats implements cost-estimation statistics: equi-width
// histograms over a single field's values and per-table TableStats built
// by scanning a heap file, used to estimate scan cost and predicate
// selectivity for query planning.
package stats

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/jvjhfhg/simpledb/pkg/primitives"
)

// IntHistogram is a fixed-width histogram over an integer-valued field.
// It partitions [min, max] into buckets contiguous buckets whose widths
// differ by at most one, and answers selectivity queries in O(log
// buckets) time and O(buckets) space regardless of how many values it
// has seen.
type IntHistogram struct {
	buckets int
	min     int64
	max     int64

	lowerBound []int64
	width      []int64
	count      []int64
	size       int64
}

// NewIntHistogram builds a histogram with the given bucket count over the
// inclusive range [min, max]. The first (max-min+1) mod buckets buckets
// are one wider than the rest, so every value of the range is covered by
// exactly one bucket.
func NewIntHistogram(buckets int, min, max int64) *IntHistogram {
	if buckets < 1 {
		buckets = 1
	}
	if max < min {
		max = min
	}

	h := &IntHistogram{
		buckets:    buckets,
		min:        min,
		max:        max,
		lowerBound: make([]int64, buckets),
		width:      make([]int64, buckets),
		count:      make([]int64, buckets),
	}

	total := max - min + 1
	base := total / int64(buckets)
	remainder := total % int64(buckets)

	l := min
	for i := 0; i < buckets; i++ {
		h.lowerBound[i] = l
		h.width[i] = base
		if int64(i) < remainder {
			h.width[i]++
		}
		l += h.width[i]
	}
	return h
}

// calcBucket returns the index of the bucket containing v, or -1 if v
// falls outside [min, max]. Buckets are sorted by lower bound, so a
// binary search over lowerBound locates it.
func (h *IntHistogram) calcBucket(v int64) int {
	if v < h.min || v > h.max {
		return -1
	}

	res, l, r := 0, 1, h.buckets-1
	for l <= r {
		mid := (l + r) / 2
		if h.lowerBound[mid] <= v {
			res = mid
			l = mid + 1
		} else {
			r = mid - 1
		}
	}
	return res
}

// AddValue records v. Values outside [min, max] are silently dropped, as
// the histogram was constructed assuming they cannot occur.
func (h *IntHistogram) AddValue(v int64) {
	b := h.calcBucket(v)
	if b == -1 {
		return
	}
	h.count[b]++
	h.size++
}

// EstimateSelectivity returns the estimated fraction of recorded values
// for which `field op v` holds, as a probability in [0, 1].
func (h *IntHistogram) EstimateSelectivity(op primitives.Predicate, v int64) float64 {
	if h.size == 0 {
		return 0
	}

	b := h.calcBucket(v)

	switch op {
	case primitives.Equals:
		if b == -1 {
			return 0
		}
		return float64(h.count[b]) / float64(h.width[b]) / float64(h.size)

	case primitives.GreaterThan, primitives.GreaterThanOrEqual:
		if v < h.min {
			return 1
		}
		if v > h.max {
			return 0
		}
		var res float64
		for i := b + 1; i < h.buckets; i++ {
			res += float64(h.count[i])
		}
		hi := h.lowerBound[b] + h.width[b] - 1
		res += float64(h.count[b]) * float64(hi-v) / float64(h.width[b])
		if op == primitives.GreaterThanOrEqual {
			res += float64(h.count[b]) / float64(h.width[b])
		}
		return clamp(res / float64(h.size))

	case primitives.LessThan, primitives.LessThanOrEqual:
		if v > h.max {
			return 1
		}
		if v < h.min {
			return 0
		}
		var res float64
		for i := b - 1; i >= 0; i-- {
			res += float64(h.count[i])
		}
		res += float64(h.count[b]) * float64(v-h.lowerBound[b]) / float64(h.width[b])
		if op == primitives.LessThanOrEqual {
			res += float64(h.count[b]) / float64(h.width[b])
		}
		return clamp(res / float64(h.size))

	case primitives.NotEqual:
		if b == -1 {
			return 1
		}
		return clamp(1 - float64(h.count[b])/float64(h.width[b])/float64(h.size))

	default:
		return -1
	}
}

func clamp(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// String renders each bucket's range and count, for debugging.
func (h *IntHistogram) String() string {
	var b strings.Builder
	for i := 0; i < h.buckets; i++ {
		hi := h.lowerBound[i] + h.width[i] - 1
		fmt.Fprintf(&b, "[%d, %d] = %d\n", h.lowerBound[i], hi, h.count[i])
	}
	return b.String()
}

// stringHistogramDomain bounds the integer range a hashed string can fall
// into; wide enough to keep collisions rare without the domain itself
// dominating memory use.
const stringHistogramDomain = 1 << 20

// StringHistogram estimates selectivity over a string-valued field by
// hashing each value into a bounded integer domain and delegating to an
// IntHistogram. Its behavior is identical to IntHistogram's up to that
// hashing step: equal strings hash equal and so always fall in the same
// bucket, but EQUALS/NOT_EQUALS estimates are still bucket averages, not
// exact counts; ordering comparisons (<, >) compare hash values, which do
// not preserve string order.
type StringHistogram struct {
	inner *IntHistogram
}

// NewStringHistogram builds a histogram with the given bucket count over
// the fixed hash domain [0, stringHistogramDomain).
func NewStringHistogram(buckets int) *StringHistogram {
	return &StringHistogram{inner: NewIntHistogram(buckets, 0, stringHistogramDomain-1)}
}

func hashString(s string) int64 {
	return int64(xxhash.Sum64String(s) % stringHistogramDomain)
}

// AddValue records s.
func (h *StringHistogram) AddValue(s string) {
	h.inner.AddValue(hashString(s))
}

// EstimateSelectivity returns the estimated fraction of recorded values
// for which `field op s` holds.
func (h *StringHistogram) EstimateSelectivity(op primitives.Predicate, s string) float64 {
	return h.inner.EstimateSelectivity(op, hashString(s))
}

// String renders the underlying hash-domain histogram, for debugging.
func (h *StringHistogram) String() string {
	return h.inner.String()
}
