// Package heap implements the heap file access method: an unordered,
// fixed-page-layout collection of tuples supporting insert, delete by
// record ID, and a cooperative sequential scan.
package heap

import (
	"bytes"
	"fmt"

	"github.com/jvjhfhg/simpledb/pkg/concurrency/transaction"
	"github.com/jvjhfhg/simpledb/pkg/storage"
	"github.com/jvjhfhg/simpledb/pkg/storageerr"
	"github.com/jvjhfhg/simpledb/pkg/tuple"
)

// Page is one page of a heap file: a bitmap header marking which slots
// are occupied, followed by that many fixed-size tuple slots. Every slot
// is exactly desc.GetSize() bytes regardless of what it holds, which is
// what lets the header alone answer "is this slot occupied" without
// reading slot contents.
type Page struct {
	id   storage.PageId
	desc *tuple.TupleDescription

	pageSize   int // bytes, the full on-disk page length
	numSlots   int
	headerSize int // bytes, = ceil(numSlots/8)
	slotSize   int // bytes per tuple slot

	header []byte // numSlots bits, LSB of header[0] is slot 0
	slots  [][]byte

	dirty   bool
	dirtyBy transaction.ID
}

// numSlotsForPage returns how many fixed-size slots of width slotSize fit
// in a page of pageSize bytes, once a 1-bit-per-slot bitmap header is
// subtracted. This is the classic SimpleDB formula: each slot costs
// slotSize*8 bits of tuple storage plus 1 bit of header.
func numSlotsForPage(pageSize, slotSize int) int {
	if slotSize <= 0 {
		return 0
	}
	return (pageSize * 8) / (slotSize*8 + 1)
}

func headerSizeForSlots(numSlots int) int {
	return (numSlots + 7) / 8
}

// NewEmptyPage builds a fresh, all-slots-free page for id.
func NewEmptyPage(id storage.PageId, desc *tuple.TupleDescription, pageSize int) *Page {
	slotSize := int(desc.GetSize())
	numSlots := numSlotsForPage(pageSize, slotSize)
	headerSize := headerSizeForSlots(numSlots)

	p := &Page{
		id:         id,
		desc:       desc,
		pageSize:   pageSize,
		numSlots:   numSlots,
		headerSize: headerSize,
		slotSize:   slotSize,
		header:     make([]byte, headerSize),
		slots:      make([][]byte, numSlots),
	}
	for i := range p.slots {
		p.slots[i] = make([]byte, slotSize)
	}
	return p
}

// ParsePage reconstructs a Page from its on-disk byte representation.
func ParsePage(id storage.PageId, desc *tuple.TupleDescription, pageSize int, data []byte) (*Page, error) {
	p := NewEmptyPage(id, desc, pageSize)
	if len(data) != pageSize {
		return nil, fmt.Errorf("heap page %s: expected %d bytes, got %d", id, pageSize, len(data))
	}

	copy(p.header, data[:p.headerSize])

	offset := p.headerSize
	for i := 0; i < p.numSlots; i++ {
		copy(p.slots[i], data[offset:offset+p.slotSize])
		offset += p.slotSize
	}
	return p, nil
}

func (p *Page) ID() storage.PageId { return p.id }

func (p *Page) Dirty() (transaction.ID, bool) {
	return p.dirtyBy, p.dirty
}

func (p *Page) MarkDirty(dirty bool, tid transaction.ID) {
	p.dirty = dirty
	if dirty {
		p.dirtyBy = tid
	}
}

// PageData serializes the page's current header and slot contents into a
// full page of pageSize bytes, zero-padding any space after the last slot.
func (p *Page) PageData() []byte {
	buf := make([]byte, p.pageSize)
	copy(buf, p.header)

	offset := p.headerSize
	for _, slot := range p.slots {
		copy(buf[offset:], slot)
		offset += p.slotSize
	}
	return buf
}

// NumSlots returns the total slot capacity of this page.
func (p *Page) NumSlots() int {
	return p.numSlots
}

// IsSlotUsed reports whether slot is occupied.
func (p *Page) IsSlotUsed(slot int) bool {
	byteIdx, bitIdx := slot/8, slot%8
	return p.header[byteIdx]&(1<<bitIdx) != 0
}

func (p *Page) setSlotUsed(slot int, used bool) {
	byteIdx, bitIdx := slot/8, slot%8
	if used {
		p.header[byteIdx] |= 1 << bitIdx
	} else {
		p.header[byteIdx] &^= 1 << bitIdx
	}
}

// EmptySlots returns the count of unoccupied slots.
func (p *Page) EmptySlots() int {
	count := 0
	for i := 0; i < p.numSlots; i++ {
		if !p.IsSlotUsed(i) {
			count++
		}
	}
	return count
}

// GetTuple deserializes the tuple stored at slot.
func (p *Page) GetTuple(slot int) (*tuple.Tuple, error) {
	if slot < 0 || slot >= p.numSlots {
		return nil, storageerr.NewPreconditionViolationError("heap.GetTuple", fmt.Sprintf("slot %d out of range [0,%d)", slot, p.numSlots))
	}
	if !p.IsSlotUsed(slot) {
		return nil, storageerr.NewPreconditionViolationError("heap.GetTuple", fmt.Sprintf("slot %d is not occupied", slot))
	}

	t, err := tuple.Decode(p.desc, p.slots[slot])
	if err != nil {
		return nil, fmt.Errorf("decode slot %d: %w", slot, err)
	}
	t.RecordID = tuple.NewRecordID(p.id, slot)
	return t, nil
}

// InsertTuple stores t in the first free slot and returns that slot's
// number.
func (p *Page) InsertTuple(t *tuple.Tuple) (int, error) {
	for slot := 0; slot < p.numSlots; slot++ {
		if !p.IsSlotUsed(slot) {
			encoded, err := tuple.Encode(t)
			if err != nil {
				return 0, fmt.Errorf("encode tuple: %w", err)
			}
			copy(p.slots[slot], encoded)
			p.setSlotUsed(slot, true)
			t.RecordID = tuple.NewRecordID(p.id, slot)
			return slot, nil
		}
	}
	return 0, storageerr.NewPreconditionViolationError("heap.InsertTuple", "page has no free slot")
}

// DeleteTuple frees slot, zeroing its contents.
func (p *Page) DeleteTuple(slot int) error {
	if slot < 0 || slot >= p.numSlots {
		return storageerr.NewPreconditionViolationError("heap.DeleteTuple", fmt.Sprintf("slot %d out of range [0,%d)", slot, p.numSlots))
	}
	if !p.IsSlotUsed(slot) {
		return storageerr.NewPreconditionViolationError("heap.DeleteTuple", fmt.Sprintf("slot %d is not occupied", slot))
	}
	for i := range p.slots[slot] {
		p.slots[slot][i] = 0
	}
	p.setSlotUsed(slot, false)
	return nil
}

// equalData reports whether two pages serialize identically; used by
// tests asserting a before/after image.
func (p *Page) equalData(other *Page) bool {
	return bytes.Equal(p.PageData(), other.PageData())
}
