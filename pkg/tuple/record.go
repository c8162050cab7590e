package tuple

import (
	"fmt"

	"github.com/jvjhfhg/simpledb/pkg/storage"
)

// RecordID names the slot a tuple occupies: the page it lives on and its
// slot number within that page's bitmap header.
type RecordID struct {
	PageID  storage.PageId
	SlotNum int
}

// NewRecordID creates a new RecordID.
func NewRecordID(pageID storage.PageId, slotNum int) *RecordID {
	return &RecordID{
		PageID:  pageID,
		SlotNum: slotNum,
	}
}

func (rid *RecordID) Equals(other *RecordID) bool {
	if other == nil {
		return false
	}
	return rid.PageID == other.PageID && rid.SlotNum == other.SlotNum
}

func (rid *RecordID) String() string {
	return fmt.Sprintf("RecordID(page=%s, slot=%d)", rid.PageID.String(), rid.SlotNum)
}
