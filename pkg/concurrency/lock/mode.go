package lock

// Mode is the permission a transaction requests on a page: Shared for
// reads, Exclusive for writes.
type Mode int

const (
	Shared Mode = iota
	Exclusive
)

func (m Mode) String() string {
	if m == Exclusive {
		return "EXCLUSIVE"
	}
	return "SHARED"
}
