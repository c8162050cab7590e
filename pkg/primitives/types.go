package primitives

// FileID is the base type representing a unique file identifier derived from hashing a file path.
// It serves as the foundation for TableID, representing the physical file's identity.
type FileID uint64

// TableID identifies a table, and by extension its single backing heap file.
type TableID uint64

// SlotID represents a slot number within a page (for tuple storage).
type SlotID uint16

// PageNumber represents a page number within a table, zero-based.
type PageNumber uint64
