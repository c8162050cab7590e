package primitives

import (
	"hash/fnv"
	"os"
	"path/filepath"
)

// Filepath is a type-safe wrapper around file paths used for heap file storage.
type Filepath string

// Hash generates a unique FileID from the file path using FNV-1a hashing.
// Deterministic for a given path: two equal paths always hash equal.
func (f Filepath) Hash() FileID {
	h := fnv.New64a()
	h.Write([]byte(f))
	return FileID(h.Sum64())
}

// Dir returns the directory portion of the file path.
func (f Filepath) Dir() string {
	return filepath.Dir(string(f))
}

// String converts the Filepath to a standard string.
func (f Filepath) String() string {
	return string(f)
}

// Exists checks whether the file exists on the filesystem.
func (f Filepath) Exists() bool {
	_, err := os.Stat(string(f))
	return err == nil
}

// IsEmpty checks whether the filepath is an empty string.
func (f Filepath) IsEmpty() bool {
	return string(f) == ""
}

// MkdirAll creates the parent directory and any necessary parents.
func (f Filepath) MkdirAll(perm os.FileMode) error {
	return os.MkdirAll(f.Dir(), perm)
}
