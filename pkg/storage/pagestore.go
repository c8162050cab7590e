package storage

import (
	"fmt"
	"os"
	"sync"

	"github.com/jvjhfhg/simpledb/pkg/config"
	"github.com/jvjhfhg/simpledb/pkg/logging"
	"github.com/jvjhfhg/simpledb/pkg/primitives"
)

// PageStore is the thin layer between a heap file and the operating
// system: it knows how to read and write fixed-size pages at a byte offset
// and how to grow a file by one page. It performs no buffering and no
// locking beyond what is needed to keep a single read or write atomic; the
// buffer pool is responsible for caching and for transaction isolation.
type PageStore struct {
	file     *os.File
	fileID   primitives.FileID
	filePath primitives.Filepath
	mutex    sync.RWMutex
}

// OpenPageStore opens (creating if necessary) the backing file at filePath,
// creating its parent directory first if it does not already exist.
func OpenPageStore(filePath primitives.Filepath) (*PageStore, error) {
	if filePath.IsEmpty() {
		return nil, fmt.Errorf("filePath cannot be empty")
	}

	existed := filePath.Exists()
	if err := filePath.MkdirAll(0o750); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", filePath, err)
	}

	file, err := os.OpenFile(filePath.String(), os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}

	if !existed {
		logging.WithComponent("pagestore").Info("created new heap file", "path", filePath.String())
	}

	return &PageStore{
		file:     file,
		fileID:   filePath.Hash(),
		filePath: filePath,
	}, nil
}

// FileID returns the identifier derived from this store's file path.
func (ps *PageStore) FileID() primitives.FileID {
	return ps.fileID
}

// FilePath returns the path this store was opened against.
func (ps *PageStore) FilePath() primitives.Filepath {
	return ps.filePath
}

// NumPages returns how many whole pages the backing file currently holds.
func (ps *PageStore) NumPages() (primitives.PageNumber, error) {
	ps.mutex.RLock()
	defer ps.mutex.RUnlock()

	if ps.file == nil {
		return 0, fmt.Errorf("file is closed")
	}

	info, err := ps.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat file: %w", err)
	}

	pageSize := int64(config.PageSize())
	numPages := info.Size() / pageSize
	return primitives.PageNumber(numPages), nil
}

// ReadPage reads exactly one page's worth of bytes at pageNo.
func (ps *PageStore) ReadPage(pageNo primitives.PageNumber) ([]byte, error) {
	ps.mutex.RLock()
	defer ps.mutex.RUnlock()

	if ps.file == nil {
		return nil, fmt.Errorf("file is closed")
	}

	pageSize := config.PageSize()
	buf := make([]byte, pageSize)
	offset := int64(pageNo) * int64(pageSize)

	if _, err := ps.file.ReadAt(buf, offset); err != nil {
		return nil, err
	}
	return buf, nil
}

// WritePage writes data, which must be exactly one page in length, at
// pageNo and fsyncs the file so the write is durable before returning.
func (ps *PageStore) WritePage(pageNo primitives.PageNumber, data []byte) error {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	if ps.file == nil {
		return fmt.Errorf("file is closed")
	}

	pageSize := config.PageSize()
	if len(data) != pageSize {
		return fmt.Errorf("invalid page data size: expected %d, got %d", pageSize, len(data))
	}

	offset := int64(pageNo) * int64(pageSize)
	if _, err := ps.file.WriteAt(data, offset); err != nil {
		return fmt.Errorf("failed to write page: %w", err)
	}
	return ps.file.Sync()
}

// AllocateNewPage extends the file by one zero-filled page and returns its
// page number. The caller is expected to overwrite that page with real
// content via WritePage immediately afterward; zero-filling first makes
// the file-size growth itself the atomic step, so no other caller can be
// handed the same page number.
func (ps *PageStore) AllocateNewPage() (primitives.PageNumber, error) {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	if ps.file == nil {
		return 0, fmt.Errorf("file is closed")
	}

	info, err := ps.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat file: %w", err)
	}

	pageSize := int64(config.PageSize())
	numPages := info.Size() / pageSize
	if info.Size()%pageSize != 0 {
		numPages++
	}
	allocated := primitives.PageNumber(numPages)

	zeroPage := make([]byte, pageSize)
	offset := numPages * pageSize
	if _, err := ps.file.WriteAt(zeroPage, offset); err != nil {
		return 0, fmt.Errorf("failed to reserve page space: %w", err)
	}
	if err := ps.file.Sync(); err != nil {
		return 0, fmt.Errorf("failed to sync file after page allocation: %w", err)
	}

	return allocated, nil
}

// Close releases the underlying file handle. Safe to call more than once.
func (ps *PageStore) Close() error {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	if ps.file == nil {
		return nil
	}
	err := ps.file.Close()
	ps.file = nil
	return err
}
