package storage

import (
	"hash"
	"os"
)

// Persistence

type WriteResult struct {
	name        string // artifact name, the cache key
	path        string
	size        int64
	contentHash string
}

func NewWriteResult(
	name string,
	path string,
	size int64,
	contentHash string,
) WriteResult {
	return WriteResult{
		name:        name,
		path:        path,
		size:        size,
		contentHash: contentHash,
	}
}

func (w *WriteResult) Name() string {
	return w.name
}

func (w *WriteResult) Path() string {
	return w.path
}

func (w *WriteResult) Size() int64 {
	return w.size
}

func (w *WriteResult) ContentHash() string {
	return w.contentHash
}

// PendingArtifact is an in-progress write.
// Bytes land in a hidden temp file in the output directory and only
// become visible under the artifact name on Commit.
type PendingArtifact struct {
	name      string
	finalPath string
	file      *os.File
	hasher    hash.Hash
	size      int64
	writeErr  *StorageError
	closed    bool
}

func (p *PendingArtifact) Name() string {
	return p.name
}

// Size is the number of bytes written so far.
func (p *PendingArtifact) Size() int64 {
	return p.size
}

// Err returns the first local write failure, if any.
// A fetch that failed because its destination failed reports the
// storage problem here, so the caller can tell disk trouble from network trouble.
func (p *PendingArtifact) Err() *StorageError {
	return p.writeErr
}

// Write implements io.Writer.
func (p *PendingArtifact) Write(b []byte) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	if p.closed {
		p.writeErr = &StorageError{
			Message: "write after close",
			Cause:   ErrCauseWriteFailure,
			Path:    p.file.Name(),
		}
		return 0, p.writeErr
	}
	n, err := p.file.Write(b)
	p.hasher.Write(b[:n])
	p.size += int64(n)
	if err != nil {
		p.writeErr = classifyWriteError(err, p.file.Name())
		return n, p.writeErr
	}
	return n, nil
}
