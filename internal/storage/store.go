package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rohmanhakim/deck-voice/internal/metadata"
	"github.com/rohmanhakim/deck-voice/pkg/failure"
	"github.com/rohmanhakim/deck-voice/pkg/fileutil"
	"github.com/rohmanhakim/deck-voice/pkg/hashutil"
)

/*
Responsibilities
- Answer whether an artifact is already cached
- Persist fetched audio under its artifact name
- Guarantee a real artifact name never holds partial content

Output Characteristics
- Flat directory of <artifact name> files
- Existing artifacts are never overwritten
- Temp files are hidden (`.deck-voice-<random>.partial`) and swept on Open
- One run per output directory, enforced by an advisory lock file
*/

const (
	partialPrefix = ".deck-voice-"
	partialSuffix = ".partial"
	LockFileName  = ".deck-voice.lock"
)

type Store interface {
	Exists(name string) (bool, failure.ClassifiedError)
	BeginWrite(name string) (*PendingArtifact, failure.ClassifiedError)
	Commit(pending *PendingArtifact) (WriteResult, failure.ClassifiedError)
	Abort(pending *PendingArtifact)
}

type LocalStore struct {
	metadataSink metadata.MetadataSink
	outputDir    string
	hashAlgo     hashutil.HashAlgo
	lock         *os.File
}

func NewLocalStore(
	metadataSink metadata.MetadataSink,
	outputDir string,
	hashAlgo hashutil.HashAlgo,
) *LocalStore {
	return &LocalStore{
		metadataSink: metadataSink,
		outputDir:    outputDir,
		hashAlgo:     hashAlgo,
	}
}

func (s *LocalStore) OutputDir() string {
	return s.outputDir
}

// Open prepares the output directory for writing: it creates the directory,
// takes the run lock and removes temp files left behind by killed runs.
// Every failure here is fatal.
func (s *LocalStore) Open() failure.ClassifiedError {
	if err := fileutil.EnsureDir(s.outputDir); err != nil {
		return s.fail("LocalStore.Open", &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCausePathError,
			Path:      s.outputDir,
		})
	}

	lockPath := filepath.Join(s.outputDir, LockFileName)
	lock, err := acquireLock(lockPath)
	if err != nil {
		cause := ErrCausePathError
		if errors.Is(err, errLocked) {
			cause = ErrCauseLocked
		}
		return s.fail("LocalStore.Open", &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     cause,
			Path:      lockPath,
		})
	}
	s.lock = lock

	if _, err := fileutil.RemoveMatching(s.outputDir, ".*"+partialSuffix); err != nil {
		return s.fail("LocalStore.Open", &StorageError{
			Message:   fmt.Sprintf("sweeping partial files: %v", err),
			Retryable: false,
			Cause:     ErrCauseWriteFailure,
			Path:      s.outputDir,
		})
	}
	return nil
}

// Close releases the run lock. It is safe to call on a store that was never opened.
func (s *LocalStore) Close() error {
	if s.lock == nil {
		return nil
	}
	err := releaseLock(s.lock)
	s.lock = nil
	return err
}

func (s *LocalStore) Exists(name string) (bool, failure.ClassifiedError) {
	if err := validateName(name); err != nil {
		return false, s.fail("LocalStore.Exists", err)
	}
	path := filepath.Join(s.outputDir, name)
	exists, err := fileutil.FileExists(path)
	if err != nil {
		if nameErr := classifyNameError(err, path); nameErr != nil {
			return false, s.fail("LocalStore.Exists", nameErr)
		}
		return false, s.fail("LocalStore.Exists", &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseStatFailure,
			Path:      path,
		})
	}
	return exists, nil
}

func (s *LocalStore) BeginWrite(name string) (*PendingArtifact, failure.ClassifiedError) {
	if err := validateName(name); err != nil {
		return nil, s.fail("LocalStore.BeginWrite", err)
	}
	hasher, err := hashutil.NewHasher(s.hashAlgo)
	if err != nil {
		return nil, s.fail("LocalStore.BeginWrite", &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseHashFailure,
		})
	}
	file, err := os.CreateTemp(s.outputDir, partialPrefix+"*"+partialSuffix)
	if err != nil {
		return nil, s.fail("LocalStore.BeginWrite", classifyWriteError(err, s.outputDir))
	}
	return &PendingArtifact{
		name:      name,
		finalPath: filepath.Join(s.outputDir, name),
		file:      file,
		hasher:    hasher,
	}, nil
}

// Commit makes the pending bytes visible under the artifact name.
// The temp file is always gone afterwards, whether Commit succeeds or not.
func (s *LocalStore) Commit(pending *PendingArtifact) (WriteResult, failure.ClassifiedError) {
	result, err := s.commit(pending)
	s.Abort(pending)
	if err != nil {
		return WriteResult{}, s.fail("LocalStore.Commit", err)
	}
	s.metadataSink.RecordArtifact(
		metadata.ArtifactAudio,
		result.Path(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrArtifactName, result.Name()),
			metadata.NewAttr(metadata.AttrContentHash, result.ContentHash()),
			metadata.NewAttr(metadata.AttrSize, fmt.Sprintf("%d", result.Size())),
		},
	)
	return result, nil
}

func (s *LocalStore) commit(pending *PendingArtifact) (WriteResult, *StorageError) {
	if pending.writeErr != nil {
		return WriteResult{}, pending.writeErr
	}
	if pending.closed {
		return WriteResult{}, &StorageError{
			Message:   "artifact already finalized",
			Retryable: false,
			Cause:     ErrCauseWriteFailure,
			Path:      pending.finalPath,
		}
	}
	if pending.size == 0 {
		return WriteResult{}, &StorageError{
			Message:   "no bytes were written",
			Retryable: true,
			Cause:     ErrCauseEmptyArtifact,
			Path:      pending.finalPath,
		}
	}

	tmpPath := pending.file.Name()
	if err := pending.file.Sync(); err != nil {
		return WriteResult{}, classifyWriteError(err, tmpPath)
	}
	pending.closed = true
	if err := pending.file.Close(); err != nil {
		return WriteResult{}, classifyWriteError(err, tmpPath)
	}

	if err := publish(tmpPath, pending.finalPath); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return WriteResult{}, &StorageError{
				Message:   "refusing to overwrite existing artifact",
				Retryable: true,
				Cause:     ErrCauseArtifactExists,
				Path:      pending.finalPath,
			}
		}
		return WriteResult{}, classifyWriteError(err, pending.finalPath)
	}

	return NewWriteResult(
		pending.name,
		pending.finalPath,
		pending.size,
		hashutil.HexSum(pending.hasher),
	), nil
}

// Abort discards the pending write. The artifact name is never touched.
// Calling Abort more than once, or after Commit, is a no-op.
func (s *LocalStore) Abort(pending *PendingArtifact) {
	if pending == nil || pending.file == nil {
		return
	}
	if !pending.closed {
		pending.closed = true
		pending.file.Close()
	}
	os.Remove(pending.file.Name())
}

func (s *LocalStore) fail(action string, err *StorageError) *StorageError {
	s.metadataSink.RecordError(
		time.Now(),
		"storage",
		action,
		mapStorageErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrWritePath, err.Path),
		},
	)
	return err
}

// publish exposes tmpPath under finalPath without ever replacing an existing file.
// A hard link fails when finalPath exists; filesystems that cannot link fall
// back to an exclusive-create copy.
func publish(tmpPath, finalPath string) error {
	err := os.Link(tmpPath, finalPath)
	if err == nil || errors.Is(err, fs.ErrExist) {
		return err
	}
	return copyExclusive(tmpPath, finalPath)
}

func copyExclusive(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

func validateName(name string) *StorageError {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return &StorageError{
			Message:   fmt.Sprintf("%q is not a plain file name", name),
			Retryable: true,
			Cause:     ErrCauseInvalidName,
			Path:      name,
		}
	}
	return nil
}
