package storage

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/rohmanhakim/deck-voice/internal/metadata"
	"github.com/rohmanhakim/deck-voice/pkg/failure"
)

type StorageErrorCause string

const (
	ErrCauseDiskFull       StorageErrorCause = "disk is full"
	ErrCauseWriteFailure   StorageErrorCause = "write failed"
	ErrCausePathError      StorageErrorCause = "path error"
	ErrCauseStatFailure    StorageErrorCause = "stat failed"
	ErrCauseInvalidName    StorageErrorCause = "invalid artifact name"
	ErrCauseNameTooLong    StorageErrorCause = "artifact name too long"
	ErrCauseLocked         StorageErrorCause = "output directory locked by another run"
	ErrCauseArtifactExists StorageErrorCause = "artifact already exists"
	ErrCauseEmptyArtifact  StorageErrorCause = "empty artifact"
	ErrCauseHashFailure    StorageErrorCause = "hash computation failed"
)

type StorageError struct {
	Message   string
	Retryable bool
	Cause     StorageErrorCause
	Path      string
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s: %s", e.Cause, e.Message)
}

func (e *StorageError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// classifyWriteError turns an OS write error into a StorageError.
// A name the filesystem rejects only affects its own artifact and is
// recoverable. Every other write failure is fatal: the run cannot make
// progress without a working output directory.
func classifyWriteError(err error, path string) *StorageError {
	if nameErr := classifyNameError(err, path); nameErr != nil {
		return nameErr
	}
	cause := ErrCauseWriteFailure
	if errors.Is(err, syscall.ENOSPC) {
		cause = ErrCauseDiskFull
	}
	return &StorageError{
		Message:   err.Error(),
		Retryable: false,
		Cause:     cause,
		Path:      path,
	}
}

// classifyNameError returns a recoverable StorageError when err comes from
// the artifact name itself, and nil otherwise.
func classifyNameError(err error, path string) *StorageError {
	if !errors.Is(err, syscall.ENAMETOOLONG) {
		return nil
	}
	return &StorageError{
		Message:   err.Error(),
		Retryable: true,
		Cause:     ErrCauseNameTooLong,
		Path:      path,
	}
}

// mapStorageErrorToMetadataCause maps storage-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapStorageErrorToMetadataCause(err *StorageError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseDiskFull,
		ErrCauseWriteFailure,
		ErrCausePathError,
		ErrCauseStatFailure,
		ErrCauseLocked,
		ErrCauseHashFailure:
		return metadata.CauseStorageFailure
	case ErrCauseEmptyArtifact:
		return metadata.CauseRemoteFailure
	case ErrCauseInvalidName, ErrCauseNameTooLong, ErrCauseArtifactExists:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
