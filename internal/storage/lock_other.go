//go:build !unix

package storage

import (
	"errors"
	"io/fs"
	"os"
)

var errLocked = errors.New("lock is held by another process")

// Without flock the lock is the existence of the file itself.
// A crashed run leaves it behind and it has to be removed by hand.
func acquireLock(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, errLocked
		}
		return nil, err
	}
	return f, nil
}

func releaseLock(f *os.File) error {
	name := f.Name()
	closeErr := f.Close()
	if err := os.Remove(name); err != nil {
		return err
	}
	return closeErr
}
