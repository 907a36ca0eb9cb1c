package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/halvard/fehu/internal/apperr"
)

// lockRetryInterval is how often a blocked writer re-attempts the lock.
const lockRetryInterval = 100 * time.Millisecond

// Lock acquires an advisory exclusive flock on the sibling lock file,
// polling every 100ms until Options.LockTimeout elapses (ErrLockTimeout)
// or ctx is cancelled. The lock is cooperative: a process that skips it
// is not stopped by the OS.
func (s *JSONStore) Lock(ctx context.Context) error {
	f, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("storage: open lock file: %w", err)
	}
	s.lockFile = f

	deadline := time.Now().Add(s.opts.LockTimeout)
	for {
		err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			return nil
		}
		if !errors.Is(err, syscall.EWOULDBLOCK) {
			s.closeLockFile()
			return fmt.Errorf("storage: flock: %w", err)
		}
		if time.Now().After(deadline) {
			s.closeLockFile()
			return fmt.Errorf("storage: %w after %s", apperr.ErrLockTimeout, s.opts.LockTimeout)
		}
		select {
		case <-ctx.Done():
			s.closeLockFile()
			return fmt.Errorf("storage: lock wait: %w", ctx.Err())
		case <-time.After(lockRetryInterval):
		}
	}
}

// closeLockFile drops the file handle without touching the lock file on
// disk. Used when the lock was never acquired: removing the file here
// would yank it out from under the current holder.
func (s *JSONStore) closeLockFile() {
	if s.lockFile == nil {
		return
	}
	_ = s.lockFile.Close()
	s.lockFile = nil
}

// Unlock releases the flock and removes the lock file. It is safe to call
// even when the lock was never fully acquired.
func (s *JSONStore) Unlock() {
	if s.lockFile == nil {
		return
	}
	_ = syscall.Flock(int(s.lockFile.Fd()), syscall.LOCK_UN)
	_ = s.lockFile.Close()
	s.lockFile = nil
	_ = os.Remove(s.lockPath())
}

func (s *JSONStore) lockPath() string {
	return s.path + ".lock"
}
