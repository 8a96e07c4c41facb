package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestLockAcquisition(t *testing.T) {
	tempDir := t.TempDir()

	lock, err := AcquireLock(tempDir)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	defer lock.Release()

	lockPath := filepath.Join(tempDir, LockFileName)
	content, err := os.ReadFile(lockPath)
	if err != nil {
		t.Fatalf("Failed to read lock file: %v", err)
	}
	if want := fmt.Sprintf("pid=%d\n", os.Getpid()); string(content) != want {
		t.Errorf("Lock file content = %q, want %q", string(content), want)
	}
}

func TestLockRelease(t *testing.T) {
	tempDir := t.TempDir()

	lock, err := AcquireLock(tempDir)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Failed to release lock: %v", err)
	}
	// Releasing twice is safe.
	if err := lock.Release(); err != nil {
		t.Errorf("Second Release() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(tempDir, LockFileName)); !os.IsNotExist(err) {
		t.Error("Lock file should be removed after release")
	}

	// The directory can be locked again.
	again, err := AcquireLock(tempDir)
	if err != nil {
		t.Fatalf("Failed to re-acquire lock: %v", err)
	}
	again.Release()
}

func TestExtractPID(t *testing.T) {
	if got := extractPID("pid=1234\n"); got != 1234 {
		t.Errorf("extractPID() = %d, want 1234", got)
	}
	if got := extractPID("garbage"); got != 0 {
		t.Errorf("extractPID() = %d, want 0", got)
	}
}

func TestLockErrorUnwrap(t *testing.T) {
	cause := errors.New("resource temporarily unavailable")
	err := &LockError{LockPath: "/tmp/x.lock", Holder: "PID 1 (running)", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("LockError should unwrap to its cause")
	}
	if err.Error() == "" {
		t.Error("LockError message should not be empty")
	}
}
