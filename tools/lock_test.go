package tools

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

func TestLockMechanism(t *testing.T) {
	oldDataDir := dataDir
	dataDir = t.TempDir()
	defer func() { dataDir = oldDataDir }()

	lockPath := filepath.Join(dataDir, lockFile)

	t.Run("acquire and release lock", func(t *testing.T) {
		os.Remove(lockPath)

		// The search directory does not exist yet
		if err := acquireLock(); err != nil {
			t.Fatalf("Failed to acquire lock: %v", err)
		}

		data, err := os.ReadFile(lockPath)
		if err != nil {
			t.Fatalf("Lock file not found: %v", err)
		}
		pid, err := strconv.Atoi(string(data))
		if err != nil {
			t.Fatalf("Invalid PID in lock file: %v", err)
		}
		if pid != os.Getpid() {
			t.Errorf("Lock has wrong PID: got %d, want %d", pid, os.Getpid())
		}

		if err := releaseLock(); err != nil {
			t.Fatalf("Failed to release lock: %v", err)
		}
		if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
			t.Error("Lock file should be removed after release")
		}
	})

	t.Run("detect stale lock", func(t *testing.T) {
		os.Remove(lockPath)

		// PID far above any default pid_max
		if err := os.WriteFile(lockPath, []byte("99999999"), 0644); err != nil {
			t.Fatalf("Failed to create stale lock: %v", err)
		}

		if err := acquireLock(); err != nil {
			t.Fatalf("Failed to acquire lock after stale lock: %v", err)
		}

		owner, _ := readLockOwner()
		if owner != os.Getpid() {
			t.Errorf("Expected our PID after cleaning stale lock, got %d", owner)
		}
		releaseLock()
	})

	t.Run("corrupted lock", func(t *testing.T) {
		os.Remove(lockPath)

		if err := os.WriteFile(lockPath, []byte("not-a-pid"), 0644); err != nil {
			t.Fatalf("Failed to create corrupted lock: %v", err)
		}

		if err := acquireLock(); err != nil {
			t.Fatalf("Failed to acquire lock over corrupted lock: %v", err)
		}
		releaseLock()
	})

	t.Run("reacquire same lock", func(t *testing.T) {
		os.Remove(lockPath)

		if err := acquireLock(); err != nil {
			t.Fatalf("Failed to acquire lock: %v", err)
		}
		// Same PID: succeeds immediately
		if err := acquireLock(); err != nil {
			t.Fatalf("Failed to reacquire lock: %v", err)
		}
		releaseLock()
	})

	t.Run("release keeps foreign lock", func(t *testing.T) {
		os.Remove(lockPath)

		foreign := strconv.Itoa(os.Getpid() + 1)
		if err := os.WriteFile(lockPath, []byte(foreign), 0644); err != nil {
			t.Fatalf("Failed to create lock: %v", err)
		}

		if err := releaseLock(); err != nil {
			t.Fatalf("releaseLock failed: %v", err)
		}
		if _, err := os.Stat(lockPath); err != nil {
			t.Error("Lock owned by another process must not be removed")
		}
		os.Remove(lockPath)
	})

	t.Run("timeout on held lock", func(t *testing.T) {
		if testing.Short() {
			t.Skip("Skipping timeout test in short mode (waits lockTimeout)")
		}
		os.Remove(lockPath)

		// The parent process is alive for the duration of the test
		if err := os.WriteFile(lockPath, []byte(strconv.Itoa(os.Getppid())), 0644); err != nil {
			t.Fatalf("Failed to create lock: %v", err)
		}

		start := time.Now()
		err := acquireLock()
		elapsed := time.Since(start)

		if err == nil {
			t.Error("Expected error acquiring held lock, got nil")
		}
		if elapsed < lockTimeout || elapsed > lockTimeout+2*lockRetryWait {
			t.Errorf("Expected timeout of ~%v, got %v", lockTimeout, elapsed)
		}
		os.Remove(lockPath)
	})

	t.Run("is process running", func(t *testing.T) {
		if !isProcessRunning(os.Getpid()) {
			t.Error("Our own process should be detected as running")
		}
		if isProcessRunning(99999999) {
			t.Error("Non-existent process should not be detected as running")
		}
	})
}
