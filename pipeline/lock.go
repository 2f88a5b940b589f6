package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/teranos/refresh/errors"
)

// LockFileName is created next to the artifact while a run is active
const LockFileName = ".refresh.lock"

// LockPathFor returns the run lock guarding artifactPath
func LockPathFor(artifactPath string) string {
	return filepath.Join(filepath.Dir(artifactPath), LockFileName)
}

// errLocked is returned by the platform lockers when another holder exists
var errLocked = errors.New("lock held")

// Lock excludes concurrent runs against the same artifact
type Lock struct {
	path string
	f    *os.File
}

// AcquireLock takes the run lock at path without blocking. It fails with
// errors.ErrRunInProgress while another process or run holds it.
func AcquireLock(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create lock directory for %s", path)
	}

	f, err := lockFile(path)
	if err != nil {
		if errors.Is(err, errLocked) {
			holder := readHolder(path)
			return nil, errors.WithHint(
				errors.Mark(errors.Newf("lock %s is held%s", path, holder), errors.ErrRunInProgress),
				"wait for the running update to finish",
			)
		}
		return nil, errors.Wrapf(err, "failed to acquire lock %s", path)
	}

	// Holder info is informational only
	_ = f.Truncate(0)
	_, _ = f.WriteAt([]byte(fmt.Sprintf("pid=%d started=%s\n", os.Getpid(), time.Now().Format(time.RFC3339))), 0)

	return &Lock{path: path, f: f}, nil
}

// Release drops the lock. Safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unlockFile(l.f, l.path)
	l.f = nil
	return err
}

func readHolder(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	if s := strings.TrimSpace(string(b)); s != "" {
		return " (" + s + ")"
	}
	return ""
}
