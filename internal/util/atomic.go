package util

import (
	"os"
	"path/filepath"

	"github.com/teranos/refresh/errors"
)

// WriteFileAtomic replaces path with data in a single rename.
//
// The bytes go to a temp file in the same directory, which is synced, renamed
// over path, and followed by a sync of the directory. On any error path is
// left as it was and the temp file is removed.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp.*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return errors.Wrapf(err, "failed to write %s", tmpName)
	}
	if err := tmp.Chmod(perm); err != nil {
		return errors.Wrapf(err, "failed to chmod %s", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		return errors.Wrapf(err, "failed to sync %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrapf(err, "failed to rename into %s", path)
	}
	committed = true
	return syncDir(dir)
}

// CopyFileAtomic copies src to dst through WriteFileAtomic, keeping src's mode
func CopyFileAtomic(src, dst string) (int64, error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to stat %s", src)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read %s", src)
	}
	if err := WriteFileAtomic(dst, data, info.Mode().Perm()); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", dir)
	}
	defer f.Close()
	// Some filesystems refuse fsync on directories; the rename already happened
	_ = f.Sync()
	return nil
}
