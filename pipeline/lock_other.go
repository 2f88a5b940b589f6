//go:build !unix

package pipeline

import (
	"os"
)

// lockFile creates path exclusively. A crashed run leaves the file behind;
// it must then be removed by hand.
func lockFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, errLocked
		}
		return nil, err
	}
	return f, nil
}

func unlockFile(f *os.File, path string) error {
	f.Close()
	return os.Remove(path)
}
