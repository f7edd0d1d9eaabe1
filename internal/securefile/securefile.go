// Package securefile writes files that must not be readable by other users.
package securefile

import (
	"os"
	"path/filepath"
	"runtime"
)

// WriteFileAtomic replaces filename with data. The content goes to a temp file
// in the same directory which is renamed over filename, so readers see either
// the old or the new file. perm is applied on unix even when filename exists.
func WriteFileAtomic(filename string, data []byte, perm os.FileMode) (err error) {
	f, err := os.CreateTemp(filepath.Dir(filename), "."+filepath.Base(filename)+".tmp.*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	unix := runtime.GOOS != "windows"
	if unix {
		if err = f.Chmod(perm); err != nil {
			return err
		}
	}
	if _, err = f.Write(data); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if !unix {
		// Rename does not replace an existing file there.
		_ = os.Remove(filename)
	}
	if err = os.Rename(tmp, filename); err != nil {
		return err
	}
	if unix {
		return os.Chmod(filename, perm)
	}
	return nil
}
