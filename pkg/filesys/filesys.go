// Package filesys holds the file level plumbing used by the store: directory creation and
// the Channel handle that windows read from and write to.
package filesys

import (
	"errors"
	"os"
)

var (
	ErrIsNotDir = errors.New("path isn't a directory")
)

// CreateDir creates dirPath and its parents. Without force an existing path is left alone.
func CreateDir(dirPath string, permission os.FileMode, force bool) error {
	stat, err := os.Stat(dirPath)
	if !force && !os.IsNotExist(err) {
		return err
	}

	if stat != nil && !stat.IsDir() {
		return ErrIsNotDir
	}

	return os.MkdirAll(dirPath, permission)
}
