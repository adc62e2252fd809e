//go:build !(linux || darwin)

package window

import stdErrors "errors"

var errMmapUnsupported = stdErrors.New("memory mapped windows are not supported on this platform")

func mmap(fd uintptr, offset int64, length int, readOnly bool) ([]byte, []byte, error) {
	return nil, nil, errMmapUnsupported
}

func msync(mapping []byte) error {
	return errMmapUnsupported
}

func munmap(mapping []byte) error {
	return nil
}
