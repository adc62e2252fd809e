//go:build linux || darwin

package window

import "golang.org/x/sys/unix"

// mmap maps length bytes at offset. The kernel wants a page aligned offset, so the
// mapping starts at the page boundary below offset and data skips the difference.
func mmap(fd uintptr, offset int64, length int, readOnly bool) (mapping, data []byte, err error) {
	pageSize := int64(unix.Getpagesize())
	delta := offset % pageSize

	prot := unix.PROT_READ
	if !readOnly {
		prot |= unix.PROT_WRITE
	}

	mapping, err = unix.Mmap(int(fd), offset-delta, length+int(delta), prot, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}
	return mapping, mapping[delta : delta+int64(length)], nil
}

func msync(mapping []byte) error {
	return unix.Msync(mapping, unix.MS_SYNC)
}

func munmap(mapping []byte) error {
	if mapping == nil {
		return nil
	}
	return unix.Munmap(mapping)
}
