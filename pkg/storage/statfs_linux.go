//go:build linux

package storage

import "golang.org/x/sys/unix"

// diskSpace counts blocks in fragment-size units; f_bsize is only the
// preferred I/O size.
func diskSpace(path string) (total, free uint64, err error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, 0, err
	}
	unit := uint64(st.Frsize)
	if unit == 0 {
		unit = uint64(st.Bsize)
	}
	return st.Blocks * unit, st.Bavail * unit, nil
}
