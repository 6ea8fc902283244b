//go:build darwin || freebsd

package storage

import "golang.org/x/sys/unix"

func diskSpace(path string) (total, free uint64, err error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, 0, err
	}
	unit := uint64(st.Bsize)
	return uint64(st.Blocks) * unit, uint64(st.Bavail) * unit, nil
}
