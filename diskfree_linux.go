//go:build linux

package main

import "golang.org/x/sys/unix"

// destFreeBytes reports the free space on the filesystem holding path.
func destFreeBytes(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return st.Bavail * uint64(st.Bsize), nil
}
