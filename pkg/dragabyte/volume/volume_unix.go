//go:build linux || darwin || freebsd

package volume

import "golang.org/x/sys/unix"

// OS is the platform family reported to remote clients.
const OS = "unix"

func statVolume(path string) (total, free uint64, err error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, 0, err
	}
	bsize := uint64(st.Bsize) //nolint:gosec // Bsize is never negative
	return uint64(st.Blocks) * bsize, uint64(st.Bavail) * bsize, nil
}

// Drives returns nil on unix; the single root "/" is listed instead.
func Drives() []Root {
	return nil
}
