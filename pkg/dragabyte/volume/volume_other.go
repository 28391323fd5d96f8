//go:build !linux && !darwin && !freebsd && !windows

package volume

import "errors"

// OS is the platform family reported to remote clients.
const OS = "unix"

var errUnsupported = errors.New("volume statistics unsupported on this platform")

func statVolume(string) (total, free uint64, err error) {
	return 0, 0, errUnsupported
}

// Drives returns nil outside windows.
func Drives() []Root {
	return nil
}
