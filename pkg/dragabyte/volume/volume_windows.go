//go:build windows

package volume

import (
	"os"

	"golang.org/x/sys/windows"
)

// OS is the platform family reported to remote clients.
const OS = "windows"

func statVolume(path string) (total, free uint64, err error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, 0, err
	}
	var available, totalBytes, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(p, &available, &totalBytes, &totalFree); err != nil {
		return 0, 0, err
	}
	return totalBytes, available, nil
}

// Drives returns the drive letters A: through Z: that currently exist.
func Drives() []Root {
	var roots []Root
	for letter := 'A'; letter <= 'Z'; letter++ {
		drive := string(letter) + `:\`
		if _, err := os.Stat(drive); err != nil {
			continue
		}
		roots = append(roots, Root{Name: drive, Path: drive})
	}
	return roots
}
