//go:build unix

// Package platform isolates the ownership calls that differ between Unix
// and other systems.
package platform

import (
	"io/fs"
	"os"
	"syscall"
)

// FileOwner extracts UID and GID from file info.
func FileOwner(info fs.FileInfo) (uid, gid uint32) {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return stat.Uid, stat.Gid
	}
	return 0, 0
}

// Privileged reports whether the process may change file ownership.
func Privileged() bool {
	return os.Geteuid() == 0
}
