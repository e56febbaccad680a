//go:build !windows
// +build !windows

package storage

import (
	"errors"
	"os/user"
	"path/filepath"
	"syscall"

	"golang.org/x/sys/unix"
	"k8s.io/klog/v2"
)

var (
	storePath = getStorePath()
)

func getStorePath() string {
	if u, err := user.Current(); err == nil {
		return filepath.Join(u.HomeDir, "smcgateway")
	} else {
		klog.ErrorS(err, "Failed to get home dir")
		return "./smcgateway"
	}
}

func isEphemeralError(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case unix.EAGAIN, unix.EINTR, unix.EBUSY:
			return true
		}
	}
	return false
}
