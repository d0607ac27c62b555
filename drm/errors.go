package drm

import (
	"errors"
	sys "syscall"
)

var (
	ErrorSystem      = errors.New("drm: system error")
	ErrorBadArgument = errors.New("drm: bad argument")
	ErrorNotOpen     = errors.New("drm: device not open")
	ErrorNotInitialized = errors.New("drm: display not initialized")
	ErrorBusy        = errors.New("drm: device busy")
)

func parseErrno(errno sys.Errno) error {
	switch errno {
	case sys.EINVAL:
		return ErrorBadArgument
	case sys.EBUSY:
		return ErrorBusy
	case sys.EBADF, sys.ENODEV, sys.EIO, sys.ENXIO, sys.EFAULT, sys.ENOMEM:
		return ErrorSystem
	default:
		return errno
	}
}
