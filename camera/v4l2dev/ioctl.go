package v4l2dev

/*
#cgo linux CFLAGS: -I/usr/include
#include <linux/videodev2.h>
#include <linux/v4l2-controls.h>
*/
import "C"

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	sys "golang.org/x/sys/unix"
)

// Sentinel errors classifying the ioctl failures this package actually
// surfaces to camera.Source. Callers use errors.Is.
var (
	ErrorSystem             = errors.New("v4l2dev: system error")
	ErrorBadArgument        = errors.New("v4l2dev: bad argument")
	ErrorUnsupported        = errors.New("v4l2dev: ioctl unsupported")
	ErrorUnsupportedFeature = errors.New("v4l2dev: feature unsupported")
	ErrorInterrupted        = errors.New("v4l2dev: interrupted")
)

func parseErrorType(errno sys.Errno) error {
	switch errno {
	case sys.EBADF, sys.ENOMEM, sys.ENODEV, sys.EIO, sys.ENXIO, sys.EFAULT:
		return ErrorSystem
	case sys.EINTR:
		return ErrorInterrupted
	case sys.EINVAL:
		return ErrorBadArgument
	case sys.ENOTTY:
		return ErrorUnsupported
	default:
		return errno
	}
}

// openDevice opens a character device at path, retrying on EINTR. It
// validates the path is a character device first, since os.OpenFile
// makes some UVC drivers return EBUSY on an ordinary open.
func openDevice(path string, flags int, mode uint32) (uintptr, error) {
	fstat, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("open device: %w", err)
	}
	if fstat.Mode()&fs.ModeCharDevice == 0 {
		return 0, fmt.Errorf("open device: %s: not a character device", path)
	}

	for {
		fd, err := sys.Openat(sys.AT_FDCWD, path, flags, mode)
		if err == nil {
			return uintptr(fd), nil
		}
		if errors.Is(err, sys.EINTR) {
			continue
		}
		return 0, &os.PathError{Op: "open", Path: path, Err: err}
	}
}

func closeDevice(fd uintptr) error {
	return sys.Close(int(fd))
}

// ioctl issues SYS_IOCTL directly, retrying on EINTR.
func ioctl(fd, req, arg uintptr) sys.Errno {
	for {
		_, _, errno := sys.Syscall(sys.SYS_IOCTL, fd, req, arg)
		if errno == sys.EINTR {
			continue
		}
		return errno
	}
}

// send issues req against fd and classifies the result into the
// sentinel errors above.
func send(fd, req, arg uintptr) error {
	errno := ioctl(fd, req, arg)
	if errno == 0 {
		return nil
	}
	return parseErrorType(errno)
}

// waitForRead starts a goroutine that signals sigChan every time the
// device's fd reports read-readiness via select(2), polling with a
// short timeout so the goroutine can be abandoned by the caller
// without an explicit stop signal (the camera worker simply stops
// reading once it has moved on).
func waitForRead(d *Device) <-chan struct{} {
	sigChan := make(chan struct{})

	go func(fd uintptr) {
		defer close(sigChan)
		for {
			// select(2) rewrites both the set and the timeout, so they
			// are rebuilt on every pass.
			var fdsRead sys.FdSet
			fdsRead.Set(int(fd))
			tv := sys.Timeval{Sec: 2, Usec: 0}
			n, errno := sys.Select(int(fd+1), &fdsRead, nil, nil, &tv)
			if errno == sys.EINTR || (errno == nil && n == 0) {
				continue
			}
			sigChan <- struct{}{}
		}
	}(d.fd)

	return sigChan
}
