package drm

import (
	sys "golang.org/x/sys/unix"
)

// Indirections over the raw fd/mmap/poll syscalls, in the same style as
// kbuf's syscall layer, so device and allocator tests run without a real
// /dev/dri/cardN present.
var (
	openFn   = sys.Open
	closeFn  = sys.Close
	mmapFn   = sys.Mmap
	munmapFn = sys.Munmap
	readFn   = sys.Read
)

var ioctlFn = func(fd int, req uintptr, arg uintptr) sys.Errno {
	for {
		_, _, errno := sys.Syscall(sys.SYS_IOCTL, uintptr(fd), req, arg)
		switch errno {
		case 0:
			return 0
		case sys.EINTR:
			continue
		default:
			return errno
		}
	}
}

func send(fd int, req uintptr, arg uintptr) error {
	if errno := ioctlFn(fd, req, arg); errno != 0 {
		return parseErrno(errno)
	}
	return nil
}

// pollReadFn blocks until fd is readable or the timeout elapses, returning
// true if readable. Indirected so waitFlipEvent tests don't need a real
// pollable DRM fd.
var pollReadFn = func(fd int, timeoutMs int) (bool, error) {
	fds := []sys.PollFd{{Fd: int32(fd), Events: sys.POLLIN}}
	n, err := sys.Poll(fds, timeoutMs)
	if err != nil {
		return false, err
	}
	return n > 0 && fds[0].Revents&sys.POLLIN != 0, nil
}
