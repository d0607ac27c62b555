package kbuf

import (
	"errors"
	"testing"

	sys "golang.org/x/sys/unix"
)

func TestSend_Success(t *testing.T) {
	orig := ioctlFn
	defer func() { ioctlFn = orig }()

	var gotFd int
	var gotReq uintptr
	ioctlFn = func(fd int, req uintptr, arg uintptr) sys.Errno {
		gotFd, gotReq = fd, req
		return 0
	}

	if err := send(5, 0x1234, 0); err != nil {
		t.Fatalf("send() error = %v", err)
	}
	if gotFd != 5 || gotReq != 0x1234 {
		t.Errorf("send() called ioctlFn(%d, %#x), want (5, 0x1234)", gotFd, gotReq)
	}
}

func TestSend_ClassifiesErrno(t *testing.T) {
	orig := ioctlFn
	defer func() { ioctlFn = orig }()

	tests := []struct {
		errno sys.Errno
		want  error
	}{
		{sys.EINVAL, ErrorBadArgument},
		{sys.ENOTTY, ErrorUnsupported},
		{sys.ENODEV, ErrorSystem},
		{sys.EINTR, ErrorInterrupted},
	}
	for _, tt := range tests {
		ioctlFn = func(fd int, req uintptr, arg uintptr) sys.Errno { return tt.errno }
		err := send(1, 1, 0)
		if !errors.Is(err, tt.want) {
			t.Errorf("send() with errno %v = %v, want wrapping %v", tt.errno, err, tt.want)
		}
	}
}
