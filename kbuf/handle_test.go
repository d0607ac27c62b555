package kbuf

import (
	"errors"
	"testing"
)

func TestBufferHandle_AccessFuncsNil(t *testing.T) {
	h := newBufferHandle(3, -1, nil, 4096)
	if err := h.BeginAccess(0); err != nil {
		t.Errorf("BeginAccess() with no beginFn set = %v, want nil", err)
	}
	if err := h.EndAccess(0); err != nil {
		t.Errorf("EndAccess() with no endFn set = %v, want nil", err)
	}
}

func TestBufferHandle_BeginEndAccessDelegates(t *testing.T) {
	h := newBufferHandle(3, -1, make([]byte, 16), 16)

	var gotStart []bool
	var gotFlags []int
	h.beginFn = func(hh *BufferHandle, start bool, flags int) error {
		gotStart = append(gotStart, start)
		gotFlags = append(gotFlags, flags)
		return nil
	}
	h.endFn = func(hh *BufferHandle, start bool, flags int) error {
		gotStart = append(gotStart, start)
		gotFlags = append(gotFlags, flags)
		return nil
	}

	if err := h.BeginAccess(7); err != nil {
		t.Fatalf("BeginAccess() error = %v", err)
	}
	if err := h.EndAccess(7); err != nil {
		t.Fatalf("EndAccess() error = %v", err)
	}

	want := []bool{true, false}
	if len(gotStart) != 2 || gotStart[0] != want[0] || gotStart[1] != want[1] {
		t.Errorf("start flags = %v, want %v", gotStart, want)
	}
	if gotFlags[0] != 7 || gotFlags[1] != 7 {
		t.Errorf("flags = %v, want [7 7]", gotFlags)
	}
}

func TestBufferHandle_AccessPropagatesError(t *testing.T) {
	h := newBufferHandle(3, -1, nil, 0)
	wantErr := errors.New("sync failed")
	h.beginFn = func(hh *BufferHandle, start bool, flags int) error { return wantErr }

	if err := h.BeginAccess(0); !errors.Is(err, wantErr) {
		t.Errorf("BeginAccess() error = %v, want %v", err, wantErr)
	}
}
