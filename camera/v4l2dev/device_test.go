package v4l2dev

import (
	"context"
	"errors"
	"fmt"
	sys "syscall"
	"testing"
	"time"
)

func resetMocks() {
	v4l2OpenDevice = openDevice
	v4l2CloseDevice = closeDevice
	v4l2GetCapability = getCapability
	v4l2GetCropCapability = getCropCapability
	v4l2SetCropRect = setCropRect
	v4l2GetPixFormat = getPixFormat
	v4l2SetPixFormat = setPixFormat
	v4l2GetAllFormatDescs = getAllFormatDescriptions
	v4l2GetStreamCaptureParam = getStreamCaptureParam
	v4l2InitBuffers = initBuffers
	v4l2GetBuffer = getBuffer
	v4l2MapMemoryBuffer = mapMemoryBuffer
	v4l2UnmapMemoryBuffer = unmapMemoryBuffer
	v4l2QueueBuffer = queueBuffer
	v4l2DequeueBuffer = dequeueBuffer
	v4l2StreamOn = streamOn
	v4l2StreamOff = streamOff
	v4l2WaitForRead = waitForRead
}

func capableCapability() Capability {
	return Capability{
		Driver:       "mock_driver",
		Card:         "mock_card",
		Capabilities: CapVideoCapture | CapStreaming,
	}
}

func stubOpenSequence(t *testing.T) {
	t.Helper()
	v4l2OpenDevice = func(path string, flags int, mode uint32) (uintptr, error) {
		if path != "/dev/video0" {
			return 0, fmt.Errorf("unexpected path %s", path)
		}
		return 3, nil
	}
	v4l2GetCapability = func(fd uintptr) (Capability, error) {
		return capableCapability(), nil
	}
	v4l2GetCropCapability = func(fd uintptr) (CropCapability, error) {
		return CropCapability{DefaultRect: Rect{Width: 640, Height: 480}}, nil
	}
	v4l2SetCropRect = func(fd uintptr, r Rect) error { return nil }
	v4l2GetPixFormat = func(fd uintptr) (PixFormat, error) {
		return PixFormat{PixelFormat: PixelFmtYUYV, Width: 640, Height: 480}, nil
	}
	v4l2CloseDevice = func(fd uintptr) error { return nil }
}

func TestOpen_Success(t *testing.T) {
	resetMocks()
	defer resetMocks()
	stubOpenSequence(t)

	dev, err := Open("/dev/video0")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if dev.Name() != "/dev/video0" {
		t.Errorf("Name() = %s, want /dev/video0", dev.Name())
	}
	if dev.Fd() != 3 {
		t.Errorf("Fd() = %d, want 3", dev.Fd())
	}
	if dev.BufferType() != BufTypeVideoCapture {
		t.Errorf("BufferType() = %v, want BufTypeVideoCapture", dev.BufferType())
	}
	if dev.BufferCount() != 2 {
		t.Errorf("BufferCount() = %d, want default 2", dev.BufferCount())
	}
	pixFmt, err := dev.GetPixFormat()
	if err != nil {
		t.Fatalf("GetPixFormat() error = %v", err)
	}
	if pixFmt.PixelFormat != PixelFmtYUYV {
		t.Errorf("GetPixFormat().PixelFormat = %v, want YUYV", pixFmt.PixelFormat)
	}
}

func TestOpen_OpenDeviceFails(t *testing.T) {
	resetMocks()
	defer resetMocks()

	wantErr := errors.New("no such device")
	v4l2OpenDevice = func(path string, flags int, mode uint32) (uintptr, error) {
		return 0, wantErr
	}

	_, err := Open("/dev/video0")
	if !errors.Is(err, wantErr) {
		t.Fatalf("Open() error = %v, want wrapping %v", err, wantErr)
	}
}

func TestOpen_NotStreamingCapable(t *testing.T) {
	resetMocks()
	defer resetMocks()
	stubOpenSequence(t)

	v4l2GetCapability = func(fd uintptr) (Capability, error) {
		return Capability{Capabilities: CapVideoCapture}, nil
	}
	closed := false
	v4l2CloseDevice = func(fd uintptr) error { closed = true; return nil }

	_, err := Open("/dev/video0")
	if err == nil {
		t.Fatal("Open() expected error for non-streaming device")
	}
	if !closed {
		t.Error("Open() should close the fd when rejecting a non-streaming device")
	}
}

func TestOpen_NotVideoCaptureCapable(t *testing.T) {
	resetMocks()
	defer resetMocks()
	stubOpenSequence(t)

	v4l2GetCapability = func(fd uintptr) (Capability, error) {
		return Capability{Capabilities: CapStreaming}, nil
	}

	_, err := Open("/dev/video0")
	if !errors.Is(err, ErrorUnsupportedFeature) {
		t.Fatalf("Open() error = %v, want ErrorUnsupportedFeature", err)
	}
}

func TestOpen_WithPixFormatOption(t *testing.T) {
	resetMocks()
	defer resetMocks()
	stubOpenSequence(t)

	var setFmt PixFormat
	v4l2SetPixFormat = func(fd uintptr, pixFmt PixFormat) error {
		setFmt = pixFmt
		return nil
	}

	want := PixFormat{PixelFormat: PixelFmtMJPEG, Width: 1280, Height: 720}
	dev, err := Open("/dev/video0", WithPixFormat(want))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if setFmt != want {
		t.Errorf("SetPixFormat called with %+v, want %+v", setFmt, want)
	}
	got, _ := dev.GetPixFormat()
	if got != want {
		t.Errorf("GetPixFormat() = %+v, want %+v", got, want)
	}
}

func TestOpen_WithBufferCountOption(t *testing.T) {
	resetMocks()
	defer resetMocks()
	stubOpenSequence(t)

	dev, err := Open("/dev/video0", WithBufferCount(4))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if dev.BufferCount() != 4 {
		t.Errorf("BufferCount() = %d, want 4", dev.BufferCount())
	}
}

func TestGetFrameRate(t *testing.T) {
	resetMocks()
	defer resetMocks()

	v4l2GetStreamCaptureParam = func(fd uintptr) (CaptureParam, error) {
		return CaptureParam{TimePerFrame: Fract{Numerator: 1, Denominator: 30}}, nil
	}
	d := &Device{fd: 3}
	fps, err := d.GetFrameRate()
	if err != nil {
		t.Fatalf("GetFrameRate() error = %v", err)
	}
	if fps != 30 {
		t.Errorf("GetFrameRate() = %d, want 30", fps)
	}
}

func TestGetFrameRate_ZeroTimePerFrame(t *testing.T) {
	resetMocks()
	defer resetMocks()

	v4l2GetStreamCaptureParam = func(fd uintptr) (CaptureParam, error) {
		return CaptureParam{}, nil
	}
	d := &Device{fd: 3}
	if _, err := d.GetFrameRate(); err == nil {
		t.Fatal("GetFrameRate() expected error for zero time-per-frame")
	}
}

func TestStart_Success(t *testing.T) {
	resetMocks()
	defer resetMocks()

	v4l2InitBuffers = func(fd uintptr, n uint32) (RequestBuffers, error) {
		return RequestBuffers{Count: 2}, nil
	}
	v4l2GetBuffer = func(fd uintptr, index uint32) (Buffer, error) {
		return Buffer{Index: index, Length: 4096}, nil
	}
	v4l2MapMemoryBuffer = func(fd uintptr, offset int64, length int) ([]byte, error) {
		return make([]byte, length), nil
	}
	v4l2QueueBuffer = func(fd uintptr, index uint32) (Buffer, error) {
		return Buffer{Index: index}, nil
	}
	v4l2StreamOn = func(fd uintptr) error { return nil }
	v4l2StreamOff = func(fd uintptr) error { return nil }
	v4l2UnmapMemoryBuffer = func(buf []byte) error { return nil }
	block := make(chan struct{})
	v4l2WaitForRead = func(dev *Device) <-chan struct{} { return block }

	d := &Device{fd: 3, config: config{bufSize: 2}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !d.streaming {
		t.Error("Start() should mark the device as streaming")
	}
	if len(d.buffers) != 2 {
		t.Errorf("len(buffers) = %d, want 2", len(d.buffers))
	}

	cancel()
	select {
	case _, ok := <-d.GetOutput():
		if ok {
			t.Error("expected output channel to close after context cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for output channel to close")
	}
}

func TestStart_InitBuffersFails(t *testing.T) {
	resetMocks()
	defer resetMocks()

	wantErr := errors.New("request buffers failed")
	v4l2InitBuffers = func(fd uintptr, n uint32) (RequestBuffers, error) {
		return RequestBuffers{}, wantErr
	}

	d := &Device{fd: 3, config: config{bufSize: 2}}
	err := d.Start(context.Background())
	if !errors.Is(err, wantErr) {
		t.Fatalf("Start() error = %v, want wrapping %v", err, wantErr)
	}
}

func TestStart_AlreadyStreaming(t *testing.T) {
	d := &Device{streaming: true}
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("Start() expected error when already streaming")
	}
}

func TestStart_MapMemoryBufferFails_UnmapsPrevious(t *testing.T) {
	resetMocks()
	defer resetMocks()

	v4l2InitBuffers = func(fd uintptr, n uint32) (RequestBuffers, error) {
		return RequestBuffers{Count: 2}, nil
	}
	v4l2GetBuffer = func(fd uintptr, index uint32) (Buffer, error) {
		return Buffer{Index: index, Length: 4096, Offset: index * 4096}, nil
	}
	var unmapped int
	v4l2UnmapMemoryBuffer = func(buf []byte) error { unmapped++; return nil }
	v4l2MapMemoryBuffer = func(fd uintptr, offset int64, length int) ([]byte, error) {
		if offset == 0 {
			return make([]byte, length), nil
		}
		return nil, errors.New("map failed")
	}

	d := &Device{fd: 3, config: config{bufSize: 2}}
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("Start() expected error")
	}
	if unmapped != 1 {
		t.Errorf("unmapped %d buffers, want 1", unmapped)
	}
}

func TestStop_NotStreaming(t *testing.T) {
	d := &Device{}
	if err := d.Stop(); err != nil {
		t.Fatalf("Stop() on non-streaming device error = %v", err)
	}
}

func TestStop_StreamOffFails(t *testing.T) {
	resetMocks()
	defer resetMocks()

	wantErr := errors.New("stream off failed")
	v4l2StreamOff = func(fd uintptr) error { return wantErr }
	v4l2UnmapMemoryBuffer = func(buf []byte) error { return nil }

	d := &Device{fd: 3, streaming: true}
	err := d.Stop()
	if !errors.Is(err, wantErr) {
		t.Fatalf("Stop() error = %v, want wrapping %v", err, wantErr)
	}
}

func TestStartStreamLoop_DequeueEAGAINRetries(t *testing.T) {
	resetMocks()
	defer resetMocks()

	v4l2QueueBuffer = func(fd uintptr, index uint32) (Buffer, error) {
		return Buffer{Index: index}, nil
	}
	v4l2StreamOn = func(fd uintptr) error { return nil }
	v4l2StreamOff = func(fd uintptr) error { return nil }

	ready := make(chan struct{}, 2)
	ready <- struct{}{}
	ready <- struct{}{}
	v4l2WaitForRead = func(dev *Device) <-chan struct{} { return ready }

	attempts := 0
	v4l2DequeueBuffer = func(fd uintptr) (Buffer, error) {
		attempts++
		if attempts == 1 {
			return Buffer{}, sys.EAGAIN
		}
		return Buffer{Index: 0, BytesUsed: 16}, nil
	}

	d := &Device{
		fd:               3,
		buffers:          [][]byte{make([]byte, 4096)},
		frameDataBuffers: make([][]byte, 1),
		config:           config{bufSize: 1},
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.startStreamLoop(ctx); err != nil {
		t.Fatalf("startStreamLoop() error = %v", err)
	}

	select {
	case frame, ok := <-d.GetOutput():
		if !ok {
			t.Fatal("output channel closed unexpectedly")
		}
		if len(frame) != 16 {
			t.Errorf("frame length = %d, want 16", len(frame))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
	}
}
