package v4l2dev

import (
	"context"
	"errors"
	"fmt"
	sys "syscall"
)

// Indirections over this package's own ioctl-backed functions, so
// tests can substitute fakes without a real capture device. Mirrors
// the dependency-injection style the rest of this codebase uses for
// syscalls.
var (
	v4l2OpenDevice            = openDevice
	v4l2CloseDevice           = closeDevice
	v4l2GetCapability         = getCapability
	v4l2GetCropCapability     = getCropCapability
	v4l2SetCropRect           = setCropRect
	v4l2GetPixFormat          = getPixFormat
	v4l2SetPixFormat          = setPixFormat
	v4l2GetAllFormatDescs     = getAllFormatDescriptions
	v4l2GetStreamCaptureParam = getStreamCaptureParam
	v4l2InitBuffers           = initBuffers
	v4l2GetBuffer             = getBuffer
	v4l2MapMemoryBuffer       = mapMemoryBuffer
	v4l2UnmapMemoryBuffer     = unmapMemoryBuffer
	v4l2QueueBuffer           = queueBuffer
	v4l2DequeueBuffer         = dequeueBuffer
	v4l2StreamOn              = streamOn
	v4l2StreamOff             = streamOff
	v4l2WaitForRead           = waitForRead
)

// Device represents an open V4L2 capture device bound to a fixed
// single input, streaming via memory-mapped buffers.
type Device struct {
	path string
	fd   uintptr

	config  config
	bufType BufType
	cap     Capability
	cropCap CropCapability

	buffers      [][]byte
	requestedBuf RequestBuffers
	streaming    bool

	output           chan []byte
	frameDataBuffers [][]byte
	nextFrameBuf     int
}

// Open opens the video device at path and negotiates capture
// parameters, applying any supplied options.
func Open(path string, options ...Option) (*Device, error) {
	fd, err := v4l2OpenDevice(path, sys.O_RDWR|sys.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("v4l2dev: open: %w", err)
	}

	dev := &Device{path: path, fd: fd}
	for _, o := range options {
		o(&dev.config)
	}

	cap, err := v4l2GetCapability(dev.fd)
	if err != nil {
		_ = v4l2CloseDevice(dev.fd)
		return nil, fmt.Errorf("v4l2dev: open %s: %w", path, err)
	}
	dev.cap = cap

	if !cap.IsVideoCaptureSupported() {
		_ = v4l2CloseDevice(dev.fd)
		return nil, fmt.Errorf("v4l2dev: open %s: %w", path, ErrorUnsupportedFeature)
	}
	if !cap.IsStreamingSupported() {
		_ = v4l2CloseDevice(dev.fd)
		return nil, fmt.Errorf("v4l2dev: open %s: streaming not supported", path)
	}
	dev.bufType = BufTypeVideoCapture

	if dev.config.bufSize == 0 {
		dev.config.bufSize = 2
	}
	dev.config.ioType = StreamTypeMMAP

	if cropcap, err := v4l2GetCropCapability(dev.fd); err == nil {
		dev.cropCap = cropcap
		_ = v4l2SetCropRect(dev.fd, cropcap.DefaultRect)
	}

	if dev.config.pixFormat != (PixFormat{}) {
		if err := dev.SetPixFormat(dev.config.pixFormat); err != nil {
			_ = v4l2CloseDevice(dev.fd)
			return nil, fmt.Errorf("v4l2dev: open %s: set format: %w", path, err)
		}
	} else {
		pixFmt, err := v4l2GetPixFormat(dev.fd)
		if err != nil {
			_ = v4l2CloseDevice(dev.fd)
			return nil, fmt.Errorf("v4l2dev: open %s: get default format: %w", path, err)
		}
		dev.config.pixFormat = pixFmt
	}

	return dev, nil
}

// Close stops streaming if active and closes the device.
func (d *Device) Close() error {
	if d.streaming {
		if err := d.Stop(); err != nil {
			return err
		}
	}
	return v4l2CloseDevice(d.fd)
}

// Name returns the device's file system path.
func (d *Device) Name() string { return d.path }

// Fd returns the open device's file descriptor.
func (d *Device) Fd() uintptr { return d.fd }

// Capability returns the device's reported V4L2 capabilities.
func (d *Device) Capability() Capability { return d.cap }

// BufferType returns the V4L2 buffer type used by this device (always capture).
func (d *Device) BufferType() BufType { return d.bufType }

// BufferCount returns the number of buffers allocated for streaming.
func (d *Device) BufferCount() uint32 { return d.config.bufSize }

// MemIOType returns the memory I/O method in use (always mmap).
func (d *Device) MemIOType() StreamType { return d.config.ioType }

// GetPixFormat returns the negotiated pixel format.
func (d *Device) GetPixFormat() (PixFormat, error) {
	if d.config.pixFormat == (PixFormat{}) {
		pixFmt, err := v4l2GetPixFormat(d.fd)
		if err != nil {
			return PixFormat{}, fmt.Errorf("v4l2dev: %w", err)
		}
		d.config.pixFormat = pixFmt
	}
	return d.config.pixFormat, nil
}

// SetPixFormat sets the device's capture pixel format.
func (d *Device) SetPixFormat(pixFmt PixFormat) error {
	if err := v4l2SetPixFormat(d.fd, pixFmt); err != nil {
		return fmt.Errorf("v4l2dev: %w", err)
	}
	d.config.pixFormat = pixFmt
	return nil
}

// GetFormatDescriptions returns the pixel formats the device can produce.
func (d *Device) GetFormatDescriptions() ([]FormatDescription, error) {
	return v4l2GetAllFormatDescs(d.fd)
}

// GetFrameRate returns the device's current capture frame rate, derived
// from the driver-reported time-per-frame fraction.
func (d *Device) GetFrameRate() (uint32, error) {
	param, err := v4l2GetStreamCaptureParam(d.fd)
	if err != nil {
		return 0, fmt.Errorf("v4l2dev: frame rate: %w", err)
	}
	if param.TimePerFrame.Numerator == 0 {
		return 0, fmt.Errorf("v4l2dev: frame rate: driver reported zero time-per-frame")
	}
	return param.TimePerFrame.Denominator / param.TimePerFrame.Numerator, nil
}

// Start allocates and maps streaming buffers, enqueues them, turns the
// stream on, and launches the background goroutine that feeds GetOutput.
func (d *Device) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if d.streaming {
		return fmt.Errorf("v4l2dev: stream already started")
	}

	bufReq, err := v4l2InitBuffers(d.fd, d.config.bufSize)
	if err != nil {
		return fmt.Errorf("v4l2dev: start: request buffers: %w", err)
	}
	d.config.bufSize = bufReq.Count
	d.requestedBuf = bufReq

	bufCount := int(bufReq.Count)
	buffers := make([][]byte, bufCount)
	for i := 0; i < bufCount; i++ {
		info, err := v4l2GetBuffer(d.fd, uint32(i))
		if err != nil {
			unmapAll(buffers[:i])
			return fmt.Errorf("v4l2dev: start: query buffer %d: %w", i, err)
		}
		mapped, err := v4l2MapMemoryBuffer(d.fd, int64(info.Offset), int(info.Length))
		if err != nil {
			unmapAll(buffers[:i])
			return fmt.Errorf("v4l2dev: start: map buffer %d: %w", i, err)
		}
		buffers[i] = mapped
	}
	d.buffers = buffers

	d.frameDataBuffers = make([][]byte, bufCount)
	d.nextFrameBuf = 0

	if err := d.startStreamLoop(ctx); err != nil {
		unmapAll(d.buffers)
		d.buffers = nil
		return fmt.Errorf("v4l2dev: start: %w", err)
	}
	d.streaming = true
	return nil
}

func unmapAll(buffers [][]byte) {
	for _, b := range buffers {
		if b != nil {
			_ = v4l2UnmapMemoryBuffer(b)
		}
	}
}

// Stop turns off streaming and unmaps buffers.
func (d *Device) Stop() error {
	if !d.streaming {
		return nil
	}
	unmapAll(d.buffers)
	d.buffers = nil
	if err := v4l2StreamOff(d.fd); err != nil {
		return fmt.Errorf("v4l2dev: stop: %w", err)
	}
	d.streaming = false
	return nil
}

// GetOutput returns the channel frames are delivered on while streaming.
// Each []byte is backed by an internal ring buffer; callers that need to
// retain data past the next receive must copy it.
func (d *Device) GetOutput() <-chan []byte {
	return d.output
}

func (d *Device) startStreamLoop(ctx context.Context) error {
	d.output = make(chan []byte, d.config.bufSize)

	for i := 0; i < int(d.config.bufSize); i++ {
		if _, err := v4l2QueueBuffer(d.fd, uint32(i)); err != nil {
			return fmt.Errorf("buffer queueing: %w", err)
		}
	}
	if err := v4l2StreamOn(d.fd); err != nil {
		return fmt.Errorf("stream on: %w", err)
	}

	go func() {
		defer close(d.output)
		waitForRead := v4l2WaitForRead(d)
		for {
			select {
			case <-waitForRead:
				buff, err := v4l2DequeueBuffer(d.fd)
				if err != nil {
					if errors.Is(err, sys.EAGAIN) {
						continue
					}
					return
				}

				if int(buff.Index) >= len(d.buffers) {
					continue
				}

				target := &d.frameDataBuffers[d.nextFrameBuf]
				if *target == nil || cap(*target) < int(buff.BytesUsed) {
					*target = make([]byte, buff.BytesUsed)
				} else {
					*target = (*target)[:buff.BytesUsed]
				}
				copy(*target, d.buffers[buff.Index][:buff.BytesUsed])
				d.nextFrameBuf = (d.nextFrameBuf + 1) % len(d.frameDataBuffers)

				select {
				case d.output <- *target:
				case <-ctx.Done():
					_ = d.Stop()
					return
				}

				if _, err := v4l2QueueBuffer(d.fd, buff.Index); err != nil {
					return
				}
			case <-ctx.Done():
				_ = d.Stop()
				return
			}
		}
	}()

	return nil
}
