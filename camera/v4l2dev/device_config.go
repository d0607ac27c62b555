package v4l2dev

// config holds v4l2dev device configuration, set via functional options.
type config struct {
	ioType    StreamType
	pixFormat PixFormat
	bufSize   uint32
}

// Option configures a Device at Open time.
type Option func(*config)

// WithPixFormat sets the desired capture pixel format (width, height, FourCC).
func WithPixFormat(pixFmt PixFormat) Option {
	return func(c *config) {
		c.pixFormat = pixFmt
	}
}

// WithBufferCount sets the number of streaming buffers requested from the driver.
func WithBufferCount(n uint32) Option {
	return func(c *config) {
		c.bufSize = n
	}
}
