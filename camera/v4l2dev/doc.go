// Package v4l2dev is a concrete camera backend for the RVC pipeline's
// vendor capture boundary (camera.VendorCamera). It drives a real
// Video4Linux2 capture device (e.g. /dev/video0) through a direct
// ioctl/mmap binding scoped to exactly what a fixed single-input
// rear-view camera negotiates: open, query capability and crop
// defaults, negotiate a pixel format, map streaming buffers, and
// deliver frames on a channel.
//
// This package intentionally supports video-capture-only devices with
// a single fixed input. The general-purpose V4L2 surface a
// multi-input webcam/codec wrapper would need — tuner, audio, VBI,
// multi-planar formats, extended/codec controls, frame-size/interval
// enumeration — isn't exposed here; it has no caller on this vehicle's
// camera.
package v4l2dev
