// Package drm implements the kernel DRM/KMS surface this pipeline scans
// out to: buffer allocation (dumb buffer, DMA-heap, or ION backed),
// connector/encoder/CRTC/plane enumeration, mode setting, and the
// page-flip/vsync-event protocol.
//
// Everything here talks to /dev/dri/cardN through raw ioctls rather than
// libdrm; the wire structs in ioctl.go mirror the kernel uapi headers
// directly; there is no cgo in this package.
package drm
