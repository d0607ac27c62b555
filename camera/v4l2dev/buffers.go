package v4l2dev

/*
#include <linux/videodev2.h>
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"

	sys "golang.org/x/sys/unix"
)

// StreamType is the memory I/O method used for streaming buffers.
// This device only ever requests memory-mapped buffers; v4l2 also
// defines user-pointer, over overlay, and DMA-buf import, none of
// which a fixed rear-view camera's driver needs.
type StreamType = uint32

const StreamTypeMMAP StreamType = C.V4L2_MEMORY_MMAP

// RequestBuffers is the driver's response to a VIDIOC_REQBUFS call:
// how many buffers it actually allocated (which may be less than
// requested).
type RequestBuffers struct {
	Count uint32
}

// Buffer is the subset of v4l2_buffer this device round-trips through
// queue/dequeue: which slot it is, how many bytes the driver filled
// in, and (only meaningful right after VIDIOC_QUERYBUF) the mmap
// offset into the device's memory.
type Buffer struct {
	Index     uint32
	BytesUsed uint32
	Offset    uint32
	Length    uint32
}

func makeBuffer(v4l2Buf C.struct_v4l2_buffer) Buffer {
	return Buffer{
		Index:     uint32(v4l2Buf.index),
		BytesUsed: uint32(v4l2Buf.bytesused),
		Offset:    *(*uint32)(unsafe.Pointer(&v4l2Buf.m[0])),
		Length:    uint32(v4l2Buf.length),
	}
}

// streamOn issues VIDIOC_STREAMON for the capture queue.
func streamOn(fd uintptr) error {
	bufType := uint32(BufTypeVideoCapture)
	if err := send(fd, C.VIDIOC_STREAMON, uintptr(unsafe.Pointer(&bufType))); err != nil {
		return fmt.Errorf("stream on: %w", err)
	}
	return nil
}

// streamOff issues VIDIOC_STREAMOFF for the capture queue.
func streamOff(fd uintptr) error {
	bufType := uint32(BufTypeVideoCapture)
	if err := send(fd, C.VIDIOC_STREAMOFF, uintptr(unsafe.Pointer(&bufType))); err != nil {
		return fmt.Errorf("stream off: %w", err)
	}
	return nil
}

// initBuffers issues VIDIOC_REQBUFS, requesting count memory-mapped
// capture buffers.
func initBuffers(fd uintptr, count uint32) (RequestBuffers, error) {
	var req C.struct_v4l2_requestbuffers
	req.count = C.uint(count)
	req._type = C.uint(BufTypeVideoCapture)
	req.memory = C.uint(StreamTypeMMAP)

	if err := send(fd, C.VIDIOC_REQBUFS, uintptr(unsafe.Pointer(&req))); err != nil {
		return RequestBuffers{}, fmt.Errorf("request buffers: %w", err)
	}
	if req.count < 2 {
		return RequestBuffers{}, errors.New("request buffers: insufficient memory on device")
	}
	return RequestBuffers{Count: uint32(req.count)}, nil
}

// getBuffer issues VIDIOC_QUERYBUF for index, returning its mmap
// offset and length so the caller can map it.
func getBuffer(fd uintptr, index uint32) (Buffer, error) {
	var v4l2Buf C.struct_v4l2_buffer
	v4l2Buf._type = C.uint(BufTypeVideoCapture)
	v4l2Buf.memory = C.uint(StreamTypeMMAP)
	v4l2Buf.index = C.uint(index)

	if err := send(fd, C.VIDIOC_QUERYBUF, uintptr(unsafe.Pointer(&v4l2Buf))); err != nil {
		return Buffer{}, fmt.Errorf("query buffer: %w", err)
	}
	return makeBuffer(v4l2Buf), nil
}

func mapMemoryBuffer(fd uintptr, offset int64, length int) ([]byte, error) {
	data, err := sys.Mmap(int(fd), offset, length, sys.PROT_READ|sys.PROT_WRITE, sys.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("map memory buffer: %w", err)
	}
	return data, nil
}

func unmapMemoryBuffer(buf []byte) error {
	if err := sys.Munmap(buf); err != nil {
		return fmt.Errorf("unmap memory buffer: %w", err)
	}
	return nil
}

// queueBuffer issues VIDIOC_QBUF, handing an empty buffer back to the
// driver to fill.
func queueBuffer(fd uintptr, index uint32) (Buffer, error) {
	var v4l2Buf C.struct_v4l2_buffer
	v4l2Buf._type = C.uint(BufTypeVideoCapture)
	v4l2Buf.memory = C.uint(StreamTypeMMAP)
	v4l2Buf.index = C.uint(index)

	if err := send(fd, C.VIDIOC_QBUF, uintptr(unsafe.Pointer(&v4l2Buf))); err != nil {
		return Buffer{}, fmt.Errorf("buffer queue: %w", err)
	}
	return makeBuffer(v4l2Buf), nil
}

// dequeueBuffer issues VIDIOC_DQBUF, claiming a filled buffer from the
// driver.
func dequeueBuffer(fd uintptr) (Buffer, error) {
	var v4l2Buf C.struct_v4l2_buffer
	v4l2Buf._type = C.uint(BufTypeVideoCapture)
	v4l2Buf.memory = C.uint(StreamTypeMMAP)

	if err := send(fd, C.VIDIOC_DQBUF, uintptr(unsafe.Pointer(&v4l2Buf))); err != nil {
		return Buffer{}, fmt.Errorf("buffer dequeue: %w", err)
	}
	return makeBuffer(v4l2Buf), nil
}
