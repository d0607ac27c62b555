package glpipe

/*
#include <GLES2/gl2.h>
*/
import "C"

import "fmt"

// FrameBuffer pairs a GL framebuffer object with its color-attachment
// texture — the unit every Renderable stage reads from (inputFB) and
// writes to (outputFB).
type FrameBuffer struct {
	fbo     C.GLuint
	texture C.GLuint
	width   int
	height  int
	valid   bool
}

// NewFrameBuffer allocates an empty, uninitialized FrameBuffer. Stages
// call Init once they know their render target size.
func NewFrameBuffer() *FrameBuffer { return &FrameBuffer{} }

func (fb *FrameBuffer) Init(width, height int) error {
	if fb.valid {
		fb.Destroy()
	}

	C.glGenTextures(1, &fb.texture)
	C.glBindTexture(C.GL_TEXTURE_2D, fb.texture)
	C.glTexImage2D(C.GL_TEXTURE_2D, 0, C.GL_RGBA, C.GLsizei(width), C.GLsizei(height), 0,
		C.GL_RGBA, C.GL_UNSIGNED_BYTE, nil)
	C.glTexParameteri(C.GL_TEXTURE_2D, C.GL_TEXTURE_MIN_FILTER, C.GL_LINEAR)
	C.glTexParameteri(C.GL_TEXTURE_2D, C.GL_TEXTURE_MAG_FILTER, C.GL_LINEAR)
	C.glTexParameteri(C.GL_TEXTURE_2D, C.GL_TEXTURE_WRAP_S, C.GL_CLAMP_TO_EDGE)
	C.glTexParameteri(C.GL_TEXTURE_2D, C.GL_TEXTURE_WRAP_T, C.GL_CLAMP_TO_EDGE)

	C.glGenFramebuffers(1, &fb.fbo)
	C.glBindFramebuffer(C.GL_FRAMEBUFFER, fb.fbo)
	C.glFramebufferTexture2D(C.GL_FRAMEBUFFER, C.GL_COLOR_ATTACHMENT0, C.GL_TEXTURE_2D, fb.texture, 0)

	status := C.glCheckFramebufferStatus(C.GL_FRAMEBUFFER)
	C.glBindFramebuffer(C.GL_FRAMEBUFFER, 0)
	if status != C.GL_FRAMEBUFFER_COMPLETE {
		fb.Destroy()
		return fmt.Errorf("glpipe: framebuffer incomplete: %#x", status)
	}

	fb.width, fb.height = width, height
	fb.valid = true
	return nil
}

func (fb *FrameBuffer) Bind() {
	C.glBindFramebuffer(C.GL_FRAMEBUFFER, fb.fbo)
	C.glViewport(0, 0, C.GLsizei(fb.width), C.GLsizei(fb.height))
}

// Texture returns the GL texture name as a plain uint32 rather than
// the package-local cgo GLuint type, so other packages (e.g. the
// concrete Renderable stages) can pass it to their own cgo calls
// without a cross-package cgo type mismatch.
func (fb *FrameBuffer) Texture() uint32 { return uint32(fb.texture) }
func (fb *FrameBuffer) Width() int        { return fb.width }
func (fb *FrameBuffer) Height() int       { return fb.height }
func (fb *FrameBuffer) IsValid() bool     { return fb.valid }

func (fb *FrameBuffer) Destroy() {
	if !fb.valid {
		return
	}
	C.glDeleteFramebuffers(1, &fb.fbo)
	C.glDeleteTextures(1, &fb.texture)
	fb.fbo, fb.texture = 0, 0
	fb.valid = false
}

// BindScreen binds the default (window system) framebuffer and sets the
// viewport to width×height. No stage calls it: BlitToScreen draws into
// its own pair of FrameBuffers.
func BindScreen(width, height int) {
	C.glBindFramebuffer(C.GL_FRAMEBUFFER, 0)
	C.glViewport(0, 0, C.GLsizei(width), C.GLsizei(height))
}
