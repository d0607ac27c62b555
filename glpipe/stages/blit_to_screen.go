package stages

/*
#include <GLES2/gl2.h>
*/
import "C"

import (
	"sync/atomic"
	"unsafe"

	"github.com/greatboxS/raw-display/glpipe"
)

// BlitToScreen is the pipeline's terminal stage. It owns two
// FrameBuffers that parallel the scanout device's double buffer: on
// each render it draws into whichever one isn't currently presented,
// then toggles, so the controller can program the CRTC with the
// matching scanout buffer once the draw completes.
type BlitToScreen struct {
	glpipe.BaseStage

	program C.GLuint
	vbo     C.GLuint
	attrPos C.GLint
	attrUV  C.GLint
	uTex    C.GLint

	mapedBuf   [2]*glpipe.FrameBuffer
	currentBuf int32 // atomic; BufferIdx() is read from the controller thread
}

func NewBlitToScreen() *BlitToScreen {
	return &BlitToScreen{BaseStage: glpipe.NewBaseStage("blit_to_screen")}
}

func (s *BlitToScreen) Init(width, height int, ctx *glpipe.GraphicsContext) bool {
	s.SetContext(ctx)

	program, err := glpipe.BuildProgram(glpipe.PassthroughVertexShader, glpipe.TexturedFragmentShader)
	if err != nil {
		return false
	}
	s.program = C.GLuint(program)
	s.attrPos = C.glGetAttribLocation(s.program, cstr("aPosition"))
	s.attrUV = C.glGetAttribLocation(s.program, cstr("aTexCoord"))
	s.uTex = C.glGetUniformLocation(s.program, cstr("uTexture"))

	C.glGenBuffers(1, &s.vbo)
	C.glBindBuffer(C.GL_ARRAY_BUFFER, s.vbo)
	C.glBufferData(C.GL_ARRAY_BUFFER, C.GLsizeiptr(len(fullScreenQuad)*4),
		unsafe.Pointer(&fullScreenQuad[0]), C.GL_STATIC_DRAW)

	for i := range s.mapedBuf {
		fb := glpipe.NewFrameBuffer()
		if err := fb.Init(width, height); err != nil {
			for j := 0; j < i; j++ {
				s.mapedBuf[j].Destroy()
			}
			return false
		}
		s.mapedBuf[i] = fb
	}
	atomic.StoreInt32(&s.currentBuf, 0)
	return true
}

func (s *BlitToScreen) Render() {
	if !s.InputReady() {
		return
	}
	target := (atomic.LoadInt32(&s.currentBuf) + 1) % 2
	fb := s.mapedBuf[target]
	fb.Bind()
	C.glClear(C.GL_COLOR_BUFFER_BIT)

	C.glUseProgram(s.program)
	C.glActiveTexture(C.GL_TEXTURE0)
	C.glBindTexture(C.GL_TEXTURE_2D, C.GLuint(s.Input().Texture()))
	C.glUniform1i(s.uTex, 0)

	C.glBindBuffer(C.GL_ARRAY_BUFFER, s.vbo)
	const stride = 4 * 4
	C.glEnableVertexAttribArray(C.GLuint(s.attrPos))
	C.glVertexAttribPointer(C.GLuint(s.attrPos), 2, C.GL_FLOAT, C.GL_FALSE, stride, unsafe.Pointer(uintptr(0)))
	C.glEnableVertexAttribArray(C.GLuint(s.attrUV))
	C.glVertexAttribPointer(C.GLuint(s.attrUV), 2, C.GL_FLOAT, C.GL_FALSE, stride, unsafe.Pointer(uintptr(2*4)))

	C.glDrawArrays(C.GL_TRIANGLE_STRIP, 0, 4)

	atomic.StoreInt32(&s.currentBuf, target)
	s.SetOutput(fb)
}

// BufferIdx reports which of the two scanout-parallel buffers was most
// recently drawn into — the index the controller should program the
// CRTC with after this frame.
func (s *BlitToScreen) BufferIdx() int {
	return int(atomic.LoadInt32(&s.currentBuf))
}

func (s *BlitToScreen) Destroy() {
	for _, fb := range s.mapedBuf {
		if fb != nil {
			fb.Destroy()
		}
	}
	if s.vbo != 0 {
		C.glDeleteBuffers(1, &s.vbo)
	}
	if s.program != 0 {
		C.glDeleteProgram(s.program)
	}
}
