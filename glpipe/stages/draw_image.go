package stages

/*
#include <GLES2/gl2.h>
#include <stdlib.h>
*/
import "C"

import (
	"unsafe"

	"github.com/greatboxS/raw-display/glpipe"
)

// fullScreenQuad is a triangle strip covering clip space, each vertex
// carrying a position (x, y) and a texture coordinate (u, v).
var fullScreenQuad = []float32{
	// x, y, u, v
	-1, -1, 0, 0,
	1, -1, 1, 0,
	-1, 1, 0, 1,
	1, 1, 1, 1,
}

// DrawImage samples inputFB.texture through a full-screen textured
// quad into its own outputFB.
type DrawImage struct {
	glpipe.BaseStage

	program  C.GLuint
	vbo      C.GLuint
	attrPos  C.GLint
	attrUV   C.GLint
	uTexture C.GLint
}

func NewDrawImage() *DrawImage {
	return &DrawImage{BaseStage: glpipe.NewBaseStage("draw_image")}
}

func (s *DrawImage) Init(width, height int, ctx *glpipe.GraphicsContext) bool {
	s.SetContext(ctx)

	program, err := glpipe.BuildProgram(glpipe.PassthroughVertexShader, glpipe.TexturedFragmentShader)
	if err != nil {
		return false
	}
	s.program = C.GLuint(program)
	s.attrPos = C.glGetAttribLocation(s.program, cstr("aPosition"))
	s.attrUV = C.glGetAttribLocation(s.program, cstr("aTexCoord"))
	s.uTexture = C.glGetUniformLocation(s.program, cstr("uTexture"))

	C.glGenBuffers(1, &s.vbo)
	C.glBindBuffer(C.GL_ARRAY_BUFFER, s.vbo)
	C.glBufferData(C.GL_ARRAY_BUFFER, C.GLsizeiptr(len(fullScreenQuad)*4),
		unsafe.Pointer(&fullScreenQuad[0]), C.GL_STATIC_DRAW)

	fb := glpipe.NewFrameBuffer()
	if err := fb.Init(width, height); err != nil {
		return false
	}
	s.SetOutput(fb)
	return true
}

func (s *DrawImage) Render() {
	if !s.InputReady() {
		return
	}
	out := s.Output()
	out.Bind()

	C.glUseProgram(s.program)
	C.glActiveTexture(C.GL_TEXTURE0)
	C.glBindTexture(C.GL_TEXTURE_2D, C.GLuint(s.Input().Texture()))
	C.glUniform1i(s.uTexture, 0)

	C.glBindBuffer(C.GL_ARRAY_BUFFER, s.vbo)
	const stride = 4 * 4 // 4 floats per vertex, 4 bytes each
	C.glEnableVertexAttribArray(C.GLuint(s.attrPos))
	C.glVertexAttribPointer(C.GLuint(s.attrPos), 2, C.GL_FLOAT, C.GL_FALSE, stride, unsafe.Pointer(uintptr(0)))
	C.glEnableVertexAttribArray(C.GLuint(s.attrUV))
	C.glVertexAttribPointer(C.GLuint(s.attrUV), 2, C.GL_FLOAT, C.GL_FALSE, stride, unsafe.Pointer(uintptr(2*4)))

	C.glDrawArrays(C.GL_TRIANGLE_STRIP, 0, 4)
}

func (s *DrawImage) Destroy() {
	if fb := s.Output(); fb != nil {
		fb.Destroy()
	}
	if s.vbo != 0 {
		C.glDeleteBuffers(1, &s.vbo)
	}
	if s.program != 0 {
		C.glDeleteProgram(s.program)
	}
}

// cstr is a small helper for the handful of GL calls in this package
// that take a C string attribute/uniform name; it leaks the
// allocation, which is fine since every call site here runs once
// during Init, never per-frame.
func cstr(s string) *C.GLchar {
	return (*C.GLchar)(C.CString(s))
}
