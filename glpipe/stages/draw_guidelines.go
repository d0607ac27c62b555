package stages

/*
#include <GLES2/gl2.h>
*/
import "C"

import (
	"time"
	"unsafe"

	"github.com/greatboxS/raw-display/glpipe"
)

// nowFn is a package-level function variable so the animation timing
// in DrawGuidelines can be driven deterministically in tests.
var nowFn = time.Now

// integrateGuideline advances one scalar coordinate by velocity*dt,
// bouncing it (and flipping the velocity sign) whenever it would cross
// ±1. Pulled out of Render as a pure function so the bounce logic is
// testable without a GL context.
func integrateGuideline(pos, vel float32, dt float64) (float32, float32) {
	pos += vel * float32(dt)
	if pos > 1 {
		pos = 1 - (pos - 1)
		vel = -vel
	} else if pos < -1 {
		pos = -1 - (pos + 1)
		vel = -vel
	}
	return pos, vel
}

// DrawGuidelines overlays an animated red reference line directly onto
// whatever framebuffer it receives as input, then passes that same
// framebuffer through as its output — it has no offscreen target of
// its own.
type DrawGuidelines struct {
	glpipe.BaseStage

	program C.GLuint
	vbo     C.GLuint
	attrPos C.GLint
	uColor  C.GLint

	x1, y1, x2, y2     float32
	vx1, vy1, vx2, vy2 float32
	lastTick           time.Time
	hasTick            bool
}

func NewDrawGuidelines() *DrawGuidelines {
	return &DrawGuidelines{
		BaseStage: glpipe.NewBaseStage("draw_guidelines"),
		x1:        -0.6, y1: -0.2,
		x2: 0.6, y2: 0.2,
		vx1: 0.3, vy1: 0.17,
		vx2: -0.21, vy2: 0.29,
	}
}

func (s *DrawGuidelines) Init(width, height int, ctx *glpipe.GraphicsContext) bool {
	s.SetContext(ctx)

	program, err := glpipe.BuildProgram(glpipe.LineVertexShader, glpipe.SolidLineFragmentShader)
	if err != nil {
		return false
	}
	s.program = C.GLuint(program)
	s.attrPos = C.glGetAttribLocation(s.program, cstr("aPosition"))
	s.uColor = C.glGetUniformLocation(s.program, cstr("uColor"))

	C.glGenBuffers(1, &s.vbo)
	s.hasTick = false
	return true
}

func (s *DrawGuidelines) step() {
	now := nowFn()
	dt := 0.0
	if s.hasTick {
		dt = now.Sub(s.lastTick).Seconds()
	}
	s.lastTick = now
	s.hasTick = true

	s.x1, s.vx1 = integrateGuideline(s.x1, s.vx1, dt)
	s.y1, s.vy1 = integrateGuideline(s.y1, s.vy1, dt)
	s.x2, s.vx2 = integrateGuideline(s.x2, s.vx2, dt)
	s.y2, s.vy2 = integrateGuideline(s.y2, s.vy2, dt)
}

func (s *DrawGuidelines) Render() {
	if !s.InputReady() {
		return
	}
	s.step()

	in := s.Input()
	in.Bind()

	verts := []float32{s.x1, s.y1, s.x2, s.y2}
	C.glBindBuffer(C.GL_ARRAY_BUFFER, s.vbo)
	C.glBufferData(C.GL_ARRAY_BUFFER, C.GLsizeiptr(len(verts)*4), unsafe.Pointer(&verts[0]), C.GL_DYNAMIC_DRAW)

	C.glUseProgram(s.program)
	C.glUniform4f(s.uColor, 1, 0, 0, 0.8)
	C.glEnableVertexAttribArray(C.GLuint(s.attrPos))
	C.glVertexAttribPointer(C.GLuint(s.attrPos), 2, C.GL_FLOAT, C.GL_FALSE, 0, unsafe.Pointer(uintptr(0)))
	C.glDrawArrays(C.GL_LINES, 0, 2)

	s.SetOutput(in)
}

func (s *DrawGuidelines) Destroy() {
	if s.vbo != 0 {
		C.glDeleteBuffers(1, &s.vbo)
	}
	if s.program != 0 {
		C.glDeleteProgram(s.program)
	}
}
