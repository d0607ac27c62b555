package glpipe

/*
#include <GLES2/gl2.h>
#include <stdlib.h>
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// CompileShader compiles a GL ES2 shader of the given type from source
// and returns its object name. Compile failures are reported with the
// driver's info log attached.
func CompileShader(shaderType C.GLenum, source string) (C.GLuint, error) {
	shader := C.glCreateShader(shaderType)
	if shader == 0 {
		return 0, fmt.Errorf("glpipe: glCreateShader failed")
	}

	csrc := C.CString(source)
	defer C.free(unsafe.Pointer(csrc))
	C.glShaderSource(shader, 1, &csrc, nil)
	C.glCompileShader(shader)

	var status C.GLint
	C.glGetShaderiv(shader, C.GL_COMPILE_STATUS, &status)
	if status == C.GL_FALSE {
		msg := shaderInfoLog(shader)
		C.glDeleteShader(shader)
		return 0, fmt.Errorf("glpipe: shader compile failed: %s", msg)
	}
	return shader, nil
}

func shaderInfoLog(shader C.GLuint) string {
	var length C.GLint
	C.glGetShaderiv(shader, C.GL_INFO_LOG_LENGTH, &length)
	if length <= 0 {
		return ""
	}
	buf := make([]byte, int(length))
	C.glGetShaderInfoLog(shader, C.GLsizei(length), nil, (*C.GLchar)(unsafe.Pointer(&buf[0])))
	return string(buf)
}

// LinkProgram links a vertex and fragment shader into a program and
// deletes the shader objects (the program retains compiled code once
// linked, per GL ES2 convention).
func LinkProgram(vs, fs C.GLuint) (C.GLuint, error) {
	program := C.glCreateProgram()
	if program == 0 {
		return 0, fmt.Errorf("glpipe: glCreateProgram failed")
	}
	C.glAttachShader(program, vs)
	C.glAttachShader(program, fs)
	C.glLinkProgram(program)

	var status C.GLint
	C.glGetProgramiv(program, C.GL_LINK_STATUS, &status)
	C.glDeleteShader(vs)
	C.glDeleteShader(fs)
	if status == C.GL_FALSE {
		msg := programInfoLog(program)
		C.glDeleteProgram(program)
		return 0, fmt.Errorf("glpipe: program link failed: %s", msg)
	}
	return program, nil
}

func programInfoLog(program C.GLuint) string {
	var length C.GLint
	C.glGetProgramiv(program, C.GL_INFO_LOG_LENGTH, &length)
	if length <= 0 {
		return ""
	}
	buf := make([]byte, int(length))
	C.glGetProgramInfoLog(program, C.GLsizei(length), nil, (*C.GLchar)(unsafe.Pointer(&buf[0])))
	return string(buf)
}

// BuildProgram is the common compile-vertex+compile-fragment+link
// sequence every stage's onInit performs. It returns a plain uint32
// rather than the package-local cgo GLuint type so other packages (the
// concrete Renderable stages) can hold the program name without a
// cross-package cgo type mismatch.
func BuildProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	vs, err := CompileShader(C.GL_VERTEX_SHADER, vertexSrc)
	if err != nil {
		return 0, err
	}
	fs, err := CompileShader(C.GL_FRAGMENT_SHADER, fragmentSrc)
	if err != nil {
		C.glDeleteShader(vs)
		return 0, err
	}
	program, err := LinkProgram(vs, fs)
	return uint32(program), err
}

// PassthroughVertexShader is the position+UV vertex program shared by
// every textured-quad stage (DrawImage, BlitToScreen).
const PassthroughVertexShader = `
attribute vec2 aPosition;
attribute vec2 aTexCoord;
varying vec2 vTexCoord;
void main() {
    vTexCoord = aTexCoord;
    gl_Position = vec4(aPosition, 0.0, 1.0);
}
`

// TexturedFragmentShader samples a single 2D texture unit.
const TexturedFragmentShader = `
precision mediump float;
varying vec2 vTexCoord;
uniform sampler2D uTexture;
void main() {
    gl_FragColor = texture2D(uTexture, vTexCoord);
}
`

// SolidLineFragmentShader draws with a uniform color, used by the
// guideline overlay.
const SolidLineFragmentShader = `
precision mediump float;
uniform vec4 uColor;
void main() {
    gl_FragColor = uColor;
}
`

// LineVertexShader is the position-only vertex program for the
// guideline overlay (no texture coordinates needed).
const LineVertexShader = `
attribute vec2 aPosition;
void main() {
    gl_Position = vec4(aPosition, 0.0, 1.0);
}
`
