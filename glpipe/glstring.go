package glpipe

/*
#include <GLES2/gl2.h>
*/
import "C"
import "unsafe"

// glString reads one of the GL_VENDOR/GL_RENDERER/GL_EXTENSIONS/
// GL_VERSION driver strings. Returns "" if no context is current.
func glString(name C.GLenum) string {
	s := C.glGetString(name)
	if s == nil {
		return ""
	}
	return C.GoString((*C.char)(unsafe.Pointer(s)))
}
