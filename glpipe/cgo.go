package glpipe

/*
#cgo linux CFLAGS: -I/usr/include
#cgo linux LDFLAGS: -lEGL -lGLESv2

#include <EGL/egl.h>
#include <GLES2/gl2.h>
#include <stdlib.h>
*/
import "C"

// This file centralizes the CGO compiler directives for the glpipe
// package, the same way v4l2/cgo.go does for the V4L2 headers: one file
// owns the #cgo lines, the rest of the package just `import "C"` with a
// bare #include when it needs a type or constant.
//
// EGL and GLESv2 are provided by the system's GL driver stack (Mesa or a
// vendor SoC driver); both ship the matching headers under
// /usr/include/EGL and /usr/include/GLES2 on any target this pipeline
// runs on.
