package stages

/*
#cgo linux LDFLAGS: -lGLESv2

#include <GLES2/gl2.h>
*/
import "C"

// This file centralizes the CGO directives for the stages package, the
// same convention glpipe/cgo.go and v4l2/cgo.go use: one file owns the
// #cgo lines, the rest of the package just imports "C" with a bare
// #include when it needs a type or constant.
