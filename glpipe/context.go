package glpipe

/*
#include <EGL/egl.h>
#include <GLES2/gl2.h>
*/
import "C"

import (
	"fmt"
	"unsafe"
)

var (
	ErrorNotInitialized = fmt.Errorf("glpipe: no current context")
	ErrorInitFailed     = fmt.Errorf("glpipe: EGL initialization failed")
)

// GraphicsContext is the EGL-class display/surface/context triple a
// Renderer makes current before running any stage, per §4.4.
type GraphicsContext struct {
	width, height int

	display C.EGLDisplay
	surface C.EGLSurface
	context C.EGLContext
	config  C.EGLConfig

	current bool
}

// NewGraphicsContext resolves a display handle (native if supplied,
// otherwise the platform's surfaceless default), chooses an 8/8/8 color +
// 16-bit depth configuration (window-bit if nativeWindow is non-zero,
// pbuffer-bit otherwise), creates the matching surface, creates a GL ES2
// context (optionally sharing with sharedContext), and makes it current.
func NewGraphicsContext(width, height int, nativeDisplay, nativeWindow, sharedContext uintptr) (*GraphicsContext, error) {
	gc := &GraphicsContext{width: width, height: height}

	if nativeDisplay != 0 {
		gc.display = C.eglGetDisplay(C.EGLNativeDisplayType(unsafe.Pointer(nativeDisplay)))
	} else {
		gc.display = C.eglGetDisplay(C.EGLNativeDisplayType(C.EGL_DEFAULT_DISPLAY))
	}
	if gc.display == nil {
		return nil, fmt.Errorf("%w: no display", ErrorInitFailed)
	}

	var major, minor C.EGLint
	if C.eglInitialize(gc.display, &major, &minor) == C.EGL_FALSE {
		return nil, fmt.Errorf("%w: eglInitialize", ErrorInitFailed)
	}

	surfaceBit := C.EGLint(C.EGL_PBUFFER_BIT)
	if nativeWindow != 0 {
		surfaceBit = C.EGL_WINDOW_BIT
	}
	attribs := []C.EGLint{
		C.EGL_RED_SIZE, 8,
		C.EGL_GREEN_SIZE, 8,
		C.EGL_BLUE_SIZE, 8,
		C.EGL_DEPTH_SIZE, 16,
		C.EGL_SURFACE_TYPE, surfaceBit,
		C.EGL_RENDERABLE_TYPE, C.EGL_OPENGL_ES2_BIT,
		C.EGL_NONE,
	}
	var numConfigs C.EGLint
	if C.eglChooseConfig(gc.display, &attribs[0], &gc.config, 1, &numConfigs) == C.EGL_FALSE || numConfigs == 0 {
		C.eglTerminate(gc.display)
		return nil, fmt.Errorf("%w: eglChooseConfig", ErrorInitFailed)
	}

	if nativeWindow != 0 {
		gc.surface = C.eglCreateWindowSurface(gc.display, gc.config, C.EGLNativeWindowType(unsafe.Pointer(nativeWindow)), nil)
	} else {
		pbufAttribs := []C.EGLint{C.EGL_WIDTH, C.EGLint(width), C.EGL_HEIGHT, C.EGLint(height), C.EGL_NONE}
		gc.surface = C.eglCreatePbufferSurface(gc.display, gc.config, &pbufAttribs[0])
	}
	if gc.surface == nil {
		C.eglTerminate(gc.display)
		return nil, fmt.Errorf("%w: create surface", ErrorInitFailed)
	}

	ctxAttribs := []C.EGLint{C.EGL_CONTEXT_CLIENT_VERSION, 2, C.EGL_NONE}
	shared := C.EGLContext(unsafe.Pointer(sharedContext))
	if sharedContext == 0 {
		shared = C.EGL_NO_CONTEXT
	}
	gc.context = C.eglCreateContext(gc.display, gc.config, shared, &ctxAttribs[0])
	if gc.context == nil {
		C.eglDestroySurface(gc.display, gc.surface)
		C.eglTerminate(gc.display)
		return nil, fmt.Errorf("%w: eglCreateContext", ErrorInitFailed)
	}

	if err := gc.MakeCurrent(); err != nil {
		gc.Shutdown()
		return nil, err
	}
	return gc, nil
}

func (gc *GraphicsContext) MakeCurrent() error {
	if C.eglMakeCurrent(gc.display, gc.surface, gc.surface, gc.context) == C.EGL_FALSE {
		return fmt.Errorf("%w: eglMakeCurrent", ErrorInitFailed)
	}
	gc.current = true
	return nil
}

func (gc *GraphicsContext) SwapBuffers() error {
	if !gc.current {
		return ErrorNotInitialized
	}
	if C.eglSwapBuffers(gc.display, gc.surface) == C.EGL_FALSE {
		return fmt.Errorf("glpipe: eglSwapBuffers failed")
	}
	return nil
}

// Shutdown is idempotent: once the context is gone, later calls are a
// no-op and return nil.
func (gc *GraphicsContext) Shutdown() error {
	if !gc.current && gc.display == nil {
		return nil
	}
	if gc.display != nil {
		C.eglMakeCurrent(gc.display, C.EGL_NO_SURFACE, C.EGL_NO_SURFACE, C.EGL_NO_CONTEXT)
		if gc.context != nil {
			C.eglDestroyContext(gc.display, gc.context)
		}
		if gc.surface != nil {
			C.eglDestroySurface(gc.display, gc.surface)
		}
		C.eglTerminate(gc.display)
	}
	gc.display, gc.surface, gc.context = nil, nil, nil
	gc.current = false
	return nil
}

func (gc *GraphicsContext) IsInitialized() bool { return gc.current }
func (gc *GraphicsContext) Width() int          { return gc.width }
func (gc *GraphicsContext) Height() int         { return gc.height }

// Vendor, Renderer, and Extensions surface the driver identification
// strings GL_VENDOR/GL_RENDERER/GL_EXTENSIONS report. They're only used
// for diagnostic logging at startup; nothing in the render pipeline
// branches on them.
func (gc *GraphicsContext) Vendor() string     { return glString(C.GL_VENDOR) }
func (gc *GraphicsContext) Renderer() string   { return glString(C.GL_RENDERER) }
func (gc *GraphicsContext) Extensions() string { return glString(C.GL_EXTENSIONS) }
