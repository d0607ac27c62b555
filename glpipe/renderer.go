package glpipe

/*
#include <GLES2/gl2.h>
*/
import "C"

import (
	"fmt"
	"sync"
)

// glFinish is a package-level function variable so renderer tests can
// run without a real GL context — mirrors the syscall-injection style
// used by kbuf and drm for kernel entry points.
var glFinish = func() { C.glFinish() }

// Renderer drives an ordered sequence of Renderable stages, threading
// each stage's output framebuffer into the next stage's input. All
// operations are serialized under mu so no stage is ever mutated
// mid-frame and no two Rendering calls overlap.
type Renderer struct {
	mu     sync.Mutex
	ctx    *GraphicsContext
	stages []Renderable
	ready  bool
}

func NewRenderer(ctx *GraphicsContext) *Renderer {
	return &Renderer{ctx: ctx}
}

// AddRenderJob appends a stage to the pipeline. Must be called before
// InitRenderer; the stage list is fixed once initialized.
func (r *Renderer) AddRenderJob(stage Renderable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
}

// InitRenderer makes the context current, then initializes every
// stage in order. Any failure aborts and returns false; stages already
// initialized are left as-is (DeInitRenderer still cleans them up).
func (r *Renderer) InitRenderer(width, height int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ctx != nil {
		if err := r.ctx.MakeCurrent(); err != nil {
			return false
		}
	}
	for _, s := range r.stages {
		if !s.Init(width, height, r.ctx) {
			return false
		}
	}
	r.ready = true
	return true
}

// Rendering runs one frame: with an initially empty prevFB, feed each
// stage's input from the previous stage's output, render it, and
// carry its output forward. glFinish blocks until the GPU has
// consumed the frame before returning.
func (r *Renderer) Rendering() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.ready {
		return false
	}

	var prevFB *FrameBuffer
	for _, s := range r.stages {
		s.setInput(prevFB)
		s.Render()
		prevFB = s.output()
	}
	glFinish()
	return true
}

// DeInitRenderer destroys stages in order, shuts down the context, and
// clears the stage list.
func (r *Renderer) DeInitRenderer() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.stages {
		s.Destroy()
	}
	r.stages = nil
	r.ready = false

	if r.ctx != nil {
		if err := r.ctx.Shutdown(); err != nil {
			return fmt.Errorf("glpipe: shutdown: %w", err)
		}
	}
	return nil
}

// StageCount reports how many stages are currently registered.
func (r *Renderer) StageCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stages)
}
