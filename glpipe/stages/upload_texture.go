package stages

/*
#include <GLES2/gl2.h>
*/
import "C"

import (
	"unsafe"

	"github.com/greatboxS/raw-display/glpipe"
)

// UploadTexture is the pipeline's entry stage: it owns an output
// FrameBuffer sized to the render target and, on each frame, uploads
// whatever pixel buffer the producer last handed it via SetImageData.
// It has no upstream stage and therefore never consults inputFB.
//
// There is deliberately no SetImportedBuffer/zero-copy path here: every
// frame is a CPU-resident copy uploaded through TexSubImage2D. A DMA-BUF
// import into an EGLImage bound directly to this texture would attach
// at this type, but the camera boundary here never emits dma-buf fds.
type UploadTexture struct {
	glpipe.BaseStage

	pixels   []byte
	srcW     int
	srcH     int
	hasFrame bool
}

func NewUploadTexture() *UploadTexture {
	return &UploadTexture{BaseStage: glpipe.NewBaseStage("upload_texture")}
}

func (s *UploadTexture) Init(width, height int, ctx *glpipe.GraphicsContext) bool {
	s.SetContext(ctx)
	fb := glpipe.NewFrameBuffer()
	if err := fb.Init(width, height); err != nil {
		return false
	}
	s.SetOutput(fb)
	return true
}

// SetImageData stashes a reference to the producer's pixel buffer and
// its extent. The caller (the camera hand-off path) owns the backing
// array and must not reuse it for a different frame until the next
// Render call has run.
func (s *UploadTexture) SetImageData(pixels []byte, width, height int) {
	s.pixels = pixels
	s.srcW, s.srcH = width, height
	s.hasFrame = len(pixels) > 0
}

func (s *UploadTexture) Render() {
	if !s.hasFrame {
		return
	}
	fb := s.Output()
	fb.Bind()
	C.glBindTexture(C.GL_TEXTURE_2D, C.GLuint(fb.Texture()))
	C.glTexSubImage2D(C.GL_TEXTURE_2D, 0, 0, 0,
		C.GLsizei(s.srcW), C.GLsizei(s.srcH),
		C.GL_RGBA, C.GL_UNSIGNED_BYTE, unsafe.Pointer(&s.pixels[0]))
}

func (s *UploadTexture) Destroy() {
	if fb := s.Output(); fb != nil {
		fb.Destroy()
	}
}
