// Package controller wires the camera source, render pipeline, and
// scanout device together: it is the top-level object the boot process
// constructs once and drives from two threads, the camera worker and
// the render loop.
package controller

import (
	"fmt"
	"sync"
	"time"

	"github.com/greatboxS/raw-display/camera"
	"github.com/greatboxS/raw-display/drm"
	"github.com/greatboxS/raw-display/glpipe"
	"github.com/greatboxS/raw-display/glpipe/stages"
)

// defaultFrameTimeout is how long NextFrameReady waits for a producer
// signal before reporting "no frame".
const defaultFrameTimeout = time.Second

// Controller owns the camera source, the four-stage render pipeline,
// and a non-owning reference to the scanout device it programs after
// each frame.
type Controller struct {
	camera *camera.Source
	upload *stages.UploadTexture
	blit   *stages.BlitToScreen
	rnd    *glpipe.Renderer
	scan   *drm.ScanoutDevice

	mu      sync.Mutex
	cond    *sync.Cond
	counter int

	frameTimeout time.Duration
}

// New constructs a Controller. cam must not yet be initialized or
// started — New calls InitCamera and starts the capture worker itself.
// scan is a non-owning reference: Controller never opens, closes, or
// initializes it; the caller is expected to have already done that
// before the render loop starts calling Rendering.
func New(ctx *glpipe.GraphicsContext, cam *camera.Source, cameraID int, scan *drm.ScanoutDevice) (*Controller, error) {
	c := &Controller{
		camera:       cam,
		upload:       stages.NewUploadTexture(),
		blit:         stages.NewBlitToScreen(),
		rnd:          glpipe.NewRenderer(ctx),
		scan:         scan,
		counter:      1, // no frame handed off yet: NextFrameReady waits for the first AddFrame
		frameTimeout: defaultFrameTimeout,
	}
	c.cond = sync.NewCond(&c.mu)

	c.rnd.AddRenderJob(c.upload)
	c.rnd.AddRenderJob(stages.NewDrawImage())
	c.rnd.AddRenderJob(stages.NewDrawGuidelines())
	c.rnd.AddRenderJob(c.blit)

	if err := cam.InitCamera(cameraID); err != camera.ErrorNone {
		return nil, fmt.Errorf("controller: init camera: %v", err)
	}
	if err := cam.CreateFrameCaptureWorker(c.onCameraFrame, nil); err != camera.ErrorNone {
		cam.DeInitCamera()
		return nil, fmt.Errorf("controller: create capture worker: %v", err)
	}

	return c, nil
}

// onCameraFrame is the camera worker's FrameCallback; it forwards into
// AddFrame, which is where the actual hand-off synchronization lives.
func (c *Controller) onCameraFrame(src *camera.Source, frame *camera.CameraFrame, param any) {
	c.AddFrame(*frame)
}

// AddFrame hands a freshly captured frame's pixels to the upload stage,
// resets the hand-off counter, and wakes any render-loop thread waiting
// in NextFrameReady. Called from the camera worker thread (T1).
func (c *Controller) AddFrame(frame camera.CameraFrame) bool {
	c.mu.Lock()
	c.upload.SetImageData(frame.Buffer.Data, frame.Buffer.Width, frame.Buffer.Height)
	c.counter = 0
	c.mu.Unlock()
	c.cond.Broadcast()
	return true
}

// NextFrameReady waits up to frameTimeout for the hand-off counter to
// reach zero (a producer signal since the last call). On signal it
// increments the counter — so the next call blocks until the next
// producer signal — and returns true. On timeout it returns false
// without modifying state. Called from the render loop thread (T2).
//
// Only the most recent frame handed to AddFrame before this call is
// rendered; if the camera worker calls AddFrame more than once while
// the render loop is busy inside Rendering, the earlier frames are
// silently replaced in the upload stage and never separately drawn.
// The render loop is not expected to keep up with the capture rate
// frame for frame, only to always show the latest one.
func (c *Controller) NextFrameReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Now().Add(c.frameTimeout)
	timer := time.AfterFunc(c.frameTimeout, func() {
		c.mu.Lock()
		c.cond.Broadcast()
		c.mu.Unlock()
	})
	defer timer.Stop()

	for c.counter != 0 {
		if !time.Now().Before(deadline) {
			return false
		}
		c.cond.Wait()
	}
	c.counter++
	return true
}

// InitRenderer makes the context current and initializes every stage.
func (c *Controller) InitRenderer(width, height int) bool {
	return c.rnd.InitRenderer(width, height)
}

// Rendering runs one frame through the stage chain, then programs the
// CRTC with the scanout buffer matching the blit stage's current
// index, keeping the GPU-side double buffer and the kernel-scanned-out
// buffer in lockstep.
func (c *Controller) Rendering() bool {
	if !c.rnd.Rendering() {
		return false
	}
	if c.scan == nil {
		return true
	}
	buf := c.scan.Buffer(c.blit.BufferIdx())
	if buf == nil {
		return false
	}
	return c.scan.SetModeCrtc(buf) == nil
}

// Shutdown stops preview, deinits the camera, joins the capture
// worker, destroys the render stages, and shuts down the context.
// Repeated calls are a no-op on each owned component.
func (c *Controller) Shutdown() {
	c.camera.StopPreview()
	c.camera.DeInitCamera()
	c.rnd.DeInitRenderer()
}

// StartPreview starts the camera stream; the render loop should only
// begin calling NextFrameReady/Rendering once this returns success.
func (c *Controller) StartPreview() error {
	if err := c.camera.StartPreview(); err != camera.ErrorNone {
		return fmt.Errorf("controller: start preview: %v", err)
	}
	return nil
}
