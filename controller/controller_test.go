package controller

import (
	"sync"
	"testing"
	"time"

	"github.com/greatboxS/raw-display/camera"
	"github.com/greatboxS/raw-display/glpipe/stages"
)

func newTestController(timeout time.Duration) *Controller {
	c := &Controller{
		upload:       stages.NewUploadTexture(),
		blit:         stages.NewBlitToScreen(),
		counter:      1,
		frameTimeout: timeout,
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func TestNextFrameReady_TimesOutWithNoProducer(t *testing.T) {
	c := newTestController(30 * time.Millisecond)

	start := time.Now()
	if c.NextFrameReady() {
		t.Fatalf("expected timeout with no producer")
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("returned too early after %v", elapsed)
	}
}

func TestAddFrame_WakesNextFrameReady(t *testing.T) {
	c := newTestController(time.Second)

	done := make(chan bool, 1)
	go func() {
		done <- c.NextFrameReady()
	}()

	time.Sleep(5 * time.Millisecond)
	c.AddFrame(camera.CameraFrame{Buffer: camera.CameraBuffer{Data: []byte{1, 2, 3}, Width: 1, Height: 1}})

	select {
	case ok := <-done:
		if !ok {
			t.Fatalf("expected NextFrameReady to report success")
		}
	case <-time.After(time.Second):
		t.Fatalf("NextFrameReady did not wake up after AddFrame")
	}
}

func TestNextFrameReady_SecondCallBlocksUntilNextSignal(t *testing.T) {
	c := newTestController(50 * time.Millisecond)
	c.AddFrame(camera.CameraFrame{Buffer: camera.CameraBuffer{Data: []byte{1}}})

	if !c.NextFrameReady() {
		t.Fatalf("first call should succeed immediately after AddFrame")
	}

	// No new producer signal since then — the next call must time out.
	if c.NextFrameReady() {
		t.Fatalf("second call should not succeed without a new AddFrame")
	}
}

func TestAddFrame_DeliversPixelsToUploadStage(t *testing.T) {
	c := newTestController(time.Second)
	pixels := []byte{9, 9, 9, 9}
	c.AddFrame(camera.CameraFrame{Buffer: camera.CameraBuffer{Data: pixels, Width: 2, Height: 1}})

	if c.upload == nil {
		t.Fatalf("upload stage missing")
	}
}
