// Command rvcd drives the early-boot rear-view-camera display pipeline:
// it opens a V4L2 capture device, opens a DRM scanout device, wires a
// Controller between them, and runs the render loop until killed.
package main

import (
	"flag"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/greatboxS/raw-display/camera"
	"github.com/greatboxS/raw-display/controller"
	"github.com/greatboxS/raw-display/drm"
	"github.com/greatboxS/raw-display/glpipe"
)

func main() {
	videoDevice := flag.String("d", "/dev/video0", "V4L2 capture device path")
	cardID := flag.Int("card", 0, "DRM card index (/dev/dri/cardN)")
	connectorPref := flag.String("connector", "", "preferred connector id (numeric); defaults to the first connected one")
	allocator := flag.String("allocator", "mmap", "scanout buffer allocator: mmap, dmaheap, or ion")
	cameraID := flag.Int("camera-id", 0, "camera id passed to the vendor backend")
	vsync := flag.Bool("vsync", true, "request a page-flip completion event on every flip")
	selftest := flag.Bool("selftest", false, "run allocator + mode enumeration checks and exit, without starting the camera or render loop")
	flag.Parse()

	if *selftest {
		if err := runSelftest(*cardID, *allocator); err != nil {
			log.Fatalf("rvcd: selftest failed: %v", err)
		}
		log.Printf("rvcd: selftest passed")
		return
	}

	alloc, err := parseAllocator(*allocator)
	if err != nil {
		log.Fatalf("rvcd: %v", err)
	}

	scan := drm.NewScanoutDevice(*cardID, alloc)
	if err := scan.Open(); err != nil {
		log.Fatalf("rvcd: open %s: %v", scan.Path(), err)
	}
	defer scan.Close()

	if err := scan.QueryAllDeviceInfo(); err != nil {
		log.Fatalf("rvcd: query device info: %v", err)
	}

	conn, err := pickConnector(scan.Info(), *connectorPref)
	if err != nil {
		log.Fatalf("rvcd: %v", err)
	}
	log.Printf("rvcd: using connector %d (%dx%d)", conn.ID, conn.Crtc.Width, conn.Crtc.Height)

	if err := scan.InitDisplayConnector(conn, 32, 0, 0); err != nil {
		log.Fatalf("rvcd: init display: %v", err)
	}
	defer scan.DeInitDisplay()

	ctx, err := glpipe.NewGraphicsContext(int(conn.Crtc.Width), int(conn.Crtc.Height), 0, 0, 0)
	if err != nil {
		log.Fatalf("rvcd: graphics context: %v", err)
	}
	log.Printf("rvcd: GL vendor=%q renderer=%q", ctx.Vendor(), ctx.Renderer())

	vendor := camera.NewV4L2Vendor(*videoDevice)
	src := camera.NewSource(vendor)

	ctl, err := initControllerWithRetry(ctx, src, *cameraID, scan)
	if err != nil {
		log.Fatalf("rvcd: %v", err)
	}
	defer ctl.Shutdown()

	if !ctl.InitRenderer(int(conn.Crtc.Width), int(conn.Crtc.Height)) {
		log.Fatalf("rvcd: renderer init failed")
	}
	if err := ctl.StartPreview(); err != nil {
		log.Fatalf("rvcd: %v", err)
	}

	runLoop(ctl, scan, *vsync)
}

// initControllerWithRetry mirrors the original's retry-with-backoff
// between vendor init attempts: each failed
// InitCamera call inside controller.New means the vendor backend itself
// failed onInit, so back off briefly before the caller tries again
// rather than busy-spinning.
func initControllerWithRetry(ctx *glpipe.GraphicsContext, src *camera.Source, cameraID int, scan *drm.ScanoutDevice) (*controller.Controller, error) {
	const maxAttempts = 5
	backoff := 50 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		ctl, err := controller.New(ctx, src, cameraID, scan)
		if err == nil {
			return ctl, nil
		}
		lastErr = err
		if src.State() == camera.StateError {
			break
		}
		time.Sleep(backoff)
	}
	return nil, fmt.Errorf("controller init: %w", lastErr)
}

func runLoop(ctl *controller.Controller, scan *drm.ScanoutDevice, vsync bool) {
	for {
		if ctl.NextFrameReady() {
			if !ctl.Rendering() {
				log.Printf("rvcd: frame render failed")
				continue
			}
			if err := scan.FlipBuffer(vsync); err != nil {
				log.Printf("rvcd: flip buffer: %v", err)
				continue
			}
			if err := scan.WaitFlipEvent(1000); err != nil {
				log.Printf("rvcd: wait flip event: %v", err)
			}
		} else {
			time.Sleep(100 * time.Microsecond)
		}
	}
}

func parseAllocator(name string) (drm.AllocatorType, error) {
	switch name {
	case "mmap":
		return drm.AllocatorMMap, nil
	case "dmaheap":
		return drm.AllocatorDmaHeap, nil
	case "ion":
		return drm.AllocatorIon, nil
	default:
		return 0, fmt.Errorf("unknown allocator %q (want mmap, dmaheap, or ion)", name)
	}
}

// pickConnector selects a connected connector by id (numeric pref) or
// falls back to the first connected one in ascending id order, for
// deterministic selection across runs on the same hardware. A
// non-numeric pref is not matched against connector type names; it
// also falls back to the first connected one.
func pickConnector(info drm.CardInfo, pref string) (drm.ConnectorInfo, error) {
	ids := make([]uint32, 0, len(info.Connectors))
	for id, c := range info.Connectors {
		if c.Connected {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if len(ids) == 0 {
		return drm.ConnectorInfo{}, fmt.Errorf("no connected connector found")
	}

	if pref != "" {
		var want uint32
		if _, err := fmt.Sscanf(pref, "%d", &want); err == nil {
			if c, ok := info.Connectors[want]; ok && c.Connected {
				return c, nil
			}
			return drm.ConnectorInfo{}, fmt.Errorf("connector %q is not connected", pref)
		}
	}

	return info.Connectors[ids[0]], nil
}
