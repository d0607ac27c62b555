package main

import (
	"fmt"
	"log"

	"github.com/greatboxS/raw-display/drm"
	"github.com/vladimirvivien/gexe"
)

// runSelftest exercises the allocator round-trip and mode enumeration
// paths without starting the camera or render loop — a factory test
// bench check that the kernel-facing plumbing works on a given board
// before wiring up the full pipeline.
func runSelftest(cardID int, allocatorName string) error {
	alloc, err := parseAllocator(allocatorName)
	if err != nil {
		return err
	}

	scan := drm.NewScanoutDevice(cardID, alloc)
	if err := scan.Open(); err != nil {
		return fmt.Errorf("open %s: %w", scan.Path(), err)
	}
	defer scan.Close()

	if err := scan.QueryAllDeviceInfo(); err != nil {
		return fmt.Errorf("query device info: %w", err)
	}
	info := scan.Info()
	log.Printf("selftest: %d connector(s), %d crtc(s), %d plane(s)",
		len(info.Connectors), len(info.Crtcs), len(info.Planes))
	for id, c := range info.Connectors {
		log.Printf("selftest: connector %d connected=%v %dx%d", id, c.Connected, c.Crtc.Width, c.Crtc.Height)
	}

	buf, err := drm.AllocateBuffer(scan.Fd(), alloc, drm.BufferInfo{
		Width: 64, Height: 64, Bpp: 32, Depth: 24,
	})
	if err != nil {
		return fmt.Errorf("allocate buffer round-trip: %w", err)
	}
	if err := drm.ReleaseBuffer(scan.Fd(), buf); err != nil {
		return fmt.Errorf("release buffer round-trip: %w", err)
	}
	log.Printf("selftest: allocator %q round-trip ok", allocatorName)

	dumpHardwareSanity()
	return nil
}

// dumpHardwareSanity shells out to v4l2-ctl/modetest when present on the
// target, purely as an informational dump alongside the selftest run;
// their absence is not a failure.
func dumpHardwareSanity() {
	e := gexe.New()
	if path := e.Prog().Avail("v4l2-ctl"); path != "" {
		log.Printf("selftest: v4l2-ctl --list-devices:\n%s", e.Run("v4l2-ctl --list-devices"))
	}
	if path := e.Prog().Avail("modetest"); path != "" {
		log.Printf("selftest: modetest -c:\n%s", e.Run("modetest -c"))
	}
}
