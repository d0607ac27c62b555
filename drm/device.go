package drm

import (
	"fmt"
	"sync"
	"time"
	"unsafe"

	sys "golang.org/x/sys/unix"
)

const connectionConnected = 1

// FlipState is the page-flip completion handshake between the render
// thread and the kernel event it waits on — the Go analogue of the
// original's FlipEventObj: a mutex-guarded "pending" flag plus a
// condition variable the completion handler broadcasts on.
type FlipState struct {
	mu   sync.Mutex
	cond *sync.Cond

	pending      bool
	activeIndex  int
	lastFlipNs   int64
	fps          float64
}

func newFlipState() *FlipState {
	fs := &FlipState{}
	fs.cond = sync.NewCond(&fs.mu)
	return fs
}

// FPS may be read unlocked: a stale telemetry read is acceptable, per the
// shared-resource policy covering this field alone.
func (fs *FlipState) FPS() float64 {
	return fs.fps
}

func (fs *FlipState) ActiveIndex() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.activeIndex
}

func (fs *FlipState) Pending() bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.pending
}

// WaitUntilIdle blocks a caller (e.g. a controller wanting to reuse a
// buffer) until the in-flight flip, if any, completes. WaitFlipEvent
// itself never calls this — it drains the completion event directly on
// the render thread — this is for a second thread that only needs to
// know the flip finished.
func (fs *FlipState) WaitUntilIdle() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for fs.pending {
		fs.cond.Wait()
	}
}

// ScanoutDevice is one /dev/dri/cardN: mode-setting plus the double
// buffered page-flip protocol of §4.3.
type ScanoutDevice struct {
	cardID    int
	path      string
	fd        int
	allocator AllocatorType

	info CardInfo

	initialized bool
	connectorID uint32
	crtcID      uint32
	mode        ModeInfo
	buffers     [2]*ScanoutBuffer
	flip        *FlipState
}

// NewScanoutDevice describes but does not open /dev/dri/card<id>.
func NewScanoutDevice(cardID int, allocator AllocatorType) *ScanoutDevice {
	return &ScanoutDevice{
		cardID:    cardID,
		path:      fmt.Sprintf("/dev/dri/card%d", cardID),
		fd:        -1,
		allocator: allocator,
		flip:      newFlipState(),
	}
}

func (d *ScanoutDevice) Open() error {
	fd, err := openFn(d.path, sys.O_RDWR|sys.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("drm: open %s: %w", d.path, err)
	}
	d.fd = fd
	return nil
}

func (d *ScanoutDevice) Close() error {
	if d.fd < 0 {
		return nil
	}
	err := closeFn(d.fd)
	d.fd = -1
	return err
}

func (d *ScanoutDevice) IsOpen() bool { return d.fd >= 0 }
func (d *ScanoutDevice) Fd() int      { return d.fd }
func (d *ScanoutDevice) Path() string { return d.path }

func (d *ScanoutDevice) IsInitialized() bool { return d.initialized }
func (d *ScanoutDevice) ActiveIndex() int    { return d.flip.ActiveIndex() }
func (d *ScanoutDevice) Buffer(i int) *ScanoutBuffer {
	if i != 0 && i != 1 {
		return nil
	}
	return d.buffers[i]
}
func (d *ScanoutDevice) Info() CardInfo { return d.info }
func (d *ScanoutDevice) Flip() *FlipState { return d.flip }

// QueryAllDeviceInfo re-enumerates connectors, encoders, CRTCs and planes,
// replacing whatever was cached from a previous call.
func (d *ScanoutDevice) QueryAllDeviceInfo() error {
	if d.fd < 0 {
		return ErrorNotOpen
	}

	res, err := d.getResources()
	if err != nil {
		return fmt.Errorf("drm: get resources: %w", err)
	}

	encoders := make(map[uint32]EncoderInfo, len(res.encoderIDs))
	for _, id := range res.encoderIDs {
		enc, err := d.getEncoder(id)
		if err != nil {
			continue
		}
		encoders[id] = enc
	}

	crtcs := make(map[uint32]CrtcInfo, len(res.crtcIDs))
	for _, id := range res.crtcIDs {
		crtc, err := d.getCrtc(id)
		if err != nil {
			continue
		}
		crtcs[id] = crtc
	}

	planes, err := d.getAllPlanes()
	if err != nil {
		return fmt.Errorf("drm: get planes: %w", err)
	}

	connectors := make(map[uint32]ConnectorInfo, len(res.connectorIDs))
	for _, id := range res.connectorIDs {
		c, err := d.getConnector(id)
		if err != nil || !c.Connected {
			continue
		}
		if enc, ok := encoders[c.EncoderID]; ok {
			if crtc, ok := crtcs[enc.CrtcID]; ok {
				c.Crtc = crtc
			}
		}
		connectors[id] = c
	}

	d.info = CardInfo{
		MinWidth: res.minWidth, MaxWidth: res.maxWidth,
		MinHeight: res.minHeight, MaxHeight: res.maxHeight,
		Connectors: connectors, Encoders: encoders, Crtcs: crtcs, Planes: planes,
	}
	return nil
}

type cardResources struct {
	connectorIDs, encoderIDs, crtcIDs []uint32
	minWidth, maxWidth, minHeight, maxHeight uint32
}

func (d *ScanoutDevice) getResources() (cardResources, error) {
	var res modeCardRes
	if err := send(d.fd, reqGetResources, uintptr(unsafe.Pointer(&res))); err != nil {
		return cardResources{}, err
	}

	connectorIDs := make([]uint32, res.CountConnectors)
	encoderIDs := make([]uint32, res.CountEncoders)
	crtcIDs := make([]uint32, res.CountCrtcs)
	if len(connectorIDs) > 0 {
		res.ConnectorIDPtr = uint64(uintptr(unsafe.Pointer(&connectorIDs[0])))
	}
	if len(encoderIDs) > 0 {
		res.EncoderIDPtr = uint64(uintptr(unsafe.Pointer(&encoderIDs[0])))
	}
	if len(crtcIDs) > 0 {
		res.CrtcIDPtr = uint64(uintptr(unsafe.Pointer(&crtcIDs[0])))
	}
	if err := send(d.fd, reqGetResources, uintptr(unsafe.Pointer(&res))); err != nil {
		return cardResources{}, err
	}

	return cardResources{
		connectorIDs: connectorIDs, encoderIDs: encoderIDs, crtcIDs: crtcIDs,
		minWidth: res.MinWidth, maxWidth: res.MaxWidth,
		minHeight: res.MinHeight, maxHeight: res.MaxHeight,
	}, nil
}

func (d *ScanoutDevice) getConnector(id uint32) (ConnectorInfo, error) {
	req := modeGetConnector{ConnectorID: id}
	if err := send(d.fd, reqGetConnector, uintptr(unsafe.Pointer(&req))); err != nil {
		return ConnectorInfo{}, err
	}
	return ConnectorInfo{
		ID: req.ConnectorID, EncoderID: req.EncoderID,
		Type: req.ConnectorType, TypeID: req.ConnectorTypeID,
		Connected: req.Connection == connectionConnected,
		MmWidth:   req.MmWidth, MmHeight: req.MmHeight,
	}, nil
}

func (d *ScanoutDevice) getEncoder(id uint32) (EncoderInfo, error) {
	req := modeGetEncoder{EncoderID: id}
	if err := send(d.fd, reqGetEncoder, uintptr(unsafe.Pointer(&req))); err != nil {
		return EncoderInfo{}, err
	}
	return EncoderInfo{
		ID: req.EncoderID, Type: req.EncoderType,
		CrtcID: req.CrtcID, PossibleCrtcs: req.PossibleCrtcs,
	}, nil
}

func (d *ScanoutDevice) getCrtc(id uint32) (CrtcInfo, error) {
	req := modeCrtc{CrtcID: id}
	if err := send(d.fd, reqGetCrtc, uintptr(unsafe.Pointer(&req))); err != nil {
		return CrtcInfo{}, err
	}
	c := CrtcInfo{ID: req.CrtcID, FbID: req.FbID, Enabled: req.ModeValid != 0}
	if c.Enabled {
		c.Mode = modeInfoFromWire(req.Mode)
		c.Width, c.Height = uint32(c.Mode.Hdisplay), uint32(c.Mode.Vdisplay)
	}
	return c, nil
}

func (d *ScanoutDevice) getAllPlanes() (map[uint32]PlaneInfo, error) {
	var res modeGetPlaneRes
	if err := send(d.fd, reqGetPlaneRes, uintptr(unsafe.Pointer(&res))); err != nil {
		return nil, err
	}
	ids := make([]uint32, res.CountPlanes)
	if len(ids) > 0 {
		res.PlaneIDPtr = uint64(uintptr(unsafe.Pointer(&ids[0])))
	}
	if err := send(d.fd, reqGetPlaneRes, uintptr(unsafe.Pointer(&res))); err != nil {
		return nil, err
	}

	planes := make(map[uint32]PlaneInfo, len(ids))
	for _, id := range ids {
		p := modeGetPlane{PlaneID: id}
		if err := send(d.fd, reqGetPlane, uintptr(unsafe.Pointer(&p))); err != nil {
			continue
		}
		formats := make([]uint32, p.CountFormatTypes)
		if len(formats) > 0 {
			p.FormatTypePtr = uint64(uintptr(unsafe.Pointer(&formats[0])))
			if err := send(d.fd, reqGetPlane, uintptr(unsafe.Pointer(&p))); err != nil {
				continue
			}
		}
		planes[id] = PlaneInfo{
			ID: p.PlaneID, CrtcID: p.CrtcID, FbID: p.FbID,
			PossibleCrtcs: p.PossibleCrtcs, Formats: formats,
		}
	}
	return planes, nil
}

// InitDisplay allocates both scanout buffers and programs the CRTC with
// buffer 0 and the single connector, per §4.3. On any failure it unwinds
// everything it allocated and returns the error.
func (d *ScanoutDevice) InitDisplay(connectorID, crtcID uint32, width, height, bpp uint32, format uint32, flags uint32) error {
	if d.fd < 0 {
		return ErrorNotOpen
	}
	crtc, ok := d.info.Crtcs[crtcID]
	if !ok {
		return fmt.Errorf("drm: %w: crtc %d not enumerated", ErrorBadArgument, crtcID)
	}

	info := BufferInfo{Width: width, Height: height, Bpp: bpp, Depth: 24, Format: format, Flags: flags}
	buf0, err := AllocateBuffer(d.fd, d.allocator, info)
	if err != nil {
		return fmt.Errorf("drm: allocate buffer 0: %w", err)
	}
	buf1, err := AllocateBuffer(d.fd, d.allocator, info)
	if err != nil {
		ReleaseBuffer(d.fd, buf0)
		return fmt.Errorf("drm: allocate buffer 1: %w", err)
	}

	mode := crtc.Mode
	if mode.Hdisplay == 0 {
		mode.Hdisplay, mode.Vdisplay = uint16(width), uint16(height)
	}

	if err := d.programCrtc(crtcID, connectorID, buf0.FbID, mode); err != nil {
		ReleaseBuffer(d.fd, buf0)
		ReleaseBuffer(d.fd, buf1)
		return fmt.Errorf("drm: set crtc: %w", err)
	}

	d.connectorID = connectorID
	d.crtcID = crtcID
	d.mode = mode
	d.buffers[0], d.buffers[1] = buf0, buf1
	d.flip = newFlipState()
	d.initialized = true
	return nil
}

// InitDisplayConnector is the ConnectorInfo-driven overload of
// InitDisplay: it uses the connector's already-resolved CRTC.
func (d *ScanoutDevice) InitDisplayConnector(c ConnectorInfo, bpp uint32, format uint32, flags uint32) error {
	return d.InitDisplay(c.ID, c.Crtc.ID, c.Crtc.Width, c.Crtc.Height, bpp, format, flags)
}

func (d *ScanoutDevice) DeInitDisplay() error {
	if !d.initialized {
		return nil
	}
	var firstErr error
	for i, buf := range d.buffers {
		if err := ReleaseBuffer(d.fd, buf); err != nil && firstErr == nil {
			firstErr = err
		}
		d.buffers[i] = nil
	}
	d.connectorID, d.crtcID = 0, 0
	d.mode = ModeInfo{}
	d.initialized = false
	return firstErr
}

func (d *ScanoutDevice) programCrtc(crtcID, connectorID, fbID uint32, mode ModeInfo) error {
	connectors := []uint32{connectorID}
	req := modeCrtc{
		CrtcID: crtcID, FbID: fbID,
		SetConnectorsPtr: uint64(uintptr(unsafe.Pointer(&connectors[0]))),
		CountConnectors:  1,
		ModeValid:        1,
		Mode:             mode.toWire(),
	}
	return send(d.fd, reqSetCrtc, uintptr(unsafe.Pointer(&req)))
}

// SetModeCrtc reprograms the CRTC with a specific buffer, independent of
// the flip queue — used for forced refreshes.
func (d *ScanoutDevice) SetModeCrtc(buf *ScanoutBuffer) error {
	if !d.initialized {
		return ErrorNotInitialized
	}
	return d.programCrtc(d.crtcID, d.connectorID, buf.FbID, d.mode)
}

// FlipBuffer is called by the renderer after filling the non-active
// buffer. The active index toggles only once the page-flip ioctl has
// succeeded; a failed submit leaves it unchanged and clears pending. The
// kernel still scans out the previous buffer until the completion event
// fires; see §4.3's invariant.
func (d *ScanoutDevice) FlipBuffer(useVSync bool) error {
	if !d.initialized {
		return ErrorNotInitialized
	}

	d.flip.mu.Lock()
	nextIdx := 1 - d.flip.activeIndex
	d.flip.pending = true
	d.flip.mu.Unlock()

	var flags uint32
	if useVSync {
		flags = drmEventFlipComplete
	}
	req := modeCrtcPageFlip{CrtcID: d.crtcID, FbID: d.buffers[nextIdx].FbID, Flags: flags}
	if err := send(d.fd, reqPageFlip, uintptr(unsafe.Pointer(&req))); err != nil {
		d.flip.mu.Lock()
		d.flip.pending = false
		d.flip.mu.Unlock()
		return fmt.Errorf("drm: page flip: %w", err)
	}

	d.flip.mu.Lock()
	d.flip.activeIndex = nextIdx
	d.flip.mu.Unlock()
	return nil
}

// WaitFlipEvent blocks the render thread on the device fd, drains one DRM
// event, and updates FlipState under its lock. If no flip is pending it
// returns immediately.
func (d *ScanoutDevice) WaitFlipEvent(timeoutMs int) error {
	if !d.flip.Pending() {
		return nil
	}

	ready, err := pollReadFn(d.fd, timeoutMs)
	if err != nil {
		return fmt.Errorf("drm: poll flip event: %w", err)
	}
	if !ready {
		return nil
	}

	buf := make([]byte, 1024)
	n, err := readFn(d.fd, buf)
	if err != nil {
		return fmt.Errorf("drm: read flip event: %w", err)
	}
	return d.handleEvents(buf[:n])
}

func (d *ScanoutDevice) handleEvents(buf []byte) error {
	for off := 0; off+int(unsafe.Sizeof(drmEvent{})) <= len(buf); {
		hdr := (*drmEvent)(unsafe.Pointer(&buf[off]))
		if hdr.Length == 0 || off+int(hdr.Length) > len(buf) {
			break
		}
		if hdr.Type == drmEventFlipComplete {
			d.onFlipComplete()
		}
		off += int(hdr.Length)
	}
	return nil
}

func (d *ScanoutDevice) onFlipComplete() {
	d.flip.mu.Lock()
	defer d.flip.mu.Unlock()

	now := time.Now().UnixNano()
	if d.flip.lastFlipNs != 0 {
		deltaUs := float64(now-d.flip.lastFlipNs) / 1000.0
		if deltaUs > 0 {
			d.flip.fps = 1e6 / deltaUs
		}
	}
	d.flip.lastFlipNs = now
	d.flip.pending = false
	d.flip.cond.Broadcast()
}
