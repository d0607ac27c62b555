package camera

import (
	"sync"
	"sync/atomic"
	"time"
)

// initRetryLimit is the number of consecutive initCamera failures
// after which the source gives up and moves to StateError.
const initRetryLimit = 5

// Source is the vendor-agnostic camera state machine: UNINITIALIZED →
// INITIALIZED → RUNNING ⇄ STOP, with DeInitCamera returning to
// UNINITIALIZED from any non-UNINITIALIZED state. All outer-API state
// transitions are serialized by mu; the frame capture worker started by
// CreateFrameCaptureWorker never takes mu and reads only the atomic
// fields below, per the concurrency model's "worker never takes the
// outer state lock" rule.
type Source struct {
	vendor VendorCamera

	mu         sync.Mutex
	cameraID   int
	retryCount int

	state     atomic.Int32
	lastError atomic.Int32

	loopRunning       atomic.Bool
	loopExitRequested atomic.Bool
	wg                sync.WaitGroup

	callback atomic.Pointer[FrameCallback]
	param    atomic.Pointer[any]
}

// NewSource constructs a Source around a concrete vendor backend.
func NewSource(vendor VendorCamera) *Source {
	s := &Source{vendor: vendor}
	s.state.Store(int32(StateUninitialized))
	s.lastError.Store(int32(ErrorNone))
	return s
}

func (s *Source) State() CameraState     { return CameraState(s.state.Load()) }
func (s *Source) LastError() CameraError { return CameraError(s.lastError.Load()) }
func (s *Source) ID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cameraID
}

func (s *Source) setState(st CameraState)   { s.state.Store(int32(st)) }
func (s *Source) setError(e CameraError)    { s.lastError.Store(int32(e)) }

// InitCamera moves UNINITIALIZED → INITIALIZED. A negative id fails
// immediately without touching the retry count. Consecutive onInit
// failures increment a retry counter; after initRetryLimit failures the
// source moves to StateError instead of staying UNINITIALIZED.
func (s *Source) InitCamera(id int) CameraError {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setError(ErrorNone)

	if id < 0 {
		s.setError(ErrorInitFailed)
		return ErrorInitFailed
	}
	if s.State() != StateUninitialized {
		return s.LastError()
	}

	s.cameraID = id
	s.setError(ErrorNone)
	s.callback.Store(nil)
	s.loopRunning.Store(false)
	s.loopExitRequested.Store(false)

	err := s.vendor.OnInit()
	s.setError(err)

	if err == ErrorNone {
		s.setState(StateInitialized)
		s.retryCount = 0
		return ErrorNone
	}

	s.retryCount++
	s.cameraID = -1
	if s.retryCount >= initRetryLimit {
		s.setState(StateError)
		s.setError(ErrorInitFailed)
	}
	return s.LastError()
}

// DeInitCamera ensures the worker has exited, tears the vendor backend
// down, and returns to StateUninitialized. A no-op when already
// uninitialized.
func (s *Source) DeInitCamera() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() == StateUninitialized {
		return
	}

	s.exitFrameCaptureWorkerLocked()

	s.vendor.OnDeinit()

	s.cameraID = -1
	s.setState(StateUninitialized)
	s.setError(ErrorNone)
	s.callback.Store(nil)
}

// StartPreview moves INITIALIZED or STOP → RUNNING.
func (s *Source) StartPreview() CameraError {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setError(ErrorNone)

	st := s.State()
	if st != StateInitialized && st != StateStop {
		s.setError(ErrorStartPreviewFailed)
		return ErrorStartPreviewFailed
	}

	err := s.vendor.OnStartPreview()
	if err == ErrorNone {
		s.setState(StateRunning)
		return ErrorNone
	}
	s.setError(ErrorStartPreviewFailed)
	return ErrorStartPreviewFailed
}

// StopPreview moves RUNNING → STOP. A no-op outside StateRunning.
func (s *Source) StopPreview() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != StateRunning {
		return
	}

	err := s.vendor.OnStopPreview()
	if err == ErrorNone {
		s.setState(StateStop)
		return
	}
	s.setError(ErrorStopPreviewFailed)
}

// CreateFrameCaptureWorker spawns the dedicated capture goroutine. Fails
// with ErrorCreateLoopFailed if a worker is already running.
func (s *Source) CreateFrameCaptureWorker(callback FrameCallback, param any) CameraError {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loopRunning.Load() {
		return ErrorCreateLoopFailed
	}

	s.callback.Store(&callback)
	s.param.Store(&param)
	s.loopExitRequested.Store(false)
	s.loopRunning.Store(true)

	s.wg.Add(1)
	go s.captureLoop()
	return ErrorNone
}

// ExitFrameCaptureWorker requests the worker exit, joins it, and clears
// the callback/param. Idempotent.
func (s *Source) ExitFrameCaptureWorker() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exitFrameCaptureWorkerLocked()
}

func (s *Source) exitFrameCaptureWorkerLocked() {
	s.loopExitRequested.Store(true)
	if !s.loopRunning.Load() {
		return
	}
	s.wg.Wait()
	s.loopRunning.Store(false)
	s.callback.Store(nil)
	s.param.Store(nil)
}

// captureLoop is the worker body. It reads only atomics and the vendor
// backend, never s.mu, so it can run concurrently with state-machine
// transitions without deadlocking against them.
func (s *Source) captureLoop() {
	defer s.wg.Done()

	for {
		if s.loopExitRequested.Load() {
			return
		}

		if s.State() == StateRunning {
			frame, err := s.vendor.GetFrame()
			if err != ErrorNone {
				continue
			}
			if cb := s.callback.Load(); cb != nil && *cb != nil {
				var p any
				if pp := s.param.Load(); pp != nil {
					p = *pp
				}
				(*cb)(s, &frame, p)
			}
		} else {
			time.Sleep(100 * time.Microsecond)
		}

		if s.loopExitRequested.Load() {
			return
		}
	}
}
