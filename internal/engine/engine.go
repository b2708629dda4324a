// Package engine implements the device-side protocol core: command
// dispatch, the subscription pool, chunked notification transport, the
// paginated log-fetch state machine, and the recording lifecycle.
//
// The engine is single-threaded: every handler runs to completion on the
// Run goroutine, so the state machines and the shared send buffer need no
// locking. Collaborators are fire-and-forget; their results come back as
// events through the Handle* methods, which enqueue onto the loop.
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vitalsense/ecglogd/internal/config"
	"github.com/vitalsense/ecglogd/internal/protocol"
)

// Handle identifies a resolved measurement resource. Zero is never a valid
// handle.
type Handle uint32

// InvalidHandle marks a free subscription slot.
const InvalidHandle Handle = 0

// Collaborator result codes, HTTP-style. Anything at or above
// StatusBadRequest is treated as a failure.
const (
	StatusContinue   = 100
	StatusOK         = 200
	StatusBadRequest = 400
)

// VisualMode selects an indication pattern on the device LED.
type VisualMode int

const (
	VisualNone VisualMode = iota
	VisualShort
	VisualContinuous
)

// Notifier delivers one frame to the data characteristic. Best effort; a
// frame sent while no peer is subscribed is silently dropped by the link.
// The frame slice is backed by the engine's reusable send buffer and is
// only valid for the duration of the call.
type Notifier interface {
	Notify(frame []byte)
}

// Resolver maps a resource path string to a stream handle.
type Resolver interface {
	Resolve(path string) (Handle, error)
}

// StreamSource starts and stops measurement streams. Subscribe results and
// stream samples arrive later via HandleSubscribeResult and
// HandleStreamData.
type StreamSource interface {
	Subscribe(h Handle)
	Unsubscribe(h Handle)
}

// LogStore is the offline log storage. ReadPage and Count results arrive
// via HandleLogPage and HandleLogCount.
type LogStore interface {
	ReadPage(logID uint32)
	Count()
	Wipe()
}

// Recorder controls the on-device measurement recorder.
type Recorder interface {
	Configure(paths []string)
	SetState(recording bool)
}

// Indicator drives the visual indication peripheral.
type Indicator interface {
	SetVisual(mode VisualMode)
}

// PowerControl arms the hardware wake source and requests a full power-off.
// Execution of the power transition is the platform's responsibility.
type PowerControl interface {
	ArmWake()
	PowerOff()
}

// Deps bundles the engine's external collaborators.
type Deps struct {
	Notifier  Notifier
	Resolver  Resolver
	Streams   StreamSource
	Store     LogStore
	Recorder  Recorder
	Indicator Indicator
	Power     PowerControl
}

// Engine is one protocol engine instance. Construct with New, then drive
// with Run; the Handle* methods are safe to call from any goroutine.
type Engine struct {
	cfg  config.Engine
	log  *zap.Logger
	deps Deps

	events chan func()

	subs    subscriptionPool
	fetch   pendingFetch
	scanner *protocol.RecordScanner

	countPending bool
	countRef     byte

	lc lifecycle
	tx transport

	framesSent uint64
}

// New builds an engine around the given collaborators.
func New(cfg config.Engine, deps Deps, log *zap.Logger) *Engine {
	e := &Engine{
		cfg:    cfg,
		log:    log,
		deps:   deps,
		events: make(chan func(), 64),
	}
	e.tx = newTransport(e)
	return e
}

// Run executes the event loop until ctx is cancelled. The periodic tick
// that drives the lifecycle counters runs on this goroutine too.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.TickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.tick()
		case fn := <-e.events:
			fn()
		}
	}
}

func (e *Engine) post(fn func()) {
	e.events <- fn
}

// HandleCommandWrite feeds one command characteristic write into the
// engine. The data is copied before the call returns.
func (e *Engine) HandleCommandWrite(data []byte) {
	buf := append([]byte(nil), data...)
	e.post(func() { e.dispatchCommand(buf) })
}

// HandleSubscribeResult delivers the outcome of an earlier stream
// subscribe request.
func (e *Engine) HandleSubscribeResult(h Handle, status int) {
	e.post(func() { e.onSubscribeResult(h, status) })
}

// HandleStreamData delivers one sample batch from a subscribed stream.
func (e *Engine) HandleStreamData(h Handle, payload []byte) {
	buf := append([]byte(nil), payload...)
	e.post(func() { e.onStreamData(h, buf) })
}

// HandleLogPage delivers one page of an offline log read. status is
// StatusContinue when more pages follow, StatusOK on the final page, or an
// error code.
func (e *Engine) HandleLogPage(logID uint32, status int, page []byte) {
	buf := append([]byte(nil), page...)
	e.post(func() { e.onLogPage(logID, status, buf) })
}

// HandleLogCount delivers the result of a log count request.
func (e *Engine) HandleLogCount(count, status int) {
	e.post(func() { e.onLogCount(count, status) })
}

// HandleLeadState delivers an electrode connectivity change.
func (e *Engine) HandleLeadState(connected bool) {
	e.post(func() { e.onLeadState(connected) })
}

// HandlePeerState delivers a BLE peer connectivity change.
func (e *Engine) HandlePeerState(connected bool) {
	e.post(func() { e.onPeerState(connected) })
}

// notify sends one frame and counts it. All outbound traffic funnels
// through here on the loop goroutine.
func (e *Engine) notify(frame []byte) {
	e.framesSent++
	e.deps.Notifier.Notify(frame)
}

// SubscriptionStatus describes one occupied pool slot.
type SubscriptionStatus struct {
	Reference byte
	Path      string
	Completed bool
}

// FetchStatus describes the in-flight log fetch.
type FetchStatus struct {
	LogID     uint32
	Reference byte
	Offset    uint32
}

// Snapshot is a point-in-time view of the engine state for tooling.
type Snapshot struct {
	Logging         bool
	StopRequested   bool
	LeadsConnected  bool
	LinkConnected   bool
	DisconnectTicks uint32
	ShutdownTicks   uint32
	FramesSent      uint64
	Subscriptions   []SubscriptionStatus
	Fetch           *FetchStatus
}

// Snapshot captures the engine state through the event loop. Requires Run
// to be active.
func (e *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	e.post(func() { reply <- e.snapshot() })
	select {
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case snap := <-reply:
		return snap, nil
	}
}

func (e *Engine) snapshot() Snapshot {
	snap := Snapshot{
		Logging:         e.lc.logging,
		StopRequested:   e.lc.stopRequested,
		LeadsConnected:  e.lc.leads,
		LinkConnected:   e.lc.link,
		DisconnectTicks: e.lc.disconnectTicks,
		ShutdownTicks:   e.lc.shutdownTicks,
		FramesSent:      e.framesSent,
	}
	for i := range e.subs.slots {
		s := &e.subs.slots[i]
		if s.free() {
			continue
		}
		snap.Subscriptions = append(snap.Subscriptions, SubscriptionStatus{
			Reference: s.reference,
			Path:      s.path,
			Completed: s.completed,
		})
	}
	if e.fetch.active {
		snap.Fetch = &FetchStatus{
			LogID:     e.fetch.logID,
			Reference: e.fetch.reference,
			Offset:    e.fetch.offset,
		}
	}
	return snap
}
