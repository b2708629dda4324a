// Package sim provides in-memory stand-ins for every hardware collaborator
// so the protocol engine can run end to end on a development machine: a
// paged log store, synthetic measurement streams, and recorder, indicator,
// and power stubs whose state the dashboard can poll.
package sim

import (
	"sync"

	"go.uber.org/zap"

	"github.com/vitalsense/ecglogd/internal/engine"
	"github.com/vitalsense/ecglogd/internal/protocol"
)

// LogStorage is what the world needs from a log store: the engine-facing
// operations plus local append and inspection. Satisfied by MemoryStore
// here and by the disk-backed store.
type LogStorage interface {
	engine.LogStore
	Bind(eng *engine.Engine)
	Append(blob []byte) (uint32, error)
	Len() int
}

// World bundles the simulated peripherals. Wire it to an engine with Deps
// and Bind, then drive connectivity with SetLeads.
type World struct {
	log *zap.Logger
	eng *engine.Engine

	store   LogStorage
	Streams *StreamHub

	mu          sync.Mutex
	recording   bool
	recordPaths []string
	visual      engine.VisualMode
	wakeArmed   bool
	poweredOff  bool
	framesSeen  uint64
	lastResult  []byte
}

func NewWorld(log *zap.Logger) *World {
	return &World{
		log:     log,
		store:   NewMemoryStore(log.Named("store")),
		Streams: NewStreamHub(log.Named("streams")),
	}
}

// UseStore swaps the default in-memory log store for another backend.
// Call before Deps and Bind.
func (w *World) UseStore(s LogStorage) { w.store = s }

// Deps exposes the world as the engine's collaborator set.
func (w *World) Deps() engine.Deps {
	return engine.Deps{
		Notifier:  w,
		Resolver:  w.Streams,
		Streams:   w.Streams,
		Store:     w.store,
		Recorder:  w,
		Indicator: w,
		Power:     w,
	}
}

// Bind attaches the engine to every simulated peripheral.
func (w *World) Bind(eng *engine.Engine) {
	w.eng = eng
	w.store.Bind(eng)
	w.Streams.Bind(eng)
}

// SetLeads drives the simulated electrode contact.
func (w *World) SetLeads(connected bool) {
	w.eng.HandleLeadState(connected)
}

// SeedLogs preloads n synthesized ECG logs into the store.
func (w *World) SeedLogs(n int) error {
	for i := 0; i < n; i++ {
		if _, err := w.store.Append(SynthesizeLog(200 + 50*i)); err != nil {
			return err
		}
	}
	return nil
}

// Notify counts outbound frames and keeps the latest command result for
// the dashboard. Frames are otherwise discarded; there is no real peer.
func (w *World) Notify(frame []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.framesSeen++
	if len(frame) > 0 && frame[0] == protocol.RspCommandResult {
		w.lastResult = append(w.lastResult[:0], frame...)
	}
}

// Configure implements engine.Recorder.
func (w *World) Configure(paths []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.recordPaths = append([]string(nil), paths...)
}

// SetState implements engine.Recorder. Stopping a recording session flushes
// one synthesized log into the store, standing in for the flash writer.
func (w *World) SetState(recording bool) {
	w.mu.Lock()
	wasRecording := w.recording
	w.recording = recording
	w.mu.Unlock()

	if wasRecording && !recording {
		id, err := w.store.Append(SynthesizeLog(400))
		if err != nil {
			w.log.Error("failed to flush recording", zap.Error(err))
			return
		}
		w.log.Info("recording flushed to store", zap.Uint32("log_id", id))
	}
}

// SetVisual implements engine.Indicator.
func (w *World) SetVisual(mode engine.VisualMode) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.visual = mode
}

// ArmWake implements engine.PowerControl.
func (w *World) ArmWake() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.wakeArmed = true
}

// PowerOff implements engine.PowerControl. The simulated device only
// remembers that it was asked; the process keeps running so the dashboard
// can show the final state.
func (w *World) PowerOff() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.poweredOff = true
	w.log.Info("power-off requested")
}

// Status is a point-in-time view of the simulated peripherals.
type Status struct {
	Recording   bool
	RecordPaths []string
	Visual      engine.VisualMode
	WakeArmed   bool
	PoweredOff  bool
	StoredLogs  int
	FramesSeen  uint64
	LastResult  []byte
}

// Status reports the current peripheral state for the dashboard.
func (w *World) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Status{
		Recording:   w.recording,
		RecordPaths: append([]string(nil), w.recordPaths...),
		Visual:      w.visual,
		WakeArmed:   w.wakeArmed,
		PoweredOff:  w.poweredOff,
		StoredLogs:  w.store.Len(),
		FramesSeen:  w.framesSeen,
		LastResult:  append([]byte(nil), w.lastResult...),
	}
}
