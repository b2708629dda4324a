package engine

import (
	"testing"
	"time"

	"github.com/vitalsense/ecglogd/internal/config"
)

func fastTicks(c *config.Engine) {
	c.TickPeriod = time.Second
	c.DisconnectTimeout = 5 * time.Second
	c.AvailabilityTime = 3 * time.Second
}

func countVisual(w *fakeWorld, mode VisualMode) int {
	n := 0
	for _, v := range w.visuals {
		if v == mode {
			n++
		}
	}
	return n
}

func TestLeadsOn_StartsRecordingOnce(t *testing.T) {
	e, w := newTestEngine()

	e.onLeadState(true)
	e.onLeadState(true)

	if len(w.configures) != 1 {
		t.Fatalf("configures = %d, want 1", len(w.configures))
	}
	if got, want := w.configures[0], e.cfg.RecordPaths; len(got) != len(want) {
		t.Errorf("configured paths = %v, want %v", got, want)
	}
	if len(w.states) != 1 || !w.states[0] {
		t.Errorf("states = %v, want [true]", w.states)
	}
	if countVisual(w, VisualContinuous) != 1 {
		t.Errorf("continuous indications = %d, want 1", countVisual(w, VisualContinuous))
	}
}

func TestStopRequested_TracksStopsAndRestarts(t *testing.T) {
	e, _ := newTestEngine()

	if e.snapshot().StopRequested {
		t.Fatal("stop requested before anything ran")
	}

	e.onLeadState(true)
	e.stopLogging()
	if snap := e.snapshot(); !snap.StopRequested || snap.Logging {
		t.Errorf("after stop: StopRequested = %v, Logging = %v, want true, false",
			snap.StopRequested, snap.Logging)
	}

	// A fresh start clears the pending-stop marker.
	e.startLogging()
	if snap := e.snapshot(); snap.StopRequested || !snap.Logging {
		t.Errorf("after restart: StopRequested = %v, Logging = %v, want false, true",
			snap.StopRequested, snap.Logging)
	}

	// Hello wipes the device and leaves it stopped pending power-off.
	e.dispatchCommand([]byte{0, 1})
	if snap := e.snapshot(); !snap.StopRequested || snap.Logging {
		t.Errorf("after hello: StopRequested = %v, Logging = %v, want true, false",
			snap.StopRequested, snap.Logging)
	}
}

func TestDisconnectGrace_StopsAtTimeout(t *testing.T) {
	e, w := newTestEngine(fastTicks)

	e.onLeadState(true)
	e.onLeadState(false)

	timeoutTicks := int(e.cfg.DisconnectTicks())
	for i := 0; i < timeoutTicks-1; i++ {
		e.tick()
		if !e.lc.logging {
			t.Fatalf("recording stopped after %d ticks, before the timeout", i+1)
		}
	}
	e.tick()

	if e.lc.logging {
		t.Fatal("still recording past the grace window")
	}
	stops := 0
	for _, s := range w.states {
		if !s {
			stops++
		}
	}
	if stops != 1 {
		t.Errorf("recorder stop requests = %d, want 1", stops)
	}
	if countVisual(w, VisualShort) != 1 {
		t.Errorf("short indications = %d, want 1", countVisual(w, VisualShort))
	}
	if e.lc.disconnectTicks != 0 {
		t.Errorf("disconnect counter = %d, want 0", e.lc.disconnectTicks)
	}
}

func TestLeadsBackOn_ResetsGraceCounter(t *testing.T) {
	e, _ := newTestEngine(fastTicks)

	e.onLeadState(true)
	e.onLeadState(false)
	e.tick()
	e.tick()
	e.onLeadState(true)
	e.tick()

	if e.lc.disconnectTicks != 0 {
		t.Errorf("disconnect counter = %d after reconnect, want 0", e.lc.disconnectTicks)
	}
	if !e.lc.logging {
		t.Error("recording stopped during a survivable lead bounce")
	}
}

func TestIdleShutdown_PowersDownOnce(t *testing.T) {
	e, w := newTestEngine(fastTicks)

	// Idle from boot: leads never connected, not recording.
	availTicks := int(e.cfg.AvailabilityTicks())
	for i := 0; i < availTicks-1; i++ {
		e.tick()
		if w.powerOffs != 0 {
			t.Fatalf("powered off after %d ticks, before the window", i+1)
		}
	}
	if countVisual(w, VisualShort) != availTicks-1 {
		t.Errorf("short indications while waiting = %d, want %d",
			countVisual(w, VisualShort), availTicks-1)
	}

	e.tick()
	e.tick()
	e.tick()

	if w.armWakes != 1 || w.powerOffs != 1 {
		t.Errorf("armWakes = %d, powerOffs = %d, want 1 each", w.armWakes, w.powerOffs)
	}
}

func TestLeadsOn_HoldsOffShutdown(t *testing.T) {
	e, w := newTestEngine(fastTicks)

	e.onLeadState(true)
	for i := 0; i < 20; i++ {
		e.tick()
	}

	if w.powerOffs != 0 {
		t.Error("powered down while worn")
	}
	if e.lc.shutdownTicks != 0 {
		t.Errorf("shutdown counter = %d, want 0", e.lc.shutdownTicks)
	}
}

func TestStopOnConnect_LinkGatesRecording(t *testing.T) {
	e, w := newTestEngine(fastTicks, func(c *config.Engine) { c.StopOnConnect = true })

	// Worn and recording.
	e.onLeadState(true)
	if !e.lc.logging {
		t.Fatal("not recording after leads on")
	}

	// Peer connects: recording stops.
	e.onPeerState(true)
	if e.lc.logging {
		t.Fatal("still recording with a peer attached")
	}

	// Leads on while connected does not restart.
	e.onLeadState(true)
	if e.lc.logging {
		t.Fatal("recording restarted while a peer is attached")
	}

	// Peer leaves with leads still on: recording resumes.
	e.onPeerState(false)
	if !e.lc.logging {
		t.Fatal("recording did not resume after peer disconnect")
	}

	// Leads off stops immediately, no grace window.
	e.onLeadState(false)
	if e.lc.logging {
		t.Fatal("grace window applied under stop-on-connect")
	}

	starts, stops := 0, 0
	for _, s := range w.states {
		if s {
			starts++
		} else {
			stops++
		}
	}
	if starts != 2 || stops != 2 {
		t.Errorf("starts = %d, stops = %d, want 2 each", starts, stops)
	}
}

func TestVisualContinuous_TurnsOffNextTick(t *testing.T) {
	e, w := newTestEngine(fastTicks)

	e.onLeadState(true)
	if countVisual(w, VisualNone) != 0 {
		t.Fatal("indication cleared before the first tick")
	}
	e.tick()

	if countVisual(w, VisualNone) != 1 {
		t.Errorf("none indications = %d, want 1 after first tick", countVisual(w, VisualNone))
	}
}
