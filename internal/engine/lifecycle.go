package engine

import "go.uber.org/zap"

// lifecycle holds the recording state machine: whether the device is
// recording, the connectivity inputs, and the tick-driven counters behind
// the disconnect grace window and the idle power-down policy.
type lifecycle struct {
	logging       bool
	stopRequested bool
	leads         bool
	link          bool

	disconnectTicks uint32
	shutdownTicks   uint32

	// visualOffTicks counts down to turning off the continuous start
	// indication.
	visualOffTicks uint32

	powerOffRequested bool
}

// onLeadState reacts to an electrode connectivity change. Leads coming on
// start recording unless the stop-on-connect policy holds it back while a
// peer is attached; leads going off arm the disconnect grace counter.
func (e *Engine) onLeadState(connected bool) {
	e.lc.leads = connected
	e.log.Info("lead state changed", zap.Bool("connected", connected))

	if connected {
		if !e.lc.logging && !(e.cfg.StopOnConnect && e.lc.link) {
			e.startLogging()
		}
		return
	}

	if e.lc.logging {
		if e.cfg.StopOnConnect {
			// This policy variant records only while worn, no grace.
			e.stopLogging()
			return
		}
		e.lc.disconnectTicks = 0
	}
}

// onPeerState reacts to the BLE link coming up or down. A disconnect tears
// down every live subscription; under stop-on-connect the link state also
// gates recording.
func (e *Engine) onPeerState(connected bool) {
	e.lc.link = connected
	e.log.Info("peer state changed", zap.Bool("connected", connected))

	if connected {
		if e.cfg.StopOnConnect {
			e.stopLogging()
		}
		return
	}

	e.releaseAllSubscriptions()
	if e.cfg.StopOnConnect && e.lc.leads {
		e.startLogging()
	}
}

// startLogging configures the recorder and starts it. The logging flag is
// set before any request goes out so a second trigger in the same tick
// cannot double-start.
func (e *Engine) startLogging() {
	e.lc.stopRequested = false
	if e.lc.logging || !e.lc.leads {
		return
	}
	e.lc.logging = true

	e.log.Info("starting recording",
		zap.Strings("paths", e.cfg.RecordPaths),
		zap.Bool("link_connected", e.lc.link))

	e.deps.Recorder.Configure(e.cfg.RecordPaths)
	e.deps.Recorder.SetState(true)

	e.deps.Indicator.SetVisual(VisualContinuous)
	e.lc.visualOffTicks = 1
}

// stopLogging stops the recorder. Idempotent.
func (e *Engine) stopLogging() {
	if !e.lc.logging {
		return
	}
	e.log.Info("stopping recording")

	e.deps.Indicator.SetVisual(VisualNone)
	e.lc.stopRequested = true
	e.deps.Recorder.SetState(false)
	e.lc.logging = false
}

// tick advances the lifecycle counters. While recording with leads off,
// the disconnect counter runs toward the grace timeout; while idle with
// leads off, the shutdown counter runs toward a full power-down.
func (e *Engine) tick() {
	lc := &e.lc

	if lc.visualOffTicks > 0 {
		lc.visualOffTicks--
		if lc.visualOffTicks == 0 {
			e.deps.Indicator.SetVisual(VisualNone)
		}
	}

	if lc.logging && !lc.leads {
		lc.disconnectTicks++
		if lc.disconnectTicks >= e.cfg.DisconnectTicks() {
			e.log.Info("leads disconnected past grace window, stopping recording",
				zap.Uint32("ticks", lc.disconnectTicks))
			e.stopLogging()
			lc.disconnectTicks = 0
			e.deps.Indicator.SetVisual(VisualShort)
			return
		}
	} else {
		lc.disconnectTicks = 0
	}

	if lc.leads || lc.logging {
		lc.shutdownTicks = 0
		return
	}
	if lc.powerOffRequested {
		return
	}

	lc.shutdownTicks++
	if lc.shutdownTicks < e.cfg.AvailabilityTicks() {
		e.deps.Indicator.SetVisual(VisualShort)
		return
	}

	e.log.Info("idle past availability window, powering down",
		zap.Uint32("ticks", lc.shutdownTicks))
	lc.powerOffRequested = true
	e.deps.Power.ArmWake()
	e.deps.Power.PowerOff()
}
