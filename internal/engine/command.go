package engine

import (
	"encoding/binary"

	"go.uber.org/zap"

	"github.com/vitalsense/ecglogd/internal/protocol"
)

// dispatchCommand parses and routes one command characteristic write.
// Malformed, unknown, or badly shaped commands are logged and dropped with
// no client-visible response and no state change.
func (e *Engine) dispatchCommand(data []byte) {
	cmd, err := protocol.ParseCommand(data)
	if err != nil {
		e.log.Warn("dropping malformed command write", zap.Error(err))
		return
	}
	if err := cmd.Validate(); err != nil {
		e.log.Warn("dropping invalid command",
			zap.Uint8("code", cmd.Code), zap.Error(err))
		return
	}

	switch cmd.Code {
	case protocol.CmdHello:
		e.handleHello(cmd.Reference)
	case protocol.CmdSubscribe:
		e.handleSubscribe(cmd.Reference, cmd.Path())
	case protocol.CmdUnsubscribe:
		e.handleUnsubscribe(cmd.Reference)
	case protocol.CmdFetchLog:
		logID := binary.LittleEndian.Uint32(cmd.Args)
		e.startFetch(logID, cmd.Reference)
	case protocol.CmdInitOffline:
		e.handleInitOffline(cmd.Reference)
	case protocol.CmdGetLogCount:
		e.handleGetLogCount(cmd.Reference)
	case protocol.CmdStopLogging:
		e.handleStopLogging(cmd.Reference)
	}
}

// handleHello acknowledges the client, wipes offline storage, and starts
// the power-down sequence: clear indications, arm the hardware wake
// source, request full power-off.
func (e *Engine) handleHello(ref byte) {
	e.log.Info("hello received, starting power-down sequence")

	e.deps.Store.Wipe()
	e.tx.sendResult(ref, 'P', 'O', 'W', 'E', 'R')
	e.deps.Indicator.SetVisual(VisualNone)

	e.lc.stopRequested = true
	e.lc.logging = false

	e.deps.Power.ArmWake()
	e.deps.Power.PowerOff()
}

// handleInitOffline wipes the offline store and acknowledges with a 200.
func (e *Engine) handleInitOffline(ref byte) {
	e.log.Info("initializing offline storage")
	e.deps.Store.Wipe()
	e.tx.sendResult(ref, protocol.StatusAccepted)
}

// handleGetLogCount issues an asynchronous count request; the reply goes
// out when the store answers. Only one count request may be pending.
func (e *Engine) handleGetLogCount(ref byte) {
	if e.countPending {
		e.log.Warn("log count already pending, rejecting", zap.Uint8("reference", ref))
		return
	}
	e.countPending = true
	e.countRef = ref
	e.deps.Store.Count()
}

// onLogCount answers a pending GetLogCount command.
func (e *Engine) onLogCount(count, status int) {
	if !e.countPending {
		e.log.Debug("log count result with no pending request")
		return
	}
	ref := e.countRef
	e.countPending = false
	e.countRef = 0

	if status >= StatusBadRequest {
		e.log.Warn("log count failed", zap.Int("status", status))
		return
	}
	e.tx.sendResult(ref, byte(count))
}

// handleStopLogging stops recording and acknowledges. Idempotent: a second
// stop changes nothing but is still acknowledged.
func (e *Engine) handleStopLogging(ref byte) {
	e.stopLogging()
	e.tx.sendResult(ref, protocol.StatusOK)
}
