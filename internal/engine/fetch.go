package engine

import (
	"go.uber.org/zap"

	"github.com/vitalsense/ecglogd/internal/protocol"
)

// pendingFetch is the single-slot log fetch state. Offset accounting is
// cumulative across pages so the client can resume logically from any
// reported offset.
type pendingFetch struct {
	active    bool
	logID     uint32
	reference byte
	offset    uint32
}

// startFetch begins a paginated read of one stored log. A second fetch
// while one is in flight is rejected.
func (e *Engine) startFetch(logID uint32, ref byte) {
	if e.fetch.active {
		e.log.Warn("log fetch already in progress, rejecting",
			zap.Uint32("active", e.fetch.logID), zap.Uint32("requested", logID))
		return
	}

	e.log.Info("starting log fetch",
		zap.Uint32("log_id", logID), zap.Uint8("reference", ref))
	e.fetch = pendingFetch{active: true, logID: logID, reference: ref}
	if e.cfg.RepackRecords {
		e.scanner = protocol.NewRecordScanner(true)
	}
	e.deps.Store.ReadPage(logID)
}

// onLogPage advances the fetch state machine by one store page. Pages for
// a log that is no longer being fetched are dropped.
func (e *Engine) onLogPage(logID uint32, status int, page []byte) {
	if !e.fetch.active || e.fetch.logID != logID {
		e.log.Debug("dropping page for inactive fetch", zap.Uint32("log_id", logID))
		return
	}

	if status >= StatusBadRequest {
		// Abandon without notifying the client; the original firmware
		// behaves this way. Flagged as an open question in DESIGN.md.
		e.log.Warn("log read failed, abandoning fetch",
			zap.Uint32("log_id", logID), zap.Int("status", status))
		e.resetFetch()
		return
	}

	if e.scanner != nil {
		e.repackAndSend(page)
	} else {
		e.tx.sendLogData(e.fetch.reference, &e.fetch.offset, page)
	}

	switch status {
	case StatusContinue:
		e.deps.Store.ReadPage(logID)
	case StatusOK:
		e.log.Info("log fetch complete, sending end marker",
			zap.Uint32("log_id", logID), zap.Uint32("bytes", e.fetch.offset))
		e.sendEndMarker()
		e.resetFetch()
	default:
		e.log.Warn("unexpected log read status, ending fetch",
			zap.Uint32("log_id", logID), zap.Int("status", status))
		e.resetFetch()
	}
}

// sendEndMarker emits the zero-length completion frame for the current
// fetch.
func (e *Engine) sendEndMarker() {
	if e.scanner != nil {
		e.tx.sendStream(e.fetch.reference, nil)
		return
	}
	e.tx.sendLogData(e.fetch.reference, &e.fetch.offset, nil)
}

func (e *Engine) resetFetch() {
	e.fetch = pendingFetch{}
	e.scanner = nil
}
