package engine

import (
	"go.uber.org/zap"

	"github.com/vitalsense/ecglogd/internal/protocol"
)

// maxSubscriptions is the fixed pool capacity. The pool is a bounded arena
// scanned linearly, keeping the memory footprint deterministic.
const maxSubscriptions = 4

// subscription is one pool slot. A slot with a zero reference and an
// invalid handle is free.
type subscription struct {
	reference byte
	handle    Handle
	path      string
	started   bool
	completed bool
}

func (s *subscription) free() bool {
	return s.reference == 0 && s.handle == InvalidHandle
}

func (s *subscription) reset() {
	*s = subscription{}
}

type subscriptionPool struct {
	slots [maxSubscriptions]subscription
}

func (p *subscriptionPool) freeSlot() *subscription {
	for i := range p.slots {
		if p.slots[i].free() {
			return &p.slots[i]
		}
	}
	return nil
}

func (p *subscriptionPool) byReference(ref byte) *subscription {
	if ref == 0 {
		return nil
	}
	for i := range p.slots {
		if p.slots[i].reference == ref {
			return &p.slots[i]
		}
	}
	return nil
}

func (p *subscriptionPool) byHandle(h Handle) *subscription {
	if h == InvalidHandle {
		return nil
	}
	for i := range p.slots {
		if p.slots[i].handle == h {
			return &p.slots[i]
		}
	}
	return nil
}

// handleSubscribe services a Subscribe command: claim a slot, resolve the
// path, and issue the asynchronous stream subscribe. The slot is marked
// started before the request goes out so a racing duplicate cannot
// double-issue.
func (e *Engine) handleSubscribe(ref byte, path string) {
	// Reusing a live reference would orphan its slot, so tear the old
	// subscription down first.
	if prev := e.subs.byReference(ref); prev != nil {
		e.log.Info("reference reused, releasing previous subscription",
			zap.Uint8("reference", ref), zap.String("path", prev.path))
		if prev.handle != InvalidHandle {
			e.deps.Streams.Unsubscribe(prev.handle)
		}
		prev.reset()
	}

	slot := e.subs.freeSlot()
	if slot == nil {
		e.log.Warn("no free subscription slot", zap.Uint8("reference", ref))
		e.tx.sendResult(ref, protocol.InsufficientStorageHi, protocol.InsufficientStorageLo)
		return
	}

	slot.reference = ref
	slot.path = path
	slot.started = true
	slot.completed = false

	h, err := e.deps.Resolver.Resolve(path)
	if err != nil {
		e.log.Warn("resource path did not resolve",
			zap.String("path", path), zap.Error(err))
		slot.reset()
		return
	}
	slot.handle = h
	e.deps.Streams.Subscribe(h)
}

// handleUnsubscribe services an Unsubscribe command.
func (e *Engine) handleUnsubscribe(ref byte) {
	slot := e.subs.byReference(ref)
	if slot == nil {
		e.log.Debug("unsubscribe for unknown reference", zap.Uint8("reference", ref))
		return
	}
	if slot.handle != InvalidHandle {
		e.deps.Streams.Unsubscribe(slot.handle)
	}
	slot.reset()
}

// onSubscribeResult finalizes a pending subscribe. A failed subscribe
// returns the slot to the pool; a result for an unknown or already
// completed slot is a no-op.
func (e *Engine) onSubscribeResult(h Handle, status int) {
	slot := e.subs.byHandle(h)
	if slot == nil {
		e.log.Debug("subscribe result for unknown handle", zap.Uint32("handle", uint32(h)))
		return
	}
	if !slot.started {
		e.log.Warn("subscribe result for slot that never started",
			zap.Uint32("handle", uint32(h)))
		return
	}
	if slot.completed {
		e.log.Debug("subscribe already completed", zap.Uint32("handle", uint32(h)))
		return
	}
	if status >= StatusBadRequest {
		e.log.Warn("stream subscribe failed",
			zap.String("path", slot.path), zap.Int("status", status))
		slot.reset()
		return
	}
	slot.completed = true
}

// onStreamData forwards one sample batch to the client. Data for a handle
// with no live slot (already unsubscribed) is dropped.
func (e *Engine) onStreamData(h Handle, payload []byte) {
	slot := e.subs.byHandle(h)
	if slot == nil {
		e.log.Debug("stream data for unknown handle", zap.Uint32("handle", uint32(h)))
		return
	}
	e.tx.sendStream(slot.reference, payload)
}

// releaseAllSubscriptions tears down every occupied slot. Called on peer
// disconnect so the sensor does not keep streams running for nobody.
func (e *Engine) releaseAllSubscriptions() {
	for i := range e.subs.slots {
		s := &e.subs.slots[i]
		if s.free() {
			continue
		}
		if s.handle != InvalidHandle {
			e.deps.Streams.Unsubscribe(s.handle)
		}
		s.reset()
	}
}
