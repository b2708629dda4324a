package sim

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vitalsense/ecglogd/internal/engine"
)

// streamInterval is how often a live generator emits one sample batch.
const streamInterval = 250 * time.Millisecond

// StreamHub resolves measurement paths and runs one generator goroutine
// per live subscription, feeding synthetic sample batches to the engine.
type StreamHub struct {
	log *zap.Logger
	eng *engine.Engine

	mu      sync.Mutex
	next    engine.Handle
	byPath  map[string]engine.Handle
	cancels map[engine.Handle]chan struct{}
}

func NewStreamHub(log *zap.Logger) *StreamHub {
	return &StreamHub{
		log:     log,
		next:    1,
		byPath:  map[string]engine.Handle{},
		cancels: map[engine.Handle]chan struct{}{},
	}
}

// Bind attaches the engine that receives stream results and samples.
func (h *StreamHub) Bind(eng *engine.Engine) { h.eng = eng }

// Resolve maps a /Meas/... path to a handle. Unknown roots fail.
func (h *StreamHub) Resolve(path string) (engine.Handle, error) {
	if len(path) < 6 || path[:6] != "/Meas/" {
		return engine.InvalidHandle, fmt.Errorf("no such resource: %s", path)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if handle, ok := h.byPath[path]; ok {
		return handle, nil
	}
	handle := h.next
	h.next++
	h.byPath[path] = handle
	return handle, nil
}

// Subscribe starts a generator for the handle and acknowledges through the
// engine. A second subscribe for a running handle only re-acknowledges.
func (h *StreamHub) Subscribe(handle engine.Handle) {
	h.mu.Lock()
	if _, running := h.cancels[handle]; running {
		h.mu.Unlock()
		h.eng.HandleSubscribeResult(handle, engine.StatusOK)
		return
	}
	stop := make(chan struct{})
	h.cancels[handle] = stop
	h.mu.Unlock()

	h.log.Info("stream started", zap.Uint32("handle", uint32(handle)))
	h.eng.HandleSubscribeResult(handle, engine.StatusOK)
	go h.generate(handle, stop)
}

// Unsubscribe stops the handle's generator if one is running.
func (h *StreamHub) Unsubscribe(handle engine.Handle) {
	h.mu.Lock()
	stop, ok := h.cancels[handle]
	if ok {
		delete(h.cancels, handle)
	}
	h.mu.Unlock()
	if ok {
		close(stop)
		h.log.Info("stream stopped", zap.Uint32("handle", uint32(handle)))
	}
}

// StopAll tears down every running generator.
func (h *StreamHub) StopAll() {
	h.mu.Lock()
	cancels := h.cancels
	h.cancels = map[engine.Handle]chan struct{}{}
	h.mu.Unlock()
	for _, stop := range cancels {
		close(stop)
	}
}

func (h *StreamHub) generate(handle engine.Handle, stop chan struct{}) {
	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	sample := 0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			const perBatch = 50
			batch := make([]byte, 0, 2*perBatch)
			for i := 0; i < perBatch; i++ {
				v := ecgSample(sample)
				batch = append(batch, byte(v), byte(v>>8))
				sample++
			}
			h.eng.HandleStreamData(handle, batch)
		}
	}
}
