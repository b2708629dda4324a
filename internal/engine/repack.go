package engine

import "go.uber.org/zap"

// repackAndSend feeds one store page into the record scanner and forwards
// every complete record as its own frame. Records spanning page boundaries
// stay buffered in the scanner until their remaining bytes arrive, so the
// client always receives whole records regardless of how the store cuts
// its pages.
func (e *Engine) repackAndSend(page []byte) {
	e.scanner.Write(page)
	for {
		rec, ok := e.scanner.Next()
		if !ok {
			return
		}
		e.log.Debug("forwarding record",
			zap.Uint32("record_id", rec.ID), zap.Int("length", len(rec.Payload)))
		e.tx.sendStream(e.fetch.reference, rec.Payload)
	}
}
