package engine

import "github.com/vitalsense/ecglogd/internal/protocol"

// transport fragments outbound payloads into wire-sized notification
// frames. It owns one reusable send buffer; the single-threaded loop
// guarantees no two transfers interleave writes to it.
type transport struct {
	e   *Engine
	buf []byte
}

func newTransport(e *Engine) transport {
	return transport{e: e, buf: make([]byte, 0, protocol.FrameLimit)}
}

// sendLogData emits log-fetch data tagged with the caller's running offset,
// advancing it by every byte sent. A payload over the chunk limit goes out
// as a Data frame followed by continuation frames; an empty payload is the
// end-of-stream marker. Frames are emitted in increasing offset order.
func (t *transport) sendLogData(ref byte, offset *uint32, payload []byte) {
	first := payload
	if len(first) > protocol.MaxChunk {
		first = payload[:protocol.MaxChunk]
	}
	t.buf = protocol.AppendDataFrame(t.buf[:0], protocol.RspData, ref, *offset, first)
	t.e.notify(t.buf)
	*offset += uint32(len(first))

	for rest := payload[len(first):]; len(rest) > 0; {
		part := rest
		if len(part) > protocol.MaxChunk {
			part = rest[:protocol.MaxChunk]
		}
		t.buf = protocol.AppendDataFrame(t.buf[:0], protocol.RspDataPart2, ref, *offset, part)
		t.e.notify(t.buf)
		*offset += uint32(len(part))
		rest = rest[len(part):]
	}
}

// sendStream emits live-stream data. Stream frames carry no offset field;
// oversized payloads continue in DataPart2 frames.
func (t *transport) sendStream(ref byte, payload []byte) {
	first := payload
	if len(first) > protocol.MaxChunk {
		first = payload[:protocol.MaxChunk]
	}
	t.buf = protocol.AppendStreamFrame(t.buf[:0], protocol.RspData, ref, first)
	t.e.notify(t.buf)

	for rest := payload[len(first):]; len(rest) > 0; {
		part := rest
		if len(part) > protocol.MaxChunk {
			part = rest[:protocol.MaxChunk]
		}
		t.buf = protocol.AppendStreamFrame(t.buf[:0], protocol.RspDataPart2, ref, part)
		t.e.notify(t.buf)
		rest = rest[len(part):]
	}
}

// sendResult emits a CommandResult frame with an optional status body.
func (t *transport) sendResult(ref byte, body ...byte) {
	t.buf = protocol.AppendCommandResult(t.buf[:0], ref, body...)
	t.e.notify(t.buf)
}
