package protocol

import (
	"encoding/binary"
	"fmt"
)

// Frame size limits derived from the negotiated link MTU minus ATT overhead.
// A single notification never exceeds FrameLimit bytes; the payload of one
// data frame never exceeds MaxChunk bytes.
const (
	FrameLimit = 158
	MaxChunk   = 150

	// DataHeaderLen is [type:u8][reference:u8][offset:u32 LE].
	DataHeaderLen = 6
	// StreamHeaderLen is [type:u8][reference:u8]; live stream frames carry
	// no offset field.
	StreamHeaderLen = 2
)

// AppendDataFrame appends one log-data frame to dst and returns the extended
// slice. The payload must already be cut to MaxChunk or less; an empty
// payload produces the end-of-stream marker frame.
func AppendDataFrame(dst []byte, typ, ref byte, offset uint32, payload []byte) []byte {
	dst = append(dst, typ, ref)
	dst = binary.LittleEndian.AppendUint32(dst, offset)
	return append(dst, payload...)
}

// AppendStreamFrame appends one live-stream frame (no offset field) to dst.
func AppendStreamFrame(dst []byte, typ, ref byte, payload []byte) []byte {
	dst = append(dst, typ, ref)
	return append(dst, payload...)
}

// AppendCommandResult appends a CommandResult frame with an optional
// status/message body.
func AppendCommandResult(dst []byte, ref byte, body ...byte) []byte {
	dst = append(dst, RspCommandResult, ref)
	return append(dst, body...)
}

// Frame is a decoded data characteristic notification. Offset is only
// meaningful when HasOffset is set (log-fetch data frames).
type Frame struct {
	Type      byte
	Reference byte
	Offset    uint32
	HasOffset bool
	Payload   []byte
}

// ParseDataFrame decodes a frame that carries an offset field (log-fetch
// traffic). Used by tooling and tests; the device only emits these.
func ParseDataFrame(data []byte) (Frame, error) {
	if len(data) < StreamHeaderLen {
		return Frame{}, fmt.Errorf("frame too short: %d bytes", len(data))
	}
	f := Frame{Type: data[0], Reference: data[1]}
	switch f.Type {
	case RspCommandResult:
		f.Payload = data[2:]
		return f, nil
	case RspData, RspDataPart2, RspDataPart3:
		if len(data) < DataHeaderLen {
			return Frame{}, fmt.Errorf("data frame too short: %d bytes", len(data))
		}
		f.Offset = binary.LittleEndian.Uint32(data[2:6])
		f.HasOffset = true
		f.Payload = data[DataHeaderLen:]
		return f, nil
	default:
		return Frame{}, fmt.Errorf("unknown response type: %d", f.Type)
	}
}
