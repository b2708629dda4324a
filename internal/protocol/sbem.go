package protocol

import "encoding/binary"

// SBEM stream constants. A stored log blob begins with an 8-byte stream
// header followed by self-delimited records: an id (1 byte, or 0xFF escape
// plus 2 bytes LE) and a payload length (1 byte, or 0xFF escape plus 4 bytes
// LE), then the payload itself.
const (
	StreamHeaderSize = 8

	sbemEscape = 0xFF
	// Worst-case record header: escaped id (3) + escaped length (5).
	maxRecordHeaderLen = 8

	// RecordIDDescriptor marks a descriptor record describing the layout of
	// the data records that follow.
	RecordIDDescriptor = 0
)

// Record is one self-delimited record extracted from a log stream.
type Record struct {
	ID      uint32
	Payload []byte
}

// AppendStreamHeader appends the fixed stream header that opens a log blob.
func AppendStreamHeader(dst []byte) []byte {
	return append(dst, make([]byte, StreamHeaderSize)...)
}

// AppendRecord appends one encoded record to dst. Ids and lengths that do
// not fit a single byte use the escape coding.
func AppendRecord(dst []byte, id uint32, payload []byte) []byte {
	if id >= sbemEscape {
		dst = append(dst, sbemEscape)
		dst = binary.LittleEndian.AppendUint16(dst, uint16(id))
	} else {
		dst = append(dst, byte(id))
	}
	if len(payload) >= sbemEscape {
		dst = append(dst, sbemEscape)
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(payload)))
	} else {
		dst = append(dst, byte(len(payload)))
	}
	return append(dst, payload...)
}

// readRecordHeader decodes the id and payload length at the start of b.
// Returns ok=false when b does not yet hold a complete header.
func readRecordHeader(b []byte) (id uint32, payloadLen int, headerLen int, ok bool) {
	if len(b) == 0 {
		return 0, 0, 0, false
	}
	pos := 0
	if b[pos] >= sbemEscape {
		if len(b) < pos+3 {
			return 0, 0, 0, false
		}
		id = uint32(binary.LittleEndian.Uint16(b[pos+1 : pos+3]))
		pos += 3
	} else {
		id = uint32(b[pos])
		pos++
	}
	if len(b) <= pos {
		return 0, 0, 0, false
	}
	if b[pos] >= sbemEscape {
		if len(b) < pos+5 {
			return 0, 0, 0, false
		}
		payloadLen = int(binary.LittleEndian.Uint32(b[pos+1 : pos+5]))
		pos += 5
	} else {
		payloadLen = int(b[pos])
		pos++
	}
	return id, payloadLen, pos, true
}

// RecordScanner extracts complete records from a log stream delivered in
// arbitrary pieces. The scanner owns a small accumulation buffer; a record
// split across deliveries is held until its remaining bytes arrive.
type RecordScanner struct {
	buf        []byte
	skipHeader int
}

// NewRecordScanner returns a scanner positioned at the start of a log
// stream. When skipStreamHeader is set the first StreamHeaderSize bytes are
// discarded before record extraction begins.
func NewRecordScanner(skipStreamHeader bool) *RecordScanner {
	s := &RecordScanner{}
	if skipStreamHeader {
		s.skipHeader = StreamHeaderSize
	}
	return s
}

// Write appends one delivery to the scanner.
func (s *RecordScanner) Write(p []byte) {
	if s.skipHeader > 0 {
		n := min(s.skipHeader, len(p))
		s.skipHeader -= n
		p = p[n:]
	}
	s.buf = append(s.buf, p...)
}

// Next returns the next complete record, or ok=false when more bytes are
// needed. The returned payload is a copy and stays valid across further
// Write calls.
func (s *RecordScanner) Next() (Record, bool) {
	id, payloadLen, headerLen, ok := readRecordHeader(s.buf)
	if !ok {
		return Record{}, false
	}
	total := headerLen + payloadLen
	if len(s.buf) < total {
		return Record{}, false
	}
	rec := Record{ID: id, Payload: append([]byte(nil), s.buf[headerLen:total]...)}
	// Shift the remainder down so the buffer never grows past one record
	// plus one delivery.
	n := copy(s.buf, s.buf[total:])
	s.buf = s.buf[:n]
	return rec, true
}

// Pending reports how many buffered bytes are waiting for record completion.
func (s *RecordScanner) Pending() int {
	return len(s.buf)
}
