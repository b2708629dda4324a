package sim

import (
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/vitalsense/ecglogd/internal/engine"
	"github.com/vitalsense/ecglogd/internal/protocol"
)

// DefaultPageSize is how many bytes of a stored log one read request
// returns. Small enough to exercise the paging path on modest logs.
const DefaultPageSize = 512

// MemoryStore is an in-memory offline log store. Log ids are indices into
// the slice of stored blobs; read results and counts are delivered back to
// the engine asynchronously, the way a flash-backed store would.
type MemoryStore struct {
	log *zap.Logger
	eng *engine.Engine

	mu       sync.Mutex
	pageSize int
	logs     [][]byte
	cursors  map[uint32]int
}

func NewMemoryStore(log *zap.Logger) *MemoryStore {
	return &MemoryStore{
		log:      log,
		pageSize: DefaultPageSize,
		cursors:  map[uint32]int{},
	}
}

// Bind attaches the engine that receives this store's results.
func (m *MemoryStore) Bind(eng *engine.Engine) { m.eng = eng }

// Append stores one complete log blob and returns its id.
func (m *MemoryStore) Append(blob []byte) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, blob)
	return uint32(len(m.logs) - 1), nil
}

// ReadPage asynchronously delivers the next page of the given log. The
// first read of a log starts at the beginning; the cursor resets once the
// final page has been delivered or a read fails, so a retried fetch
// restarts from the beginning of the log.
func (m *MemoryStore) ReadPage(logID uint32) {
	go func() {
		m.mu.Lock()
		if int(logID) >= len(m.logs) {
			delete(m.cursors, logID)
			m.mu.Unlock()
			m.log.Warn("read for unknown log", zap.Uint32("log_id", logID))
			m.eng.HandleLogPage(logID, 404, nil)
			return
		}
		blob := m.logs[logID]
		pos := m.cursors[logID]
		end := pos + m.pageSize
		status := engine.StatusContinue
		if end >= len(blob) {
			end = len(blob)
			status = engine.StatusOK
			delete(m.cursors, logID)
		} else {
			m.cursors[logID] = end
		}
		page := blob[pos:end]
		m.mu.Unlock()

		m.eng.HandleLogPage(logID, status, page)
	}()
}

// Count asynchronously delivers the number of stored logs.
func (m *MemoryStore) Count() {
	go func() {
		m.mu.Lock()
		n := len(m.logs)
		m.mu.Unlock()
		m.eng.HandleLogCount(n, engine.StatusOK)
	}()
}

// Wipe discards every stored log.
func (m *MemoryStore) Wipe() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = nil
	m.cursors = map[uint32]int{}
}

// Len reports the number of stored logs.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.logs)
}

// SynthesizeLog builds one log blob: a stream header, a descriptor record,
// and samples records carrying a synthetic ECG waveform.
func SynthesizeLog(samples int) []byte {
	blob := protocol.AppendStreamHeader(nil)
	blob = protocol.AppendRecord(blob, protocol.RecordIDDescriptor,
		[]byte("<ECG samples=int16[]>"))

	const perRecord = 32
	for off := 0; off < samples; off += perRecord {
		n := perRecord
		if off+n > samples {
			n = samples - off
		}
		payload := make([]byte, 0, 2*n)
		for i := 0; i < n; i++ {
			v := ecgSample(off + i)
			payload = append(payload, byte(v), byte(v>>8))
		}
		blob = protocol.AppendRecord(blob, 1, payload)
	}
	return blob
}

// ecgSample returns a crude synthetic ECG value: a baseline sine with a
// sharp spike once per simulated beat.
func ecgSample(i int) int16 {
	phase := i % 200
	v := 300 * math.Sin(2*math.Pi*float64(phase)/200)
	if phase >= 95 && phase < 105 {
		v += 4000 * math.Exp(-math.Pow(float64(phase-100), 2)/4)
	}
	return int16(v)
}
