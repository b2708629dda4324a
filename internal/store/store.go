// Package store persists offline measurement logs on disk: one blob file
// per log plus a JSON index with summary metadata. It implements the
// engine's log store with asynchronous result delivery, standing in for
// the flash filesystem of the reference hardware.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vitalsense/ecglogd/internal/engine"
)

// DefaultPageSize is how many bytes of a stored log one read request
// returns.
const DefaultPageSize = 512

// FileStore manages a directory of stored logs.
type FileStore struct {
	log *zap.Logger
	eng *engine.Engine

	mu        sync.Mutex
	baseDir   string
	logsDir   string
	indexPath string
	pageSize  int
	index     Index
	cursors   map[uint32]int
}

// Index contains quick lookup information for all stored logs.
type Index struct {
	NextID    uint32                `json:"next_id"`
	Logs      map[uint32]IndexEntry `json:"logs"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// IndexEntry contains summary info for one log.
type IndexEntry struct {
	Size      int       `json:"size"`
	Paths     []string  `json:"paths,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DefaultPath returns the default store path (~/.ecglogd/store).
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ecglogd", "store"), nil
}

// Open opens or creates a store at the given path.
func Open(path string, log *zap.Logger) (*FileStore, error) {
	s := &FileStore{
		log:       log,
		baseDir:   path,
		logsDir:   filepath.Join(path, "logs"),
		indexPath: filepath.Join(path, "index.json"),
		pageSize:  DefaultPageSize,
		cursors:   map[uint32]int{},
	}

	if err := os.MkdirAll(s.logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs dir: %w", err)
	}
	if err := s.loadIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenDefault opens the store at the default path.
func OpenDefault(log *zap.Logger) (*FileStore, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return Open(path, log)
}

// Bind attaches the engine that receives this store's results.
func (s *FileStore) Bind(eng *engine.Engine) { s.eng = eng }

// Append stores one complete log blob and returns its id.
func (s *FileStore) Append(blob []byte) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.index.NextID
	if err := os.WriteFile(s.logPath(id), blob, 0644); err != nil {
		return 0, fmt.Errorf("failed to write log: %w", err)
	}

	s.index.NextID++
	s.index.Logs[id] = IndexEntry{
		Size:      len(blob),
		CreatedAt: time.Now(),
	}
	if err := s.writeIndex(); err != nil {
		return 0, err
	}
	return id, nil
}

// ReadPage asynchronously delivers the next page of the given log. The
// cursor advances only after a successful read and resets once the final
// page has been delivered, so a fetch retried after an error restarts
// from the beginning of the log.
func (s *FileStore) ReadPage(logID uint32) {
	go func() {
		s.mu.Lock()
		entry, ok := s.index.Logs[logID]
		if !ok {
			s.mu.Unlock()
			s.log.Warn("read for unknown log", zap.Uint32("log_id", logID))
			s.eng.HandleLogPage(logID, 404, nil)
			return
		}
		pos := s.cursors[logID]
		end := pos + s.pageSize
		status := engine.StatusContinue
		if end >= entry.Size {
			end = entry.Size
			status = engine.StatusOK
		}
		path := s.logPath(logID)
		s.mu.Unlock()

		page, err := s.readRange(path, pos, end)
		if err != nil {
			s.mu.Lock()
			delete(s.cursors, logID)
			s.mu.Unlock()
			s.log.Error("failed to read log", zap.Uint32("log_id", logID), zap.Error(err))
			s.eng.HandleLogPage(logID, 500, nil)
			return
		}

		s.mu.Lock()
		if status == engine.StatusOK {
			delete(s.cursors, logID)
		} else {
			s.cursors[logID] = end
		}
		s.mu.Unlock()
		s.eng.HandleLogPage(logID, status, page)
	}()
}

func (s *FileStore) readRange(path string, pos, end int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	page := make([]byte, end-pos)
	if _, err := f.ReadAt(page, int64(pos)); err != nil {
		return nil, err
	}
	return page, nil
}

// Count asynchronously delivers the number of stored logs.
func (s *FileStore) Count() {
	go func() {
		s.mu.Lock()
		n := len(s.index.Logs)
		s.mu.Unlock()
		s.eng.HandleLogCount(n, engine.StatusOK)
	}()
}

// Wipe discards every stored log and resets the id sequence.
func (s *FileStore) Wipe() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.index.Logs {
		if err := os.Remove(s.logPath(id)); err != nil && !os.IsNotExist(err) {
			s.log.Warn("failed to remove log", zap.Uint32("log_id", id), zap.Error(err))
		}
	}
	s.index = Index{Logs: map[uint32]IndexEntry{}}
	s.cursors = map[uint32]int{}
	if err := s.writeIndex(); err != nil {
		s.log.Error("failed to write index after wipe", zap.Error(err))
	}
}

// Len reports the number of stored logs.
func (s *FileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index.Logs)
}

// List returns the index entries keyed by log id.
func (s *FileStore) List() map[uint32]IndexEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	logs := make(map[uint32]IndexEntry, len(s.index.Logs))
	for id, entry := range s.index.Logs {
		logs[id] = entry
	}
	return logs
}

func (s *FileStore) logPath(id uint32) string {
	return filepath.Join(s.logsDir, fmt.Sprintf("%d.sbem", id))
}

func (s *FileStore) loadIndex() error {
	data, err := os.ReadFile(s.indexPath)
	if os.IsNotExist(err) {
		s.index = Index{Logs: map[uint32]IndexEntry{}}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}
	if err := json.Unmarshal(data, &s.index); err != nil {
		return fmt.Errorf("failed to parse index: %w", err)
	}
	if s.index.Logs == nil {
		s.index.Logs = map[uint32]IndexEntry{}
	}
	return nil
}

func (s *FileStore) writeIndex() error {
	s.index.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	if err := os.WriteFile(s.indexPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}
