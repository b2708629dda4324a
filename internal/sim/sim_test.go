package sim

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vitalsense/ecglogd/internal/config"
	"github.com/vitalsense/ecglogd/internal/engine"
	"github.com/vitalsense/ecglogd/internal/protocol"
)

func TestSynthesizeLog_ScansToRecords(t *testing.T) {
	const samples = 100
	blob := SynthesizeLog(samples)

	s := protocol.NewRecordScanner(true)
	s.Write(blob)

	rec, ok := s.Next()
	if !ok {
		t.Fatal("no descriptor record")
	}
	if rec.ID != protocol.RecordIDDescriptor {
		t.Fatalf("first record id = %d, want descriptor", rec.ID)
	}

	total := 0
	for {
		rec, ok := s.Next()
		if !ok {
			break
		}
		if rec.ID != 1 {
			t.Errorf("data record id = %d, want 1", rec.ID)
		}
		if len(rec.Payload)%2 != 0 {
			t.Errorf("odd payload length %d for int16 samples", len(rec.Payload))
		}
		total += len(rec.Payload) / 2
	}
	if total != samples {
		t.Errorf("scanned %d samples, want %d", total, samples)
	}
	if s.Pending() != 0 {
		t.Errorf("%d bytes left over after scan", s.Pending())
	}
}

func TestWorld_RecordingFlushesLog(t *testing.T) {
	w := NewWorld(zap.NewNop())

	w.SetState(true)
	w.SetState(false)

	if got := w.Status().StoredLogs; got != 1 {
		t.Errorf("stored logs = %d, want 1", got)
	}

	// Stop without a running recording flushes nothing.
	w.SetState(false)
	if got := w.Status().StoredLogs; got != 1 {
		t.Errorf("stored logs = %d after idle stop, want 1", got)
	}
}

func TestMemoryStore_FetchRoundTrip(t *testing.T) {
	log := zap.NewNop()
	w := NewWorld(log)
	cfg := config.Default().Engine
	cfg.TickPeriod = time.Hour
	eng := engine.New(cfg, w.Deps(), log)
	w.Bind(eng)

	if err := w.SeedLogs(1); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = eng.Run(ctx) }()

	// FetchLog, reference 7, log id 0.
	eng.HandleCommandWrite([]byte{3, 7, 0, 0, 0, 0})

	deadline := time.Now().Add(5 * time.Second)
	for {
		snap, err := eng.Snapshot(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if snap.Fetch == nil && snap.FramesSent > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("fetch did not complete: %+v", snap)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if got := w.Status().FramesSeen; got == 0 {
		t.Error("no frames reached the notifier")
	}
}

func TestMemoryStore_UnknownLogAbandons(t *testing.T) {
	log := zap.NewNop()
	w := NewWorld(log)
	cfg := config.Default().Engine
	cfg.TickPeriod = time.Hour
	eng := engine.New(cfg, w.Deps(), log)
	w.Bind(eng)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = eng.Run(ctx) }()

	eng.HandleCommandWrite([]byte{3, 1, 9, 0, 0, 0})

	deadline := time.Now().Add(5 * time.Second)
	for {
		snap, err := eng.Snapshot(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if snap.Fetch == nil {
			if snap.FramesSent != 0 {
				t.Errorf("framesSent = %d for a failed fetch, want 0", snap.FramesSent)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("fetch never abandoned")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
