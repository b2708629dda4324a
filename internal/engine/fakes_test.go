package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/vitalsense/ecglogd/internal/config"
)

// fakeWorld implements every collaborator interface and records what the
// engine asked of it. Frames are copied because the engine reuses its send
// buffer.
type fakeWorld struct {
	frames [][]byte

	handles    map[string]Handle
	nextHandle Handle

	subscribes   []Handle
	unsubscribes []Handle

	pageReads []uint32
	counts    int
	wipes     int

	configures [][]string
	states     []bool

	visuals []VisualMode

	armWakes  int
	powerOffs int
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{handles: map[string]Handle{}, nextHandle: 100}
}

func (w *fakeWorld) Notify(frame []byte) {
	w.frames = append(w.frames, append([]byte(nil), frame...))
}

func (w *fakeWorld) Resolve(path string) (Handle, error) {
	if h, ok := w.handles[path]; ok {
		return h, nil
	}
	if path == "/bad/path" {
		return InvalidHandle, fmt.Errorf("no such resource: %s", path)
	}
	w.nextHandle++
	w.handles[path] = w.nextHandle
	return w.nextHandle, nil
}

func (w *fakeWorld) Subscribe(h Handle)   { w.subscribes = append(w.subscribes, h) }
func (w *fakeWorld) Unsubscribe(h Handle) { w.unsubscribes = append(w.unsubscribes, h) }

func (w *fakeWorld) ReadPage(logID uint32) { w.pageReads = append(w.pageReads, logID) }
func (w *fakeWorld) Count()                { w.counts++ }
func (w *fakeWorld) Wipe()                 { w.wipes++ }

func (w *fakeWorld) Configure(paths []string) {
	w.configures = append(w.configures, append([]string(nil), paths...))
}
func (w *fakeWorld) SetState(recording bool) { w.states = append(w.states, recording) }

func (w *fakeWorld) SetVisual(mode VisualMode) { w.visuals = append(w.visuals, mode) }

func (w *fakeWorld) ArmWake()  { w.armWakes++ }
func (w *fakeWorld) PowerOff() { w.powerOffs++ }

func (w *fakeWorld) deps() Deps {
	return Deps{
		Notifier:  w,
		Resolver:  w,
		Streams:   w,
		Store:     w,
		Recorder:  w,
		Indicator: w,
		Power:     w,
	}
}

// newTestEngine builds an engine around a fakeWorld with a fast tick
// policy. Tests drive the internal handlers directly; the loop is not
// started.
func newTestEngine(mutate ...func(*config.Engine)) (*Engine, *fakeWorld) {
	cfg := config.Default().Engine
	for _, fn := range mutate {
		fn(&cfg)
	}
	w := newFakeWorld()
	return New(cfg, w.deps(), zap.NewNop()), w
}
