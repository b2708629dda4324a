// Package cli defines the ecglogd command line: the BLE peripheral daemon,
// the fully simulated mode with the dashboard, and offline log tooling.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/vitalsense/ecglogd/internal/config"
	"github.com/vitalsense/ecglogd/internal/engine"
	"github.com/vitalsense/ecglogd/internal/gatt"
	"github.com/vitalsense/ecglogd/internal/logging"
	"github.com/vitalsense/ecglogd/internal/protocol"
	"github.com/vitalsense/ecglogd/internal/sim"
	"github.com/vitalsense/ecglogd/internal/store"
	"github.com/vitalsense/ecglogd/internal/tui"
	"github.com/vitalsense/ecglogd/internal/util"
)

// CLI is the root command structure for ecglogd.
type CLI struct {
	Config  string `short:"c" help:"Path to YAML config file"`
	Verbose bool   `short:"v" help:"Enable verbose debug output"`

	Run     RunCmd     `cmd:"" help:"Run the BLE peripheral with simulated sensors"`
	Sim     SimCmd     `cmd:"" default:"withargs" help:"Run fully simulated with the dashboard (default)"`
	Inspect InspectCmd `cmd:"" help:"Decode a stored log file and print its records"`
}

// Main parses arguments and dispatches. It is the whole of func main.
func Main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("ecglogd"),
		kong.Description("BLE telemetry and offline log transfer daemon for an ECG sensor."),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli))
}

// load builds the config and logger shared by every command.
func (c *CLI) load() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return config.Config{}, nil, err
	}
	if c.Verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, logging.New(cfg.LogLevel), nil
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// RunCmd runs the real BLE peripheral. Measurement streams, storage, and
// the power peripherals stay simulated; the radio is real.
type RunCmd struct {
	SeedLogs int    `default:"0" help:"Number of synthetic logs to preload into the store"`
	StoreDir string `help:"Log store directory (default ~/.ecglogd/store)"`
}

func (r *RunCmd) Run(globals *CLI) error {
	cfg, log, err := globals.load()
	if err != nil {
		return err
	}
	defer log.Sync()

	fs, err := r.openStore(log.Named("store"))
	if err != nil {
		return err
	}

	world := sim.NewWorld(log.Named("sim"))
	world.UseStore(fs)
	server := gatt.NewServer(cfg, log.Named("gatt"))

	deps := world.Deps()
	deps.Notifier = server

	eng := engine.New(cfg.Engine, deps, log.Named("engine"))
	world.Bind(eng)
	server.Bind(eng)
	if err := world.SeedLogs(r.SeedLogs); err != nil {
		return err
	}

	if err := server.Start(); err != nil {
		return err
	}
	defer server.Stop()

	ctx, cancel := signalContext()
	defer cancel()

	log.Info("peripheral running", zap.String("device", cfg.DeviceName))
	if err := eng.Run(ctx); err != context.Canceled {
		return err
	}
	return nil
}

func (r *RunCmd) openStore(log *zap.Logger) (*store.FileStore, error) {
	if r.StoreDir != "" {
		return store.Open(r.StoreDir, log)
	}
	return store.OpenDefault(log)
}

// SimCmd runs everything in memory and opens the dashboard.
type SimCmd struct {
	SeedLogs int  `default:"2" help:"Number of synthetic logs to preload into the store"`
	NoTui    bool `help:"Run headless, logging state changes only"`
}

func (s *SimCmd) Run(globals *CLI) error {
	cfg, log, err := globals.load()
	if err != nil {
		return err
	}
	if !s.NoTui {
		// The dashboard owns the terminal; keep logs out of it.
		log = zap.NewNop()
	}
	defer log.Sync()

	world := sim.NewWorld(log.Named("sim"))
	eng := engine.New(cfg.Engine, world.Deps(), log.Named("engine"))
	world.Bind(eng)
	if err := world.SeedLogs(s.SeedLogs); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	go eng.Run(ctx)

	if s.NoTui {
		<-ctx.Done()
		return nil
	}
	return tui.Run(eng, world)
}

// InspectCmd decodes a stored log blob from a file.
type InspectCmd struct {
	File       string `arg:"" help:"Log file to decode"`
	SkipHeader bool   `default:"true" negatable:"" help:"Skip the stream header before the first record"`
	Hex        bool   `help:"Hex-dump every record payload"`
}

func (i *InspectCmd) Run(globals *CLI) error {
	data, err := os.ReadFile(i.File)
	if err != nil {
		return err
	}

	s := protocol.NewRecordScanner(i.SkipHeader)
	s.Write(data)

	n := 0
	for {
		rec, ok := s.Next()
		if !ok {
			break
		}
		n++
		switch {
		case rec.ID == protocol.RecordIDDescriptor && util.IsTextData(rec.Payload):
			fmt.Printf("%4d  descriptor  %q\n", n, rec.Payload)
		default:
			fmt.Printf("%4d  id=%-6d    %d bytes\n", n, rec.ID, len(rec.Payload))
			if i.Hex {
				fmt.Print(util.HexDump(rec.Payload))
			}
		}
	}
	fmt.Printf("%d records, %d bytes left over\n", n, s.Pending())
	return nil
}
