// Command threatsim runs a scenario through the threat awareness engine and
// records every agent's target selection.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/OCAP2/awareness/internal/config"
	"github.com/OCAP2/awareness/internal/logging"
	"github.com/OCAP2/awareness/internal/monitor"
	intOtel "github.com/OCAP2/awareness/internal/otel"
	"github.com/OCAP2/awareness/internal/scenario"
	"github.com/OCAP2/awareness/internal/session"
	"github.com/OCAP2/awareness/internal/sim"
	"github.com/OCAP2/awareness/internal/world"
	"github.com/OCAP2/awareness/pkg/core"
)

// build info - set at build time via ldflags
var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"

	AppName string = "threatsim"
)

// defaultTicks is used when neither the flag nor the scenario set a length.
const defaultTicks = 600

var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger = slog.Default()

	// SessionStartTime names the log file of this run
	SessionStartTime time.Time = time.Now()
)

type flags struct {
	configDir    string
	scenarioPath string
	ticks        int
	outDir       string
	statusFile   string
	seed         uint64
	version      bool
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := flag.NewFlagSet(AppName, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.StringVar(&f.configDir, "config", ".", "directory containing "+config.FileName)
	fs.StringVar(&f.scenarioPath, "scenario", "", "scenario file (YAML)")
	fs.IntVar(&f.ticks, "ticks", 0, "ticks to run; 0 uses the scenario length")
	fs.StringVar(&f.outDir, "out", "", "trace output directory, overrides storage.memory.outputDir")
	fs.StringVar(&f.statusFile, "status", "", "status file rewritten every second while running")
	fs.Uint64Var(&f.seed, "seed", 1, "random seed")
	fs.BoolVar(&f.version, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if !f.version && f.scenarioPath == "" {
		return f, errors.New("-scenario is required")
	}
	if f.ticks < 0 {
		return f, fmt.Errorf("-ticks must not be negative, got %d", f.ticks)
	}
	return f, nil
}

// driverClock lets the loggers stamp records with simulation time before
// the driver exists.
type driverClock struct {
	driver *sim.Driver
}

func (c *driverClock) Now() core.Timestamp {
	if c.driver == nil {
		return 0
	}
	return c.driver.World().Now()
}

func (c *driverClock) Frame() core.Frame {
	if c.driver == nil {
		return 0
	}
	return c.driver.World().Frame()
}

// worldOptions layers the scenario's world settings over the configured ones.
func worldOptions(cfg config.WorldConfig, s *scenario.Scenario) world.Options {
	opts := world.Options{
		LeafSize:  cfg.LeafSize,
		PVSRadius: cfg.PVSRadius,
		FrameTime: core.Timestamp(cfg.FrameTime.Milliseconds()),
	}
	sw := s.World.Options()
	if sw.LeafSize > 0 {
		opts.LeafSize = sw.LeafSize
	}
	if sw.PVSRadius > 0 {
		opts.PVSRadius = sw.PVSRadius
	}
	if sw.FrameTime > 0 {
		opts.FrameTime = sw.FrameTime
	}
	return opts
}

func tickCount(flagTicks int, s *scenario.Scenario) int {
	switch {
	case flagTicks > 0:
		return flagTicks
	case s.Ticks > 0:
		return s.Ticks
	}
	return defaultTicks
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(2)
	}
	if f.version {
		fmt.Printf("%s %s (built %s)\n", AppName, Version, BuildDate)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, f); err != nil {
		Logger.Error("Run failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, f flags) error {
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()

	if err := config.Load(f.configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config")
	}

	logCfg := config.GetLoggingConfig()
	if err := os.MkdirAll(logCfg.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs dir: %w", err)
	}
	logPath := logging.LogFilePath(logCfg.Dir, AppName, SessionStartTime)
	logFile, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	if logCfg.GraylogEnabled {
		gw, err := logging.NewGraylogWriter(logCfg.GraylogAddress)
		if err != nil {
			Logger.Warn("Graylog disabled", "address", logCfg.GraylogAddress, "error", err)
		} else {
			SlogManager.SetGraylogWriter(gw, logCfg.GraylogLevel)
			defer gw.Close()
		}
	}

	otelCfg := config.GetOTelConfig()
	provider, err := intOtel.New(intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		LogWriter:    logFile,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	})
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			Logger.Warn("Telemetry shutdown failed", "error", err)
		}
	}()

	clock := &driverClock{}
	SlogManager.SetContextProvider(logging.ClockContext(clock))
	SlogManager.Setup(logFile, logCfg.Level, provider.LoggerProvider())
	Logger = SlogManager.Logger()
	Logger.Info("Starting", "version", Version, "build", BuildDate, "log", logPath)

	zlog := logging.NewZerolog(logFile, logCfg.Level, clock)

	sc, err := scenario.Load(f.scenarioPath)
	if err != nil {
		return err
	}
	Logger.Info("Loaded scenario", "name", sc.Name, "entities", len(sc.Entities), "agents", len(sc.Agents), "timeline", len(sc.Timeline))

	storageCfg := config.GetStorageConfig()
	if f.outDir != "" {
		storageCfg.Memory.OutputDir = f.outDir
	}
	backend, err := createStorageBackend(storageCfg, zlog)
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	skillCfg := config.GetSkillConfig()
	skill := sc.Skill
	if skill == 0 {
		skill = skillCfg.Skill
		sc.Skill = skill
	}

	sessionContext := session.NewContext()
	driver, err := sim.New(sim.Options{
		World: worldOptions(config.GetWorldConfig(), sc),
		Overrides: sim.Overrides{
			Capacity:         skillCfg.Capacity,
			ArmorProtection:  skillCfg.ArmorProtection,
			ArmorDegradation: skillCfg.ArmorDegradation,
		},
		QueueSize:  config.GetInt("dispatcher.queueSize"),
		Backend:    backend,
		Session:    sessionContext,
		Log:        Logger,
		CommandLog: logging.Sampled(zlog),
		Seed:       f.seed,
	})
	if err != nil {
		return err
	}
	clock.driver = driver
	defer driver.Close()

	if err := sc.Apply(driver); err != nil {
		return fmt.Errorf("failed to set up scenario: %w", err)
	}

	sess := core.NewSession(sc.Name, sc.Path, skill)
	if err := driver.Start(&sess); err != nil {
		return err
	}

	if f.statusFile != "" {
		mon := monitor.NewService(monitor.Dependencies{
			Logger:         Logger,
			SessionContext: sessionContext,
			Source:         driver,
			StatusFile:     f.statusFile,
		})
		if err := mon.Start(); err != nil {
			Logger.Warn("Status monitor disabled", "error", err)
		} else {
			defer mon.Stop()
		}
	}

	ticks := tickCount(f.ticks, sc)
	Logger.Info("Running", "session", sess.ID, "ticks", ticks, "skill", skill)
	started := time.Now()
	runErr := driver.Run(ctx, ticks, sc.Events())
	if errors.Is(runErr, context.Canceled) {
		Logger.Warn("Interrupted, ending session early", "frame", driver.World().Frame())
		runErr = nil
	}

	if err := driver.Stop(); err != nil {
		return errors.Join(runErr, err)
	}

	st := driver.Status()
	Logger.Info("Finished",
		"frames", st.Frame,
		"simTime", st.Time,
		"wallTime", time.Since(started),
		"evictions", st.Stats.Evictions,
		"hurts", st.Stats.Hurts,
		"failedCommands", st.Stats.FailedCommands,
	)

	if exp, ok := exportable(backend); ok {
		meta := exp.GetExportMetadata()
		Logger.Info("Trace exported",
			"path", exp.GetExportedFilePath(),
			"selections", meta.Selections,
			"evictions", meta.Evictions,
			"hurts", meta.Hurts,
			"duration", meta.Duration,
		)
		fmt.Println(exp.GetExportedFilePath())
	}

	logMetrics(ctx, provider)
	return runErr
}

// logMetrics writes the final total of every counter.
func logMetrics(ctx context.Context, provider *intOtel.Provider) {
	if !provider.Enabled() {
		return
	}
	totals, err := provider.Totals(context.WithoutCancel(ctx))
	if err != nil {
		Logger.Warn("Failed to collect metrics", "error", err)
		return
	}
	for _, t := range totals {
		Logger.Info("Metric", "scope", t.Scope, "name", t.Name, "total", t.Value)
	}
}
