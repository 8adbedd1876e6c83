package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/asteroids-sim/engine/internal/config"
	"github.com/asteroids-sim/engine/internal/core/event"
	coresys "github.com/asteroids-sim/engine/internal/core/system"
	"github.com/asteroids-sim/engine/internal/data"
	"github.com/asteroids-sim/engine/internal/scripting"
	"github.com/asteroids-sim/engine/internal/system"
	"github.com/asteroids-sim/engine/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(scenario string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m          asteroids engine  v0.1.0         \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      rigid-body asteroids simulation      \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mscenario:\033[0m %s\n\n", scenario)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main simulation loop ───────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/engine.toml"
	if p := os.Getenv("ASTEROIDS_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Driver.Scenario)

	// 3. Build the arena and populate it
	printSection("scenario")
	bus := event.NewBus()
	ws := world.NewState(cfg.Physics, bus, log)

	sc, err := data.LoadScenario(cfg.Driver.Scenario)
	if err != nil {
		return fmt.Errorf("scenario: %w", err)
	}
	spawned, err := sc.Spawn(ws)
	if err != nil {
		return fmt.Errorf("spawn scenario: %w", err)
	}
	printStat("ships", len(sc.Ships))
	printStat("planetoids", len(sc.Planetoids))
	printStat("asteroids", len(sc.Asteroids))
	printStat("free bullets", len(sc.Bullets))
	printStat("entities", spawned.Entities)
	fmt.Println()

	// 4. Lua ship programs
	runner := coresys.NewRunner()
	if cfg.Scripting.Enabled {
		printSection("programs")
		engine, err := scripting.NewEngine(cfg.Scripting.Dir, log)
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		defer engine.Close()
		for ship, name := range spawned.Programs {
			if err := engine.Bind(ship, name); err != nil {
				return err
			}
		}
		printStat("bound ships", engine.Bound())
		printOK("Lua engine ready")
		fmt.Println()
		runner.Register(system.NewProgramSystem(ws, engine))
		defer func() { printStat("program errors", int(engine.Failures())) }()
	}

	// 5. Systems
	system.SubscribeLogging(bus, log)
	tally := system.NewTally(bus)
	physics := system.NewPhysicsSystem(ws, cfg.Driver.MaxResolutionsPerStep, log)
	cleanup := system.NewCleanupSystem(ws, log)
	runner.Register(system.NewEventSystem(bus))
	runner.Register(physics)
	runner.Register(cleanup)

	printSection("running")
	printReady(fmt.Sprintf("tick %s, %s", cfg.Driver.TickRate, stepsLabel(cfg.Driver.Steps)))
	fmt.Println()

	start := time.Now()
	loop(runner, cfg.Driver, log)
	// Deliver the last tick's events before reporting.
	bus.SwapBuffers()
	bus.DispatchAll()

	printSection("summary")
	printStat("ticks", int(runner.Ticks()))
	printStat("collisions resolved", int(physics.Resolved()))
	printStat("bullets fired", tally.Fired)
	printStat("bullets loaded", tally.Loaded)
	printStat("wall bounces", tally.Bounces)
	for _, kind := range sortedKeys(tally.Terminated) {
		printStat(kind+"s destroyed", tally.Terminated[kind])
	}
	members, _ := ws.Members(spawned.World)
	printStat("survivors", len(members))
	log.Info("simulation finished",
		zap.Uint64("ticks", runner.Ticks()),
		zap.Duration("wall", time.Since(start)),
		zap.Uint64("reclaimed", cleanup.Flushed()))
	return nil
}

// loop ticks the runner Steps times, or until interrupted when Steps is 0.
// Realtime mode paces ticks with a wall-clock ticker.
func loop(runner *coresys.Runner, cfg config.DriverConfig, log *zap.Logger) {
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdownCh)

	var tick <-chan time.Time
	if cfg.Realtime {
		ticker := time.NewTicker(cfg.TickRate)
		defer ticker.Stop()
		tick = ticker.C
	}

	for n := 0; cfg.Steps == 0 || n < cfg.Steps; n++ {
		if tick != nil {
			select {
			case <-tick:
			case sig := <-shutdownCh:
				log.Info("shutdown signal", zap.String("signal", sig.String()))
				return
			}
		} else {
			select {
			case sig := <-shutdownCh:
				log.Info("shutdown signal", zap.String("signal", sig.String()))
				return
			default:
			}
		}
		runner.Tick(cfg.TickRate)
	}
}

func stepsLabel(steps int) string {
	if steps == 0 {
		return "until interrupted"
	}
	return fmt.Sprintf("%d steps", steps)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
