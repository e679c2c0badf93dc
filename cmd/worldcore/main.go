package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/l1jgo/worldcore/internal/clock"
	"github.com/l1jgo/worldcore/internal/config"
	"github.com/l1jgo/worldcore/internal/core/actor"
	"github.com/l1jgo/worldcore/internal/data"
	"github.com/l1jgo/worldcore/internal/gateway"
	"github.com/l1jgo/worldcore/internal/nav"
	"github.com/l1jgo/worldcore/internal/region"
	"github.com/l1jgo/worldcore/internal/scripting"
	"github.com/l1jgo/worldcore/internal/shard"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(name string, id int) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m             worldcore  v0.1.0             \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s \033[90m(id %d)\033[0m\n\n", name, id)
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

// ── Boot ──────────────────────────────────────────────────────────

func run() error {
	cfgPath := "config/worldcore.toml"
	if p := os.Getenv("WORLDCORE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.ID)

	printSection("data")
	tables, err := data.LoadTables(cfg.Data)
	if err != nil {
		return fmt.Errorf("load tables: %w", err)
	}
	printStat("skills", tables.Skills.Count())
	printStat("buffs", tables.Buffs.Count())
	printStat("monster templates", tables.Monsters.Count())
	printStat("spawn entries", len(tables.Spawns))

	vol, err := loadVolume(cfg.Nav, log)
	if err != nil {
		return err
	}
	sx, sy, sz := vol.Size()
	printStat("nav voxels", sx*sy*sz)
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sys := actor.NewSystem(ctx, cfg.Actor.MailboxSize, log)
	bus := actor.NewBus(sys, cfg.Actor.SweepInterval, cfg.Actor.InactiveAfter, log)
	if _, err := gateway.Spawn(sys, gateway.NewLogSink(log.Named("gateway"))); err != nil {
		return err
	}

	printSection("shards")
	for _, sc := range cfg.Shards {
		// one Lua VM per shard: each shard runs on its own goroutine
		scripts, err := scripting.NewEngine(cfg.Scripting.Dir, log)
		if err != nil {
			return fmt.Errorf("shard %d scripts: %w", sc.ID, err)
		}
		defer scripts.Close()

		s, err := shard.Spawn(sys, bus, cfg, sc, region.Deps{
			Tables:  tables,
			Scripts: scripts,
			Volume:  vol,
		}, gateway.ID, log)
		if err != nil {
			return fmt.Errorf("shard %d: %w", sc.ID, err)
		}
		printOK(fmt.Sprintf("%s %q (%s)", s.ID(), sc.Name, sc.Kind))
	}
	fmt.Println()

	clk := clock.New(bus, cfg.Simulation.TickRate, log)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bus.Run(gctx) })
	g.Go(func() error { return clk.Run(gctx) })

	log.Info("worldcore running",
		zap.Int("shards", len(cfg.Shards)),
		zap.Duration("tick_rate", cfg.Simulation.TickRate),
	)
	err = g.Wait()

	log.Info("shutting down", zap.Uint64("tick", clk.Tick()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := sys.Shutdown(shutdownCtx); serr != nil {
		log.Warn("actor shutdown", zap.Error(serr))
	}
	return err
}

// loadVolume reads the baked nav volume. A missing file falls back to a flat
// plane so a fresh checkout boots without running navbake first.
func loadVolume(cfg config.NavConfig, log *zap.Logger) (*nav.Volume, error) {
	vol, err := nav.LoadVolume(cfg.VolumePath)
	if err == nil {
		return vol, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	log.Warn("nav volume missing, using flat plane", zap.String("path", cfg.VolumePath))
	return nav.Flat(512, 512, 1), nil
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
