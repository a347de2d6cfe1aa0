package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nightwatch/server/internal/combat"
	"github.com/nightwatch/server/internal/config"
	"github.com/nightwatch/server/internal/core/event"
	"github.com/nightwatch/server/internal/core/sched"
	coresys "github.com/nightwatch/server/internal/core/system"
	"github.com/nightwatch/server/internal/data"
	"github.com/nightwatch/server/internal/handler"
	"github.com/nightwatch/server/internal/lobby"
	gonet "github.com/nightwatch/server/internal/net"
	"github.com/nightwatch/server/internal/persist"
	"github.com/nightwatch/server/internal/scripting"
	"github.com/nightwatch/server/internal/system"
	"github.com/nightwatch/server/internal/world"
	"github.com/nightwatch/server/internal/worldgen"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("NIGHTWATCH_CONFIG"); p != "" {
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

	log.Info("nightwatch starting", zap.String("server", cfg.Server.Name))

	// 3. Connect to PostgreSQL and run migrations. The stats sink is
	// optional: with no DSN the server runs fully in memory.
	var statsRepo *persist.StatsRepo
	if cfg.Database.DSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			cancel()
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()

		if err := persist.RunMigrations(ctx, db.Pool); err != nil {
			cancel()
			return fmt.Errorf("migrations: %w", err)
		}
		cancel()
		statsRepo = persist.NewStatsRepo(db)
		log.Info("stats sink connected")
	} else {
		log.Info("no database configured, stats disabled")
	}

	// 4. Load data catalogs
	towerTable, err := data.LoadTowerTable("data/yaml/tower_list.yaml")
	if err != nil {
		return fmt.Errorf("load tower table: %w", err)
	}
	abilityTable, err := data.LoadAbilityTable("data/yaml/ability_list.yaml")
	if err != nil {
		return fmt.Errorf("load ability table: %w", err)
	}
	log.Info("catalogs loaded",
		zap.Int("towers", towerTable.Count()),
		zap.Int("abilities", abilityTable.Count()))

	// 5. Generate world geometry and build live state
	rooms, err := worldgen.Generate(cfg.World.Seed, cfg.World.RoomCount)
	if err != nil {
		return fmt.Errorf("generate world: %w", err)
	}
	worldState := world.NewState(rooms)
	log.Info("world generated",
		zap.Int64("seed", cfg.World.Seed),
		zap.Int("rooms", len(rooms)))

	// 6. Lua scripting engine for ghost decisions
	luaEngine, err := scripting.NewEngine("scripts", log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()

	// 7. Core plumbing and shared handler deps
	bus := event.NewBus()
	registry := sched.NewRegistry()
	lob := lobby.New(cfg.Lobby.MinPlayers, cfg.Lobby.MaxGhostPlayers, cfg.Lobby.CountdownSeconds)
	resolver := combat.NewResolver(worldState, towerTable, bus, cfg.Game.DestroyBounty)

	deps := &handler.Deps{
		Config:    cfg,
		Log:       log,
		World:     worldState,
		Lobby:     lob,
		Sched:     registry,
		Bus:       bus,
		Resolver:  resolver,
		Towers:    towerTable,
		Abilities: abilityTable,
		Scripting: luaEngine,
		Stats:     statsRepo,
	}

	// 8. Network server and inbound dispatch
	msgReg := gonet.NewRegistry(log)
	handler.RegisterAll(msgReg, deps)

	netServer := gonet.NewServer(
		cfg.Network.BindAddress,
		cfg.Network.InQueueSize,
		cfg.Network.OutQueueSize,
		cfg.Network.WriteTimeout,
		log,
	)
	go func() {
		if err := netServer.ListenAndServe(); err != nil {
			log.Error("listener stopped", zap.Error(err))
		}
	}()

	// 9. Systems, phase-ordered by the runner
	runner := coresys.NewRunner()
	runner.Register(system.NewEventSystem(bus))
	runner.Register(system.NewInputSystem(netServer, msgReg, deps, cfg.Network.MaxEventsPerTick, log))
	runner.Register(system.NewSchedSystem(registry))
	runner.Register(system.NewGhostAISystem(deps, log))
	runner.Register(system.NewSpawnSystem(deps, log))
	runner.Register(system.NewBroadcastSystem(deps))
	runner.Register(system.NewOutputSystem(deps))
	statsSys := system.NewStatsSystem(statsRepo, deps, log)
	runner.Register(statsSys)
	runner.Register(system.NewCleanupSystem(deps, log))

	// 10. Game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Network.TickRate)
	defer ticker.Stop()

	log.Info("game loop running",
		zap.String("bind", cfg.Network.BindAddress),
		zap.Duration("tick", cfg.Network.TickRate))

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Network.TickRate)
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			netServer.Shutdown()

			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			statsSys.FinalFlush(flushCtx)
			cancel()

			log.Info("server stopped")
			return nil
		}
	}
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
