package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Network  NetworkConfig  `toml:"network"`
	World    WorldConfig    `toml:"world"`
	Lobby    LobbyConfig    `toml:"lobby"`
	Game     GameConfig     `toml:"game"`
	Logging  LoggingConfig  `toml:"logging"`
}

type ServerConfig struct {
	Name      string `toml:"name"`
	StartTime int64  // set at boot, not from config
}

type DatabaseConfig struct {
	DSN             string        `toml:"dsn"` // empty = stats sink disabled
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	FlushInterval   time.Duration `toml:"flush_interval"`
}

type NetworkConfig struct {
	BindAddress      string        `toml:"bind_address"`
	TickRate         time.Duration `toml:"tick_rate"`
	InQueueSize      int           `toml:"in_queue_size"`
	OutQueueSize     int           `toml:"out_queue_size"`
	MaxEventsPerTick int           `toml:"max_events_per_tick"`
	WriteTimeout     time.Duration `toml:"write_timeout"`
}

type WorldConfig struct {
	Seed      int64 `toml:"seed"`
	RoomCount int   `toml:"room_count"`
}

type LobbyConfig struct {
	MinPlayers       int `toml:"min_players"`
	MaxGhostPlayers  int `toml:"max_ghost_players"`
	CountdownSeconds int `toml:"countdown_seconds"`
}

type GameConfig struct {
	StartingMoney     int           `toml:"starting_money"`
	SleepEarnAmount   int           `toml:"sleep_earn_amount"`
	SleepEarnInterval time.Duration `toml:"sleep_earn_interval"`
	MoveBroadcastMin  time.Duration `toml:"move_broadcast_min"`

	GhostCap          int           `toml:"ghost_cap"`
	GhostHealth       int           `toml:"ghost_health"`
	GhostSpeed        float64       `toml:"ghost_speed"` // world units per tick
	GhostSpawnGap     time.Duration `toml:"ghost_spawn_gap"`
	GhostEnergyMax    float64       `toml:"ghost_energy_max"`
	GhostEnergyRegen  float64       `toml:"ghost_energy_regen"` // per second
	EngagementRadius  float64       `toml:"engagement_radius"`
	AttackMoneyLoss   int           `toml:"attack_money_loss"`
	AttackSelfDamage  int           `toml:"attack_self_damage"`
	AttackPushBack    float64       `toml:"attack_push_back"`
	DestroyBounty     int           `toml:"destroy_bounty"`
	BroadcastInterval time.Duration `toml:"broadcast_interval"`
	GhostUpdateEvery  time.Duration `toml:"ghost_update_every"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Server.StartTime = time.Now().Unix()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations that would leave the simulation unable to
// start. Called before the game loop exists, so failures here are fatal.
func (c *Config) Validate() error {
	if c.World.Seed == 0 {
		return fmt.Errorf("world.seed must be non-zero")
	}
	if c.World.RoomCount <= 0 {
		return fmt.Errorf("world.room_count must be > 0, got %d", c.World.RoomCount)
	}
	if c.Network.TickRate <= 0 {
		return fmt.Errorf("network.tick_rate must be > 0")
	}
	if c.Game.BroadcastInterval < c.Network.TickRate {
		return fmt.Errorf("game.broadcast_interval must be >= network.tick_rate")
	}
	if c.Lobby.MinPlayers < 1 {
		return fmt.Errorf("lobby.min_players must be >= 1")
	}
	if c.Game.GhostCap < c.Lobby.MaxGhostPlayers {
		return fmt.Errorf("game.ghost_cap must be >= lobby.max_ghost_players")
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "nightwatch",
		},
		Database: DatabaseConfig{
			DSN:             "", // disabled unless configured
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			FlushInterval:   30 * time.Second,
		},
		Network: NetworkConfig{
			BindAddress:      "0.0.0.0:8080",
			TickRate:         50 * time.Millisecond,
			InQueueSize:      64,
			OutQueueSize:     256,
			MaxEventsPerTick: 32,
			WriteTimeout:     10 * time.Second,
		},
		World: WorldConfig{
			Seed:      1337,
			RoomCount: 5,
		},
		Lobby: LobbyConfig{
			MinPlayers:       2,
			MaxGhostPlayers:  2,
			CountdownSeconds: 3,
		},
		Game: GameConfig{
			StartingMoney:     100,
			SleepEarnAmount:   10,
			SleepEarnInterval: 2 * time.Second,
			MoveBroadcastMin:  100 * time.Millisecond,
			GhostCap:          4,
			GhostHealth:       30,
			GhostSpeed:        3,
			GhostSpawnGap:     5 * time.Second,
			GhostEnergyMax:    100,
			GhostEnergyRegen:  5,
			EngagementRadius:  30,
			AttackMoneyLoss:   15,
			AttackSelfDamage:  5,
			AttackPushBack:    60,
			DestroyBounty:     25,
			BroadcastInterval: time.Second,
			GhostUpdateEvery:  100 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
