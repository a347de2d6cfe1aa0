package system

import (
	"context"
	"time"

	"github.com/nightwatch/server/internal/core/event"
	coresys "github.com/nightwatch/server/internal/core/system"
	"github.com/nightwatch/server/internal/handler"
	"github.com/nightwatch/server/internal/persist"
	"github.com/nightwatch/server/internal/world"
	"go.uber.org/zap"
)

const (
	statsFlushInterval = 30 * time.Second
	statsWriteTimeout  = 5 * time.Second
)

// playerTally accumulates one player's stats between flushes.
type playerTally struct {
	name        string
	role        string
	earned      int64
	towersBuilt int
	ghostKills  int
	joinedAt    time.Time
}

// StatsSystem is the write-behind statistics sink. It subscribes to domain
// events, accumulates tallies inside the game loop, and flushes them to
// Postgres from a detached goroutine so a slow or down database can never
// stall a tick. With no repo configured it stays subscribed but writes
// nothing.
type StatsSystem struct {
	repo *persist.StatsRepo
	deps *handler.Deps
	log  *zap.Logger

	tallies   map[string]*playerTally // player id → tally
	towerMeta map[string]persist.TowerRow
	towerDirt map[string]int // tower id → unflushed kills
	lastFlush time.Time
}

func NewStatsSystem(repo *persist.StatsRepo, deps *handler.Deps, log *zap.Logger) *StatsSystem {
	s := &StatsSystem{
		repo:      repo,
		deps:      deps,
		log:       log,
		tallies:   make(map[string]*playerTally),
		towerMeta: make(map[string]persist.TowerRow),
		towerDirt: make(map[string]int),
	}
	event.Subscribe(deps.Bus, s.onGameStarted)
	event.Subscribe(deps.Bus, s.onMoneyEarned)
	event.Subscribe(deps.Bus, s.onTowerPlaced)
	event.Subscribe(deps.Bus, s.onGhostDestroyed)
	event.Subscribe(deps.Bus, s.onSessionEnded)
	return s
}

func (s *StatsSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *StatsSystem) Update(time.Duration) {
	now := time.Now()
	if s.lastFlush.IsZero() {
		s.lastFlush = now
		return
	}
	if now.Sub(s.lastFlush) >= statsFlushInterval {
		s.lastFlush = now
		s.flush()
	}
}

// tally lazily creates a player's accumulator, resolving the display name
// once. Called only from the game loop via event dispatch.
func (s *StatsSystem) tally(playerID string) *playerTally {
	t, ok := s.tallies[playerID]
	if !ok {
		t = &playerTally{joinedAt: time.Now()}
		if p := s.deps.World.GetPlayer(playerID); p != nil {
			t.name = p.Name
			t.role = string(p.Role)
		}
		s.tallies[playerID] = t
	}
	return t
}

func (s *StatsSystem) onGameStarted(ev event.GameStarted) {
	s.deps.World.AllPlayers(func(p *world.PlayerInfo) {
		t := s.tally(p.ID)
		t.name = p.Name
		t.role = string(p.Role)
		t.joinedAt = ev.At
	})
}

func (s *StatsSystem) onMoneyEarned(ev event.MoneyEarned) {
	if ev.Amount <= 0 {
		return // losses do not count toward earnings
	}
	s.tally(ev.PlayerID).earned += int64(ev.Amount)
}

func (s *StatsSystem) onTowerPlaced(ev event.TowerPlaced) {
	t := s.tally(ev.OwnerID)
	t.towersBuilt++
	s.towerMeta[ev.TowerID] = persist.TowerRow{
		TowerID:   ev.TowerID,
		OwnerName: t.name,
		TowerType: ev.Type,
		RoomID:    ev.RoomID,
	}
}

func (s *StatsSystem) onGhostDestroyed(ev event.GhostDestroyed) {
	if ev.KillerID != "" {
		s.tally(ev.KillerID).ghostKills++
	}
	if ev.KillerTower != "" {
		s.towerDirt[ev.KillerTower]++
	}
}

func (s *StatsSystem) onSessionEnded(ev event.SessionEnded) {
	t, ok := s.tallies[ev.PlayerID]
	if !ok {
		return // connected but never played
	}
	delete(s.tallies, ev.PlayerID)
	if t.name == "" {
		t.name = ev.Name
	}
	if s.repo == nil || t.name == "" {
		return
	}

	row := persist.SessionRow{
		ID:          ev.PlayerID,
		PlayerName:  t.name,
		Role:        t.role,
		Earned:      t.earned,
		TowersBuilt: t.towersBuilt,
		GhostKills:  t.ghostKills,
		StartedAt:   t.joinedAt,
		EndedAt:     ev.At,
	}
	delta := persist.ProfileDelta{
		PlayerName:    t.name,
		Earned:        t.earned,
		TowersBuilt:   t.towersBuilt,
		GhostKills:    t.ghostKills,
		SecondsPlayed: int64(ev.At.Sub(t.joinedAt).Seconds()),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), statsWriteTimeout)
		defer cancel()
		if err := s.repo.InsertSession(ctx, row); err != nil {
			s.log.Warn("session insert failed", zap.Error(err))
		}
		if err := s.repo.ApplyProfileDeltas(ctx, []persist.ProfileDelta{delta}); err != nil {
			s.log.Warn("profile flush failed", zap.Error(err))
		}
	}()
}

// flush writes accumulated tower kill counts. Player profiles flush on
// session end, not here, so a profile row is written exactly once per
// session.
func (s *StatsSystem) flush() {
	if s.repo == nil || len(s.towerDirt) == 0 {
		return
	}
	rows := make([]persist.TowerRow, 0, len(s.towerDirt))
	for id, kills := range s.towerDirt {
		row := s.towerMeta[id]
		if row.TowerID == "" {
			row.TowerID = id
		}
		row.Kills = kills
		rows = append(rows, row)
	}
	s.towerDirt = make(map[string]int)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), statsWriteTimeout)
		defer cancel()
		if err := s.repo.UpsertTowerStats(ctx, rows); err != nil {
			s.log.Warn("tower stats flush failed", zap.Error(err))
		}
	}()
}

// FinalFlush is called once during shutdown: everything still buffered is
// written synchronously, bounded by the write timeout.
func (s *StatsSystem) FinalFlush(ctx context.Context) {
	if s.repo == nil {
		return
	}
	if len(s.towerDirt) > 0 {
		rows := make([]persist.TowerRow, 0, len(s.towerDirt))
		for id, kills := range s.towerDirt {
			row := s.towerMeta[id]
			if row.TowerID == "" {
				row.TowerID = id
			}
			row.Kills = kills
			rows = append(rows, row)
		}
		s.towerDirt = make(map[string]int)
		if err := s.repo.UpsertTowerStats(ctx, rows); err != nil {
			s.log.Warn("tower stats final flush failed", zap.Error(err))
		}
	}

	now := time.Now()
	var deltas []persist.ProfileDelta
	for _, t := range s.tallies {
		if t.name == "" {
			continue
		}
		deltas = append(deltas, persist.ProfileDelta{
			PlayerName:    t.name,
			Earned:        t.earned,
			TowersBuilt:   t.towersBuilt,
			GhostKills:    t.ghostKills,
			SecondsPlayed: int64(now.Sub(t.joinedAt).Seconds()),
		})
	}
	s.tallies = make(map[string]*playerTally)
	if err := s.repo.ApplyProfileDeltas(ctx, deltas); err != nil {
		s.log.Warn("profile final flush failed", zap.Error(err))
	}
}
