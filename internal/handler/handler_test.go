package handler

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nightwatch/server/internal/combat"
	"github.com/nightwatch/server/internal/config"
	"github.com/nightwatch/server/internal/core/event"
	"github.com/nightwatch/server/internal/core/sched"
	"github.com/nightwatch/server/internal/data"
	"github.com/nightwatch/server/internal/lobby"
	"github.com/nightwatch/server/internal/net"
	"github.com/nightwatch/server/internal/world"
	"github.com/nightwatch/server/internal/worldgen"
	"go.uber.org/zap"
)

// fakeConn satisfies net.Conn without a socket. Reads block forever; the
// tests never start session goroutines.
type fakeConn struct{}

func (fakeConn) ReadMessage() (int, []byte, error) { select {} }
func (fakeConn) WriteMessage(int, []byte) error    { return nil }
func (fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (fakeConn) Close() error                      { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Game: config.GameConfig{
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
		Lobby: config.LobbyConfig{
			MinPlayers:       1,
			MaxGhostPlayers:  2,
			CountdownSeconds: 3,
		},
	}
}

func testDeps(t *testing.T) *Deps {
	t.Helper()
	rooms, err := worldgen.Generate(7, 3)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	cfg := testConfig()
	ws := world.NewState(rooms)
	bus := event.NewBus()
	towers := data.TestTowerTable(&data.TowerType{
		Type: "basic", Cost: 50, Damage: 10, Range: 150, FireRate: time.Second,
	})
	abilities := data.TestAbilityTable(
		&data.Ability{Name: "speed_burst", EnergyCost: 30, Cooldown: 8 * time.Second, Duration: 3 * time.Second, SpeedMult: 2},
		&data.Ability{Name: "phase", EnergyCost: 50, Cooldown: 15 * time.Second, Duration: 4 * time.Second},
		&data.Ability{Name: "summon_minion", EnergyCost: 80, Cooldown: 20 * time.Second, MinionHP: 15},
	)
	return &Deps{
		Config:    cfg,
		Log:       zap.NewNop(),
		World:     ws,
		Lobby:     lobby.New(cfg.Lobby.MinPlayers, cfg.Lobby.MaxGhostPlayers, cfg.Lobby.CountdownSeconds),
		Sched:     sched.NewRegistry(),
		Bus:       bus,
		Resolver:  combat.NewResolver(ws, towers, bus, cfg.Game.DestroyBounty),
		Towers:    towers,
		Abilities: abilities,
	}
}

// addPlayer registers a session-backed player the way InputSystem does.
func addPlayer(t *testing.T, deps *Deps, sessionID uint64) (*world.PlayerInfo, *net.Session) {
	t.Helper()
	sess := net.NewSession(fakeConn{}, sessionID, 16, 64, time.Second, nil, zap.NewNop())
	p := deps.World.CreatePlayer(sessionID, deps.Config.Game.StartingMoney)
	p.Session = sess
	return p, sess
}

// sentEvents flushes and decodes everything buffered on a session.
func sentEvents(t *testing.T, sess *net.Session) []net.Envelope {
	t.Helper()
	sess.FlushOutput()
	var out []net.Envelope
	for {
		select {
		case frame := <-sess.OutQueue:
			env, err := net.DecodeEnvelope(frame)
			if err != nil {
				t.Fatalf("bad outbound frame: %v", err)
			}
			out = append(out, *env)
		default:
			return out
		}
	}
}

func eventsOfType(events []net.Envelope, typ string) []net.Envelope {
	var out []net.Envelope
	for _, e := range events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

func TestEnterRoomOccupiesBedAndEarns(t *testing.T) {
	deps := testDeps(t)
	p, sess := addPlayer(t, deps, 1)
	room := deps.World.Rooms()[0]

	HandleEnterRoom(sess, mustJSON(t, map[string]any{"roomId": room.ID, "bedIndex": 0}), deps)

	if !p.Sleeping || p.Bed == nil {
		t.Fatal("player not sleeping after entering a bed")
	}
	if room.BedOccupant(0) != p.ID {
		t.Fatal("bed not occupied")
	}
	wantX, wantY := room.BedWorldPos(0)
	if p.X != wantX || p.Y != wantY {
		t.Fatalf("player at %f,%f want bed position %f,%f", p.X, p.Y, wantX, wantY)
	}
	if deps.Sched.OwnerCount(p.ID) != 1 {
		t.Fatalf("earnings tasks = %d, want 1", deps.Sched.OwnerCount(p.ID))
	}

	// Drive the earnings task through two intervals.
	now := time.Now()
	deps.Sched.Run(now.Add(2 * time.Second))
	deps.Sched.Run(now.Add(4 * time.Second))
	if p.Money != 120 {
		t.Fatalf("money = %d, want 120 after two earn ticks", p.Money)
	}

	updates := eventsOfType(sentEvents(t, sess), "playerMoneyUpdated")
	if len(updates) != 2 {
		t.Fatalf("%d money updates, want 2", len(updates))
	}
}

func TestBedConflictLoserUnchanged(t *testing.T) {
	deps := testDeps(t)
	a, sessA := addPlayer(t, deps, 1)
	b, sessB := addPlayer(t, deps, 2)
	room := deps.World.Rooms()[0]

	HandleEnterRoom(sessA, mustJSON(t, map[string]any{"roomId": room.ID, "bedIndex": 1}), deps)
	HandleEnterRoom(sessB, mustJSON(t, map[string]any{"roomId": room.ID, "bedIndex": 1}), deps)

	if room.BedOccupant(1) != a.ID {
		t.Fatal("winner lost the bed")
	}
	if b.Sleeping || b.Bed != nil {
		t.Fatal("loser marked sleeping")
	}
	if deps.Sched.OwnerCount(b.ID) != 0 {
		t.Fatal("loser got an earnings task")
	}
	if len(eventsOfType(sentEvents(t, sessB), "buildFailed")) != 1 {
		t.Fatal("loser did not get a failure reply")
	}
}

func TestWakeUpStopsEarnings(t *testing.T) {
	deps := testDeps(t)
	p, sess := addPlayer(t, deps, 1)
	room := deps.World.Rooms()[0]

	HandleEnterRoom(sess, mustJSON(t, map[string]any{"roomId": room.ID, "bedIndex": 0}), deps)
	HandleWakeUp(sess, nil, deps)

	if p.Sleeping || p.Bed != nil {
		t.Fatal("player still sleeping after wake")
	}
	if room.BedOccupant(0) != "" {
		t.Fatal("bed not released on wake")
	}
	if deps.Sched.OwnerCount(p.ID) != 0 {
		t.Fatal("earnings task survived wake")
	}

	deps.Sched.Run(time.Now().Add(time.Minute))
	if p.Money != 100 {
		t.Fatalf("money changed after wake: %d", p.Money)
	}
}

func TestSleepingPlayerCannotMove(t *testing.T) {
	deps := testDeps(t)
	p, sess := addPlayer(t, deps, 1)
	room := deps.World.Rooms()[0]

	HandleEnterRoom(sess, mustJSON(t, map[string]any{"roomId": room.ID, "bedIndex": 0}), deps)
	bedX, bedY := p.X, p.Y

	HandlePlayerMove(sess, mustJSON(t, map[string]any{"x": 999.0, "y": 999.0}), deps)
	if p.X != bedX || p.Y != bedY {
		t.Fatal("sleeping player moved")
	}
}

func TestPlaceTowerHandler(t *testing.T) {
	deps := testDeps(t)
	p, sess := addPlayer(t, deps, 1)
	room := deps.World.Rooms()[0]

	HandlePlaceTower(sess, mustJSON(t, map[string]any{
		"roomId": room.ID, "col": 3, "row": 3, "type": "basic",
	}), deps)

	if len(p.Towers) != 1 {
		t.Fatalf("player owns %d towers, want 1", len(p.Towers))
	}
	if p.Money != 50 {
		t.Fatalf("money = %d, want 50", p.Money)
	}
	events := sentEvents(t, sess)
	if len(eventsOfType(events, "towerPlaced")) != 1 {
		t.Fatal("no towerPlaced broadcast")
	}
	if len(eventsOfType(events, "playerMoneyUpdated")) != 1 {
		t.Fatal("no money update to owner")
	}

	// Second placement on the same tile fails with the contract reason.
	HandlePlaceTower(sess, mustJSON(t, map[string]any{
		"roomId": room.ID, "col": 3, "row": 3, "type": "basic",
	}), deps)
	failures := eventsOfType(sentEvents(t, sess), "buildFailed")
	if len(failures) != 1 {
		t.Fatalf("%d buildFailed replies, want 1", len(failures))
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(failures[0].Data, &body); err != nil {
		t.Fatalf("decode failure: %v", err)
	}
	if body.Reason != combat.ReasonOccupied {
		t.Fatalf("reason = %q, want %q", body.Reason, combat.ReasonOccupied)
	}
}

func TestRequestGhostRole(t *testing.T) {
	deps := testDeps(t)
	p, sess := addPlayer(t, deps, 1)
	room := deps.World.Rooms()[0]

	// Sleeping player switching to ghost releases the bed first.
	HandleEnterRoom(sess, mustJSON(t, map[string]any{"roomId": room.ID, "bedIndex": 0}), deps)
	HandleRequestGhostRole(sess, nil, deps)

	if p.GhostID == "" {
		t.Fatal("no ghost granted")
	}
	if p.Sleeping || room.BedOccupant(0) != "" {
		t.Fatal("bed not released on ghost grant")
	}
	if deps.Sched.OwnerCount(p.ID) != 0 {
		t.Fatal("earnings task survived ghost grant")
	}
	g := deps.World.GetGhost(p.GhostID)
	if g == nil || g.OwnerID != p.ID {
		t.Fatalf("ghost not owned by player: %+v", g)
	}

	HandleReleaseGhostRole(sess, nil, deps)
	if p.GhostID != "" || deps.World.GhostCount() != 0 {
		t.Fatal("ghost survived release")
	}
}

func TestGhostRoleCapEnforced(t *testing.T) {
	deps := testDeps(t)
	deps.Config.Game.GhostCap = 1
	_, sessA := addPlayer(t, deps, 1)
	_, sessB := addPlayer(t, deps, 2)

	HandleRequestGhostRole(sessA, nil, deps)
	HandleRequestGhostRole(sessB, nil, deps)

	if deps.World.GhostCount() != 1 {
		t.Fatalf("ghost count = %d, want 1", deps.World.GhostCount())
	}
	failures := eventsOfType(sentEvents(t, sessB), "role_selection_failed")
	if len(failures) != 1 {
		t.Fatal("no rejection for over-cap ghost request")
	}
	var body struct {
		Reason string `json:"reason"`
	}
	json.Unmarshal(failures[0].Data, &body)
	if body.Reason != lobby.ReasonGhostSlotsFull {
		t.Fatalf("reason = %q, want %q", body.Reason, lobby.ReasonGhostSlotsFull)
	}
}

func TestGhostAbilityGating(t *testing.T) {
	deps := testDeps(t)
	p, sess := addPlayer(t, deps, 1)
	HandleRequestGhostRole(sess, nil, deps)
	g := deps.World.GetGhost(p.GhostID)
	sentEvents(t, sess) // drain setup traffic

	use := func(name string) {
		HandleGhostInput(sess, mustJSON(t, map[string]any{
			"action": "ability", "abilityName": name,
		}), deps)
	}

	use("speed_burst")
	if g.Energy != 70 {
		t.Fatalf("energy = %f, want 70 after speed_burst", g.Energy)
	}
	if g.SpeedBurstMult != 2 {
		t.Fatal("speed burst not applied")
	}

	// Cooldown rejection comes before energy deduction.
	use("speed_burst")
	if g.Energy != 70 {
		t.Fatalf("cooldown rejection charged energy: %f", g.Energy)
	}

	// Drain energy and check the energy rejection.
	g.Energy = 10
	use("phase")
	if g.Energy != 10 {
		t.Fatalf("energy rejection charged energy: %f", g.Energy)
	}

	replies := eventsOfType(sentEvents(t, sess), "ghost_ability_used")
	if len(replies) != 3 {
		t.Fatalf("%d ability replies, want 3", len(replies))
	}
	var last struct {
		OK     bool   `json:"ok"`
		Reason string `json:"reason"`
	}
	json.Unmarshal(replies[2].Data, &last)
	if last.OK || last.Reason != "Not enough energy" {
		t.Fatalf("energy rejection = %+v", last)
	}
}

func TestSummonMinionRespectsCap(t *testing.T) {
	deps := testDeps(t)
	deps.Config.Game.GhostCap = 2
	p, sess := addPlayer(t, deps, 1)
	HandleRequestGhostRole(sess, nil, deps)
	g := deps.World.GetGhost(p.GhostID)

	HandleGhostInput(sess, mustJSON(t, map[string]any{
		"action": "ability", "abilityName": "summon_minion",
	}), deps)
	if deps.World.GhostCount() != 2 {
		t.Fatalf("ghost count = %d after summon, want 2", deps.World.GhostCount())
	}

	// Cap reached: second summon refunds its energy.
	g.Energy = 100
	g.Cooldowns = nil
	HandleGhostInput(sess, mustJSON(t, map[string]any{
		"action": "ability", "abilityName": "summon_minion",
	}), deps)
	if deps.World.GhostCount() != 2 {
		t.Fatal("summon exceeded the global cap")
	}
	if g.Energy != 100 {
		t.Fatalf("capped summon not refunded: %f", g.Energy)
	}
	if g.OnCooldown("summon_minion", time.Now()) {
		t.Fatal("capped summon left the ability on cooldown")
	}
}

func TestGhostMoveClamped(t *testing.T) {
	deps := testDeps(t)
	p, sess := addPlayer(t, deps, 1)
	p.X, p.Y = 0, 0
	HandleRequestGhostRole(sess, nil, deps)
	g := deps.World.GetGhost(p.GhostID)

	HandleGhostInput(sess, mustJSON(t, map[string]any{
		"action": "move", "x": 1000.0, "y": 0.0,
	}), deps)
	if g.X != maxGhostStep || g.Y != 0 {
		t.Fatalf("oversized step not clamped: %f,%f", g.X, g.Y)
	}

	HandleGhostInput(sess, mustJSON(t, map[string]any{
		"action": "move", "x": g.X + 10, "y": 0.0,
	}), deps)
	if g.X != maxGhostStep+10 {
		t.Fatalf("normal step mangled: %f", g.X)
	}
}

func TestPlayerMoveClamped(t *testing.T) {
	deps := testDeps(t)
	p, sess := addPlayer(t, deps, 1)
	p.X, p.Y = 0, 0

	HandlePlayerMove(sess, mustJSON(t, map[string]any{"x": 1000.0, "y": 0.0}), deps)
	if p.X != maxPlayerStep || p.Y != 0 {
		t.Fatalf("oversized step not clamped: %f,%f", p.X, p.Y)
	}

	// The echo carries the server-side position, not the request.
	echoes := eventsOfType(sentEvents(t, sess), "playerMoved")
	if len(echoes) != 1 {
		t.Fatalf("%d echoes, want 1", len(echoes))
	}
	var body struct {
		X float64 `json:"x"`
	}
	if err := json.Unmarshal(echoes[0].Data, &body); err != nil {
		t.Fatalf("decode echo: %v", err)
	}
	if body.X != maxPlayerStep {
		t.Fatalf("echoed x = %f, want %f", body.X, maxPlayerStep)
	}

	HandlePlayerMove(sess, mustJSON(t, map[string]any{"x": p.X + 10, "y": 0.0}), deps)
	if p.X != maxPlayerStep+10 {
		t.Fatalf("normal step mangled: %f", p.X)
	}
}

func TestPrematureStartRejected(t *testing.T) {
	deps := testDeps(t)
	p, sess := addPlayer(t, deps, 1)

	HandleJoinLobby(sess, mustJSON(t, map[string]string{"name": "Alice"}), deps)
	HandleRequestStart(sess, nil, deps)

	if deps.World.Phase() != world.PhaseLobby {
		t.Fatalf("phase = %v after rejected start", deps.World.Phase())
	}
	failures := eventsOfType(sentEvents(t, sess), "game_start_failed")
	if len(failures) != 1 {
		t.Fatalf("%d game_start_failed replies, want 1", len(failures))
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(failures[0].Data, &body); err != nil {
		t.Fatalf("decode reason: %v", err)
	}
	if body.Reason != lobby.ReasonNotAllReady {
		t.Fatalf("reason = %q, want %q", body.Reason, lobby.ReasonNotAllReady)
	}
	if deps.Sched.OwnerCount("lobby") != 0 {
		t.Fatalf("countdown scheduled despite rejection (player %s)", p.ID)
	}
}

func TestLobbyFlowActivatesGame(t *testing.T) {
	deps := testDeps(t)
	pd, sessD := addPlayer(t, deps, 1)
	pg, sessG := addPlayer(t, deps, 2)

	HandleJoinLobby(sessD, mustJSON(t, map[string]string{"name": "Alice"}), deps)
	HandleJoinLobby(sessG, mustJSON(t, map[string]string{"name": "Bob"}), deps)
	HandleSelectRole(sessG, mustJSON(t, map[string]string{"role": "ghost"}), deps)
	HandleSetReady(sessD, mustJSON(t, map[string]bool{"ready": true}), deps)
	HandleSetReady(sessG, mustJSON(t, map[string]bool{"ready": true}), deps)
	HandleRequestStart(sessD, nil, deps)

	if deps.World.Phase() != world.PhaseStarting {
		t.Fatalf("phase = %v, want starting", deps.World.Phase())
	}
	if deps.Sched.OwnerCount(lobbyOwner) != 1 {
		t.Fatal("no countdown task scheduled")
	}

	// Three scheduler seconds finish the countdown.
	now := time.Now()
	for i := 1; i <= 3; i++ {
		deps.Sched.Run(now.Add(time.Duration(i) * time.Second))
	}

	if deps.World.Phase() != world.PhaseActive {
		t.Fatalf("phase = %v, want active", deps.World.Phase())
	}
	if deps.Sched.OwnerCount(lobbyOwner) != 0 {
		t.Fatal("countdown task leaked after activation")
	}
	if pg.GhostID == "" {
		t.Fatal("ghost-role player got no ghost entity")
	}
	if pd.GhostID != "" {
		t.Fatal("defender got a ghost entity")
	}
	if sessD.State() != net.StateInGame || sessG.State() != net.StateInGame {
		t.Fatal("sessions not moved to in-game state")
	}
	if len(eventsOfType(sentEvents(t, sessD), "game_started")) != 1 {
		t.Fatal("defender did not receive game_started")
	}
}

func TestCleanupSessionIdempotent(t *testing.T) {
	deps := testDeps(t)
	p, sess := addPlayer(t, deps, 1)
	_, survivorSess := addPlayer(t, deps, 2)
	room := deps.World.Rooms()[0]

	HandleJoinLobby(sess, mustJSON(t, map[string]string{"name": "Alice"}), deps)
	HandleEnterRoom(sess, mustJSON(t, map[string]any{"roomId": room.ID, "bedIndex": 0}), deps)

	CleanupSession(1, deps)
	CleanupSession(1, deps) // second call is a no-op

	if deps.World.GetBySession(1) != nil || deps.World.GetPlayer(p.ID) != nil {
		t.Fatal("player still registered after cleanup")
	}
	if room.BedOccupant(0) != "" {
		t.Fatal("bed leaked on disconnect")
	}
	if deps.Sched.OwnerCount(p.ID) != 0 {
		t.Fatal("earnings task leaked on disconnect")
	}
	if deps.Lobby.Get(p.ID) != nil {
		t.Fatal("lobby entry leaked on disconnect")
	}

	// Survivor sees exactly one departure broadcast.
	if n := len(eventsOfType(sentEvents(t, survivorSess), "playerLeft")); n != 1 {
		t.Fatalf("%d playerLeft broadcasts, want 1", n)
	}

	// Departed player absent from the snapshot.
	snap := BuildSnapshot(deps.World, time.Now())
	for _, dto := range snap.Players {
		if dto.ID == p.ID {
			t.Fatal("departed player present in snapshot")
		}
	}
}

func TestDisconnectedGhostOwnerRemovesGhost(t *testing.T) {
	deps := testDeps(t)
	_, sess := addPlayer(t, deps, 1)
	HandleRequestGhostRole(sess, nil, deps)
	if deps.World.GhostCount() != 1 {
		t.Fatal("setup: no ghost")
	}
	CleanupSession(1, deps)
	if deps.World.GhostCount() != 0 {
		t.Fatal("player ghost survived owner disconnect")
	}
}

func TestHighScoresWithoutDatabase(t *testing.T) {
	deps := testDeps(t)
	_, sess := addPlayer(t, deps, 1)

	HandleHighScores(sess, mustJSON(t, map[string]any{"limit": 5}), deps)

	replies := eventsOfType(sentEvents(t, sess), "high_scores")
	if len(replies) != 1 {
		t.Fatalf("%d high_scores replies, want 1", len(replies))
	}
	var body struct {
		Scores []any `json:"scores"`
	}
	if err := json.Unmarshal(replies[0].Data, &body); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if len(body.Scores) != 0 {
		t.Fatalf("%d scores without a database, want 0", len(body.Scores))
	}
}
