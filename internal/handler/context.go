package handler

import (
	"encoding/json"

	"github.com/nightwatch/server/internal/combat"
	"github.com/nightwatch/server/internal/config"
	"github.com/nightwatch/server/internal/core/event"
	"github.com/nightwatch/server/internal/core/sched"
	"github.com/nightwatch/server/internal/data"
	"github.com/nightwatch/server/internal/lobby"
	"github.com/nightwatch/server/internal/net"
	"github.com/nightwatch/server/internal/persist"
	"github.com/nightwatch/server/internal/scripting"
	"github.com/nightwatch/server/internal/world"
	"go.uber.org/zap"
)

// Deps holds shared dependencies injected into all event handlers.
type Deps struct {
	Config    *config.Config
	Log       *zap.Logger
	World     *world.State
	Lobby     *lobby.Lobby
	Sched     *sched.Registry
	Bus       *event.Bus
	Resolver  *combat.Resolver
	Towers    *data.TowerTable
	Abilities *data.AbilityTable
	Scripting *scripting.Engine
	Stats     *persist.StatsRepo // nil when persistence is disabled
}

// RegisterAll registers all inbound event handlers into the registry.
// Session states gate what a client may send: lobby events before the game
// starts, gameplay events after.
func RegisterAll(reg *net.Registry, deps *Deps) {
	lobbyStates := []net.SessionState{net.StateLobby}
	gameStates := []net.SessionState{net.StateInGame}
	anyStates := []net.SessionState{net.StateLobby, net.StateInGame}

	reg.Register("join_lobby", lobbyStates, wrap(deps, HandleJoinLobby))
	reg.Register("select_role", lobbyStates, wrap(deps, HandleSelectRole))
	reg.Register("set_ready", lobbyStates, wrap(deps, HandleSetReady))
	reg.Register("request_game_start", lobbyStates, wrap(deps, HandleRequestStart))

	reg.Register("player_move", gameStates, wrap(deps, HandlePlayerMove))
	reg.Register("enter_room", gameStates, wrap(deps, HandleEnterRoom))
	reg.Register("request_wake_up", gameStates, wrap(deps, HandleWakeUp))

	reg.Register("place_tower", gameStates, wrap(deps, HandlePlaceTower))

	reg.Register("request_ghost_role", gameStates, wrap(deps, HandleRequestGhostRole))
	reg.Register("release_ghost_role", gameStates, wrap(deps, HandleReleaseGhostRole))
	reg.Register("ghost_input", gameStates, wrap(deps, HandleGhostInput))

	reg.Register("request_high_scores", anyStates, wrap(deps, HandleHighScores))

	reg.Register("disconnect", anyStates, wrap(deps, HandleDisconnect))
}

func wrap(deps *Deps, fn func(*net.Session, json.RawMessage, *Deps)) net.HandlerFunc {
	return func(sess *net.Session, raw json.RawMessage) {
		fn(sess, raw, deps)
	}
}
