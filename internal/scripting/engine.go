// Package scripting hosts the Lua layer for ghost behavior: Go handles
// sensing (nearest sleeper, distances) and command execution, Lua decides
// what the ghost wants to do. Servers without a scripts directory fall back
// to the built-in Go AI.
package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM. Single-goroutine access only (game
// loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts under scriptsDir.
// A missing directory is not an error — the engine simply stays empty and
// callers fall back to built-in behavior.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	for _, sub := range []string{"core", "ai"} {
		if err := e.loadDir(filepath.Join(scriptsDir, sub)); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}
	return e, nil
}

func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

func (e *Engine) Close() {
	e.vm.Close()
}

// GhostContext is the pre-packed sensing data handed to Lua for one ghost
// decision.
type GhostContext struct {
	GhostX, GhostY   float64
	HealthPct        float64 // 0..1
	HasTarget        bool
	TargetX, TargetY float64
	TargetDist       float64
	SleeperCount     int
}

// GhostDecision is what Lua wants the ghost to do this tick.
type GhostDecision struct {
	Action string // "chase", "wander", "retreat"
}

// HasGhostAI reports whether a ghost_decide function is loaded.
func (e *Engine) HasGhostAI() bool {
	return e.vm.GetGlobal("ghost_decide") != lua.LNil
}

// GhostDecide calls the Lua ghost_decide function. Returns false when the
// function is missing or errors, in which case the caller uses the built-in
// AI.
func (e *Engine) GhostDecide(ctx GhostContext) (GhostDecision, bool) {
	fn := e.vm.GetGlobal("ghost_decide")
	if fn == lua.LNil {
		return GhostDecision{}, false
	}

	tbl := e.vm.NewTable()
	e.vm.SetField(tbl, "ghost_x", lua.LNumber(ctx.GhostX))
	e.vm.SetField(tbl, "ghost_y", lua.LNumber(ctx.GhostY))
	e.vm.SetField(tbl, "health_pct", lua.LNumber(ctx.HealthPct))
	e.vm.SetField(tbl, "has_target", lua.LBool(ctx.HasTarget))
	e.vm.SetField(tbl, "target_x", lua.LNumber(ctx.TargetX))
	e.vm.SetField(tbl, "target_y", lua.LNumber(ctx.TargetY))
	e.vm.SetField(tbl, "target_dist", lua.LNumber(ctx.TargetDist))
	e.vm.SetField(tbl, "sleeper_count", lua.LNumber(ctx.SleeperCount))

	if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, tbl); err != nil {
		e.log.Error("lua ghost_decide failed", zap.Error(err))
		return GhostDecision{}, false
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)

	res, ok := ret.(*lua.LTable)
	if !ok {
		e.log.Error("lua ghost_decide returned non-table")
		return GhostDecision{}, false
	}
	action := lua.LVAsString(e.vm.GetField(res, "action"))
	if action == "" {
		return GhostDecision{}, false
	}
	return GhostDecision{Action: action}, true
}
