// Package loader reads race content — meeting metadata, the rival roster,
// grid order, and pacing — from sandboxed Lua files and compiles it into
// engine definitions. When no content directory is given the built-in
// meeting is used.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/apexrivals/engine/state"
)

// collector accumulates Lua declarations during file execution.
type collector struct {
	game   *lua.LTable
	player *lua.LTable
	race   *lua.LTable
	grid   *lua.LTable
	rivals []rawRival
}

type rawRival struct {
	id    string
	table *lua.LTable
}

// Load reads all .lua files from dir, compiles them over the built-in
// defaults, validates the result, and returns the immutable Defs. The
// Lua VM is discarded after loading.
func Load(dir string) (*state.Defs, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading content directory %s: %w", dir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			luaFiles = append(luaFiles, e.Name())
		}
	}
	if len(luaFiles) == 0 {
		return nil, fmt.Errorf("no .lua files found in %s", dir)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	openSafeLibs(L)
	sandbox(L)

	coll := &collector{}
	registerAPI(L, coll)

	for _, f := range luaFiles {
		path := filepath.Join(dir, f)
		if err := L.DoFile(path); err != nil {
			return nil, fmt.Errorf("executing %s: %w", f, err)
		}
	}

	defs, err := compile(coll)
	if err != nil {
		return nil, fmt.Errorf("compiling race content: %w", err)
	}

	if err := validate(defs); err != nil {
		return nil, err
	}

	return defs, nil
}

// registerAPI registers the Lua constructors as globals.
func registerAPI(L *lua.LState, coll *collector) {
	// Game { title = "...", venue = "...", intro = "..." }
	L.SetGlobal("Game", L.NewFunction(func(L *lua.LState) int {
		coll.game = L.CheckTable(1)
		return 0
	}))

	// Player { name = "...", money = ..., reputation = ... }
	L.SetGlobal("Player", L.NewFunction(func(L *lua.LState) int {
		coll.player = L.CheckTable(1)
		return 0
	}))

	// Race { laps = 3, ticks_per_lap = 4, tick_seconds = 6 }
	L.SetGlobal("Race", L.NewFunction(func(L *lua.LState) int {
		coll.race = L.CheckTable(1)
		return 0
	}))

	// Grid { "viper", "cipher", "player", ... } — leader first.
	L.SetGlobal("Grid", L.NewFunction(func(L *lua.LState) int {
		coll.grid = L.CheckTable(1)
		return 0
	}))

	// Rival "id" { ... } — curried: Rival("id") returns a function that
	// takes the profile table.
	L.SetGlobal("Rival", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.rivals = append(coll.rivals, rawRival{id: id, table: tbl})
			return 0
		}))
		return 1
	}))
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes dangerous globals and functions.
func sandbox(L *lua.LState) {
	dangerous := []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}
}
