package loader

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/apexrivals/engine/state"
	"github.com/nathoo/apexrivals/types"
)

// compile overlays the collected Lua declarations onto the built-in
// defaults. A content pack may replace any subset: declaring one Rival
// replaces the whole roster, while an absent Race block keeps default
// pacing.
func compile(coll *collector) (*state.Defs, error) {
	defs := state.Default()

	if coll.game != nil {
		setString(coll.game, "title", &defs.Game.Title)
		setString(coll.game, "venue", &defs.Game.Venue)
		setString(coll.game, "intro", &defs.Game.Intro)
	}

	if coll.player != nil {
		setString(coll.player, "name", &defs.Player.Name)
		setInt(coll.player, "reputation", &defs.Player.Reputation)
		setInt(coll.player, "money", &defs.Player.Money)
	}

	if coll.race != nil {
		setInt(coll.race, "laps", &defs.Race.Laps)
		setInt(coll.race, "ticks_per_lap", &defs.Race.TicksPerLap)
		setInt(coll.race, "tick_seconds", &defs.Race.TickSeconds)
	}

	if len(coll.rivals) > 0 {
		defs.Rivals = nil
		for _, raw := range coll.rivals {
			defs.Rivals = append(defs.Rivals, compileRival(raw))
		}
	}

	if coll.grid != nil {
		var grid []string
		coll.grid.ForEach(func(_, v lua.LValue) {
			if s, ok := v.(lua.LString); ok {
				grid = append(grid, string(s))
			}
		})
		defs.Positions = grid
	}

	return defs, nil
}

func compileRival(raw rawRival) types.Rival {
	r := types.Rival{
		ID:            raw.id,
		Relationships: map[string]float64{},
	}
	setString(raw.table, "name", &r.Name)

	var arch string
	setString(raw.table, "archetype", &arch)
	r.Archetype = types.Archetype(arch)

	setFloat(raw.table, "aggression", &r.Aggression)
	setFloat(raw.table, "loyalty", &r.Loyalty)
	setFloat(raw.table, "fear", &r.Fear)
	setFloat(raw.table, "heat_tolerance", &r.HeatTolerance)
	setInt(raw.table, "money", &r.Money)
	setString(raw.table, "emotional_state", &r.EmotionalState)

	if tbl, ok := raw.table.RawGetString("relationships").(*lua.LTable); ok {
		tbl.ForEach(func(k, v lua.LValue) {
			if key, ok := k.(lua.LString); ok {
				if n, ok := v.(lua.LNumber); ok {
					r.Relationships[string(key)] = float64(n)
				}
			}
		})
	}

	if tbl, ok := raw.table.RawGetString("memory").(*lua.LTable); ok {
		tbl.ForEach(func(_, v lua.LValue) {
			if s, ok := v.(lua.LString); ok {
				r.Memory = append(r.Memory, string(s))
			}
		})
	}

	return r
}

func setString(tbl *lua.LTable, key string, dst *string) {
	if s, ok := tbl.RawGetString(key).(lua.LString); ok {
		*dst = string(s)
	}
}

func setInt(tbl *lua.LTable, key string, dst *int) {
	if n, ok := tbl.RawGetString(key).(lua.LNumber); ok {
		*dst = int(n)
	}
}

func setFloat(tbl *lua.LTable, key string, dst *float64) {
	if n, ok := tbl.RawGetString(key).(lua.LNumber); ok {
		*dst = float64(n)
	}
}
