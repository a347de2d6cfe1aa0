package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "list.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

func TestLoadTowerTable(t *testing.T) {
	path := writeYAML(t, `
towers:
  - type: basic
    cost: 50
    damage: 10
    range: 150
    fire_rate_ms: 1000
  - type: sniper
    cost: 140
    damage: 25
    range: 320
    fire_rate_ms: 2500
`)
	table, err := LoadTowerTable(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if table.Count() != 2 {
		t.Fatalf("count = %d", table.Count())
	}
	basic := table.Get("basic")
	if basic == nil || basic.Cost != 50 || basic.FireRate != time.Second {
		t.Fatalf("basic = %+v", basic)
	}
	if table.Get("nope") != nil {
		t.Fatal("unknown type resolved")
	}
	if got := table.Types(); len(got) != 2 || got[0] != "basic" || got[1] != "sniper" {
		t.Fatalf("order = %v", got)
	}
}

func TestLoadTowerTableRejectsBadEntries(t *testing.T) {
	cases := map[string]string{
		"empty catalog": `towers: []`,
		"zero cost": `
towers:
  - type: basic
    cost: 0
    damage: 10
    range: 150
    fire_rate_ms: 1000
`,
		"duplicate type": `
towers:
  - {type: basic, cost: 50, damage: 10, range: 150, fire_rate_ms: 1000}
  - {type: basic, cost: 60, damage: 12, range: 150, fire_rate_ms: 1000}
`,
	}
	for name, body := range cases {
		if _, err := LoadTowerTable(writeYAML(t, body)); err == nil {
			t.Fatalf("%s accepted", name)
		}
	}
}

func TestLoadAbilityTable(t *testing.T) {
	path := writeYAML(t, `
abilities:
  - name: speed_burst
    energy_cost: 30
    cooldown_ms: 8000
    duration_ms: 3000
    speed_mult: 2.0
  - name: summon_minion
    energy_cost: 80
    cooldown_ms: 20000
    minion_hp: 15
`)
	table, err := LoadAbilityTable(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	burst := table.Get("speed_burst")
	if burst == nil || burst.Cooldown != 8*time.Second || burst.SpeedMult != 2 {
		t.Fatalf("speed_burst = %+v", burst)
	}
	if m := table.Get("summon_minion"); m == nil || m.MinionHP != 15 {
		t.Fatalf("summon_minion = %+v", m)
	}
}
