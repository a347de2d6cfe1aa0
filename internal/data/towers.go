package data

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// TowerType is one buildable tower template. The catalog is the only source
// of truth for tower costs and combat numbers.
type TowerType struct {
	Type     string
	Cost     int
	Damage   int
	Range    float64       // world units
	FireRate time.Duration // minimum spacing between shots
}

// TowerTable holds all tower templates indexed by type name.
type TowerTable struct {
	types map[string]*TowerType
	order []string
}

// Get returns a tower template by type name, or nil if unknown.
func (t *TowerTable) Get(typ string) *TowerType {
	return t.types[typ]
}

// Count returns the number of templates loaded.
func (t *TowerTable) Count() int {
	return len(t.types)
}

// Types returns template names in file order (for client catalogs).
func (t *TowerTable) Types() []string {
	return t.order
}

type towerYAMLEntry struct {
	Type       string  `yaml:"type"`
	Cost       int     `yaml:"cost"`
	Damage     int     `yaml:"damage"`
	Range      float64 `yaml:"range"`
	FireRateMS int     `yaml:"fire_rate_ms"`
}

type towerListFile struct {
	Towers []towerYAMLEntry `yaml:"towers"`
}

// LoadTowerTable loads tower templates from a YAML file.
func LoadTowerTable(path string) (*TowerTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tower_list: %w", err)
	}
	var f towerListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse tower_list: %w", err)
	}
	if len(f.Towers) == 0 {
		return nil, fmt.Errorf("tower_list %s: no tower types defined", path)
	}

	t := &TowerTable{types: make(map[string]*TowerType, len(f.Towers))}
	for _, e := range f.Towers {
		if e.Type == "" || e.Cost <= 0 || e.Damage <= 0 || e.Range <= 0 || e.FireRateMS <= 0 {
			return nil, fmt.Errorf("tower_list %s: invalid entry %q", path, e.Type)
		}
		if _, dup := t.types[e.Type]; dup {
			return nil, fmt.Errorf("tower_list %s: duplicate type %q", path, e.Type)
		}
		t.types[e.Type] = &TowerType{
			Type:     e.Type,
			Cost:     e.Cost,
			Damage:   e.Damage,
			Range:    e.Range,
			FireRate: time.Duration(e.FireRateMS) * time.Millisecond,
		}
		t.order = append(t.order, e.Type)
	}
	return t, nil
}

// TestTowerTable builds a catalog directly from templates. Test helper.
func TestTowerTable(types ...*TowerType) *TowerTable {
	t := &TowerTable{types: make(map[string]*TowerType, len(types))}
	for _, tt := range types {
		t.types[tt.Type] = tt
		t.order = append(t.order, tt.Type)
	}
	return t
}
