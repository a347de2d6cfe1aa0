package data

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Ability is one ghost ability template. Energy cost and cooldown gate every
// use; the effect fields are interpreted by the ghost input handler.
type Ability struct {
	Name       string
	EnergyCost float64
	Cooldown   time.Duration
	Duration   time.Duration // speed_burst / phase effect length
	SpeedMult  float64       // speed_burst multiplier
	MinionHP   int           // summon_minion health
}

// AbilityTable holds all ghost abilities indexed by name.
type AbilityTable struct {
	abilities map[string]*Ability
}

// Get returns an ability by name, or nil if unknown.
func (t *AbilityTable) Get(name string) *Ability {
	return t.abilities[name]
}

// Count returns the number of abilities loaded.
func (t *AbilityTable) Count() int {
	return len(t.abilities)
}

type abilityYAMLEntry struct {
	Name       string  `yaml:"name"`
	EnergyCost float64 `yaml:"energy_cost"`
	CooldownMS int     `yaml:"cooldown_ms"`
	DurationMS int     `yaml:"duration_ms"`
	SpeedMult  float64 `yaml:"speed_mult"`
	MinionHP   int     `yaml:"minion_hp"`
}

type abilityListFile struct {
	Abilities []abilityYAMLEntry `yaml:"abilities"`
}

// LoadAbilityTable loads ghost ability templates from a YAML file.
func LoadAbilityTable(path string) (*AbilityTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ability_list: %w", err)
	}
	var f abilityListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse ability_list: %w", err)
	}

	t := &AbilityTable{abilities: make(map[string]*Ability, len(f.Abilities))}
	for _, e := range f.Abilities {
		if e.Name == "" || e.EnergyCost < 0 || e.CooldownMS < 0 {
			return nil, fmt.Errorf("ability_list %s: invalid entry %q", path, e.Name)
		}
		t.abilities[e.Name] = &Ability{
			Name:       e.Name,
			EnergyCost: e.EnergyCost,
			Cooldown:   time.Duration(e.CooldownMS) * time.Millisecond,
			Duration:   time.Duration(e.DurationMS) * time.Millisecond,
			SpeedMult:  e.SpeedMult,
			MinionHP:   e.MinionHP,
		}
	}
	return t, nil
}

// TestAbilityTable builds a catalog directly from templates. Test helper.
func TestAbilityTable(abilities ...*Ability) *AbilityTable {
	t := &AbilityTable{abilities: make(map[string]*Ability, len(abilities))}
	for _, a := range abilities {
		t.abilities[a.Name] = a
	}
	return t
}
