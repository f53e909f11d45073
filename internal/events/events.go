// Package events turns the raw event streams of a parsed demo into flat
// string tables for display and CSV export.
package events

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/pable/go-cs-esalytics/internal/model"
)

// Dataset kinds, in display order.
const (
	Kills    = "kills"
	Damages  = "damages"
	Bombs    = "bomb_events"
	Grenades = "grenades"
	Smokes   = "smokes"
	Infernos = "infernos"
)

// Kinds lists every dataset kind in display order.
var Kinds = []string{Kills, Damages, Bombs, Grenades, Smokes, Infernos}

// ErrInvalidDataset is returned for an unknown dataset kind.
var ErrInvalidDataset = errors.New("invalid dataset type")

var columns = map[string][]string{
	Kills: {"tick", "attacker_name", "victim_name", "weapon", "headshot",
		"penetrated", "thrusmoke", "attacker_team_clan_name", "victim_team_clan_name"},
	Damages: {"tick", "attacker_name", "victim_name", "weapon", "dmg_health",
		"dmg_armor", "attacker_team_clan_name", "victim_team_clan_name"},
	Bombs:    {"tick", "event", "site", "X", "Y", "Z", "round"},
	Grenades: {"tick", "grenade_type", "thrower", "X", "Y", "Z", "round"},
	Smokes:   {"start_tick", "end_tick", "thrower_name", "thrower_team_clan_name", "X", "Y", "Z", "round"},
	Infernos: {"start_tick", "end_tick", "thrower_name", "thrower_team_clan_name", "X", "Y", "Z", "round"},
}

// Table is a named table of string cells.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Empty reports whether the table has no rows.
func (t Table) Empty() bool { return len(t.Rows) == 0 }

// Columns returns the column set of kind.
func Columns(kind string) ([]string, error) {
	kind = normalize(kind)
	cols, ok := columns[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDataset, kind)
	}
	return append([]string(nil), cols...), nil
}

// columnsOf returns a copy of kind's columns that callers may modify.
func columnsOf(kind string) []string {
	return append([]string(nil), columns[kind]...)
}

func normalize(kind string) string {
	if kind == "bomb" {
		return Bombs
	}
	return kind
}

// Tables returns all six datasets of a match keyed by kind. Kinds without
// events are present as empty tables.
func Tables(raw *model.RawMatch) map[string]Table {
	out := make(map[string]Table, len(Kinds))
	for _, kind := range Kinds {
		out[kind] = build(raw, kind)
	}
	return out
}

// Dataset returns one dataset of raw restricted to the selected columns
// (all columns when selected is empty). An empty dataset yields an empty
// table without columns.
func Dataset(raw *model.RawMatch, kind string, selected []string) (Table, error) {
	kind = normalize(kind)
	if _, ok := columns[kind]; !ok {
		return Table{}, fmt.Errorf("%w: %s", ErrInvalidDataset, kind)
	}
	t := build(raw, kind)
	if t.Empty() {
		return Table{Name: kind}, nil
	}
	if len(selected) == 0 {
		return t, nil
	}
	return Project(t, selected)
}

// Project keeps only the named columns of t, in the given order.
func Project(t Table, selected []string) (Table, error) {
	idx := make([]int, len(selected))
	for i, c := range selected {
		idx[i] = -1
		for j, have := range t.Columns {
			if have == c {
				idx[i] = j
				break
			}
		}
		if idx[i] < 0 {
			return Table{}, fmt.Errorf("unknown column %q in %s", c, t.Name)
		}
	}
	out := Table{Name: t.Name, Columns: append([]string(nil), selected...)}
	for _, row := range t.Rows {
		r := make([]string, len(idx))
		for i, j := range idx {
			r[i] = row[j]
		}
		out.Rows = append(out.Rows, r)
	}
	return out, nil
}

// Combine concatenates same-kind tables across matches.
func Combine(matches []*model.RawMatch) map[string]Table {
	out := make(map[string]Table, len(Kinds))
	for _, kind := range Kinds {
		t := Table{Name: kind, Columns: columnsOf(kind)}
		for _, raw := range matches {
			t.Rows = append(t.Rows, build(raw, kind).Rows...)
		}
		out[kind] = t
	}
	return out
}

func build(raw *model.RawMatch, kind string) Table {
	t := Table{Name: kind, Columns: columnsOf(kind)}
	if raw == nil {
		return t
	}
	switch kind {
	case Kills:
		for _, k := range raw.Kills {
			t.Rows = append(t.Rows, []string{
				itoa(k.Tick), k.KillerName, k.VictimName, k.Weapon, btoa(k.IsHeadshot),
				btoa(k.Penetrated), btoa(k.ThroughSmoke), k.KillerClan, k.VictimClan,
			})
		}
	case Damages:
		for _, d := range raw.Damages {
			t.Rows = append(t.Rows, []string{
				itoa(d.Tick), d.AttackerName, d.VictimName, d.Weapon, itoa(d.HealthDamage),
				itoa(d.ArmorDamage), d.AttackerClan, d.VictimClan,
			})
		}
	case Bombs:
		for _, b := range raw.Bombs {
			t.Rows = append(t.Rows, append([]string{itoa(b.Tick), b.Event, b.Site}, pos(b.Pos, b.RoundNumber)...))
		}
	case Grenades:
		for _, g := range raw.Grenades {
			t.Rows = append(t.Rows, append([]string{itoa(g.Tick), g.GrenadeType, g.ThrowerName}, pos(g.Pos, g.RoundNumber)...))
		}
	case Smokes:
		t.Rows = effects(raw.Smokes)
	case Infernos:
		t.Rows = effects(raw.Infernos)
	}
	return t
}

func effects(list []model.RawEffect) [][]string {
	var rows [][]string
	for _, e := range list {
		rows = append(rows, append([]string{itoa(e.StartTick), itoa(e.EndTick), e.ThrowerName, e.ThrowerClan},
			pos(e.Pos, e.RoundNumber)...))
	}
	return rows
}

func pos(p model.Vec3, round int) []string {
	return []string{ftoa(p.X), ftoa(p.Y), ftoa(p.Z), itoa(round)}
}

func itoa(v int) string { return strconv.Itoa(v) }

func btoa(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
