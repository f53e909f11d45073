package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-cs-esalytics/internal/model"
)

func sampleRaw() *model.RawMatch {
	return &model.RawMatch{
		Kills: []model.RawKill{
			{Tick: 100, KillerName: "alice", VictimName: "bob", Weapon: "AK-47", IsHeadshot: true,
				KillerClan: "Alpha", VictimClan: "Bravo"},
			{Tick: 200, KillerName: "bob", VictimName: "carol", Weapon: "AWP", Penetrated: true,
				KillerClan: "Bravo", VictimClan: "Alpha"},
		},
		Damages: []model.RawDamage{
			{Tick: 95, AttackerName: "alice", VictimName: "bob", Weapon: "AK-47", HealthDamage: 27, ArmorDamage: 3},
		},
		Bombs: []model.RawBombEvent{
			{Tick: 500, RoundNumber: 2, Event: model.BombPlanted, Site: "B", Pos: model.Vec3{X: 1.5, Y: -2, Z: 3}},
		},
		Smokes: []model.RawEffect{
			{StartTick: 10, EndTick: 1200, RoundNumber: 1, ThrowerName: "dave", ThrowerClan: "Bravo"},
		},
	}
}

func TestTables(t *testing.T) {
	tables := Tables(sampleRaw())
	require.Len(t, tables, len(Kinds))

	kills := tables[Kills]
	assert.Equal(t, "attacker_team_clan_name", kills.Columns[7])
	require.Len(t, kills.Rows, 2)
	assert.Equal(t, []string{"100", "alice", "bob", "AK-47", "True", "False", "False", "Alpha", "Bravo"}, kills.Rows[0])

	bombs := tables[Bombs]
	require.Len(t, bombs.Rows, 1)
	assert.Equal(t, []string{"500", "planted", "B", "1.50", "-2.00", "3.00", "2"}, bombs.Rows[0])

	assert.True(t, tables[Infernos].Empty())
	assert.Len(t, tables[Infernos].Columns, 8)
}

func TestDataset(t *testing.T) {
	raw := sampleRaw()

	tbl, err := Dataset(raw, Kills, []string{"weapon", "attacker_name"})
	require.NoError(t, err)
	assert.Equal(t, []string{"weapon", "attacker_name"}, tbl.Columns)
	assert.Equal(t, []string{"AWP", "bob"}, tbl.Rows[1])

	tbl, err = Dataset(raw, "bomb", nil)
	require.NoError(t, err)
	assert.Equal(t, Bombs, tbl.Name)
	assert.Len(t, tbl.Rows, 1)

	tbl, err = Dataset(raw, Grenades, []string{"tick"})
	require.NoError(t, err)
	assert.True(t, tbl.Empty())
	assert.Empty(t, tbl.Columns)

	_, err = Dataset(raw, "chickens", nil)
	assert.ErrorIs(t, err, ErrInvalidDataset)

	_, err = Dataset(raw, Kills, []string{"no_such_column"})
	assert.Error(t, err)
}

func TestCombine(t *testing.T) {
	combined := Combine([]*model.RawMatch{sampleRaw(), sampleRaw(), nil})
	assert.Len(t, combined[Kills].Rows, 4)
	assert.Len(t, combined[Smokes].Rows, 2)
	assert.True(t, combined[Infernos].Empty())
	assert.NotEmpty(t, combined[Infernos].Columns)
}

func TestColumns(t *testing.T) {
	cols, err := Columns(Damages)
	require.NoError(t, err)
	assert.Contains(t, cols, "dmg_armor")

	cols[0] = "mutated"
	again, _ := Columns(Damages)
	assert.Equal(t, "tick", again[0])

	_, err = Columns("nope")
	assert.ErrorIs(t, err, ErrInvalidDataset)
}

func TestTableColumnsAreCopies(t *testing.T) {
	Tables(sampleRaw())[Kills].Columns[0] = "mutated"
	Combine([]*model.RawMatch{sampleRaw()})[Damages].Columns[0] = "mutated"

	assert.Equal(t, "tick", Tables(sampleRaw())[Kills].Columns[0])
	cols, err := Columns(Damages)
	require.NoError(t, err)
	assert.Equal(t, "tick", cols[0])
}
