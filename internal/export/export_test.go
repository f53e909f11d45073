package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-cs-esalytics/internal/events"
	"github.com/pable/go-cs-esalytics/internal/model"
)

func TestWriteStats(t *testing.T) {
	rows := []model.PlayerStats{{
		Name: "niko", Side: model.SideCT, Clan: "G2",
		Kills: 20, Assists: 4, Deaths: 12, RoundsPlayed: 24, TotalDamage: 2160,
		KASTPct: 75, ADR: 90, Impact: 1.4567, Rating: 1.234,
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteStats(&buf, rows))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, StatsColumns, recs[0])
	assert.Equal(t, []string{"niko", "CT", "G2", "20", "4", "12", "24", "2160", "75.00", "90.00", "1.46", "1.23"}, recs[1])
}

func TestWriteStats_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStats(&buf, nil))
	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{StatsColumns}, recs)
}

func TestWriteTable(t *testing.T) {
	tbl := events.Table{
		Name:    events.Kills,
		Columns: []string{"tick", "weapon"},
		Rows:    [][]string{{"100", "AK-47"}, {"200", "Desert Eagle, gold"}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, tbl))
	assert.Equal(t, "tick,weapon\n100,AK-47\n200,\"Desert Eagle, gold\"\n", buf.String())
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "filtered_player_statistics.csv", FileName("Filtered Player Statistics"))
	assert.Equal(t, "kills.csv", FileName("kills"))
	assert.Equal(t, "bomb_events.csv", FileName("Bomb Events"))
}
