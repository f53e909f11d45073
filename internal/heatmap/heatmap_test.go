package heatmap

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-cs-esalytics/internal/model"
)

func kill(killerClan, victimClan string, kx, ky, vx, vy float64) model.RawKill {
	return model.RawKill{
		KillerClan: killerClan, VictimClan: victimClan,
		KillerPos: model.Vec3{X: kx, Y: ky}, VictimPos: model.Vec3{X: vx, Y: vy},
		HasPos: true,
	}
}

func ancientMatch() *model.RawMatch {
	// Radar origin of de_ancient is (-2953, 2164) at scale 5, so world
	// (-2953, 2164) lands in bin (0, 0) and (-2953+1000, 2164-1000) in bin (5, 5).
	return &model.RawMatch{
		MapName: "de_ancient",
		Kills: []model.RawKill{
			kill("G2", "Heroic", -2953, 2164, -1953, 1164),
			kill("G2", "Heroic", -2950, 2160, -1953, 1164),
			kill("Heroic", "G2", -1953, 1164, -2953, 2164),
		},
	}
}

func TestGenerateKills(t *testing.T) {
	a, b, err := Generate([]*model.RawMatch{ancientMatch()}, "de_ancient", "kills")
	require.NoError(t, err)

	assert.Equal(t, "G2", a.Clan)
	assert.Equal(t, "Heroic", b.Clan)
	assert.Equal(t, 2, a.Points)
	assert.Equal(t, 2, a.Grid[0][0])
	assert.Equal(t, 1, b.Grid[5][5])
	assert.Equal(t, 2, a.Max())
	assert.Equal(t, "G2 Heatmap for Kills on de_ancient", a.Title())
	assert.Len(t, a.Grid, GridSize)
	assert.Len(t, a.Grid[0], GridSize)
}

func TestGenerateDeaths(t *testing.T) {
	a, b, err := Generate([]*model.RawMatch{ancientMatch()}, "de_ancient", "Deaths")
	require.NoError(t, err)

	// Deaths are grouped by the victim's clan.
	assert.Equal(t, "G2", a.Clan)
	assert.Equal(t, 1, a.Points)
	assert.Equal(t, 1, a.Grid[0][0])
	assert.Equal(t, 2, b.Points)
	assert.Equal(t, 2, b.Grid[5][5])
	assert.Equal(t, "Heroic Heatmap for Deaths on de_ancient", b.Title())
}

func TestGenerateAcrossMatches(t *testing.T) {
	other := ancientMatch()
	nuke := ancientMatch()
	nuke.MapName = "de_nuke"
	a, _, err := Generate([]*model.RawMatch{ancientMatch(), other, nuke}, "de_ancient", ShowKills)
	require.NoError(t, err)
	assert.Equal(t, 4, a.Points)
}

func TestGenerateNoData(t *testing.T) {
	_, _, err := Generate([]*model.RawMatch{ancientMatch()}, "de_mirage", ShowKills)
	assert.ErrorIs(t, err, ErrNoData)
	assert.Contains(t, err.Error(), "de_mirage")

	oneSided := &model.RawMatch{MapName: "de_ancient", Kills: []model.RawKill{kill("G2", "Heroic", 0, 0, 0, 0)}}
	_, _, err = Generate([]*model.RawMatch{oneSided}, "de_ancient", ShowKills)
	assert.ErrorIs(t, err, ErrNoData)

	_, _, err = Generate([]*model.RawMatch{ancientMatch()}, "de_ancient", "assists")
	assert.Error(t, err)
}

func TestGenerateUncalibratedMap(t *testing.T) {
	m := &model.RawMatch{
		MapName: "de_custom",
		Kills: []model.RawKill{
			kill("A", "B", 0, 0, 0, 0),
			kill("B", "A", 1000, 1000, 0, 0),
		},
	}
	a, b, err := Generate([]*model.RawMatch{m}, "de_custom", ShowKills)
	require.NoError(t, err)
	// Bounding box fit: (0, 0) is bottom-left, (1000, 1000) top-right.
	assert.Equal(t, 1, a.Grid[GridSize-1][0])
	assert.Equal(t, 1, b.Grid[0][GridSize-1])
}

func TestAvailableMaps(t *testing.T) {
	maps := AvailableMaps([]*model.RawMatch{
		{MapName: "de_nuke"}, {MapName: "de_ancient"}, {MapName: "de_nuke"}, nil, {},
	})
	assert.Equal(t, []string{"de_ancient", "de_nuke"}, maps)
}

func TestRender(t *testing.T) {
	a, b, err := Generate([]*model.RawMatch{ancientMatch()}, "de_ancient", ShowKills)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, a, b))
	assert.Contains(t, buf.String(), "Heroic Heatmap for Kills on de_ancient")
}
