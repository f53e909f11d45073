package headtohead

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-cs-esalytics/internal/model"
)

func k(attacker, attackerClan, victim, victimClan, weapon string, dmg int, hs bool) model.RawKill {
	return model.RawKill{
		KillerName: attacker, KillerClan: attackerClan,
		VictimName: victim, VictimClan: victimClan,
		Weapon: weapon, HealthDamage: dmg, IsHeadshot: hs,
	}
}

func sampleKills() []model.RawKill {
	return []model.RawKill{
		k("niko", "G2", "sjuush", "Heroic", "AK-47", 100, true),
		k("sjuush", "Heroic", "hunter", "G2", "M4A1", 96, false),
		k("niko", "G2", "sjuush", "Heroic", "Desert Eagle", 80, false),
		k("hunter", "G2", "niko", "G2", "HE Grenade", 40, false), // teamkill, ignored
		k("m0NESY", "G2", "TeSeS", "Heroic", "AWP", 115, false),
	}
}

func TestBuild(t *testing.T) {
	g2, heroic, err := Build(sampleKills())
	require.NoError(t, err)

	assert.Equal(t, "G2", g2.Clan)
	assert.Equal(t, []string{"m0NESY", "niko"}, g2.Attackers)
	assert.Equal(t, []string{"TeSeS", "sjuush"}, g2.Victims)
	assert.Equal(t, [][]int{{1, 0}, {0, 2}}, g2.Counts)
	assert.Equal(t, 2, g2.Max())
	assert.Equal(t,
		"<b>Kill 1:</b> Weapon: AK-47, Damage: 100, Headshot: True<br><b>Kill 2:</b> Weapon: Desert Eagle, Damage: 80, Headshot: False",
		g2.Details[1][1])
	assert.Empty(t, g2.Details[1][0])

	assert.Equal(t, "Heroic", heroic.Clan)
	assert.Equal(t, []string{"sjuush"}, heroic.Attackers)
	assert.Equal(t, []string{"hunter"}, heroic.Victims)
}

func TestBuild_NotEnoughClans(t *testing.T) {
	kills := []model.RawKill{
		k("niko", "G2", "sjuush", "Heroic", "AK-47", 100, true),
		k("hunter", "G2", "niko", "G2", "AK-47", 100, true),
	}
	_, _, err := Build(kills)
	assert.ErrorIs(t, err, ErrNotEnoughClans)

	_, _, err = Build(nil)
	assert.ErrorIs(t, err, ErrNotEnoughClans)
}

func TestRender(t *testing.T) {
	g2, heroic, err := Build(sampleKills())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, g2, heroic))
	out := buf.String()
	assert.Contains(t, out, "G2 Head-to-Head Kills")
	assert.Contains(t, out, "Heroic Head-to-Head Kills")
	assert.Contains(t, out, "sjuush")
}
