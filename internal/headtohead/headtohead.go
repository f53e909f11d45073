// Package headtohead builds attacker-by-victim kill matrices for the two
// clans of a match and renders them as interactive heatmaps.
package headtohead

import (
	"errors"
	"fmt"
	"html"
	"io"
	"sort"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/pable/go-cs-esalytics/internal/model"
)

// ErrNotEnoughClans is returned when the kills involve fewer than two clans.
var ErrNotEnoughClans = errors.New("expected at least 2 clans in the data")

// Palettes used for the first and second clan.
var (
	Blues = []string{"#f7fbff", "#6baed6", "#08306b"}
	Reds  = []string{"#fff5f0", "#fb6a4a", "#67000d"}
)

// Matrix holds kill counts of one clan's attackers against their victims.
// Counts[i][j] is how often Attackers[i] killed Victims[j]; Details[i][j]
// lists those kills for hover text.
type Matrix struct {
	Clan      string
	Attackers []string
	Victims   []string
	Counts    [][]int
	Details   [][]string
}

// Max returns the highest cell count.
func (m Matrix) Max() int {
	best := 0
	for _, row := range m.Counts {
		for _, c := range row {
			if c > best {
				best = c
			}
		}
	}
	return best
}

// Build computes the matrices of the first two attacking clans (in order of
// first appearance). Kills between members of the same clan are ignored.
// Kills from several matches may simply be concatenated.
func Build(kills []model.RawKill) (Matrix, Matrix, error) {
	var filtered []model.RawKill
	var clans []string
	for _, k := range kills {
		if k.KillerClan == k.VictimClan {
			continue
		}
		filtered = append(filtered, k)
		if !contains(clans, k.KillerClan) {
			clans = append(clans, k.KillerClan)
		}
	}
	if len(clans) < 2 {
		return Matrix{}, Matrix{}, ErrNotEnoughClans
	}
	return build(filtered, clans[0]), build(filtered, clans[1]), nil
}

func build(kills []model.RawKill, clan string) Matrix {
	type cell struct{ attacker, victim string }
	byCell := make(map[cell][]model.RawKill)
	attackers := make(map[string]struct{})
	victims := make(map[string]struct{})
	for _, k := range kills {
		if k.KillerClan != clan {
			continue
		}
		c := cell{k.KillerName, k.VictimName}
		byCell[c] = append(byCell[c], k)
		attackers[k.KillerName] = struct{}{}
		victims[k.VictimName] = struct{}{}
	}

	m := Matrix{Clan: clan, Attackers: sortedKeys(attackers), Victims: sortedKeys(victims)}
	m.Counts = make([][]int, len(m.Attackers))
	m.Details = make([][]string, len(m.Attackers))
	for i, a := range m.Attackers {
		m.Counts[i] = make([]int, len(m.Victims))
		m.Details[i] = make([]string, len(m.Victims))
		for j, v := range m.Victims {
			ks := byCell[cell{a, v}]
			m.Counts[i][j] = len(ks)
			m.Details[i][j] = KillDetails(ks)
		}
	}
	return m
}

// KillDetails formats the kills of one cell, one line per kill.
func KillDetails(kills []model.RawKill) string {
	lines := make([]string, len(kills))
	for i, k := range kills {
		hs := "False"
		if k.IsHeadshot {
			hs = "True"
		}
		lines[i] = fmt.Sprintf("<b>Kill %d:</b> Weapon: %s, Damage: %d, Headshot: %s",
			i+1, html.EscapeString(k.Weapon), k.HealthDamage, hs)
	}
	return strings.Join(lines, "<br>")
}

// Chart builds the heatmap chart of m: victims on X, attackers on Y.
func Chart(m Matrix, palette []string) *charts.HeatMap {
	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: m.Clan + " Head-to-Head Kills"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Formatter: "{b}"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Victim", Type: "category", Data: m.Victims,
			SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Attacker", Type: "category", Data: m.Attackers,
			SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(max(m.Max(), 1)),
			InRange:    &opts.VisualMapInRange{Color: palette},
		}),
	)

	var data []opts.HeatMapData
	for i, a := range m.Attackers {
		for j, v := range m.Victims {
			hover := fmt.Sprintf("<b>Attacker:</b> %s<br><b>Victim:</b> %s<br><b>Kills:</b> %d<br><b>Details:</b><br>%s",
				html.EscapeString(a), html.EscapeString(v), m.Counts[i][j], m.Details[i][j])
			data = append(data, opts.HeatMapData{Name: hover, Value: [3]interface{}{j, i, m.Counts[i][j]}})
		}
	}
	hm.SetXAxis(m.Victims).AddSeries("Kills", data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true)}))
	return hm
}

// Render writes an HTML page with both clans' heatmaps (Blues, then Reds).
func Render(w io.Writer, a, b Matrix) error {
	page := components.NewPage()
	page.PageTitle = "Head-to-Head Kills"
	page.AddCharts(Chart(a, Blues), Chart(b, Reds))
	return page.Render(w)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
