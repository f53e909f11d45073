// Package heatmap bins kill and death positions of each clan into a grid
// over the map's radar image and renders the result.
package heatmap

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/pable/go-cs-esalytics/internal/model"
)

// GridSize is the number of bins per axis.
const GridSize = 27

// What a heatmap shows.
const (
	ShowKills  = "kills"
	ShowDeaths = "deaths"
)

// ErrNoData is returned when either clan has no positions on the map.
var ErrNoData = errors.New("no valid data to plot heatmap")

// Coolwarm approximates matplotlib's diverging "coolwarm" colormap.
var Coolwarm = []string{"#3b4cc0", "#8db0fe", "#dddddd", "#f49a7b", "#b40426"}

// Heatmap is one clan's binned positions on one map.
type Heatmap struct {
	Clan   string
	Map    string
	Show   string
	Points int
	// Grid[row][col]; row 0 is the top of the radar.
	Grid [][]int
}

// Max returns the highest bin count.
func (h Heatmap) Max() int {
	best := 0
	for _, row := range h.Grid {
		for _, c := range row {
			if c > best {
				best = c
			}
		}
	}
	return best
}

// Title is the chart title, e.g. "G2 Heatmap for Kills on de_ancient".
func (h Heatmap) Title() string {
	return fmt.Sprintf("%s Heatmap for %s on %s", h.Clan, capitalize(h.Show), h.Map)
}

// ParseShow validates a show option.
func ParseShow(s string) (string, error) {
	switch strings.ToLower(s) {
	case ShowKills:
		return ShowKills, nil
	case ShowDeaths:
		return ShowDeaths, nil
	}
	return "", fmt.Errorf("show must be %q or %q, got %q", ShowKills, ShowDeaths, s)
}

// AvailableMaps returns the sorted unique map names of matches.
func AvailableMaps(matches []*model.RawMatch) []string {
	set := make(map[string]struct{})
	for _, m := range matches {
		if m != nil && m.MapName != "" {
			set[m.MapName] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

type point struct{ x, y float64 }

// Generate builds the heatmaps of the first two clans (in order of first
// appearance as attackers) across all matches played on mapName. show selects
// attacker positions by attacker clan (kills) or victim positions by victim
// clan (deaths).
func Generate(matches []*model.RawMatch, mapName, show string) (Heatmap, Heatmap, error) {
	show, err := ParseShow(show)
	if err != nil {
		return Heatmap{}, Heatmap{}, err
	}

	var clans []string
	points := make(map[string][]point)
	for _, m := range matches {
		if m == nil || m.MapName != mapName {
			continue
		}
		for _, k := range m.Kills {
			if k.KillerClan != "" && !contains(clans, k.KillerClan) {
				clans = append(clans, k.KillerClan)
			}
			if !k.HasPos {
				continue
			}
			if show == ShowKills {
				points[k.KillerClan] = append(points[k.KillerClan], point{k.KillerPos.X, k.KillerPos.Y})
			} else {
				points[k.VictimClan] = append(points[k.VictimClan], point{k.VictimPos.X, k.VictimPos.Y})
			}
		}
	}
	if len(clans) < 2 || len(points[clans[0]]) == 0 || len(points[clans[1]]) == 0 {
		return Heatmap{}, Heatmap{}, fmt.Errorf("%w for %s", ErrNoData, mapName)
	}

	project := projector(mapName, append(points[clans[0]], points[clans[1]]...))
	a := bin(points[clans[0]], project)
	b := bin(points[clans[1]], project)
	return Heatmap{Clan: clans[0], Map: mapName, Show: show, Points: len(points[clans[0]]), Grid: a},
		Heatmap{Clan: clans[1], Map: mapName, Show: show, Points: len(points[clans[1]]), Grid: b},
		nil
}

// projector returns a function mapping world positions to [0, RadarSize).
// Maps without radar calibration are fitted to the bounding box of pts.
func projector(mapName string, pts []point) func(point) (float64, float64) {
	if r, ok := RadarFor(mapName); ok {
		return func(p point) (float64, float64) { return r.ToPixel(p.x, p.y) }
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, maxX = math.Min(minX, p.x), math.Max(maxX, p.x)
		minY, maxY = math.Min(minY, p.y), math.Max(maxY, p.y)
	}
	span := math.Max(maxX-minX, maxY-minY)
	if span == 0 {
		span = 1
	}
	scale := span / (RadarSize - 1)
	return func(p point) (float64, float64) {
		return (p.x - minX) / scale, (maxY - p.y) / scale
	}
}

func bin(pts []point, project func(point) (float64, float64)) [][]int {
	grid := make([][]int, GridSize)
	for i := range grid {
		grid[i] = make([]int, GridSize)
	}
	cell := RadarSize / GridSize
	for _, p := range pts {
		px, py := project(p)
		col, row := int(px/cell), int(py/cell)
		if col < 0 || row < 0 || col >= GridSize || row >= GridSize {
			continue // off radar
		}
		grid[row][col]++
	}
	return grid
}

// Chart renders h as an echarts heatmap. Empty bins are left transparent.
func Chart(h Heatmap) *charts.HeatMap {
	axis := make([]string, GridSize)
	for i := range axis {
		axis[i] = fmt.Sprint(i)
	}
	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "700px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: h.Title()}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: axis, Show: opts.Bool(false)}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: axis, Show: opts.Bool(false)}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(max(h.Max(), 1)),
			InRange:    &opts.VisualMapInRange{Color: Coolwarm},
		}),
	)
	var data []opts.HeatMapData
	for row, cells := range h.Grid {
		for col, c := range cells {
			if c == 0 {
				continue
			}
			// echarts puts category 0 at the bottom, radar row 0 is the top.
			data = append(data, opts.HeatMapData{Value: [3]interface{}{col, GridSize - 1 - row, c}})
		}
	}
	hm.SetXAxis(axis).AddSeries(h.Show, data)
	return hm
}

// Render writes an HTML page with both heatmaps.
func Render(w io.Writer, a, b Heatmap) error {
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("%s on %s", capitalize(a.Show), a.Map)
	page.AddCharts(Chart(a), Chart(b))
	return page.Render(w)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
