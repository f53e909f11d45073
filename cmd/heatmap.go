package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-esalytics/internal/heatmap"
	"github.com/pable/go-cs-esalytics/internal/model"
)

var (
	heatmapMap  string
	heatmapShow string
	heatmapOut  string
)

var heatmapCmd = &cobra.Command{
	Use:   "heatmap [hash-prefix...]",
	Short: "Render positional kill or death heatmaps as HTML",
	Long: `Bin the kill (attacker) or death (victim) positions of both clans over the
radar of one map, across the given matches or every stored match, and write
the two heatmaps as an HTML page.`,
	RunE: runHeatmap,
}

func init() {
	heatmapCmd.Flags().StringVarP(&heatmapMap, "map", "m", "", "map name, e.g. de_ancient (default: first available)")
	heatmapCmd.Flags().StringVar(&heatmapShow, "show", heatmap.ShowKills, "kills or deaths")
	heatmapCmd.Flags().StringVarP(&heatmapOut, "out", "o", "", "output HTML file (default <map>_<show>.html)")
}

func runHeatmap(cmd *cobra.Command, args []string) error {
	show, err := heatmap.ParseShow(heatmapShow)
	if err != nil {
		return err
	}
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	matches, err := loadMatches(db, args)
	if err != nil {
		return err
	}
	raws := make([]*model.RawMatch, len(matches))
	for i, m := range matches {
		raws[i] = m.Raw
	}

	mapName := heatmapMap
	available := heatmap.AvailableMaps(raws)
	if mapName == "" {
		if len(available) == 0 {
			return fmt.Errorf("no map data available")
		}
		mapName = available[0]
	}
	a, b, err := heatmap.Generate(raws, mapName, show)
	if err != nil {
		return fmt.Errorf("generating map visuals for %s: %w (available: %s)", mapName, err, strings.Join(available, ", "))
	}

	out := heatmapOut
	if out == "" {
		out = fmt.Sprintf("%s_%s.html", mapName, show)
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()
	if err := heatmap.Render(f, a, b); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	fmt.Printf("%s: %d points for %s, %d for %s, wrote %s\n", mapName, a.Points, a.Clan, b.Points, b.Clan, out)
	return nil
}
