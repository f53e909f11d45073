package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pable/go-cs-esalytics/internal/model"
	"github.com/pable/go-cs-esalytics/internal/report"
	"github.com/pable/go-cs-esalytics/internal/stats"
	"github.com/pable/go-cs-esalytics/internal/storage"
)

var playersCmd = &cobra.Command{
	Use:   "players <name> [<name>...]",
	Short: "Cross-match statistics for one or more players",
	Long: `Combine the Both-sides rows of every stored match each named player appears
in. Counting stats are summed; KAST, ADR, impact and rating are averaged
per match. A per-map breakdown follows the overview.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlayers,
}

func runPlayers(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	return printPlayers(db, args)
}

func printPlayers(db *storage.DB, names []string) error {
	var overview []model.PlayerStats
	var maps []report.PlayerMap
	for _, name := range names {
		rows, err := db.GetAllPlayerStats(name)
		if err != nil {
			return fmt.Errorf("query stats for %s: %w", name, err)
		}
		if len(rows) == 0 {
			logger.Warn("no stored matches for player", zap.String("player", name))
			continue
		}
		overview = append(overview, stats.Combine(rows)...)
		maps = append(maps, mapBreakdown(rows)...)
	}
	if len(overview) == 0 {
		return nil
	}

	fmt.Fprintln(os.Stdout)
	report.PrintPlayerTable(os.Stdout, overview)
	fmt.Fprintln(os.Stdout)
	report.PrintMapBreakdown(os.Stdout, maps)
	return nil
}

// mapBreakdown combines one player's per-match rows by map, maps sorted by name.
func mapBreakdown(rows []model.PlayerStats) []report.PlayerMap {
	byMap := make(map[string][]model.PlayerStats)
	for _, r := range rows {
		byMap[r.MapName] = append(byMap[r.MapName], r)
	}
	names := make([]string, 0, len(byMap))
	for m := range byMap {
		names = append(names, m)
	}
	sort.Strings(names)

	var out []report.PlayerMap
	for _, m := range names {
		for _, s := range stats.Combine(byMap[m]) {
			out = append(out, report.PlayerMap{Name: s.Name, Map: m, Matches: len(byMap[m]), Stats: s})
		}
	}
	return out
}
