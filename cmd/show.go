package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-esalytics/internal/model"
	"github.com/pable/go-cs-esalytics/internal/report"
	"github.com/pable/go-cs-esalytics/internal/stats"
	"github.com/pable/go-cs-esalytics/internal/storage"
)

var (
	showClan string
	showSide string
)

var showCmd = &cobra.Command{
	Use:   "show <hash-prefix>",
	Short: "Show stored match stats by hash prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().StringVar(&showClan, "clan", "", "only show players of this clan")
	showCmd.Flags().StringVar(&showSide, "side", "", "only show rows of this side (CT, TERRORIST, Both)")
}

func runShow(cmd *cobra.Command, args []string) error {
	side, err := sideFlag(showSide)
	if err != nil {
		return err
	}
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	return printMatch(db, args[0], showClan, side)
}

func printMatch(db *storage.DB, prefix, clan string, side model.Side) error {
	demo, err := findDemo(db, prefix)
	if err != nil {
		return err
	}
	rows, err := db.GetPlayerStats(demo.DemoHash)
	if err != nil {
		return fmt.Errorf("get player stats: %w", err)
	}
	report.PrintMatchSummary(os.Stdout, *demo)
	report.PrintPlayerTable(os.Stdout, stats.Filter(rows, clan, side))
	return nil
}

// findDemo resolves a hash prefix to a stored demo.
func findDemo(db *storage.DB, prefix string) (*model.MatchSummary, error) {
	demo, err := db.GetDemoByPrefix(prefix)
	if err != nil {
		return nil, fmt.Errorf("query demo: %w", err)
	}
	if demo == nil {
		return nil, fmt.Errorf("no demo found with hash prefix %q", prefix)
	}
	return demo, nil
}

// loadMatch resolves a hash prefix and loads the full stored match.
func loadMatch(db *storage.DB, prefix string) (*model.ParsedMatch, error) {
	demo, err := findDemo(db, prefix)
	if err != nil {
		return nil, err
	}
	m, err := db.GetMatch(demo.DemoHash)
	if err != nil {
		return nil, fmt.Errorf("load match: %w", err)
	}
	return m, nil
}
