package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-esalytics/internal/report"
	"github.com/pable/go-cs-esalytics/internal/storage"
)

var trendCmd = &cobra.Command{
	Use:   "trend <player-name>",
	Short: "Chronological per-match performance trend for a player",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrend,
}

func runTrend(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	return printTrend(db, args[0])
}

func printTrend(db *storage.DB, name string) error {
	rows, err := db.GetAllPlayerStats(name)
	if err != nil {
		return fmt.Errorf("query stats: %w", err)
	}
	if len(rows) == 0 {
		fmt.Println("no matches found")
		return nil
	}

	demos, err := db.ListDemos()
	if err != nil {
		return fmt.Errorf("list demos: %w", err)
	}
	dates := make(map[string]string, len(demos))
	for _, d := range demos {
		dates[d.DemoHash] = d.MatchDate
	}
	report.PrintTrendTable(os.Stdout, rows, dates)
	return nil
}
