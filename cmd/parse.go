package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pable/go-cs-esalytics/internal/ingest"
	"github.com/pable/go-cs-esalytics/internal/model"
	"github.com/pable/go-cs-esalytics/internal/report"
	"github.com/pable/go-cs-esalytics/internal/stats"
)

var (
	parseWorkers int
	parseClan    string
	parseSide    string
)

var parseCmd = &cobra.Command{
	Use:   "parse <demo.dem>...",
	Short: "Parse CS2 demo files and store their statistics",
	Long: `Parse one or more .dem files, compute per-side player statistics and store
them in the database. Demos already stored (by content hash) are not parsed
again.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().IntVarP(&parseWorkers, "workers", "w", 0, "demos parsed in parallel (default from config)")
	parseCmd.Flags().StringVar(&parseClan, "clan", "", "only print players of this clan")
	parseCmd.Flags().StringVar(&parseSide, "side", "", "only print rows of this side (CT, TERRORIST, Both)")
}

func runParse(cmd *cobra.Command, args []string) error {
	side, err := sideFlag(parseSide)
	if err != nil {
		return err
	}
	workers := parseWorkers
	if workers <= 0 {
		workers = cfg.Server.ParseWorkers
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	in := &ingest.Ingester{DB: db, Logger: logger}
	results := in.IngestAll(cmd.Context(), args, workers)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			logger.Error("parse failed", zap.String("demo", r.Path), zap.Error(r.Err))
			continue
		}
		if r.Cached {
			fmt.Fprintf(os.Stdout, "Demo %s already stored, showing cached results.\n", r.Match.Summary.DemoHash[:12])
		}
		report.PrintMatchSummary(os.Stdout, r.Match.Summary)
		report.PrintPlayerTable(os.Stdout, stats.Filter(r.Match.Stats, parseClan, side))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d demos failed to parse", failed, len(results))
	}
	return nil
}

// sideFlag parses an optional side filter; empty means all sides.
func sideFlag(v string) (model.Side, error) {
	if v == "" {
		return model.SideUnknown, nil
	}
	return model.ParseSide(v)
}
