package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-esalytics/internal/events"
	"github.com/pable/go-cs-esalytics/internal/export"
	"github.com/pable/go-cs-esalytics/internal/model"
	"github.com/pable/go-cs-esalytics/internal/stats"
)

const exportStats = "stats"

var (
	exportKind string
	exportClan string
	exportSide string
	exportOut  string
)

var exportCmd = &cobra.Command{
	Use:   "export <hash-prefix>...",
	Short: "Export stored statistics or game events as CSV",
	Long: `Write CSV for one or more stored matches.

--kind stats (the default) exports the player statistics table; with several
matches the rows are combined the same way as "All Matches" in the dashboard.
Any event kind (kills, damages, bomb_events, grenades, smokes, infernos)
exports that dataset, concatenated across matches.

Examples:
  esalytics export 3fa9c2 --clan G2 --side Both --out g2.csv
  esalytics export 3fa9c2 7be014 --kind kills`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportKind, "kind", "k", exportStats, "stats or an event kind")
	exportCmd.Flags().StringVar(&exportClan, "clan", "", "only export players of this clan (stats)")
	exportCmd.Flags().StringVar(&exportSide, "side", "", "only export rows of this side (stats)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file path (default: stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	side, err := sideFlag(exportSide)
	if err != nil {
		return err
	}
	if exportKind != exportStats {
		if _, err := events.Columns(exportKind); err != nil {
			return err
		}
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	matches := make([]*model.ParsedMatch, 0, len(args))
	for _, prefix := range args {
		m, err := loadMatch(db, prefix)
		if err != nil {
			return err
		}
		matches = append(matches, m)
	}

	var w io.Writer = os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	if exportKind == exportStats {
		lists := make([][]model.PlayerStats, len(matches))
		for i, m := range matches {
			lists[i] = m.Stats
		}
		rows := matches[0].Stats
		if len(matches) > 1 {
			rows = stats.Combine(lists...)
		}
		err = export.WriteStats(w, stats.Filter(rows, exportClan, side))
	} else {
		err = export.WriteTable(w, eventTable(matches, exportKind))
	}
	if err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	if exportOut != "" {
		fmt.Fprintf(os.Stderr, "Wrote %s\n", exportOut)
	}
	return nil
}

// eventTable concatenates one event dataset across matches. kind must be valid.
func eventTable(matches []*model.ParsedMatch, kind string) events.Table {
	cols, _ := events.Columns(kind)
	t := events.Table{Name: kind, Columns: cols}
	for _, m := range matches {
		d, _ := events.Dataset(m.Raw, kind, nil)
		t.Rows = append(t.Rows, d.Rows...)
	}
	return t
}
