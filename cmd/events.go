package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-esalytics/internal/events"
	"github.com/pable/go-cs-esalytics/internal/report"
)

var (
	eventsKind    string
	eventsColumns string
)

var eventsCmd = &cobra.Command{
	Use:   "events <hash-prefix>",
	Short: "Print the game event tables of a stored match",
	Long: `Print the kills, damages, bomb_events, grenades, smokes and infernos tables
of a stored match, or a single one with --kind. --columns selects and orders
the columns of that table.`,
	Args: cobra.ExactArgs(1),
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().StringVarP(&eventsKind, "kind", "k", "", "only print this dataset")
	eventsCmd.Flags().StringVar(&eventsColumns, "columns", "", "comma-separated columns to keep (requires --kind)")
}

func runEvents(cmd *cobra.Command, args []string) error {
	if eventsColumns != "" && eventsKind == "" {
		return fmt.Errorf("--columns requires --kind")
	}
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := loadMatch(db, args[0])
	if err != nil {
		return err
	}
	report.PrintMatchSummary(os.Stdout, m.Summary)

	if eventsKind != "" {
		var cols []string
		if eventsColumns != "" {
			cols = strings.Split(eventsColumns, ",")
		}
		t, err := events.Dataset(m.Raw, eventsKind, cols)
		if err != nil {
			return err
		}
		report.PrintEventTable(os.Stdout, t)
		return nil
	}

	tables := events.Tables(m.Raw)
	for _, kind := range events.Kinds {
		fmt.Fprintf(os.Stdout, "\n%s\n", kind)
		report.PrintEventTable(os.Stdout, tables[kind])
	}
	return nil
}
