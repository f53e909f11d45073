package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-esalytics/internal/headtohead"
	"github.com/pable/go-cs-esalytics/internal/model"
	"github.com/pable/go-cs-esalytics/internal/storage"
)

var h2hOut string

var h2hCmd = &cobra.Command{
	Use:   "h2h [hash-prefix...]",
	Short: "Render head-to-head kill heatmaps as HTML",
	Long: `Build the attacker-by-victim kill matrices of the two clans in the given
matches (all stored matches when none are given) and write them as an
interactive HTML page.`,
	RunE: runH2H,
}

func init() {
	h2hCmd.Flags().StringVarP(&h2hOut, "out", "o", "h2h.html", "output HTML file")
}

func runH2H(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	matches, err := loadMatches(db, args)
	if err != nil {
		return err
	}
	var kills []model.RawKill
	for _, m := range matches {
		kills = append(kills, m.Raw.Kills...)
	}
	a, b, err := headtohead.Build(kills)
	if err != nil {
		return err
	}

	f, err := os.Create(h2hOut)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()
	if err := headtohead.Render(f, a, b); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	fmt.Printf("%s vs %s: wrote %s\n", a.Clan, b.Clan, h2hOut)
	return nil
}

// loadMatches loads the matches named by hash prefixes, or every stored
// match when prefixes is empty.
func loadMatches(db *storage.DB, prefixes []string) ([]*model.ParsedMatch, error) {
	if len(prefixes) == 0 {
		demos, err := db.ListDemos()
		if err != nil {
			return nil, fmt.Errorf("list demos: %w", err)
		}
		for _, d := range demos {
			prefixes = append(prefixes, d.DemoHash)
		}
	}
	if len(prefixes) == 0 {
		return nil, fmt.Errorf("no demos stored yet")
	}
	out := make([]*model.ParsedMatch, 0, len(prefixes))
	for _, p := range prefixes {
		m, err := loadMatch(db, p)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
