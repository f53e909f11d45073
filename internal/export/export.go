// Package export writes player statistics and event tables as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pable/go-cs-esalytics/internal/events"
	"github.com/pable/go-cs-esalytics/internal/model"
)

// StatsColumns is the header row of WriteStats.
var StatsColumns = []string{
	"player_name", "team_name", "clan_name", "kills", "assists", "deaths",
	"n_rounds", "total_damage", "kast_percentage", "average_damage_per_round",
	"impact", "rating_2.0",
}

// WriteStats writes rows as CSV. The header is written even when rows is empty.
func WriteStats(w io.Writer, rows []model.PlayerStats) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(StatsColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, s := range rows {
		rec := []string{
			s.Name,
			s.Side.String(),
			s.Clan,
			strconv.Itoa(s.Kills),
			strconv.Itoa(s.Assists),
			strconv.Itoa(s.Deaths),
			strconv.Itoa(s.RoundsPlayed),
			strconv.Itoa(s.TotalDamage),
			ftoa(s.KASTPct),
			ftoa(s.ADR),
			ftoa(s.Impact),
			ftoa(s.Rating),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %s: %w", s.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTable writes an event table as CSV.
func WriteTable(w io.Writer, t events.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write %s rows: %w", t.Name, err)
	}
	return nil
}

// FileName derives the download name of a labelled table:
// "Filtered Player Statistics" becomes "filtered_player_statistics.csv".
func FileName(label string) string {
	return strings.ReplaceAll(strings.ToLower(label), " ", "_") + ".csv"
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
