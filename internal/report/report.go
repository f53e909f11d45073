package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/go-cs-esalytics/internal/events"
	"github.com/pable/go-cs-esalytics/internal/model"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// PrintMatchSummary prints a one-line summary header for the match.
func PrintMatchSummary(w io.Writer, s model.MatchSummary) {
	fmt.Fprintf(w, "\nFile: %s  |  Map: %s  |  Date: %s  |  %s vs %s  |  Score: CT %d - T %d  |  Hash: %s\n\n",
		s.FileName, s.MapName, s.MatchDate, orNA(s.ClanA), orNA(s.ClanB), s.CTScore, s.TScore, short(s.DemoHash))
}

// PrintDemoList prints one line per stored demo.
func PrintDemoList(w io.Writer, demos []model.MatchSummary) {
	table := newTable(w)
	table.Header("HASH", "FILE", "MAP", "DATE", "TEAMS", "SCORE", "TICK")
	for _, d := range demos {
		table.Append(
			short(d.DemoHash),
			d.FileName,
			d.MapName,
			d.MatchDate,
			fmt.Sprintf("%s vs %s", orNA(d.ClanA), orNA(d.ClanB)),
			fmt.Sprintf("%d-%d", d.CTScore, d.TScore),
			fmt.Sprintf("%.0f", d.Tickrate),
		)
	}
	table.Render()
}

// PrintPlayerTable prints the summary statistics table. Rows are printed in
// the order given.
func PrintPlayerTable(w io.Writer, stats []model.PlayerStats) {
	table := newTable(w)
	table.Header("NAME", "SIDE", "CLAN", "K", "A", "D", "K/D", "ROUNDS", "DMG", "KAST%", "ADR", "IMPACT", "RATING")
	for _, s := range stats {
		table.Append(
			s.Name,
			s.Side.String(),
			s.Clan,
			strconv.Itoa(s.Kills),
			strconv.Itoa(s.Assists),
			strconv.Itoa(s.Deaths),
			fmt.Sprintf("%.2f", s.KDRatio()),
			strconv.Itoa(s.RoundsPlayed),
			strconv.Itoa(s.TotalDamage),
			fmt.Sprintf("%.0f%%", s.KASTPct),
			fmt.Sprintf("%.1f", s.ADR),
			fmt.Sprintf("%.2f", s.Impact),
			fmt.Sprintf("%.2f", s.Rating),
		)
	}
	table.Render()
}

// PrintEventTable prints an event table with its own columns. Empty tables
// print a notice instead.
func PrintEventTable(w io.Writer, t events.Table) {
	if t.Empty() {
		fmt.Fprintf(w, "No %s data available.\n", t.Name)
		return
	}
	table := newTable(w)
	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	table.Header(header...)
	for _, row := range t.Rows {
		cells := make([]any, len(row))
		for i, c := range row {
			cells[i] = c
		}
		table.Append(cells...)
	}
	table.Render()
}

// PrintTrendTable prints one player's per-match Both-sides rows in the order given.
func PrintTrendTable(w io.Writer, rows []model.PlayerStats, dates map[string]string) {
	table := newTable(w)
	table.Header("#", "DATE", "HASH", "MAP", "CLAN", "K", "A", "D", "KAST%", "ADR", "IMPACT", "RATING", "Δ")
	prev := 0.0
	for i, s := range rows {
		delta := "-"
		if i > 0 {
			delta = fmt.Sprintf("%+.2f", s.Rating-prev)
		}
		prev = s.Rating
		table.Append(
			strconv.Itoa(i+1),
			dates[s.DemoHash],
			short(s.DemoHash),
			s.MapName,
			s.Clan,
			strconv.Itoa(s.Kills),
			strconv.Itoa(s.Assists),
			strconv.Itoa(s.Deaths),
			fmt.Sprintf("%.0f%%", s.KASTPct),
			fmt.Sprintf("%.1f", s.ADR),
			fmt.Sprintf("%.2f", s.Impact),
			fmt.Sprintf("%.2f", s.Rating),
			delta,
		)
	}
	table.Render()
}

// PlayerMap is one player's aggregate on one map.
type PlayerMap struct {
	Name    string
	Map     string
	Matches int
	Stats   model.PlayerStats
}

// PrintMapBreakdown prints per-map aggregates.
func PrintMapBreakdown(w io.Writer, rows []PlayerMap) {
	table := newTable(w)
	table.Header("PLAYER", "MAP", "MATCHES", "K", "A", "D", "K/D", "KAST%", "ADR", "RATING")
	for _, r := range rows {
		s := r.Stats
		table.Append(
			r.Name,
			r.Map,
			strconv.Itoa(r.Matches),
			strconv.Itoa(s.Kills),
			strconv.Itoa(s.Assists),
			strconv.Itoa(s.Deaths),
			fmt.Sprintf("%.2f", s.KDRatio()),
			fmt.Sprintf("%.0f%%", s.KASTPct),
			fmt.Sprintf("%.1f", s.ADR),
			fmt.Sprintf("%.2f", s.Rating),
		)
	}
	table.Render()
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
