package scrape

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CSV headers of the cache files.
var (
	TournamentHeader = []string{"Event Name", "Link", "Start Date", "End Date"}
	MatchHeader      = []string{"Tournament", "Match Link", "Team 1", "Team 2", "Score"}
	LiquipediaHeader = []string{"Team 1", "Team 2", "Score", "Map", "Date"}
)

// Tournament is one row of tournaments.csv.
type Tournament struct {
	Name      string
	Link      string
	StartDate string
	EndDate   string
}

// MatchRow is one row of tournament_matches.csv.
type MatchRow struct {
	Tournament string
	MatchLink  string
	Team1      string
	Team2      string
	Score      string
}

// LiquipediaMatch is one match row scraped from a Liquipedia tournament page.
type LiquipediaMatch struct {
	Team1 string
	Team2 string
	Score string
	Map   string
	Date  string
}

// readRecords reads a CSV file with a header row into maps keyed by column
// name. Columns named in required must be present in the header.
func readRecords(path string, required ...string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decodeRecords(f, path, required...)
}

func decodeRecords(r io.Reader, name string, required ...string) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: empty file", name)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[h] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%s: missing column %q", name, col)
		}
	}

	var out []map[string]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		row := make(map[string]string, len(header))
		for col, i := range index {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func writeRecords(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// ReadTournaments loads tournaments.csv. Only "Event Name" and "Link" are
// required.
func ReadTournaments(path string) ([]Tournament, error) {
	recs, err := readRecords(path, "Event Name", "Link")
	if err != nil {
		return nil, err
	}
	out := make([]Tournament, 0, len(recs))
	for _, r := range recs {
		out = append(out, Tournament{Name: r["Event Name"], Link: r["Link"], StartDate: r["Start Date"], EndDate: r["End Date"]})
	}
	return out, nil
}

// WriteTournaments writes tournaments.csv.
func WriteTournaments(path string, ts []Tournament) error {
	rows := make([][]string, len(ts))
	for i, t := range ts {
		rows[i] = []string{t.Name, t.Link, t.StartDate, t.EndDate}
	}
	return writeRecords(path, TournamentHeader, rows)
}

// ReadMatches loads tournament_matches.csv.
func ReadMatches(path string) ([]MatchRow, error) {
	recs, err := readRecords(path, MatchHeader...)
	if err != nil {
		return nil, err
	}
	out := make([]MatchRow, 0, len(recs))
	for _, r := range recs {
		out = append(out, MatchRow{
			Tournament: r["Tournament"],
			MatchLink:  r["Match Link"],
			Team1:      r["Team 1"],
			Team2:      r["Team 2"],
			Score:      r["Score"],
		})
	}
	return out, nil
}

// WriteMatches writes tournament_matches.csv.
func WriteMatches(path string, ms []MatchRow) error {
	rows := make([][]string, len(ms))
	for i, m := range ms {
		rows[i] = []string{m.Tournament, m.MatchLink, m.Team1, m.Team2, m.Score}
	}
	return writeRecords(path, MatchHeader, rows)
}

// WriteLiquipedia writes scraped Liquipedia matches.
func WriteLiquipedia(path string, ms []LiquipediaMatch) error {
	rows := make([][]string, len(ms))
	for i, m := range ms {
		rows[i] = []string{m.Team1, m.Team2, m.Score, m.Map, m.Date}
	}
	return writeRecords(path, LiquipediaHeader, rows)
}
