package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the database",
	Long: `Run an arbitrary SQL query against the database and print results as a table.

Schema overview:
  demos(hash, file_name, map_name, match_date, tickrate, ct_score, t_score,
    clan_a, clan_b, parsed_at)
  player_stats(demo_hash, steam_id TEXT, name, side, clan, kills, assists, deaths,
    rounds_played, total_damage, kast_rounds, kast_pct, adr, impact, rating)
  kills(demo_hash, tick, round_number, killer_name, victim_name, weapon, ...)
  damages(demo_hash, tick, round_number, attacker_name, victim_name, weapon, ...)
  match_events(demo_hash, kind, payload)   rounds, bombs, grenades, smokes, infernos as JSON

side is "CT", "TERRORIST" or "Both". steam_id is stored as TEXT.
Example: esalytics sql "SELECT name, AVG(rating) FROM player_stats WHERE side = 'Both' GROUP BY name"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func runSQL(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(query)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return nil
	}

	table := tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))

	colsAny := make([]any, len(cols))
	for i, c := range cols {
		colsAny[i] = c
	}
	table.Header(colsAny...)

	for _, row := range rows {
		rowAny := make([]any, len(row))
		for i, v := range row {
			rowAny[i] = v
		}
		table.Append(rowAny...)
	}
	table.Render()
	fmt.Fprintf(os.Stdout, "\n(%d rows)\n", len(rows))
	return nil
}

