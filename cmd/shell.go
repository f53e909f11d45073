package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/go-cs-esalytics/internal/events"
	"github.com/pable/go-cs-esalytics/internal/model"
	"github.com/pable/go-cs-esalytics/internal/report"
	"github.com/pable/go-cs-esalytics/internal/storage"
)

var (
	cPrompt   = color.New(color.FgCyan, color.Bold)
	cMuted    = color.New(color.Faint)
	cError    = color.New(color.FgRed, color.Bold)
	cWarn     = color.New(color.FgYellow)
	cHeader   = color.New(color.FgCyan, color.Bold)
	cCmd      = color.New(color.FgYellow, color.Bold)
	cGreeting = color.New(color.Bold)
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive REPL session",
	Long:  "Open a persistent session against the database. Type 'help' for available commands.",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

func runShell(_ *cobra.Command, _ []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	cGreeting.Println("esalytics shell")
	cMuted.Println("type 'help' or 'exit'")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		cPrompt.Print("esalytics")
		cMuted.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		tokens := strings.Fields(line)
		cmd, args := tokens[0], tokens[1:]

		var err error
		switch cmd {
		case "exit", "quit":
			return nil
		case "help":
			shellHelp()
		case "list":
			err = shellList(db)
		case "show":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: show <hash-prefix> [--clan <clan>] [--side <side>]")
				continue
			}
			err = shellShow(db, args)
		case "players":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: players <name> [<name>...]")
				continue
			}
			err = printPlayers(db, args)
		case "trend":
			if len(args) != 1 {
				cError.Fprintln(os.Stderr, "usage: trend <name>")
				continue
			}
			err = printTrend(db, args[0])
		case "events":
			if len(args) != 2 {
				cError.Fprintf(os.Stderr, "usage: events <hash-prefix> <%s>\n", strings.Join(events.Kinds, "|"))
				continue
			}
			err = shellEvents(db, args[0], args[1])
		default:
			cWarn.Fprintf(os.Stderr, "unknown command %q, type 'help'\n", cmd)
		}
		if err != nil {
			cError.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
	return nil
}

func shellHelp() {
	fmt.Println()
	type entry struct{ cmd, desc string }
	rows := []entry{
		{"list", "list all stored demos"},
		{"show <hash-prefix>", "show a match's player statistics"},
		{"show <hash-prefix> --clan <c> --side <s>", "same, filtered by clan and side"},
		{"players <name> [...]", "cross-match statistics for one or more players"},
		{"trend <name>", "per-match rating trend for a player"},
		{"events <hash-prefix> <kind>", "print one game event table"},
		{"help", "show this message"},
		{"exit / quit", "close the session"},
	}
	for _, r := range rows {
		fmt.Print("  ")
		cCmd.Printf("%-42s", r.cmd)
		fmt.Println(r.desc)
	}
	fmt.Println()
}

func shellList(db *storage.DB) error {
	demos, err := db.ListDemos()
	if err != nil {
		return err
	}
	if len(demos) == 0 {
		cMuted.Println("No demos stored yet.")
		return nil
	}
	cHeader.Fprintf(os.Stdout, "%d stored demos\n", len(demos))
	report.PrintDemoList(os.Stdout, demos)
	return nil
}

func shellShow(db *storage.DB, args []string) error {
	prefix := args[0]
	var clan string
	side := model.SideUnknown
	for i := 1; i+1 < len(args); i++ {
		switch args[i] {
		case "--clan":
			clan = args[i+1]
		case "--side":
			s, err := model.ParseSide(args[i+1])
			if err != nil {
				return err
			}
			side = s
		}
	}
	return printMatch(db, prefix, clan, side)
}

func shellEvents(db *storage.DB, prefix, kind string) error {
	m, err := loadMatch(db, prefix)
	if err != nil {
		return err
	}
	t, err := events.Dataset(m.Raw, kind, nil)
	if err != nil {
		return err
	}
	report.PrintEventTable(os.Stdout, t)
	return nil
}
