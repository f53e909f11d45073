package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var dropForce bool

// dropCmd deletes one stored demo, or the whole database.
var dropCmd = &cobra.Command{
	Use:   "drop [hash-prefix]",
	Short: "Delete a stored demo or the whole database",
	Long: `With a hash prefix, remove that demo and all of its rows so the next parse
or upload re-parses it. Without arguments, permanently delete the SQLite
database; all stored demo data will be lost.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDrop,
}

func init() {
	dropCmd.Flags().BoolVarP(&dropForce, "force", "f", false, "skip confirmation prompt")
}

func runDrop(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		return dropDemo(args[0])
	}
	if !dropForce {
		fmt.Fprintf(os.Stderr, "This will permanently delete: %s\n", dbPath)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}
	if err := os.Remove(dbPath); err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(os.Stdout, "Database does not exist, nothing to drop.")
			return nil
		}
		return fmt.Errorf("remove database: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Deleted: %s\n", dbPath)
	return nil
}

func dropDemo(prefix string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	demo, err := findDemo(db, prefix)
	if err != nil {
		return err
	}
	if _, err := db.DeleteDemo(demo.DemoHash); err != nil {
		return fmt.Errorf("delete demo: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Deleted demo %s (%s)\n", demo.DemoHash[:12], demo.FileName)
	return nil
}
