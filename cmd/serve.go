package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-esalytics/internal/dashboard"
)

var (
	serveAddr    string
	serveNoCache bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web dashboard",
	Long: `Serve the dashboard: upload .dem files, browse summary statistics, game
events, head-to-head and map heatmaps, and download CSV exports. Parsed
demos are cached in the database unless --no-cache is given.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveNoCache, "no-cache", false, "parse every upload without touching the database")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	opts := dashboard.Options{
		Addr:           addr,
		UploadDir:      cfg.Server.UploadDir,
		SessionTTL:     cfg.GetSessionTTL(),
		ParseWorkers:   cfg.Server.ParseWorkers,
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
		TournamentsCSV: cfg.TournamentsCSV(),
		MatchesCSV:     cfg.MatchesCSV(),
	}

	if serveNoCache {
		return dashboard.New(opts, nil, logger).ListenAndServe(ctx)
	}
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	return dashboard.New(opts, db, logger).ListenAndServe(ctx)
}
