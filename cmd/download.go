package cmd

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pable/go-cs-esalytics/internal/ingest"
	"github.com/pable/go-cs-esalytics/internal/report"
	"github.com/pable/go-cs-esalytics/internal/scrape"
)

var (
	downloadDir   string
	downloadParse bool
)

var downloadCmd = &cobra.Command{
	Use:   "download <demo-url>...",
	Short: "Download (and decompress) demo files",
	Long: `Download .dem files, transparently decompressing .gz, .bz2 and .zst archives.
With --parse the downloaded demos are parsed and stored right away.

Example:
  esalytics download https://demos.example.org/g2-vs-heroic-m1-ancient.dem.gz --parse`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadDir, "dir", "d", "demos", "directory to save demos in")
	downloadCmd.Flags().BoolVar(&downloadParse, "parse", false, "parse and store the downloaded demos")
}

func runDownload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client := &http.Client{}

	var paths []string
	for i, u := range args {
		fmt.Printf("[%d/%d] %s\n", i+1, len(args), u)
		path, err := scrape.DownloadDemo(ctx, client, u, downloadDir)
		if err != nil {
			logger.Error("download failed", zap.String("url", u), zap.Error(err))
			continue
		}
		fmt.Printf("  saved %s\n", path)
		paths = append(paths, path)
	}
	if failed := len(args) - len(paths); failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d downloads failed\n", failed, len(args))
	}
	if !downloadParse || len(paths) == 0 {
		return nil
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	in := &ingest.Ingester{DB: db, Logger: logger}
	for _, r := range in.IngestAll(ctx, paths, cfg.Server.ParseWorkers) {
		if r.Err != nil {
			logger.Error("parse failed", zap.String("demo", r.Path), zap.Error(r.Err))
			continue
		}
		report.PrintMatchSummary(os.Stdout, r.Match.Summary)
	}
	return nil
}
