package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pable/go-cs-esalytics/internal/scrape"
)

var (
	scrapePages     int
	scrapeOut       string
	scrapeHeadless  bool
	scrapeCookieOpt string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape tournament data from HLTV and Liquipedia",
	Long: `Drive a Chromium browser to collect tournament lists, match results and
match pages. Results are cached as CSV files in the configured cache_dir,
where the dashboard's match listing reads them.`,
}

var scrapeEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Scrape the HLTV events archive into tournaments.csv",
	Args:  cobra.NoArgs,
	RunE:  runScrapeEvents,
}

var scrapeResultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Scrape HLTV results of every cached tournament",
	Args:  cobra.NoArgs,
	RunE:  runScrapeResults,
}

var scrapeLiquipediaCmd = &cobra.Command{
	Use:   "liquipedia <tournament-url>",
	Short: "Scrape the match list of a Liquipedia tournament page",
	Args:  cobra.ExactArgs(1),
	RunE:  runScrapeLiquipedia,
}

var scrapeMatchCmd = &cobra.Command{
	Use:   "match <hltv-match-url>",
	Short: "Open an HLTV match page with saved cookies",
	Long: `Open a match page in a visible browser using the cookies from cookie_file.
When HLTV asks for verification, solve it in the browser and press ENTER;
the new cookies are saved for the next run.`,
	Args: cobra.ExactArgs(1),
	RunE: runScrapeMatch,
}

func init() {
	scrapeCmd.PersistentFlags().BoolVar(&scrapeHeadless, "headless", true, "run the browser headless (default from config)")
	scrapeEventsCmd.Flags().IntVar(&scrapePages, "pages", 1, "archive pages to read, newest first")
	scrapeLiquipediaCmd.Flags().StringVarP(&scrapeOut, "out", "o", "", "output CSV (default <cache_dir>/liquipedia_matches.csv)")
	scrapeMatchCmd.Flags().StringVar(&scrapeCookieOpt, "cookies", "", "cookie file (default from config)")

	scrapeCmd.AddCommand(scrapeEventsCmd)
	scrapeCmd.AddCommand(scrapeResultsCmd)
	scrapeCmd.AddCommand(scrapeLiquipediaCmd)
	scrapeCmd.AddCommand(scrapeMatchCmd)
}

// newBrowser launches Chromium with the scraper settings. An explicit
// --headless flag wins over headless.
func newBrowser(cmd *cobra.Command, headless bool) (*scrape.Browser, error) {
	if cmd.Flags().Changed("headless") {
		headless = scrapeHeadless
	}
	return scrape.NewBrowser(cmd.Context(), scrape.BrowserOptions{
		Headless:  headless,
		UserAgent: cfg.Scraper.UserAgent,
		Timeout:   cfg.GetScraperTimeout(),
		Proxy:     cfg.Scraper.Proxy,
	}, logger)
}

func runScrapeEvents(cmd *cobra.Command, args []string) error {
	b, err := newBrowser(cmd, cfg.Scraper.Headless)
	if err != nil {
		return err
	}
	defer b.Close()

	s := &scrape.EventsScraper{Source: b, Logger: logger, Pages: scrapePages}
	tournaments, err := s.Scrape(cmd.Context())
	if err != nil {
		return fmt.Errorf("scrape events: %w", err)
	}
	if err := scrape.WriteTournaments(cfg.TournamentsCSV(), tournaments); err != nil {
		return err
	}
	fmt.Printf("Saved %d tournaments to %s\n", len(tournaments), cfg.TournamentsCSV())
	return nil
}

func runScrapeResults(cmd *cobra.Command, args []string) error {
	b, err := newBrowser(cmd, cfg.Scraper.Headless)
	if err != nil {
		return err
	}
	defer b.Close()

	s := &scrape.ResultsScraper{Source: b, Logger: logger, Concurrency: cfg.Scraper.Concurrency}
	n, err := s.ScrapeAll(cmd.Context(), cfg.TournamentsCSV(), cfg.MatchesCSV())
	if err != nil {
		return err
	}
	fmt.Printf("Saved %d matches to %s\n", n, cfg.MatchesCSV())
	return nil
}

func runScrapeLiquipedia(cmd *cobra.Command, args []string) error {
	out := scrapeOut
	if out == "" {
		out = filepath.Join(cfg.CacheDir, "liquipedia_matches.csv")
	}
	b, err := newBrowser(cmd, cfg.Scraper.Headless)
	if err != nil {
		return err
	}
	defer b.Close()

	s := &scrape.LiquipediaScraper{Source: b, Logger: logger}
	matches, err := s.Scrape(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("scrape liquipedia: %w", err)
	}
	if err := scrape.WriteLiquipedia(out, matches); err != nil {
		return err
	}
	fmt.Printf("Saved %d matches to %s\n", len(matches), out)
	return nil
}

func runScrapeMatch(cmd *cobra.Command, args []string) error {
	cookieFile := cfg.Scraper.CookieFile
	if scrapeCookieOpt != "" {
		cookieFile = scrapeCookieOpt
	}
	// Verification challenges need a visible window.
	b, err := newBrowser(cmd, false)
	if err != nil {
		return err
	}
	defer b.Close()

	v, err := b.VisitMatch(cmd.Context(), args[0], cookieFile, waitForEnter(cmd.Context()))
	if err != nil {
		return fmt.Errorf("visit match: %w", err)
	}
	logger.Info("match page loaded",
		zap.String("url", v.FinalURL),
		zap.Bool("verified", v.Verified),
		zap.Bool("download", v.Download))
	if v.Download {
		fmt.Printf("Demo download started: %s\n", v.FinalURL)
	}
	return nil
}

// waitForEnter blocks until the operator presses ENTER or ctx is done.
func waitForEnter(ctx context.Context) func() error {
	return func() error {
		fmt.Print("Complete the verification in the browser, then press ENTER to continue...")
		done := make(chan error, 1)
		go func() {
			_, err := bufio.NewReader(os.Stdin).ReadString('\n')
			done <- err
		}()
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
