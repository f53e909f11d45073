// Package scrape collects tournament and match metadata from HLTV and
// Liquipedia with a headless browser and keeps it in CSV caches.
package scrape

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HLTVBase prefixes the relative links found on HLTV pages.
const HLTVBase = "https://www.hltv.org"

// NA fills cells that could not be scraped.
const NA = "N/A"

// EventIDFromLink extracts the event id from an HLTV event link: the
// second-to-last path segment of ".../events/<id>/<slug>".
func EventIDFromLink(link string) (string, error) {
	parts := strings.Split(link, "/")
	if len(parts) < 2 || parts[len(parts)-2] == "" {
		return "", fmt.Errorf("no event id in link %q", link)
	}
	return parts[len(parts)-2], nil
}

// ResultsURL is the HLTV results page of an event.
func ResultsURL(eventID string) string {
	return HLTVBase + "/results?event=" + eventID
}

// ParseResults extracts every match listed on an HLTV results page.
func ParseResults(r io.Reader, tournament string) ([]MatchRow, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse results html: %w", err)
	}

	var rows []MatchRow
	doc.Find("div.result-con").Each(func(i int, s *goquery.Selection) {
		m := MatchRow{Tournament: tournament, MatchLink: NA, Team1: NA, Team2: NA, Score: NA}
		if href, ok := s.Find("a.a-reset").First().Attr("href"); ok {
			m.MatchLink = HLTVBase + href
		}
		teams := s.Find("div.line-align")
		if teams.Length() > 0 {
			m.Team1 = strings.TrimSpace(teams.Eq(0).Text())
		}
		if teams.Length() > 1 {
			m.Team2 = strings.TrimSpace(teams.Eq(1).Text())
		}
		if score := s.Find("td.result-score").First(); score.Length() > 0 {
			won, lost := "0", "0"
			if w := score.Find("span.score-won"); w.Length() > 0 {
				won = strings.TrimSpace(w.First().Text())
			}
			if l := score.Find("span.score-lost"); l.Length() > 0 {
				lost = strings.TrimSpace(l.First().Text())
			}
			m.Score = won + " - " + lost
		}
		rows = append(rows, m)
	})
	return rows, nil
}

// ResultsScraper fills tournament_matches.csv from HLTV results pages.
type ResultsScraper struct {
	Source      PageSource
	Logger      *zap.Logger
	Concurrency int
	// Settle is the pause after the cookie banner before reading the page.
	Settle time.Duration
}

// Scrape returns the matches of one tournament.
func (s *ResultsScraper) Scrape(ctx context.Context, t Tournament) ([]MatchRow, error) {
	id, err := EventIDFromLink(t.Link)
	if err != nil {
		return nil, err
	}
	url := ResultsURL(id)
	s.Logger.Info("scraping results", zap.String("tournament", t.Name), zap.String("url", url))

	html, err := s.Source.HTML(ctx, url, FetchOptions{AcceptCookies: true, Settle: s.Settle})
	if err != nil {
		return nil, err
	}
	return ParseResults(strings.NewReader(html), t.Name)
}

// ScrapeAll scrapes every tournament listed in inPath and writes all matches
// to outPath in tournament order. A tournament that fails is logged and
// skipped. Returns the number of matches written.
func (s *ResultsScraper) ScrapeAll(ctx context.Context, inPath, outPath string) (int, error) {
	tournaments, err := ReadTournaments(inPath)
	if err != nil {
		return 0, fmt.Errorf("read tournaments: %w", err)
	}

	results := make([][]MatchRow, len(tournaments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.Concurrency, 1))
	for i, t := range tournaments {
		i, t := i, t
		g.Go(func() error {
			rows, err := s.Scrape(gctx, t)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.Logger.Warn("scrape tournament failed", zap.String("tournament", t.Name), zap.Error(err))
				return nil
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var all []MatchRow
	for _, rows := range results {
		all = append(all, rows...)
	}
	if err := WriteMatches(outPath, all); err != nil {
		return 0, fmt.Errorf("write matches: %w", err)
	}
	s.Logger.Info("results scraped", zap.Int("tournaments", len(tournaments)), zap.Int("matches", len(all)), zap.String("out", outPath))
	return len(all), nil
}

// ArchiveURL is the HLTV events archive.
const ArchiveURL = HLTVBase + "/events/archive"

// archivePageSize is the number of events per archive page.
const archivePageSize = 50

// ParseEvents extracts the events listed on an HLTV events archive page.
func ParseEvents(r io.Reader) ([]Tournament, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse events html: %w", err)
	}

	var out []Tournament
	doc.Find("a.small-event").Each(func(i int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		name := strings.TrimSpace(s.Find(".text-ellipsis").First().Text())
		if name == "" {
			return
		}
		t := Tournament{Name: name, Link: HLTVBase + href}
		dates := s.Find("span[data-unix]")
		if dates.Length() > 0 {
			t.StartDate = unixDate(dates.First().AttrOr("data-unix", ""))
			t.EndDate = unixDate(dates.Last().AttrOr("data-unix", ""))
		}
		out = append(out, t)
	})
	return out, nil
}

// unixDate formats an HLTV millisecond timestamp as YYYY-MM-DD.
func unixDate(ms string) string {
	v, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return ""
	}
	return time.UnixMilli(v).UTC().Format("2006-01-02")
}

// EventsScraper fills tournaments.csv from the HLTV events archive.
type EventsScraper struct {
	Source PageSource
	Logger *zap.Logger
	// Pages is the number of archive pages to read, newest first.
	Pages int
}

// Scrape reads the archive pages and returns the events, deduplicated by link.
func (s *EventsScraper) Scrape(ctx context.Context) ([]Tournament, error) {
	seen := make(map[string]bool)
	var out []Tournament
	for page := 0; page < max(s.Pages, 1); page++ {
		url := fmt.Sprintf("%s?offset=%d", ArchiveURL, page*archivePageSize)
		s.Logger.Info("scraping events archive", zap.String("url", url))
		html, err := s.Source.HTML(ctx, url, FetchOptions{AcceptCookies: true})
		if err != nil {
			return nil, err
		}
		events, err := ParseEvents(strings.NewReader(html))
		if err != nil {
			return nil, err
		}
		if len(events) == 0 {
			break
		}
		for _, e := range events {
			if seen[e.Link] {
				continue
			}
			seen[e.Link] = true
			out = append(out, e)
		}
	}
	return out, nil
}
