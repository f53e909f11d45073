package scrape

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// liquipediaWait bounds the wait for the match list to render.
const liquipediaWait = 10 * time.Second

var liquipediaFields = []string{".team-left", ".team-right", ".match-result", ".match-map", ".match-date"}

// ParseLiquipedia extracts the match rows of a Liquipedia tournament page.
// Rows missing any field are reported in skipped and left out.
func ParseLiquipedia(r io.Reader) (matches []LiquipediaMatch, skipped []error, err error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("parse liquipedia html: %w", err)
	}

	doc.Find(".match-row").Each(func(i int, s *goquery.Selection) {
		vals := make([]string, len(liquipediaFields))
		for j, sel := range liquipediaFields {
			el := s.Find(sel).First()
			if el.Length() == 0 {
				skipped = append(skipped, fmt.Errorf("match row %d: missing %s", i, sel))
				return
			}
			vals[j] = strings.TrimSpace(el.Text())
		}
		matches = append(matches, LiquipediaMatch{
			Team1: vals[0], Team2: vals[1], Score: vals[2], Map: vals[3], Date: vals[4],
		})
	})
	return matches, skipped, nil
}

// LiquipediaScraper reads match results from Liquipedia tournament pages.
type LiquipediaScraper struct {
	Source PageSource
	Logger *zap.Logger
}

// Scrape returns the matches listed at url.
func (s *LiquipediaScraper) Scrape(ctx context.Context, url string) ([]LiquipediaMatch, error) {
	s.Logger.Info("navigating to the tournament page", zap.String("url", url))
	html, err := s.Source.HTML(ctx, url, FetchOptions{WaitFor: ".match-row", WaitTimeout: liquipediaWait})
	if err != nil {
		return nil, err
	}
	matches, skipped, err := ParseLiquipedia(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	for _, e := range skipped {
		s.Logger.Warn("error parsing match", zap.Error(e))
	}
	return matches, nil
}
