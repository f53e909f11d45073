package scrape

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func fixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

// fakeSource serves fixture HTML by URL and records the options it was asked for.
type fakeSource struct {
	mu    sync.Mutex
	pages map[string]string
	opts  []FetchOptions
}

func (f *fakeSource) HTML(_ context.Context, url string, opts FetchOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts = append(f.opts, opts)
	html, ok := f.pages[url]
	if !ok {
		return "", errors.New("navigation failed")
	}
	return html, nil
}

func TestEventIDFromLink(t *testing.T) {
	id, err := EventIDFromLink("https://www.hltv.org/events/7552/blast-premier-spring-final-2024")
	require.NoError(t, err)
	assert.Equal(t, "7552", id)

	_, err = EventIDFromLink("nolink")
	assert.Error(t, err)
	assert.Equal(t, "https://www.hltv.org/results?event=7552", ResultsURL("7552"))
}

func TestParseResults(t *testing.T) {
	rows, err := ParseResults(strings.NewReader(fixture(t, "results.html")), "BLAST")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, MatchRow{
		Tournament: "BLAST",
		MatchLink:  "https://www.hltv.org/matches/2371389/g2-vs-heroic-blast-premier-spring-final-2024",
		Team1:      "G2",
		Team2:      "Heroic",
		Score:      "2 - 1",
	}, rows[0])

	assert.Equal(t, "FaZe", rows[1].Team1)
	assert.Equal(t, "NAVI", rows[1].Team2)
	assert.Equal(t, NA, rows[1].Score, "no score cell")

	assert.Equal(t, NA, rows[2].MatchLink)
	assert.Equal(t, "Vitality", rows[2].Team1)
	assert.Equal(t, NA, rows[2].Team2)
	assert.Equal(t, "16 - 0", rows[2].Score, "missing lost score defaults to 0")
}

func TestParseEvents(t *testing.T) {
	events, err := ParseEvents(strings.NewReader(fixture(t, "events.html")))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, Tournament{
		Name:      "BLAST Premier Spring Final 2024",
		Link:      "https://www.hltv.org/events/7552/blast-premier-spring-final-2024",
		StartDate: "2024-06-12",
		EndDate:   "2024-06-16",
	}, events[0])
	assert.Equal(t, "PGL Major Copenhagen 2024", events[1].Name)
	assert.Empty(t, events[1].StartDate)
}

func TestParseLiquipedia(t *testing.T) {
	matches, skipped, err := ParseLiquipedia(strings.NewReader(fixture(t, "liquipedia.html")))
	require.NoError(t, err)
	assert.Equal(t, []LiquipediaMatch{{
		Team1: "Team Spirit", Team2: "MOUZ", Score: "2:0", Map: "Ancient", Date: "June 13, 2024",
	}}, matches)
	require.Len(t, skipped, 1)
	assert.Contains(t, skipped[0].Error(), ".match-map")
}

func TestLiquipediaScraper(t *testing.T) {
	url := "https://liquipedia.net/counterstrike/BLAST/Premier/2024/Spring/Final"
	src := &fakeSource{pages: map[string]string{url: fixture(t, "liquipedia.html")}}
	s := &LiquipediaScraper{Source: src, Logger: zaptest.NewLogger(t)}

	matches, err := s.Scrape(context.Background(), url)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
	require.Len(t, src.opts, 1)
	assert.Equal(t, ".match-row", src.opts[0].WaitFor)
	assert.Equal(t, liquipediaWait, src.opts[0].WaitTimeout)
}

func TestResultsScraper_ScrapeAll(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "tournaments.csv")
	out := filepath.Join(dir, "out", "tournament_matches.csv")
	require.NoError(t, WriteTournaments(in, []Tournament{
		{Name: "BLAST", Link: "https://www.hltv.org/events/7552/blast-premier-spring-final-2024"},
		{Name: "Broken", Link: "https://www.hltv.org/events/9999/broken"},
		{Name: "Also BLAST", Link: "https://www.hltv.org/events/7552/blast-premier-spring-final-2024"},
	}))

	src := &fakeSource{pages: map[string]string{ResultsURL("7552"): fixture(t, "results.html")}}
	s := &ResultsScraper{Source: src, Logger: zaptest.NewLogger(t), Concurrency: 2}

	n, err := s.ScrapeAll(context.Background(), in, out)
	require.NoError(t, err)
	assert.Equal(t, 6, n, "failed tournament is skipped")

	rows, err := ReadMatches(out)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, "BLAST", rows[0].Tournament)
	assert.Equal(t, "Also BLAST", rows[5].Tournament, "output keeps tournament order")
	for _, o := range src.opts {
		assert.True(t, o.AcceptCookies)
	}
}

func TestResultsScraper_MissingInput(t *testing.T) {
	s := &ResultsScraper{Source: &fakeSource{}, Logger: zaptest.NewLogger(t)}
	_, err := s.ScrapeAll(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), filepath.Join(t.TempDir(), "out.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEventsScraper(t *testing.T) {
	src := &fakeSource{pages: map[string]string{
		ArchiveURL + "?offset=0":   fixture(t, "events.html"),
		ArchiveURL + "?offset=50":  fixture(t, "events.html"),
		ArchiveURL + "?offset=100": "<html></html>",
	}}
	s := &EventsScraper{Source: src, Logger: zaptest.NewLogger(t), Pages: 5}
	events, err := s.Scrape(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 2, "duplicates across pages are dropped")
	assert.Len(t, src.opts, 3, "stops at the first empty page")
}

func TestReadTournaments_MissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tournaments.csv")
	require.NoError(t, os.WriteFile(path, []byte("Name,URL\nx,y\n"), 0644))
	_, err := ReadTournaments(path)
	assert.ErrorContains(t, err, `missing column "Event Name"`)
}

func TestReadTournaments_ExtraColumnsOptional(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tournaments.csv")
	require.NoError(t, os.WriteFile(path, []byte("Link,Event Name\nhttps://www.hltv.org/events/1/a,A\n"), 0644))
	ts, err := ReadTournaments(path)
	require.NoError(t, err)
	assert.Equal(t, []Tournament{{Name: "A", Link: "https://www.hltv.org/events/1/a"}}, ts)
}
