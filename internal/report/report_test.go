package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pable/go-cs-esalytics/internal/events"
	"github.com/pable/go-cs-esalytics/internal/model"
)

func TestPrintPlayerTable(t *testing.T) {
	var buf bytes.Buffer
	PrintPlayerTable(&buf, []model.PlayerStats{
		{Name: "niko", Side: model.SideBoth, Clan: "G2", Kills: 20, Deaths: 10, KASTPct: 75, ADR: 88.4, Rating: 1.31},
	})
	out := buf.String()
	for _, want := range []string{"NAME", "RATING", "niko", "Both", "G2", "2.00", "75%", "88.4", "1.31"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintEventTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	PrintEventTable(&buf, events.Table{Name: events.Smokes})
	if got := buf.String(); got != "No smokes data available.\n" {
		t.Errorf("got %q", got)
	}
}

func TestPrintTrendTable(t *testing.T) {
	var buf bytes.Buffer
	PrintTrendTable(&buf, []model.PlayerStats{
		{DemoHash: "aaaaaaaaaaaaaaaa", MapName: "de_nuke", Rating: 1.00},
		{DemoHash: "bbbbbbbbbbbbbbbb", MapName: "de_ancient", Rating: 1.25},
	}, map[string]string{"bbbbbbbbbbbbbbbb": "2024-05-01"})
	out := buf.String()
	if !strings.Contains(out, "+0.25") {
		t.Errorf("expected rating delta in output:\n%s", out)
	}
	if !strings.Contains(out, "2024-05-01") || !strings.Contains(out, "bbbbbbbbbbbb") {
		t.Errorf("expected date and short hash in output:\n%s", out)
	}
}

func TestShort(t *testing.T) {
	if got := short("abc"); got != "abc" {
		t.Errorf("short(abc) = %q", got)
	}
	if got := short("0123456789abcdef"); got != "0123456789ab" {
		t.Errorf("short = %q", got)
	}
}
