package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pable/go-cs-esalytics/internal/events"
	"github.com/pable/go-cs-esalytics/internal/export"
	"github.com/pable/go-cs-esalytics/internal/headtohead"
	"github.com/pable/go-cs-esalytics/internal/heatmap"
	"github.com/pable/go-cs-esalytics/internal/model"
	"github.com/pable/go-cs-esalytics/internal/parser"
	"github.com/pable/go-cs-esalytics/internal/scrape"
	"github.com/pable/go-cs-esalytics/internal/stats"
)

// Selector values meaning "no filter".
const (
	AllMatches = "All Matches"
	AllTeams   = "All Teams"
	AllSides   = "All Sides"
)

// SideOptions are the side filter choices, in display order.
var SideOptions = []string{AllSides, "CT", "TERRORIST", "Both"}

const statsLabel = "Filtered Player Statistics"

type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func errorf(status int, format string, args ...any) error {
	return &httpError{status: status, msg: fmt.Sprintf(format, args...)}
}

// page is the data every template receives.
type page struct {
	Title    string
	Active   string
	Uploaded []string
	Match    string
	Error    string
}

func (s *Server) newPage(r *http.Request, title, active string) page {
	return page{Title: title, Active: active, Uploaded: sessionFrom(r).Names(), Match: r.URL.Query().Get("match")}
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("render template", zap.String("template", name), zap.Error(err))
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var he *httpError
	if errors.As(err, &he) {
		status = he.status
	}
	if status >= 500 {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	p := s.newPage(r, "Error", "")
	p.Error = err.Error()
	s.render(w, status, "error", p)
}

// ---- index and upload ----

type uploadResult struct {
	File   string
	Status string
	Error  string
}

type indexData struct {
	page
	Tournaments []string
	Tournament  string
	Matches     []scrape.MatchRow
	CacheError  string
	Results     []uploadResult
}

func (s *Server) indexData(r *http.Request) indexData {
	d := indexData{page: s.newPage(r, "Player Performance Viewer with Match Results", "index")}
	if s.opts.TournamentsCSV == "" {
		return d
	}

	tournaments, err := scrape.ReadTournaments(s.opts.TournamentsCSV)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			d.CacheError = err.Error()
		}
		return d
	}
	seen := make(map[string]bool)
	for _, t := range tournaments {
		if !seen[t.Name] {
			seen[t.Name] = true
			d.Tournaments = append(d.Tournaments, t.Name)
		}
	}
	d.Tournament = r.URL.Query().Get("tournament")
	if d.Tournament == "" && len(d.Tournaments) > 0 {
		d.Tournament = d.Tournaments[0]
	}

	matches, err := scrape.ReadMatches(s.opts.MatchesCSV)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			d.CacheError = err.Error()
		}
		return d
	}
	for _, m := range matches {
		if m.Tournament == d.Tournament {
			d.Matches = append(d.Matches, m)
		}
	}
	return d
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "index", s.indexData(r))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.fail(w, r, errorf(http.StatusBadRequest, "read upload: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["demos"]
	if len(files) == 0 {
		s.fail(w, r, errorf(http.StatusBadRequest, "no .dem files uploaded"))
		return
	}
	dir := filepath.Join(s.opts.UploadDir, sess.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		s.fail(w, r, fmt.Errorf("create upload dir: %w", err))
		return
	}

	results := make([]uploadResult, len(files))
	seen := make(map[string]bool, len(files))
	var g errgroup.Group
	for i, fh := range files {
		i, fh := i, fh
		name := filepath.Base(fh.Filename)
		switch {
		case !strings.EqualFold(filepath.Ext(name), ".dem"):
			results[i] = uploadResult{File: name, Status: statusFailed, Error: "only .dem files are accepted"}
		case seen[name] || sess.Has(name):
			results[i] = uploadResult{File: name, Status: statusSkipped}
		default:
			seen[name] = true
			s.publish(sess.ID, ProgressUpdate{File: name, Status: statusQueued})
			g.Go(func() error {
				results[i] = s.process(r.Context(), sess, dir, name, fh)
				return nil
			})
			continue
		}
		s.publish(sess.ID, ProgressUpdate{File: name, Status: results[i].Status, Error: results[i].Error})
	}
	_ = g.Wait()

	d := s.indexData(r)
	d.Uploaded = sess.Names()
	d.Results = results
	s.render(w, http.StatusOK, "index", d)
}

// process saves one uploaded file, parses it within the server-wide worker
// limit and adds it to the session.
func (s *Server) process(ctx context.Context, sess *Session, dir, name string, fh *multipart.FileHeader) uploadResult {
	res := uploadResult{File: name}
	failed := func(err error) uploadResult {
		s.logger.Warn("upload failed", zap.String("session", sess.ID), zap.String("file", name), zap.Error(err))
		res.Status, res.Error = statusFailed, fmt.Sprintf("Error processing file %s: %v", name, err)
		s.publish(sess.ID, ProgressUpdate{File: name, Status: statusFailed, Error: res.Error})
		return res
	}

	path := filepath.Join(dir, name)
	if err := saveUpload(fh, path); err != nil {
		return failed(err)
	}
	defer os.Remove(path)

	if err := s.slots.Acquire(ctx, 1); err != nil {
		return failed(err)
	}
	defer s.slots.Release(1)

	m, cached, err := s.ingest(ctx, path, parser.Options{
		FileName: name,
		Progress: func(pct float64) {
			s.publish(sess.ID, ProgressUpdate{File: name, Status: statusParsing, Percent: pct * 100})
		},
	})
	if err != nil {
		return failed(err)
	}
	if !sess.Add(name, m) {
		res.Status = statusSkipped
	} else if cached {
		res.Status = statusCached
	} else {
		res.Status = statusDone
	}
	s.publish(sess.ID, ProgressUpdate{File: name, Status: res.Status, Percent: 100})
	return res
}

func saveUpload(fh *multipart.FileHeader, path string) error {
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("save upload: %w", err)
	}
	return dst.Close()
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.Reset()
	if err := os.RemoveAll(filepath.Join(s.opts.UploadDir, sess.ID)); err != nil {
		s.logger.Warn("remove session uploads", zap.String("session", sess.ID), zap.Error(err))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ---- selection helpers ----

// selectMatches resolves the match selector: "All Matches" (or nothing)
// selects every uploaded match.
func selectMatches(sess *Session, name string) ([]*model.ParsedMatch, error) {
	if name == "" || name == AllMatches {
		return sess.All(), nil
	}
	m := sess.Match(name)
	if m == nil {
		return nil, errorf(http.StatusNotFound, "unknown match %q", name)
	}
	return []*model.ParsedMatch{m}, nil
}

func raws(ms []*model.ParsedMatch) []*model.RawMatch {
	out := make([]*model.RawMatch, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Raw)
	}
	return out
}

func parseSideFilter(v string) (model.Side, error) {
	if v == "" || v == AllSides {
		return model.SideUnknown, nil
	}
	side, err := model.ParseSide(v)
	if err != nil {
		return model.SideUnknown, errorf(http.StatusBadRequest, "%v", err)
	}
	return side, nil
}

func clanFilter(v string) string {
	if v == AllTeams {
		return ""
	}
	return v
}

// statsView is the summary table for a request's match, clan and side filters.
type statsView struct {
	Match string
	Clan  string
	Side  string
	// All is the unfiltered table, used for the clan options.
	All  []model.PlayerStats
	Rows []model.PlayerStats
}

func statsFor(sess *Session, q url.Values) (statsView, error) {
	v := statsView{Match: q.Get("match"), Clan: q.Get("clan"), Side: q.Get("side")}
	if v.Match == "" {
		v.Match = AllMatches
	}
	if v.Clan == "" {
		v.Clan = AllTeams
	}
	if v.Side == "" {
		v.Side = AllSides
	}

	ms, err := selectMatches(sess, v.Match)
	if err != nil {
		return v, err
	}
	side, err := parseSideFilter(v.Side)
	if err != nil {
		return v, err
	}
	if v.Match == AllMatches {
		lists := make([][]model.PlayerStats, len(ms))
		for i, m := range ms {
			lists[i] = m.Stats
		}
		v.All = stats.Combine(lists...)
	} else {
		v.All = ms[0].Stats
	}
	v.Rows = stats.Filter(v.All, clanFilter(v.Clan), side)
	return v, nil
}

// ---- summary stats ----

type statsData struct {
	page
	Empty        bool
	MatchOptions []string
	ClanOptions  []string
	SideOptions  []string
	View         statsView
	Maps         []string
	Map          string
	Show         string

	CSVHref       string
	HeadToHeadSrc string
	MapsSrc       string
}

func matchOptions(sess *Session) []string {
	return append([]string{AllMatches}, sess.Names()...)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	d := statsData{page: s.newPage(r, "Summary Statistics Viewer", "stats"), SideOptions: SideOptions}
	if sess.Len() == 0 {
		d.Empty = true
		s.render(w, http.StatusOK, "stats", d)
		return
	}

	view, err := statsFor(sess, r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	d.View = view
	d.Match = view.Match
	d.MatchOptions = matchOptions(sess)
	d.ClanOptions = append([]string{AllTeams}, stats.Clans(view.All)...)
	d.CSVHref = "/stats.csv?" + url.Values{"match": {view.Match}, "clan": {view.Clan}, "side": {view.Side}}.Encode()
	d.HeadToHeadSrc = "/h2h?" + url.Values{"match": {view.Match}}.Encode()

	d.Maps = heatmap.AvailableMaps(raws(sess.All()))
	d.Map = r.URL.Query().Get("map")
	if d.Map == "" && len(d.Maps) > 0 {
		d.Map = d.Maps[0]
	}
	d.Show = r.URL.Query().Get("show")
	if d.Show == "" {
		d.Show = heatmap.ShowKills
	}
	d.MapsSrc = "/maps?" + url.Values{"map": {d.Map}, "show": {d.Show}}.Encode()
	s.render(w, http.StatusOK, "stats", d)
}

func (s *Server) handleStatsCSV(w http.ResponseWriter, r *http.Request) {
	view, err := statsFor(sessionFrom(r), r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteStats(&buf, view.Rows); err != nil {
		s.fail(w, r, err)
		return
	}
	writeCSV(w, export.FileName(statsLabel), buf.Bytes())
}

func writeCSV(w http.ResponseWriter, name string, data []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Write(data)
}

// ---- game events ----

type eventSection struct {
	events.Table
	Title   string
	CSVHref string
}

type eventsData struct {
	page
	Empty        bool
	MatchOptions []string
	Sections     []eventSection
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	d := eventsData{page: s.newPage(r, "Game Events Viewer", "events")}
	if sess.Len() == 0 {
		d.Empty = true
		s.render(w, http.StatusOK, "events", d)
		return
	}
	if d.Match == "" {
		d.Match = AllMatches
	}
	ms, err := selectMatches(sess, d.Match)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var tables map[string]events.Table
	if d.Match == AllMatches {
		tables = events.Combine(raws(ms))
	} else {
		tables = events.Tables(ms[0].Raw)
	}
	d.MatchOptions = matchOptions(sess)
	for _, kind := range events.Kinds {
		d.Sections = append(d.Sections, eventSection{
			Table:   tables[kind],
			Title:   title(kind) + " Data",
			CSVHref: "/events/" + kind + ".csv?" + url.Values{"match": {d.Match}}.Encode(),
		})
	}
	s.render(w, http.StatusOK, "events", d)
}

func (s *Server) handleEventCSV(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	cols, err := events.Columns(kind)
	if err != nil {
		s.fail(w, r, errorf(http.StatusNotFound, "%v", err))
		return
	}
	ms, err := selectMatches(sessionFrom(r), r.URL.Query().Get("match"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	t := events.Table{Name: kind, Columns: cols}
	for _, m := range ms {
		d, err := events.Dataset(m.Raw, kind, nil)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		t.Rows = append(t.Rows, d.Rows...)
	}
	var buf bytes.Buffer
	if err := export.WriteTable(&buf, t); err != nil {
		s.fail(w, r, err)
		return
	}
	writeCSV(w, export.FileName(title(kind)+" Data"), buf.Bytes())
}

// ---- charts ----

func (s *Server) handleHeadToHead(w http.ResponseWriter, r *http.Request) {
	ms, err := selectMatches(sessionFrom(r), r.URL.Query().Get("match"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var kills []model.RawKill
	for _, m := range ms {
		kills = append(kills, m.Raw.Kills...)
	}
	a, b, err := headtohead.Build(kills)
	if errors.Is(err, headtohead.ErrNotEnoughClans) {
		s.fail(w, r, errorf(http.StatusUnprocessableEntity, "%v", err))
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := headtohead.Render(&buf, a, b); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func (s *Server) handleMaps(w http.ResponseWriter, r *http.Request) {
	all := raws(sessionFrom(r).All())
	q := r.URL.Query()
	mapName := q.Get("map")
	if mapName == "" {
		if maps := heatmap.AvailableMaps(all); len(maps) > 0 {
			mapName = maps[0]
		}
	}
	show := q.Get("show")
	if show == "" {
		show = heatmap.ShowKills
	}
	if _, err := heatmap.ParseShow(show); err != nil {
		s.fail(w, r, errorf(http.StatusBadRequest, "%v", err))
		return
	}

	a, b, err := heatmap.Generate(all, mapName, show)
	if errors.Is(err, heatmap.ErrNoData) {
		s.fail(w, r, errorf(http.StatusNotFound, "No valid data to plot heatmap for %s.", mapName))
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := heatmap.Render(&buf, a, b); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

// title turns a dataset kind into a heading: "bomb_events" -> "Bomb events".
func title(kind string) string {
	s := strings.ReplaceAll(kind, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
