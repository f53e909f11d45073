package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/pable/go-cs-esalytics/internal/model"
	"github.com/pable/go-cs-esalytics/internal/stats"
)

// Kinds of JSON documents kept in match_events.
const (
	kindRounds   = "rounds"
	kindBombs    = "bomb_events"
	kindGrenades = "grenades"
	kindSmokes   = "smokes"
	kindInfernos = "infernos"
)

// DemoExists returns true if a demo with the given hash is already stored.
func (db *DB) DemoExists(hash string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(1) FROM demos WHERE hash = ?", hash).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertMatch stores a parsed match (summary, stats, kills, damages and the
// remaining event tables) in one transaction. Re-inserting a hash replaces it.
func (db *DB) InsertMatch(m *model.ParsedMatch) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	s := m.Summary
	if s.ParsedAt.IsZero() {
		s.ParsedAt = time.Now().UTC()
	}
	// Child rows of a previous parse are removed via ON DELETE CASCADE.
	if _, err := tx.Exec("DELETE FROM demos WHERE hash = ?", s.DemoHash); err != nil {
		return fmt.Errorf("replace demo: %w", err)
	}
	if _, err := tx.Exec(`
		INSERT INTO demos(hash, file_name, map_name, match_date, tickrate, ct_score, t_score, clan_a, clan_b, parsed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.DemoHash, s.FileName, s.MapName, s.MatchDate, s.Tickrate,
		s.CTScore, s.TScore, s.ClanA, s.ClanB, s.ParsedAt.Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("insert demo: %w", err)
	}

	if err := insertPlayerStats(tx, s.DemoHash, m.Stats); err != nil {
		return err
	}
	if m.Raw != nil {
		if err := insertKills(tx, s.DemoHash, m.Raw.Kills); err != nil {
			return err
		}
		if err := insertDamages(tx, s.DemoHash, m.Raw.Damages); err != nil {
			return err
		}
		docs := map[string]any{
			kindRounds:   m.Raw.Rounds,
			kindBombs:    m.Raw.Bombs,
			kindGrenades: m.Raw.Grenades,
			kindSmokes:   m.Raw.Smokes,
			kindInfernos: m.Raw.Infernos,
		}
		for kind, v := range docs {
			payload, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("encode %s: %w", kind, err)
			}
			if _, err := tx.Exec(`INSERT OR REPLACE INTO match_events(demo_hash, kind, payload) VALUES (?, ?, ?)`,
				s.DemoHash, kind, string(payload)); err != nil {
				return fmt.Errorf("insert %s: %w", kind, err)
			}
		}
	}
	return tx.Commit()
}

func insertPlayerStats(tx *sql.Tx, hash string, rows []model.PlayerStats) error {
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO player_stats(
			demo_hash, steam_id, name, side, clan,
			kills, assists, deaths, rounds_played, total_damage, kast_rounds,
			kast_pct, adr, impact, rating
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range rows {
		_, err = stmt.Exec(
			hash, strconv.FormatUint(s.SteamID, 10), s.Name, s.Side.String(), s.Clan,
			s.Kills, s.Assists, s.Deaths, s.RoundsPlayed, s.TotalDamage, s.KASTRounds,
			s.KASTPct, s.ADR, s.Impact, s.Rating,
		)
		if err != nil {
			return fmt.Errorf("insert player_stats for %s: %w", s.Name, err)
		}
	}
	return nil
}

func insertKills(tx *sql.Tx, hash string, kills []model.RawKill) error {
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO kills(
			demo_hash, idx, tick, round_number,
			attacker_name, attacker_steam_id, victim_name, victim_steam_id,
			assister_name, assister_steam_id,
			attacker_side, victim_side, attacker_clan, victim_clan,
			weapon, headshot, assisted_flash, penetrated, thrusmoke, dmg_health,
			attacker_x, attacker_y, attacker_z, victim_x, victim_y, victim_z
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, k := range kills {
		var ax, ay, az, vx, vy, vz any
		if k.HasPos {
			ax, ay, az = k.KillerPos.X, k.KillerPos.Y, k.KillerPos.Z
			vx, vy, vz = k.VictimPos.X, k.VictimPos.Y, k.VictimPos.Z
		}
		_, err = stmt.Exec(
			hash, i, k.Tick, k.RoundNumber,
			k.KillerName, steamIDText(k.KillerSteamID), k.VictimName, steamIDText(k.VictimSteamID),
			k.AssisterName, steamIDText(k.AssisterSteamID),
			k.KillerSide.String(), k.VictimSide.String(), k.KillerClan, k.VictimClan,
			k.Weapon, boolInt(k.IsHeadshot), boolInt(k.AssistedFlash),
			boolInt(k.Penetrated), boolInt(k.ThroughSmoke), k.HealthDamage,
			ax, ay, az, vx, vy, vz,
		)
		if err != nil {
			return fmt.Errorf("insert kill %d: %w", i, err)
		}
	}
	return nil
}

func insertDamages(tx *sql.Tx, hash string, damages []model.RawDamage) error {
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO damages(
			demo_hash, idx, tick, round_number,
			attacker_name, attacker_steam_id, victim_name, victim_steam_id,
			attacker_side, victim_side, attacker_clan, victim_clan,
			weapon, dmg_health, dmg_armor, dmg_health_real
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, d := range damages {
		_, err = stmt.Exec(
			hash, i, d.Tick, d.RoundNumber,
			d.AttackerName, steamIDText(d.AttackerSteamID), d.VictimName, steamIDText(d.VictimSteamID),
			d.AttackerSide.String(), d.VictimSide.String(), d.AttackerClan, d.VictimClan,
			d.Weapon, d.HealthDamage, d.ArmorDamage, d.HealthDamageTaken,
		)
		if err != nil {
			return fmt.Errorf("insert damage %d: %w", i, err)
		}
	}
	return nil
}

const demoColumns = `hash, file_name, map_name, match_date, tickrate, ct_score, t_score, clan_a, clan_b, parsed_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDemo(row scanner) (model.MatchSummary, error) {
	var s model.MatchSummary
	var parsedAt string
	if err := row.Scan(&s.DemoHash, &s.FileName, &s.MapName, &s.MatchDate, &s.Tickrate,
		&s.CTScore, &s.TScore, &s.ClanA, &s.ClanB, &parsedAt); err != nil {
		return s, err
	}
	s.ParsedAt, _ = time.Parse(time.RFC3339, parsedAt)
	return s, nil
}

// ListDemos returns all stored match summaries, most recently parsed first.
func (db *DB) ListDemos() ([]model.MatchSummary, error) {
	rows, err := db.conn.Query(`SELECT ` + demoColumns + ` FROM demos ORDER BY parsed_at DESC, hash`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MatchSummary
	for rows.Next() {
		s, err := scanDemo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetDemoByPrefix finds the first demo whose hash starts with the given prefix.
func (db *DB) GetDemoByPrefix(prefix string) (*model.MatchSummary, error) {
	s, err := scanDemo(db.conn.QueryRow(`SELECT `+demoColumns+` FROM demos WHERE hash LIKE ? ORDER BY hash LIMIT 1`, prefix+"%"))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteDemo removes a demo and all of its rows. Returns false if nothing matched.
func (db *DB) DeleteDemo(hash string) (bool, error) {
	res, err := db.conn.Exec("DELETE FROM demos WHERE hash = ?", hash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

const statsColumns = `p.demo_hash, d.map_name, p.steam_id, p.name, p.side, p.clan,
	p.kills, p.assists, p.deaths, p.rounds_played, p.total_damage, p.kast_rounds,
	p.kast_pct, p.adr, p.impact, p.rating`

func scanStats(rows *sql.Rows) ([]model.PlayerStats, error) {
	var out []model.PlayerStats
	for rows.Next() {
		var s model.PlayerStats
		var steamIDStr, sideStr string
		if err := rows.Scan(
			&s.DemoHash, &s.MapName, &steamIDStr, &s.Name, &sideStr, &s.Clan,
			&s.Kills, &s.Assists, &s.Deaths, &s.RoundsPlayed, &s.TotalDamage, &s.KASTRounds,
			&s.KASTPct, &s.ADR, &s.Impact, &s.Rating,
		); err != nil {
			return nil, err
		}
		s.SteamID, _ = strconv.ParseUint(steamIDStr, 10, 64)
		s.Side, _ = model.ParseSide(sideStr)
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetPlayerStats returns all stat rows for a demo hash, in the same order a
// fresh parse produces them.
func (db *DB) GetPlayerStats(demoHash string) ([]model.PlayerStats, error) {
	rows, err := db.conn.Query(`
		SELECT `+statsColumns+`
		FROM player_stats p JOIN demos d ON d.hash = p.demo_hash
		WHERE p.demo_hash = ?`, demoHash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out, err := scanStats(rows)
	if err != nil {
		return nil, err
	}
	stats.Sort(out)
	return out, nil
}

// GetAllPlayerStats returns the Both-sides row of every stored match the
// named player appears in, oldest parse first.
func (db *DB) GetAllPlayerStats(name string) ([]model.PlayerStats, error) {
	rows, err := db.conn.Query(`
		SELECT `+statsColumns+`
		FROM player_stats p JOIN demos d ON d.hash = p.demo_hash
		WHERE p.name = ? COLLATE NOCASE AND p.side = ?
		ORDER BY d.parsed_at ASC, d.hash`, name, model.SideBoth.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStats(rows)
}

// GetMatch loads a stored match back into the shape produced by a fresh parse.
// Returns nil if the hash is unknown.
func (db *DB) GetMatch(hash string) (*model.ParsedMatch, error) {
	summary, err := scanDemo(db.conn.QueryRow(`SELECT `+demoColumns+` FROM demos WHERE hash = ?`, hash))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get demo: %w", err)
	}
	rows, err := db.GetPlayerStats(hash)
	if err != nil {
		return nil, fmt.Errorf("get player stats: %w", err)
	}

	raw := &model.RawMatch{
		DemoHash:       hash,
		FileName:       summary.FileName,
		MapName:        summary.MapName,
		MatchDate:      summary.MatchDate,
		Tickrate:       summary.Tickrate,
		TicksPerSecond: summary.Tickrate,
		PlayerNames:    make(map[uint64]string),
	}
	if raw.Kills, err = db.getKills(hash); err != nil {
		return nil, fmt.Errorf("get kills: %w", err)
	}
	if raw.Damages, err = db.getDamages(hash); err != nil {
		return nil, fmt.Errorf("get damages: %w", err)
	}
	docs := map[string]any{
		kindRounds:   &raw.Rounds,
		kindBombs:    &raw.Bombs,
		kindGrenades: &raw.Grenades,
		kindSmokes:   &raw.Smokes,
		kindInfernos: &raw.Infernos,
	}
	for kind, dst := range docs {
		var payload string
		err := db.conn.QueryRow(`SELECT payload FROM match_events WHERE demo_hash = ? AND kind = ?`, hash, kind).Scan(&payload)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", kind, err)
		}
		if err := json.Unmarshal([]byte(payload), dst); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
	}
	for _, k := range raw.Kills {
		raw.PlayerNames[k.KillerSteamID] = k.KillerName
		raw.PlayerNames[k.VictimSteamID] = k.VictimName
	}

	return &model.ParsedMatch{Summary: summary, Stats: rows, Raw: raw}, nil
}

func (db *DB) getKills(hash string) ([]model.RawKill, error) {
	rows, err := db.conn.Query(`
		SELECT tick, round_number,
		       attacker_name, attacker_steam_id, victim_name, victim_steam_id,
		       assister_name, assister_steam_id,
		       attacker_side, victim_side, attacker_clan, victim_clan,
		       weapon, headshot, assisted_flash, penetrated, thrusmoke, dmg_health,
		       attacker_x, attacker_y, attacker_z, victim_x, victim_y, victim_z
		FROM kills WHERE demo_hash = ? ORDER BY idx`, hash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RawKill
	for rows.Next() {
		var k model.RawKill
		var killerID, victimID, assisterID, killerSide, victimSide string
		var hs, flash, pen, smoke int
		var ax, ay, az, vx, vy, vz sql.NullFloat64
		if err := rows.Scan(
			&k.Tick, &k.RoundNumber,
			&k.KillerName, &killerID, &k.VictimName, &victimID,
			&k.AssisterName, &assisterID,
			&killerSide, &victimSide, &k.KillerClan, &k.VictimClan,
			&k.Weapon, &hs, &flash, &pen, &smoke, &k.HealthDamage,
			&ax, &ay, &az, &vx, &vy, &vz,
		); err != nil {
			return nil, err
		}
		k.KillerSteamID = parseSteamID(killerID)
		k.VictimSteamID = parseSteamID(victimID)
		k.AssisterSteamID = parseSteamID(assisterID)
		k.KillerSide, _ = model.ParseSide(killerSide)
		k.VictimSide, _ = model.ParseSide(victimSide)
		k.IsHeadshot, k.AssistedFlash, k.Penetrated, k.ThroughSmoke = hs != 0, flash != 0, pen != 0, smoke != 0
		if ax.Valid && ay.Valid && vx.Valid && vy.Valid {
			k.HasPos = true
			k.KillerPos = model.Vec3{X: ax.Float64, Y: ay.Float64, Z: az.Float64}
			k.VictimPos = model.Vec3{X: vx.Float64, Y: vy.Float64, Z: vz.Float64}
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (db *DB) getDamages(hash string) ([]model.RawDamage, error) {
	rows, err := db.conn.Query(`
		SELECT tick, round_number,
		       attacker_name, attacker_steam_id, victim_name, victim_steam_id,
		       attacker_side, victim_side, attacker_clan, victim_clan,
		       weapon, dmg_health, dmg_armor, dmg_health_real
		FROM damages WHERE demo_hash = ? ORDER BY idx`, hash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RawDamage
	for rows.Next() {
		var d model.RawDamage
		var attackerID, victimID, attackerSide, victimSide string
		if err := rows.Scan(
			&d.Tick, &d.RoundNumber,
			&d.AttackerName, &attackerID, &d.VictimName, &victimID,
			&attackerSide, &victimSide, &d.AttackerClan, &d.VictimClan,
			&d.Weapon, &d.HealthDamage, &d.ArmorDamage, &d.HealthDamageTaken,
		); err != nil {
			return nil, err
		}
		d.AttackerSteamID = parseSteamID(attackerID)
		d.VictimSteamID = parseSteamID(victimID)
		d.AttackerSide, _ = model.ParseSide(attackerSide)
		d.VictimSide, _ = model.ParseSide(victimSide)
		out = append(out, d)
	}
	return out, rows.Err()
}

// QueryRaw runs an arbitrary query and returns column names and stringified rows.
func (db *DB) QueryRaw(query string) ([]string, [][]string, error) {
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var out [][]string
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			switch t := v.(type) {
			case nil:
				row[i] = "NULL"
			case []byte:
				row[i] = string(t)
			case float64:
				row[i] = strconv.FormatFloat(t, 'f', -1, 64)
			default:
				row[i] = fmt.Sprint(t)
			}
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}

func steamIDText(id uint64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatUint(id, 10)
}

func parseSteamID(s string) uint64 {
	id, _ := strconv.ParseUint(s, 10, 64)
	return id
}
