package stats

import (
	"fmt"
	"sort"

	"github.com/pable/go-cs-esalytics/internal/model"
)

// TradeWindow is how long after a death a teammate may kill the killer for the
// death to count as traded.
const TradeWindow = 5.0 // seconds

// playerKey identifies one stats row: a player on one side for one clan.
type playerKey struct {
	steamID uint64
	name    string // used when the demo carries no steam id (bots)
	side    model.Side
	clan    string
}

type accum struct {
	name                   string
	kills, assists, deaths int
	rounds, kastRounds     int
	damage                 int
}

// Compute derives per-player, per-side stats from a RawMatch, plus one
// SideBoth row per (player, clan) summing the two halves.
func Compute(raw *model.RawMatch) ([]model.PlayerStats, error) {
	if raw == nil {
		return nil, fmt.Errorf("nil RawMatch")
	}
	tps := raw.TicksPerSecond
	if tps == 0 {
		tps = 64.0
	}
	tradeWindowTicks := int(TradeWindow * tps)

	// ---- Pass 1: group kills by round and flag traded deaths. ----

	type annotatedKill struct {
		model.RawKill
		traded bool // a teammate of the victim killed the killer within the window
	}
	killsByRound := make(map[int][]annotatedKill)
	for _, k := range raw.Kills {
		killsByRound[k.RoundNumber] = append(killsByRound[k.RoundNumber], annotatedKill{RawKill: k})
	}
	for rn := range killsByRound {
		kills := killsByRound[rn]
		sort.SliceStable(kills, func(i, j int) bool { return kills[i].Tick < kills[j].Tick })
		for i := range kills {
			k := &kills[i]
			for j := i + 1; j < len(kills); j++ {
				next := kills[j]
				if next.Tick-k.Tick > tradeWindowTicks {
					break
				}
				if next.VictimSteamID == k.KillerSteamID && next.KillerSide == k.VictimSide {
					k.traded = true
					break
				}
			}
		}
	}

	// ---- Pass 2: real damage dealt to enemies per (player, round). ----

	type roundKey struct {
		id    uint64
		round int
	}
	damageByRound := make(map[roundKey]int)
	for _, d := range raw.Damages {
		if d.AttackerSide == d.VictimSide {
			continue // team damage
		}
		damageByRound[roundKey{d.AttackerSteamID, d.RoundNumber}] += d.HealthDamageTaken
	}

	// ---- Pass 3: per-round participation, KAST and counting stats. ----

	accums := make(map[playerKey]*accum)
	get := func(k playerKey, name string) *accum {
		a := accums[k]
		if a == nil {
			a = &accum{}
			accums[k] = a
		}
		if name != "" {
			a.name = name
		}
		return a
	}
	keyFor := func(id uint64, name string, side model.Side, clan string) playerKey {
		k := playerKey{steamID: id, side: side, clan: clan}
		if id == 0 {
			k.name = name
		}
		return k
	}

	for _, round := range raw.Rounds {
		rn := round.Number

		type participant struct {
			name     string
			side     model.Side
			clan     string
			kast     bool
			survived bool
		}
		players := make(map[uint64]*participant)
		for id, st := range round.PlayerEndState {
			players[id] = &participant{name: st.Name, side: st.Side, clan: st.Clan, survived: st.IsAlive}
		}
		seen := func(id uint64, name string, side model.Side, clan string) *participant {
			if id == 0 {
				return nil
			}
			pt := players[id]
			if pt == nil {
				pt = &participant{name: name, side: side, clan: clan}
				players[id] = pt
			}
			return pt
		}

		for _, k := range killsByRound[rn] {
			killer := seen(k.KillerSteamID, k.KillerName, k.KillerSide, k.KillerClan)
			victim := seen(k.VictimSteamID, k.VictimName, k.VictimSide, k.VictimClan)
			if k.KillerSteamID != k.VictimSteamID && k.KillerSide != k.VictimSide && killer != nil {
				killer.kast = true
			}
			if k.AssisterSteamID != 0 {
				if a := seen(k.AssisterSteamID, k.AssisterName, k.KillerSide, k.KillerClan); a != nil {
					a.kast = true
				}
			}
			if k.traded && victim != nil {
				victim.kast = true
			}
		}

		for id, pt := range players {
			if pt.side != model.SideCT && pt.side != model.SideT {
				continue
			}
			a := get(keyFor(id, pt.name, pt.side, pt.clan), pt.name)
			a.rounds++
			if pt.kast || pt.survived {
				a.kastRounds++
			}
			a.damage += damageByRound[roundKey{id, rn}]
		}
	}

	for _, k := range raw.Kills {
		if k.KillerSteamID != k.VictimSteamID && k.KillerSide != k.VictimSide && k.KillerSteamID != 0 {
			get(keyFor(k.KillerSteamID, k.KillerName, k.KillerSide, k.KillerClan), k.KillerName).kills++
		}
		if k.AssisterSteamID != 0 {
			get(keyFor(k.AssisterSteamID, k.AssisterName, k.KillerSide, k.KillerClan), k.AssisterName).assists++
		}
		if k.VictimSteamID != 0 {
			get(keyFor(k.VictimSteamID, k.VictimName, k.VictimSide, k.VictimClan), k.VictimName).deaths++
		}
	}

	// ---- Pass 4: roll up side rows and the Both rows. ----

	type bothKey struct {
		steamID uint64
		name    string
		clan    string
	}
	both := make(map[bothKey]*accum)
	var out []model.PlayerStats
	for k, a := range accums {
		if k.side != model.SideCT && k.side != model.SideT {
			continue
		}
		out = append(out, finish(raw, k, a))

		bk := bothKey{k.steamID, k.name, k.clan}
		b := both[bk]
		if b == nil {
			b = &accum{}
			both[bk] = b
		}
		b.name = a.name
		b.kills += a.kills
		b.assists += a.assists
		b.deaths += a.deaths
		b.rounds += a.rounds
		b.kastRounds += a.kastRounds
		b.damage += a.damage
	}
	for bk, b := range both {
		out = append(out, finish(raw, playerKey{steamID: bk.steamID, name: bk.name, side: model.SideBoth, clan: bk.clan}, b))
	}

	Sort(out)
	return out, nil
}

func finish(raw *model.RawMatch, k playerKey, a *accum) model.PlayerStats {
	name := a.name
	if name == "" {
		name = raw.PlayerNames[k.steamID]
	}
	s := model.PlayerStats{
		DemoHash:     raw.DemoHash,
		MapName:      raw.MapName,
		SteamID:      k.steamID,
		Name:         name,
		Side:         k.side,
		Clan:         k.clan,
		Kills:        a.kills,
		Assists:      a.assists,
		Deaths:       a.deaths,
		RoundsPlayed: a.rounds,
		TotalDamage:  a.damage,
		KASTRounds:   a.kastRounds,
	}
	if a.rounds > 0 {
		r := float64(a.rounds)
		s.KASTPct = 100 * float64(a.kastRounds) / r
		s.ADR = float64(a.damage) / r
		s.Impact = Impact(float64(a.kills)/r, float64(a.assists)/r)
		s.Rating = Rating(s.KASTPct, float64(a.kills)/r, float64(a.deaths)/r, s.Impact, s.ADR)
	}
	return s
}

// Impact is the community approximation of HLTV's impact sub-rating.
func Impact(kpr, apr float64) float64 {
	return 2.13*kpr + 0.42*apr - 0.41
}

// Rating approximates HLTV Rating 2.0 from per-round averages; kast is a percentage.
func Rating(kast, kpr, dpr, impact, adr float64) float64 {
	return 0.0073*kast + 0.3591*kpr - 0.5329*dpr + 0.2372*impact + 0.0032*adr + 0.1587
}

var sideOrder = map[model.Side]int{model.SideCT: 0, model.SideT: 1, model.SideBoth: 2}

// Sort orders rows by side (CT, TERRORIST, Both), then clan, then player name.
func Sort(rows []model.PlayerStats) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if sideOrder[a.Side] != sideOrder[b.Side] {
			return sideOrder[a.Side] < sideOrder[b.Side]
		}
		if a.Clan != b.Clan {
			return a.Clan < b.Clan
		}
		return a.Name < b.Name
	})
}

// Combine merges stats from several matches into one table, grouping by
// player, side and clan. Counting stats are summed; KAST, ADR, impact and
// rating are averaged over the merged rows.
func Combine(lists ...[]model.PlayerStats) []model.PlayerStats {
	type group struct {
		row                       model.PlayerStats
		n                         int
		kast, adr, impact, rating float64
	}
	groups := make(map[playerKey]*group)
	var order []playerKey
	for _, list := range lists {
		for _, s := range list {
			k := playerKey{steamID: s.SteamID, side: s.Side, clan: s.Clan}
			if s.SteamID == 0 {
				k.name = s.Name
			}
			g := groups[k]
			if g == nil {
				g = &group{row: model.PlayerStats{SteamID: s.SteamID, Name: s.Name, Side: s.Side, Clan: s.Clan}}
				groups[k] = g
				order = append(order, k)
			}
			g.n++
			g.row.Kills += s.Kills
			g.row.Assists += s.Assists
			g.row.Deaths += s.Deaths
			g.row.RoundsPlayed += s.RoundsPlayed
			g.row.TotalDamage += s.TotalDamage
			g.row.KASTRounds += s.KASTRounds
			g.kast += s.KASTPct
			g.adr += s.ADR
			g.impact += s.Impact
			g.rating += s.Rating
		}
	}

	out := make([]model.PlayerStats, 0, len(order))
	for _, k := range order {
		g := groups[k]
		n := float64(g.n)
		g.row.KASTPct = g.kast / n
		g.row.ADR = g.adr / n
		g.row.Impact = g.impact / n
		g.row.Rating = g.rating / n
		out = append(out, g.row)
	}
	Sort(out)
	return out
}

// Filter keeps rows matching clan and side. An empty clan or SideUnknown
// matches everything.
func Filter(rows []model.PlayerStats, clan string, side model.Side) []model.PlayerStats {
	var out []model.PlayerStats
	for _, s := range rows {
		if clan != "" && s.Clan != clan {
			continue
		}
		if side != model.SideUnknown && s.Side != side {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Clans returns the sorted unique clan names present in rows.
func Clans(rows []model.PlayerStats) []string {
	set := make(map[string]struct{})
	for _, s := range rows {
		if s.Clan != "" {
			set[s.Clan] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Score counts rounds won per side.
func Score(rounds []model.RawRound) (ctScore, tScore int) {
	for _, r := range rounds {
		switch r.WinnerSide {
		case model.SideCT:
			ctScore++
		case model.SideT:
			tScore++
		}
	}
	return
}

// ClanPair returns the first two clans in order of first appearance in kills.
func ClanPair(raw *model.RawMatch) (a, b string) {
	var seen []string
	add := func(c string) {
		if c == "" {
			return
		}
		for _, s := range seen {
			if s == c {
				return
			}
		}
		seen = append(seen, c)
	}
	for _, k := range raw.Kills {
		add(k.KillerClan)
		add(k.VictimClan)
	}
	for _, r := range raw.Rounds {
		for _, st := range r.PlayerEndState {
			add(st.Clan)
		}
	}
	if len(seen) > 0 {
		a = seen[0]
	}
	if len(seen) > 1 {
		b = seen[1]
	}
	return a, b
}
