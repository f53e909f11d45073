package stats

import (
	"math"
	"testing"

	"github.com/pable/go-cs-esalytics/internal/model"
)

var tickRate float64 = 64.0

// IDs for test players. A and C play for "Alpha", B and D for "Bravo".
const (
	playerA uint64 = 1001
	playerB uint64 = 1002
	playerC uint64 = 1003
	playerD uint64 = 1004
)

var (
	names = map[uint64]string{playerA: "alice", playerB: "bob", playerC: "carol", playerD: "dave"}
	clans = map[uint64]string{playerA: "Alpha", playerB: "Bravo", playerC: "Alpha", playerD: "Bravo"}
)

// makeRound creates a RawRound where Alpha plays alphaSide and Bravo the other side.
func makeRound(number int, alphaSide model.Side, alive map[uint64]bool) model.RawRound {
	bravoSide := model.SideT
	if alphaSide == model.SideT {
		bravoSide = model.SideCT
	}
	endState := make(map[uint64]model.PlayerRoundEndState)
	for _, id := range []uint64{playerA, playerB, playerC, playerD} {
		side := bravoSide
		if clans[id] == "Alpha" {
			side = alphaSide
		}
		endState[id] = model.PlayerRoundEndState{
			SteamID64: id,
			Name:      names[id],
			IsAlive:   alive[id],
			Side:      side,
			Clan:      clans[id],
		}
	}
	return model.RawRound{
		Number:         number,
		FreezeEndTick:  500,
		EndTick:        20000,
		WinnerSide:     alphaSide,
		PlayerEndState: endState,
	}
}

func kill(round, tick int, killer, victim uint64, killerSide, victimSide model.Side) model.RawKill {
	return model.RawKill{
		Tick: tick, RoundNumber: round,
		KillerSteamID: killer, VictimSteamID: victim,
		KillerName: names[killer], VictimName: names[victim],
		KillerSide: killerSide, VictimSide: victimSide,
		KillerClan: clans[killer], VictimClan: clans[victim],
		Weapon: "AK-47",
	}
}

func makeRaw(kills []model.RawKill, damages []model.RawDamage, rounds []model.RawRound) *model.RawMatch {
	return &model.RawMatch{
		DemoHash:       "testhash",
		MapName:        "de_ancient",
		TicksPerSecond: tickRate,
		Rounds:         rounds,
		Kills:          kills,
		Damages:        damages,
		PlayerNames:    names,
	}
}

func find(t *testing.T, rows []model.PlayerStats, id uint64, side model.Side) model.PlayerStats {
	t.Helper()
	for _, r := range rows {
		if r.SteamID == id && r.Side == side {
			return r
		}
	}
	t.Fatalf("no row for player %d side %s", id, side)
	return model.PlayerStats{}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

// ---- Trade window tests ----

// buildTradeScenario: B (T) kills A (CT) at tick 1000, then C (CT) kills B after deltaTicks.
func buildTradeScenario(deltaTicks int) *model.RawMatch {
	kills := []model.RawKill{
		kill(1, 1000, playerB, playerA, model.SideT, model.SideCT),
		kill(1, 1000+deltaTicks, playerC, playerB, model.SideCT, model.SideT),
	}
	round := makeRound(1, model.SideCT, map[uint64]bool{playerC: true})
	return makeRaw(kills, nil, []model.RawRound{round})
}

func TestTrade_ExactlyAtWindow(t *testing.T) {
	raw := buildTradeScenario(int(TradeWindow * tickRate))
	rows, err := Compute(raw)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	a := find(t, rows, playerA, model.SideCT)
	if a.KASTRounds != 1 {
		t.Errorf("expected alice's death to be traded at exactly 5s, KAST rounds = %d", a.KASTRounds)
	}
}

func TestTrade_JustOverWindow(t *testing.T) {
	raw := buildTradeScenario(int(TradeWindow*tickRate) + 1)
	rows, err := Compute(raw)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	a := find(t, rows, playerA, model.SideCT)
	if a.KASTRounds != 0 {
		t.Errorf("expected no KAST for alice just outside the window, got %d", a.KASTRounds)
	}
	if a.KASTPct != 0 {
		t.Errorf("expected KAST%% 0, got %.1f", a.KASTPct)
	}
}

func TestTrade_SameSideKillIsNotATrade(t *testing.T) {
	// D kills teammate B after B killed A: not a trade for A.
	kills := []model.RawKill{
		kill(1, 1000, playerB, playerA, model.SideT, model.SideCT),
		kill(1, 1010, playerD, playerB, model.SideT, model.SideT),
	}
	raw := makeRaw(kills, nil, []model.RawRound{makeRound(1, model.SideCT, nil)})
	rows, err := Compute(raw)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if got := find(t, rows, playerA, model.SideCT).KASTRounds; got != 0 {
		t.Errorf("teamkill must not trade, got KAST rounds %d", got)
	}
	if got := find(t, rows, playerD, model.SideT).Kills; got != 0 {
		t.Errorf("teamkill must not count as a kill, got %d", got)
	}
	if got := find(t, rows, playerB, model.SideT).Deaths; got != 1 {
		t.Errorf("teamkilled player still dies, got %d deaths", got)
	}
}

// ---- Side and Both rows ----

func TestSidesAndBoth(t *testing.T) {
	// Round 1: Alpha is CT, A kills B. Round 2: Alpha is T, A kills D and dies to B.
	kills := []model.RawKill{
		kill(1, 1000, playerA, playerB, model.SideCT, model.SideT),
		kill(2, 1000, playerA, playerD, model.SideT, model.SideCT),
		kill(2, 2000, playerB, playerA, model.SideCT, model.SideT),
	}
	rounds := []model.RawRound{
		makeRound(1, model.SideCT, map[uint64]bool{playerA: true, playerC: true, playerD: true}),
		makeRound(2, model.SideT, map[uint64]bool{playerC: true, playerB: true}),
	}
	rows, err := Compute(makeRaw(kills, nil, rounds))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	ct := find(t, rows, playerA, model.SideCT)
	tt := find(t, rows, playerA, model.SideT)
	both := find(t, rows, playerA, model.SideBoth)

	if ct.Kills != 1 || ct.Deaths != 0 || ct.RoundsPlayed != 1 {
		t.Errorf("CT row: got K=%d D=%d R=%d", ct.Kills, ct.Deaths, ct.RoundsPlayed)
	}
	if tt.Kills != 1 || tt.Deaths != 1 || tt.RoundsPlayed != 1 {
		t.Errorf("T row: got K=%d D=%d R=%d", tt.Kills, tt.Deaths, tt.RoundsPlayed)
	}
	if both.Kills != 2 || both.Deaths != 1 || both.RoundsPlayed != 2 {
		t.Errorf("Both row: got K=%d D=%d R=%d", both.Kills, both.Deaths, both.RoundsPlayed)
	}
	if both.Clan != "Alpha" || both.Name != "alice" {
		t.Errorf("Both row identity: %q / %q", both.Name, both.Clan)
	}
	if !approx(both.KASTPct, 100) {
		t.Errorf("expected 100%% KAST (kill in both rounds), got %.2f", both.KASTPct)
	}

	// Rows come out CT first, then TERRORIST, then Both.
	last := -1
	for _, r := range rows {
		if sideOrder[r.Side] < last {
			t.Fatalf("rows not sorted by side: %s after order %d", r.Side, last)
		}
		last = sideOrder[r.Side]
	}
}

func TestADR_ExcludesTeamDamageAndUsesRealDamage(t *testing.T) {
	damages := []model.RawDamage{
		{RoundNumber: 1, AttackerSteamID: playerA, VictimSteamID: playerB, AttackerSide: model.SideCT, VictimSide: model.SideT, HealthDamage: 150, HealthDamageTaken: 100},
		{RoundNumber: 1, AttackerSteamID: playerA, VictimSteamID: playerC, AttackerSide: model.SideCT, VictimSide: model.SideCT, HealthDamage: 40, HealthDamageTaken: 40},
		{RoundNumber: 2, AttackerSteamID: playerA, VictimSteamID: playerD, AttackerSide: model.SideCT, VictimSide: model.SideT, HealthDamage: 50, HealthDamageTaken: 50},
	}
	rounds := []model.RawRound{
		makeRound(1, model.SideCT, nil),
		makeRound(2, model.SideCT, nil),
	}
	rows, err := Compute(makeRaw(nil, damages, rounds))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	a := find(t, rows, playerA, model.SideCT)
	if a.TotalDamage != 150 {
		t.Errorf("expected 150 total damage, got %d", a.TotalDamage)
	}
	if !approx(a.ADR, 75) {
		t.Errorf("expected ADR 75, got %.2f", a.ADR)
	}
}

func TestRatingFormula(t *testing.T) {
	// 1 kill, 0 deaths, 0 assists, 100% KAST, 100 ADR over one round.
	impact := Impact(1, 0)
	if !approx(impact, 1.72) {
		t.Errorf("impact: got %.4f", impact)
	}
	r := Rating(100, 1, 0, impact, 100)
	want := 0.73 + 0.3591 + 0.2372*1.72 + 0.32 + 0.1587
	if !approx(r, want) {
		t.Errorf("rating: got %.4f want %.4f", r, want)
	}
}

func TestAssistsCredited(t *testing.T) {
	k := kill(1, 1000, playerA, playerB, model.SideCT, model.SideT)
	k.AssisterSteamID = playerC
	k.AssisterName = "carol"
	rows, err := Compute(makeRaw([]model.RawKill{k}, nil, []model.RawRound{makeRound(1, model.SideCT, nil)}))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	c := find(t, rows, playerC, model.SideCT)
	if c.Assists != 1 || c.KASTRounds != 1 {
		t.Errorf("expected 1 assist and KAST for carol, got A=%d KAST=%d", c.Assists, c.KASTRounds)
	}
}

func TestCompute_Nil(t *testing.T) {
	if _, err := Compute(nil); err == nil {
		t.Error("expected error for nil RawMatch")
	}
}

// ---- Combine / Filter ----

func TestCombine(t *testing.T) {
	m1 := []model.PlayerStats{
		{SteamID: playerA, Name: "alice", Side: model.SideCT, Clan: "Alpha", Kills: 10, Deaths: 5, RoundsPlayed: 12, TotalDamage: 1000, KASTPct: 80, ADR: 83.3, Rating: 1.2, Impact: 1.1},
		{SteamID: playerB, Name: "bob", Side: model.SideT, Clan: "Bravo", Kills: 4, Deaths: 9, RoundsPlayed: 12, KASTPct: 50, ADR: 40, Rating: 0.7},
	}
	m2 := []model.PlayerStats{
		{SteamID: playerA, Name: "alice", Side: model.SideCT, Clan: "Alpha", Kills: 6, Deaths: 7, RoundsPlayed: 12, TotalDamage: 800, KASTPct: 60, ADR: 66.7, Rating: 0.8, Impact: 0.9},
	}
	out := Combine(m1, m2)
	if len(out) != 2 {
		t.Fatalf("expected 2 combined rows, got %d", len(out))
	}
	a := find(t, out, playerA, model.SideCT)
	if a.Kills != 16 || a.Deaths != 12 || a.RoundsPlayed != 24 || a.TotalDamage != 1800 {
		t.Errorf("sums wrong: %+v", a)
	}
	if !approx(a.KASTPct, 70) || !approx(a.Rating, 1.0) || !approx(a.ADR, 75) || !approx(a.Impact, 1.0) {
		t.Errorf("means wrong: KAST=%.2f rating=%.2f ADR=%.2f impact=%.2f", a.KASTPct, a.Rating, a.ADR, a.Impact)
	}
}

func TestFilterAndClans(t *testing.T) {
	rows := []model.PlayerStats{
		{Name: "alice", Side: model.SideCT, Clan: "Alpha"},
		{Name: "alice", Side: model.SideBoth, Clan: "Alpha"},
		{Name: "bob", Side: model.SideT, Clan: "Bravo"},
	}
	if got := Filter(rows, "", model.SideUnknown); len(got) != 3 {
		t.Errorf("no filter: got %d rows", len(got))
	}
	if got := Filter(rows, "Alpha", model.SideUnknown); len(got) != 2 {
		t.Errorf("clan filter: got %d rows", len(got))
	}
	if got := Filter(rows, "Alpha", model.SideBoth); len(got) != 1 {
		t.Errorf("clan+side filter: got %d rows", len(got))
	}
	if got := Filter(rows, "Charlie", model.SideUnknown); len(got) != 0 {
		t.Errorf("unknown clan: got %d rows", len(got))
	}
	clans := Clans(rows)
	if len(clans) != 2 || clans[0] != "Alpha" || clans[1] != "Bravo" {
		t.Errorf("Clans: %v", clans)
	}
}

func TestScoreAndClanPair(t *testing.T) {
	rounds := []model.RawRound{
		makeRound(1, model.SideCT, nil),
		makeRound(2, model.SideCT, nil),
		makeRound(3, model.SideT, nil),
	}
	ct, tt := Score(rounds)
	if ct != 2 || tt != 1 {
		t.Errorf("score: CT %d T %d", ct, tt)
	}
	raw := makeRaw([]model.RawKill{kill(1, 10, playerB, playerA, model.SideT, model.SideCT)}, nil, rounds)
	a, b := ClanPair(raw)
	if a != "Bravo" || b != "Alpha" {
		t.Errorf("ClanPair: %q %q", a, b)
	}
}
