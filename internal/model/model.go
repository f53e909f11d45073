package model

import (
	"fmt"
	"strings"
	"time"
)

// Side represents which half a player is on. SideBoth is only used for
// aggregated stat rows.
type Side int

const (
	SideUnknown    Side = 0
	SideSpectators Side = 1
	SideT          Side = 2
	SideCT         Side = 3
	SideBoth       Side = 4
)

func (s Side) String() string {
	switch s {
	case SideT:
		return "TERRORIST"
	case SideCT:
		return "CT"
	case SideBoth:
		return "Both"
	default:
		return "?"
	}
}

// ParseSide accepts "CT", "T", "TERRORIST" and "Both" in any case.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CT":
		return SideCT, nil
	case "T", "TERRORIST":
		return SideT, nil
	case "BOTH":
		return SideBoth, nil
	}
	return SideUnknown, fmt.Errorf("unknown side %q", s)
}

// Vec3 is a 3D world-space position in Hammer units.
type Vec3 struct{ X, Y, Z float64 }

// ---- Raw events emitted by the parser ----

type RawKill struct {
	Tick, RoundNumber            int
	KillerName, VictimName       string
	AssisterName                 string // empty if none
	KillerSteamID, VictimSteamID uint64
	AssisterSteamID              uint64
	KillerSide, VictimSide       Side
	KillerClan, VictimClan       string
	Weapon                       string
	IsHeadshot, AssistedFlash    bool
	Penetrated                   bool
	ThroughSmoke                 bool
	HealthDamage                 int // damage of the killing blow
	KillerPos, VictimPos         Vec3
	HasPos                       bool
}

type RawDamage struct {
	Tick, RoundNumber              int
	AttackerName, VictimName       string
	AttackerSteamID, VictimSteamID uint64
	AttackerSide, VictimSide       Side
	AttackerClan, VictimClan       string
	Weapon                         string
	HealthDamage                   int
	ArmorDamage                    int
	HealthDamageTaken              int // capped at the victim's remaining health
}

// Bomb event names.
const (
	BombPlantBegin  = "plant_begin"
	BombPlanted     = "planted"
	BombDefuseBegin = "defuse_begin"
	BombDefused     = "defused"
	BombExploded    = "exploded"
)

type RawBombEvent struct {
	Tick, RoundNumber int
	Event             string
	Site              string
	PlayerName        string
	Pos               Vec3
}

type RawGrenade struct {
	Tick, RoundNumber int
	GrenadeType       string
	ThrowerName       string
	ThrowerClan       string
	Pos               Vec3
}

// RawEffect covers lingering grenade effects (smokes and infernos).
type RawEffect struct {
	StartTick, EndTick int
	RoundNumber        int
	ThrowerName        string
	ThrowerClan        string
	Pos                Vec3
}

type PlayerRoundEndState struct {
	SteamID64 uint64
	Name      string
	IsAlive   bool
	Side      Side
	Clan      string
}

type RawRound struct {
	Number, StartTick, FreezeEndTick, EndTick int
	WinnerSide                                Side
	PlayerEndState                            map[uint64]PlayerRoundEndState
}

type RawMatch struct {
	DemoHash       string
	FileName       string
	MapName        string
	MatchDate      string
	Tickrate       float64
	TicksPerSecond float64
	Rounds         []RawRound
	Kills          []RawKill
	Damages        []RawDamage
	Bombs          []RawBombEvent
	Grenades       []RawGrenade
	Smokes         []RawEffect
	Infernos       []RawEffect
	PlayerNames    map[uint64]string
}

// ---- Aggregated metrics ----

// PlayerStats is one row of the summary table: a player on one side (or
// both sides) of one match, or of several matches once combined.
type PlayerStats struct {
	DemoHash string
	MapName  string // populated when queried across demos
	SteamID  uint64
	Name     string
	Side     Side
	Clan     string

	Kills        int
	Assists      int
	Deaths       int
	RoundsPlayed int
	TotalDamage  int
	KASTRounds   int

	KASTPct float64
	ADR     float64
	Impact  float64
	Rating  float64
}

func (s *PlayerStats) KDRatio() float64 {
	if s.Deaths == 0 {
		return float64(s.Kills)
	}
	return float64(s.Kills) / float64(s.Deaths)
}

// MatchSummary is a lightweight record for list/show commands.
type MatchSummary struct {
	DemoHash  string
	FileName  string
	MapName   string
	MatchDate string
	Tickrate  float64
	CTScore   int
	TScore    int
	ClanA     string
	ClanB     string
	ParsedAt  time.Time
}

// ParsedMatch is everything the dashboard keeps for one uploaded demo.
type ParsedMatch struct {
	Summary MatchSummary
	Stats   []PlayerStats
	Raw     *RawMatch
}
