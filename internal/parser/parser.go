package parser

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/geo/r3"
	demoinfocs "github.com/markus-wa/demoinfocs-golang/v4/pkg/demoinfocs"
	common "github.com/markus-wa/demoinfocs-golang/v4/pkg/demoinfocs/common"
	"github.com/markus-wa/demoinfocs-golang/v4/pkg/demoinfocs/events"

	"github.com/pable/go-cs-esalytics/internal/model"
)

// ProgressFunc receives parse progress in [0, 1].
type ProgressFunc func(pct float64)

// Options tunes a single ParseDemo call.
type Options struct {
	// FileName overrides the base name of path, e.g. for uploads stored under a temp name.
	FileName string
	Progress ProgressFunc
}

// HashFile returns the hex sha256 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open demo: %w", err)
	}
	defer f.Close()
	return hashReader(f)
}

func hashReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hash demo: %w", err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// ParseDemo parses the demo at path and returns a RawMatch.
// Cancelling ctx stops the parser between frames.
func ParseDemo(ctx context.Context, path string, opts Options) (*model.RawMatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open demo: %w", err)
	}
	defer f.Close()

	demoHash, err := hashReader(f)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek demo: %w", err)
	}

	fileName := opts.FileName
	if fileName == "" {
		fileName = filepath.Base(path)
	}
	report := opts.Progress
	if report == nil {
		report = func(float64) {}
	}
	report(0)

	p := demoinfocs.NewParser(f)
	defer p.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			p.Cancel()
		case <-done:
		}
	}()

	raw := &model.RawMatch{
		DemoHash:    demoHash,
		FileName:    fileName,
		PlayerNames: make(map[uint64]string),
	}

	var (
		roundNumber    int
		roundStartTick int
		freezeEndTick  int
		lastReported   float64
	)

	tick := func() int { return p.GameState().IngameTick() }

	remember := func(pl *common.Player) {
		if pl == nil || pl.SteamID64 == 0 {
			return
		}
		raw.PlayerNames[pl.SteamID64] = pl.Name
	}

	p.RegisterEventHandler(func(e events.RoundStart) {
		if p.GameState().IsWarmupPeriod() {
			return
		}
		roundNumber++
		roundStartTick = tick()
		freezeEndTick = roundStartTick
	})

	p.RegisterEventHandler(func(e events.RoundFreezetimeEnd) {
		if roundNumber == 0 {
			return
		}
		freezeEndTick = tick()
	})

	p.RegisterEventHandler(func(e events.RoundEnd) {
		if roundNumber == 0 {
			return
		}
		endState := make(map[uint64]model.PlayerRoundEndState)
		for _, pl := range p.GameState().Participants().Playing() {
			if pl == nil || pl.SteamID64 == 0 {
				continue
			}
			endState[pl.SteamID64] = model.PlayerRoundEndState{
				SteamID64: pl.SteamID64,
				Name:      pl.Name,
				IsAlive:   pl.IsAlive(),
				Side:      sideFromCommon(pl.Team),
				Clan:      clanOf(pl),
			}
			remember(pl)
		}

		raw.Rounds = append(raw.Rounds, model.RawRound{
			Number:         roundNumber,
			StartTick:      roundStartTick,
			FreezeEndTick:  freezeEndTick,
			EndTick:        tick(),
			WinnerSide:     sideFromCommon(e.Winner),
			PlayerEndState: endState,
		})

		// Round ends are frequent enough to drive progress without flooding listeners.
		if pct := float64(p.Progress()); pct-lastReported >= 0.05 {
			lastReported = pct
			report(pct)
		}
	})

	p.RegisterEventHandler(func(e events.Kill) {
		if roundNumber == 0 || e.Killer == nil || e.Victim == nil {
			return
		}
		k := model.RawKill{
			Tick:          tick(),
			RoundNumber:   roundNumber,
			KillerName:    e.Killer.Name,
			VictimName:    e.Victim.Name,
			KillerSteamID: e.Killer.SteamID64,
			VictimSteamID: e.Victim.SteamID64,
			KillerSide:    sideFromCommon(e.Killer.Team),
			VictimSide:    sideFromCommon(e.Victim.Team),
			KillerClan:    clanOf(e.Killer),
			VictimClan:    clanOf(e.Victim),
			IsHeadshot:    e.IsHeadshot,
			AssistedFlash: e.AssistedFlash,
			Penetrated:    e.PenetratedObjects > 0,
			ThroughSmoke:  e.ThroughSmoke,
			KillerPos:     vec(e.Killer.Position()),
			VictimPos:     vec(e.Victim.Position()),
			HasPos:        hasPosition(e.Killer) && hasPosition(e.Victim),
		}
		if e.Assister != nil {
			k.AssisterName = e.Assister.Name
			k.AssisterSteamID = e.Assister.SteamID64
		}
		if e.Weapon != nil {
			k.Weapon = e.Weapon.Type.String()
		}
		// The killing blow's damage is the last hurt event against the victim.
		for i := len(raw.Damages) - 1; i >= 0; i-- {
			d := raw.Damages[i]
			if d.RoundNumber != roundNumber {
				break
			}
			if d.VictimSteamID == k.VictimSteamID {
				k.HealthDamage = d.HealthDamage
				break
			}
		}

		raw.Kills = append(raw.Kills, k)
		remember(e.Killer)
		remember(e.Victim)
	})

	p.RegisterEventHandler(func(e events.PlayerHurt) {
		if roundNumber == 0 || e.Attacker == nil || e.Player == nil {
			return
		}
		if e.Attacker.SteamID64 == e.Player.SteamID64 {
			return // self-damage
		}
		d := model.RawDamage{
			Tick:              tick(),
			RoundNumber:       roundNumber,
			AttackerName:      e.Attacker.Name,
			VictimName:        e.Player.Name,
			AttackerSteamID:   e.Attacker.SteamID64,
			VictimSteamID:     e.Player.SteamID64,
			AttackerSide:      sideFromCommon(e.Attacker.Team),
			VictimSide:        sideFromCommon(e.Player.Team),
			AttackerClan:      clanOf(e.Attacker),
			VictimClan:        clanOf(e.Player),
			HealthDamage:      e.HealthDamage,
			ArmorDamage:       e.ArmorDamage,
			HealthDamageTaken: e.HealthDamageTaken,
		}
		if e.Weapon != nil {
			d.Weapon = e.Weapon.Type.String()
		}
		raw.Damages = append(raw.Damages, d)
	})

	bomb := func(event string, be events.BombEvent) {
		if roundNumber == 0 {
			return
		}
		b := model.RawBombEvent{
			Tick:        tick(),
			RoundNumber: roundNumber,
			Event:       event,
			Site:        siteName(rune(be.Site)),
		}
		if be.Player != nil {
			b.PlayerName = be.Player.Name
			b.Pos = vec(be.Player.Position())
		}
		raw.Bombs = append(raw.Bombs, b)
	}
	p.RegisterEventHandler(func(e events.BombPlantBegin) { bomb(model.BombPlantBegin, e.BombEvent) })
	p.RegisterEventHandler(func(e events.BombPlanted) { bomb(model.BombPlanted, e.BombEvent) })
	p.RegisterEventHandler(func(e events.BombDefused) { bomb(model.BombDefused, e.BombEvent) })
	p.RegisterEventHandler(func(e events.BombExplode) { bomb(model.BombExploded, e.BombEvent) })
	p.RegisterEventHandler(func(e events.BombDefuseStart) {
		bomb(model.BombDefuseBegin, events.BombEvent{Player: e.Player})
	})

	grenade := func(ge events.GrenadeEvent) {
		if roundNumber == 0 {
			return
		}
		g := model.RawGrenade{
			Tick:        tick(),
			RoundNumber: roundNumber,
			GrenadeType: ge.GrenadeType.String(),
			Pos:         vec(ge.Position),
		}
		if ge.Thrower != nil {
			g.ThrowerName = ge.Thrower.Name
			g.ThrowerClan = clanOf(ge.Thrower)
		}
		raw.Grenades = append(raw.Grenades, g)
	}
	p.RegisterEventHandler(func(e events.HeExplode) { grenade(e.GrenadeEvent) })
	p.RegisterEventHandler(func(e events.FlashExplode) { grenade(e.GrenadeEvent) })
	p.RegisterEventHandler(func(e events.DecoyStart) { grenade(e.GrenadeEvent) })

	// Smokes and infernos are recorded on start and closed on expiry.
	openSmokes := make(map[int]int)
	p.RegisterEventHandler(func(e events.SmokeStart) {
		if roundNumber == 0 {
			return
		}
		grenade(e.GrenadeEvent)
		s := model.RawEffect{
			StartTick:   tick(),
			RoundNumber: roundNumber,
			Pos:         vec(e.Position),
		}
		if e.Thrower != nil {
			s.ThrowerName = e.Thrower.Name
			s.ThrowerClan = clanOf(e.Thrower)
		}
		openSmokes[e.GrenadeEntityID] = len(raw.Smokes)
		raw.Smokes = append(raw.Smokes, s)
	})
	p.RegisterEventHandler(func(e events.SmokeExpired) {
		if i, ok := openSmokes[e.GrenadeEntityID]; ok {
			raw.Smokes[i].EndTick = tick()
			delete(openSmokes, e.GrenadeEntityID)
		}
	})

	openInfernos := make(map[int64]int)
	p.RegisterEventHandler(func(e events.InfernoStart) {
		if roundNumber == 0 || e.Inferno == nil {
			return
		}
		inf := model.RawEffect{
			StartTick:   tick(),
			RoundNumber: roundNumber,
		}
		if e.Inferno.Entity != nil {
			inf.Pos = vec(e.Inferno.Entity.Position())
		}
		if th := e.Inferno.Thrower(); th != nil {
			inf.ThrowerName = th.Name
			inf.ThrowerClan = clanOf(th)
		}
		openInfernos[e.Inferno.UniqueID()] = len(raw.Infernos)
		raw.Infernos = append(raw.Infernos, inf)
	})
	p.RegisterEventHandler(func(e events.InfernoExpired) {
		if e.Inferno == nil {
			return
		}
		if i, ok := openInfernos[e.Inferno.UniqueID()]; ok {
			raw.Infernos[i].EndTick = tick()
			delete(openInfernos, e.Inferno.UniqueID())
		}
	})

	if err := p.ParseToEnd(); err != nil {
		if errors.Is(err, demoinfocs.ErrCancelled) {
			return nil, fmt.Errorf("parse demo: %w", ctx.Err())
		}
		return nil, fmt.Errorf("parse demo: %w", err)
	}

	header := p.Header()
	raw.MapName = header.MapName
	if raw.MapName == "" {
		raw.MapName = MapNameFromFilename(fileName)
	}
	raw.MatchDate = time.Now().Format("2006-01-02") // demos rarely embed wall-clock time
	raw.Tickrate = p.TickRate()
	raw.TicksPerSecond = p.TickRate()

	report(1)
	return raw, nil
}

// MapNameFromFilename derives a map name from HLTV-style demo names,
// e.g. "g2-vs-heroic-m1-ancient.dem" -> "de_ancient".
func MapNameFromFilename(name string) string {
	base := filepath.Base(name)
	parts := strings.Split(base, "-")
	last := strings.Replace(parts[len(parts)-1], ".dem", "", 1)
	return "de_" + last
}

func sideFromCommon(t common.Team) model.Side {
	switch t {
	case common.TeamTerrorists:
		return model.SideT
	case common.TeamCounterTerrorists:
		return model.SideCT
	case common.TeamSpectators:
		return model.SideSpectators
	default:
		return model.SideUnknown
	}
}

func clanOf(pl *common.Player) string {
	if pl == nil || pl.TeamState == nil {
		return ""
	}
	return pl.TeamState.ClanName()
}

func siteName(r rune) string {
	switch r {
	case 'A', 'B':
		return string(r)
	}
	return ""
}

// hasPosition reports whether pl is backed by an entity its position can be
// read from: the pawn in CS2 demos, the player entity itself in CS:GO demos.
func hasPosition(pl *common.Player) bool {
	if pl == nil || pl.Entity == nil {
		return false
	}
	if _, cs2 := pl.Entity.PropertyValue("m_hPawn"); cs2 {
		return pl.PlayerPawnEntity() != nil
	}
	return true
}

func vec(v r3.Vector) model.Vec3 {
	return model.Vec3{X: v.X, Y: v.Y, Z: v.Z}
}
