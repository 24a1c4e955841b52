package arena

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"tg-arena-bot/internal/utils"
)

const (
	raceFinishLine = 20
	raceSlots      = 10
	raceBaseSpeed  = 2
)

// Per-tick trigger odds in percent. Both grow with the round number so the
// field gets wilder the longer a race drags on.
const (
	fieldEventBase   = 10
	fieldEventSlope  = 5
	racerSkillBase   = 10
	racerSkillSlope  = 2
	racerBackedBoost = 10
	triggerCap       = 60
)

// raceGame is the ten-racer variant: every tick one optional field event
// fires, every living racer rolls for a skill, then everyone moves.
type raceGame struct {
	racers []*Contestant
}

func newRaceGame(rng *rand.Rand) *raceGame {
	glyphs := utils.RandomGlyphs(rng, raceSlots)
	g := &raceGame{racers: make([]*Contestant, raceSlots)}
	for i := range g.racers {
		g.racers[i] = &Contestant{
			Slot:  i + 1,
			Glyph: glyphs[i],
			Speed: raceBaseSpeed,
		}
	}
	return g
}

func (g *raceGame) Slots() int { return raceSlots }

func (g *raceGame) Describe() []string {
	return append([]string{"--- Race day! Here is the field: ---"}, g.trackLines()...)
}

// eventChance returns the field-event probability for a round, in percent.
func eventChance(round int) int {
	return min(fieldEventBase+fieldEventSlope*round, triggerCap)
}

// skillChance returns a racer's skill-trigger probability for a round,
// in percent. Racers carrying at least one committed bet run hungrier.
func skillChance(round int, isBacked bool) int {
	p := racerSkillBase + racerSkillSlope*round
	if isBacked {
		p += racerBackedBoost
	}
	return min(p, triggerCap)
}

// Tick runs one round: field event roll, then skills in slot order, then
// movement in slot order, then the rendered track.
func (g *raceGame) Tick(rng *rand.Rand, round int, backed func(slot int) bool) ([]string, bool) {
	lines := []string{fmt.Sprintf("--- Round %d ---", round)}

	if rng.Intn(100) < eventChance(round) {
		if line := g.fieldEvent(rng); line != "" {
			lines = append(lines, line)
		}
	}

	for _, r := range g.racers {
		if !r.Running() {
			continue
		}
		if rng.Intn(100) < skillChance(round, backed != nil && backed(r.Slot)) {
			if line := g.racerSkill(r, rng); line != "" {
				lines = append(lines, line)
			}
		}
	}

	for _, r := range g.racers {
		r.MoveOnce(raceFinishLine)
	}

	lines = append(lines, g.trackLines()...)
	return lines, g.over()
}

func (g *raceGame) over() bool {
	alive := false
	for _, r := range g.racers {
		if r.Running() {
			alive = true
			if r.Finished(raceFinishLine) {
				return true
			}
		}
	}
	return !alive
}

func (g *raceGame) living() []*Contestant {
	var out []*Contestant
	for _, r := range g.racers {
		if r.Running() {
			out = append(out, r)
		}
	}
	return out
}

// racerSkill rolls one of the four racer skills and applies it.
func (g *raceGame) racerSkill(r *Contestant, rng *rand.Rand) string {
	switch rng.Intn(4) {
	case 0: // swap with a random racer ahead
		var ahead []*Contestant
		for _, o := range g.racers {
			if o.Running() && o != r && o.Position > r.Position {
				ahead = append(ahead, o)
			}
		}
		if len(ahead) == 0 {
			return ""
		}
		target := ahead[rng.Intn(len(ahead))]
		r.Position, target.Position = target.Position, r.Position
		return fmt.Sprintf("%s blinks forward, trading places with %s!", r.Glyph, target.Glyph)
	case 1:
		r.Speed++
		return fmt.Sprintf("%s finds a burst of speed!", r.Glyph)
	case 2:
		hit := g.adjacent(r)
		for _, o := range hit {
			o.Mods.Stunned = true
		}
		if len(hit) == 0 {
			return fmt.Sprintf("%s drops a smoke bomb into empty air.", r.Glyph)
		}
		return fmt.Sprintf("%s drops a smoke bomb! %s can't see to move!", r.Glyph, glyphList(hit))
	default:
		hit := g.adjacent(r)
		if len(hit) == 0 {
			return fmt.Sprintf("%s hurls a flash bang at nobody in particular.", r.Glyph)
		}
		for _, o := range hit {
			o.Knockback(2 + rng.Intn(5))
		}
		return fmt.Sprintf("%s hurls a flash bang! %s stumble backwards!", r.Glyph, glyphList(hit))
	}
}

// adjacent returns the living racers in the neighbouring lanes.
func (g *raceGame) adjacent(r *Contestant) []*Contestant {
	var out []*Contestant
	for _, o := range g.racers {
		if o.Running() && (o.Slot == r.Slot-1 || o.Slot == r.Slot+1) {
			out = append(out, o)
		}
	}
	return out
}

// fieldEvent samples and applies one of the seven track events.
func (g *raceGame) fieldEvent(rng *rand.Rand) string {
	switch rng.Intn(7) {
	case 0: // lightning
		alive := g.living()
		if len(alive) == 0 {
			return ""
		}
		target := alive[rng.Intn(len(alive))]
		target.Dead = true
		return fmt.Sprintf("⚡ Lightning strikes %s — down for good!", target.Glyph)
	case 1: // swamp
		target := g.racers[rng.Intn(len(g.racers))]
		target.Mods.SwampTicks = 3
		return fmt.Sprintf("🌊 %s's lane turns to swamp — slowed for 3 rounds!", target.Glyph)
	case 2: // hurricane
		for _, r := range g.living() {
			r.Speed = max(r.Speed-1, 1)
		}
		return "🌪️ A hurricane tears through — everyone slows down!"
	case 3: // rainbow bridge
		for _, r := range g.living() {
			r.Speed++
		}
		return "🌈 A rainbow bridge appears — everyone speeds up!"
	case 4: // meteor shower
		alive := g.living()
		rng.Shuffle(len(alive), func(i, j int) { alive[i], alive[j] = alive[j], alive[i] })
		hit := alive[:min(3, len(alive))]
		if len(hit) == 0 {
			return ""
		}
		steps := 2 + rng.Intn(3)
		for _, r := range hit {
			r.Knockback(steps)
		}
		return fmt.Sprintf("🌠 Meteors rain down! %s fall back %d steps!", glyphList(hit), steps)
	case 5: // volcano
		alive := g.living()
		if len(alive) == 0 {
			return ""
		}
		target := alive[rng.Intn(len(alive))]
		target.Position = 0
		target.Speed = max(target.Speed-1, 1)
		return fmt.Sprintf("🌋 A volcano erupts — %s is blasted back to the start!", target.Glyph)
	default: // aurora
		delta := rng.Intn(5) - 2
		for _, r := range g.living() {
			r.Speed = max(r.Speed+delta, 1)
		}
		return fmt.Sprintf("🌌 An aurora shimmers — everyone's speed shifts by %+d!", delta)
	}
}

func (g *raceGame) trackLines() []string {
	lines := make([]string, len(g.racers))
	for i, r := range g.racers {
		lines[i] = utils.RenderTrack(r.Position, raceFinishLine, r.Glyph, r.Dead)
	}
	return lines
}

// Ranking sorts living racers by position descending, ties sharing a rank.
func (g *raceGame) Ranking() []RankGroup {
	alive := g.living()
	sort.SliceStable(alive, func(i, j int) bool { return alive[i].Position > alive[j].Position })

	var groups []RankGroup
	for _, r := range alive {
		if n := len(groups); n > 0 && g.racers[groups[n-1].Slots[0]-1].Position == r.Position {
			groups[n-1].Slots = append(groups[n-1].Slots, r.Slot)
			continue
		}
		groups = append(groups, RankGroup{Rank: len(groups) + 1, Slots: []int{r.Slot}})
	}
	return groups
}

func (g *raceGame) Summary() []string {
	groups := g.Ranking()
	if len(groups) == 0 {
		return []string{"--- Race over ---", "Every racer is down. No winners today."}
	}
	lines := []string{"--- Race over! Final standings: ---"}
	for _, grp := range groups {
		if grp.Rank > 3 {
			break
		}
		var glyphs []string
		for _, slot := range grp.Slots {
			glyphs = append(glyphs, g.racers[slot-1].Glyph)
		}
		lines = append(lines, fmt.Sprintf("#%d: %s", grp.Rank, strings.Join(glyphs, ", ")))
	}
	return lines
}

func (g *raceGame) GlyphFor(slot int) string {
	return g.racers[slot-1].Glyph
}

func glyphList(cs []*Contestant) string {
	glyphs := make([]string, len(cs))
	for i, c := range cs {
		glyphs[i] = c.Glyph
	}
	return strings.Join(glyphs, ", ")
}
