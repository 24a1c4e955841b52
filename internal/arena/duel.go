package arena

import (
	"fmt"
	"math/rand"
	"strings"
)

const duelSkillChance = 30 // percent chance to use an assigned skill

// duelGame is the two-contestant fight variant. Slot 1 always acts first;
// the defender's turn is skipped once it is down.
type duelGame struct {
	fighters [2]*Contestant
}

// newDuelGame rolls two fighters: attack 40..50, health 500 - attack*5,
// two random skills each (default attack excluded).
func newDuelGame(rng *rand.Rand) *duelGame {
	glyphs := [2]string{"🪲", "🦗"}
	g := &duelGame{}
	for i := range g.fighters {
		attack := 40 + rng.Intn(11)
		health := 500 - attack*5
		g.fighters[i] = &Contestant{
			Slot:      i + 1,
			Glyph:     glyphs[i],
			Attack:    attack,
			Health:    health,
			MaxHealth: health,
			Skills:    assignDuelSkills(rng),
		}
	}
	return g
}

func (g *duelGame) Slots() int { return 2 }

func (g *duelGame) Describe() []string {
	lines := []string{"--- Critter duel! ---"}
	for _, c := range g.fighters {
		names := make([]string, len(c.Skills))
		for i, s := range c.Skills {
			names[i] = s.Name
		}
		lines = append(lines, fmt.Sprintf("Critter %d %s — attack %d, health %d, skills: %s",
			c.Slot, c.Glyph, c.Attack, c.Health, strings.Join(names, ", ")))
	}
	return lines
}

// Tick runs one round: both fighters act in slot order, with an early exit
// as soon as either side is down.
func (g *duelGame) Tick(rng *rand.Rand, round int, backed func(slot int) bool) ([]string, bool) {
	lines := []string{fmt.Sprintf("--- Round %d ---", round)}
	a, b := g.fighters[0], g.fighters[1]

	lines = append(lines, g.act(a, b, rng)...)
	if b.Down() {
		return lines, true
	}
	lines = append(lines, g.act(b, a, rng)...)
	return lines, a.Down()
}

// act resolves one action of attacker against defender: pending attack buff
// first, then the 30% skill roll, then immunity, then the effect. The
// defender's one-tick reduction and shield expire here whether or not the
// incoming action exercised them.
func (g *duelGame) act(attacker, defender *Contestant, rng *rand.Rand) []string {
	var lines []string

	if buff := attacker.Mods.AttackBuffNext; buff > 0 {
		attacker.Attack = int(float64(attacker.Attack) * (1 + buff))
		attacker.Mods.AttackBuffNext = 0
		lines = append(lines, fmt.Sprintf("%s's attack rises by %d%%!", attacker.Glyph, int(buff*100)))
	}

	skill := duelLibrary[0]
	if rng.Intn(100) < duelSkillChance && len(attacker.Skills) > 0 {
		skill = attacker.Skills[rng.Intn(len(attacker.Skills))]
		lines = append(lines, fmt.Sprintf("%s uses %s!", attacker.Glyph, skill.Name))
	} else {
		lines = append(lines, fmt.Sprintf("%s attacks with %s!", attacker.Glyph, skill.Name))
	}

	if defender.Mods.ImmuneNext {
		defender.Mods.ImmuneNext = false
		defender.Mods.ReductionNext = 0
		defender.Mods.ShieldNext = 0
		lines = append(lines, fmt.Sprintf("%s shrugs the whole thing off!", defender.Glyph))
		lines = append(lines, g.healthLine())
		return lines
	}

	lines = append(lines, UseSkill(skill.Kind, attacker, defender, rng))
	defender.Mods.ReductionNext = 0
	defender.Mods.ShieldNext = 0
	lines = append(lines, g.healthLine())
	return lines
}

func (g *duelGame) healthLine() string {
	a, b := g.fighters[0], g.fighters[1]
	return fmt.Sprintf("%s health: %d | %s health: %d", a.Glyph, a.Health, b.Glyph, b.Health)
}

// Ranking returns the sole survivor as rank 1, or nothing on a draw.
func (g *duelGame) Ranking() []RankGroup {
	a, b := g.fighters[0], g.fighters[1]
	switch {
	case a.Down() && b.Down():
		return nil
	case b.Down():
		return []RankGroup{{Rank: 1, Slots: []int{a.Slot}}}
	case a.Down():
		return []RankGroup{{Rank: 1, Slots: []int{b.Slot}}}
	}
	// Watchdog cap hit with both alive: higher remaining health wins.
	switch {
	case a.Health > b.Health:
		return []RankGroup{{Rank: 1, Slots: []int{a.Slot}}}
	case b.Health > a.Health:
		return []RankGroup{{Rank: 1, Slots: []int{b.Slot}}}
	}
	return nil
}

// Summary announces the terminal state.
func (g *duelGame) Summary() []string {
	groups := g.Ranking()
	if len(groups) == 0 {
		return []string{"--- Duel over ---", "A draw! Nobody wins."}
	}
	winner := g.fighters[groups[0].Slots[0]-1]
	return []string{"--- Duel over ---", fmt.Sprintf("%s wins!", winner.Glyph)}
}

func (g *duelGame) GlyphFor(slot int) string {
	return g.fighters[slot-1].Glyph
}
