package arena

import (
	"fmt"
	"math/rand"
)

// SkillKind enumerates every duel skill. Effects are dispatched through
// UseSkill rather than stored callbacks so the set stays closed and
// exhaustively testable.
type SkillKind int

const (
	SkillHeadbutt SkillKind = iota + 1 // default action
	SkillFlyingKick
	SkillSkySplitter
	SkillTuckAndRoll
	SkillPeachFeast
	SkillWarlordsMight
	SkillBedrockGuard
	SkillSoulSiphon
	SkillPhantomStep
	SkillDivineWrath
	SkillIronShell
)

// Skill is an immutable library entry.
type Skill struct {
	ID     int
	Name   string
	Effect string
	Kind   SkillKind
}

var duelLibrary = []Skill{
	{1, "Headbutt", "deals attack x100% ±5 damage", SkillHeadbutt},
	{2, "Flying Kick", "deals attack x150% ±5 damage", SkillFlyingKick},
	{3, "Sky Splitter", "deals own health x30% ±5 damage", SkillSkySplitter},
	{4, "Tuck and Roll", "immune to the next incoming action", SkillTuckAndRoll},
	{5, "Peach Feast", "restores health x25% ±8, up to max", SkillPeachFeast},
	{6, "Warlord's Might", "attack +10%", SkillWarlordsMight},
	{7, "Bedrock Guard", "next incoming damage -50%, next attack +5%", SkillBedrockGuard},
	{8, "Soul Siphon", "deals attack x100% ±5 damage, heals attack x50%", SkillSoulSiphon},
	{9, "Phantom Step", "evasion +8%", SkillPhantomStep},
	{10, "Divine Wrath", "the opponent dies on the spot", SkillDivineWrath},
	{11, "Iron Shell", "blocks 30 damage from the next incoming hit", SkillIronShell},
}

// DuelLibrary returns the full duel skill library, default attack included.
func DuelLibrary() []Skill {
	out := make([]Skill, len(duelLibrary))
	copy(out, duelLibrary)
	return out
}

// assignDuelSkills samples two distinct skills without replacement,
// excluding the default attack.
func assignDuelSkills(rng *rand.Rand) []Skill {
	pool := make([]Skill, 0, len(duelLibrary)-1)
	for _, s := range duelLibrary {
		if s.Kind != SkillHeadbutt {
			pool = append(pool, s)
		}
	}
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return []Skill{pool[0], pool[1]}
}

// jitter returns a uniform draw in [-k, k].
func jitter(rng *rand.Rand, k int) int {
	return rng.Intn(2*k+1) - k
}

// hitOutcome is the result of running the incoming-damage pipeline.
type hitOutcome struct {
	Dealt    int
	Evaded   bool
	Reduced  int
	Absorbed int
}

// resolveHit applies base damage to the defender through the fixed pipeline:
// evasion roll first (a success deals nothing and skips everything else),
// then percentage reduction, then shield absorb, then the zero floor on
// health. ReductionNext and ShieldNext are read here but cleared by the
// turn code, exercised or not.
func resolveHit(defender *Contestant, base int, rng *rand.Rand) hitOutcome {
	if base < 0 {
		base = 0
	}
	if defender.Mods.Evasion > 0 && rng.Float64() < defender.Mods.Evasion {
		return hitOutcome{Evaded: true}
	}
	out := hitOutcome{}
	damage := base
	if defender.Mods.ReductionNext > 0 {
		cut := int(float64(damage) * defender.Mods.ReductionNext)
		damage -= cut
		out.Reduced = cut
	}
	if defender.Mods.ShieldNext > 0 {
		absorb := min(defender.Mods.ShieldNext, damage)
		damage -= absorb
		out.Absorbed = absorb
	}
	if damage > defender.Health {
		damage = defender.Health
	}
	defender.Health -= damage
	out.Dealt = damage
	return out
}

// hitText formats the pipeline outcome. Evaded hits report the dodge only;
// reduction and shield lines appear only when they actually bit.
func hitText(attacker, defender *Contestant, out hitOutcome) string {
	if out.Evaded {
		return fmt.Sprintf("%s slips aside — no damage!", defender.Glyph)
	}
	text := fmt.Sprintf("%s takes %d damage from %s!", defender.Glyph, out.Dealt, attacker.Glyph)
	if out.Reduced > 0 {
		text += fmt.Sprintf(" (Bedrock Guard soaked %d)", out.Reduced)
	}
	if out.Absorbed > 0 {
		text += fmt.Sprintf(" (shell blocked %d)", out.Absorbed)
	}
	return text
}

// UseSkill applies one skill of the actor against the defender using the
// session's random stream and returns the broadcast line. Mutating the two
// contestants is the only side effect.
func UseSkill(kind SkillKind, actor, defender *Contestant, rng *rand.Rand) string {
	switch kind {
	case SkillHeadbutt:
		out := resolveHit(defender, actor.Attack+jitter(rng, 5), rng)
		return hitText(actor, defender, out)
	case SkillFlyingKick:
		out := resolveHit(defender, int(float64(actor.Attack)*1.5)+jitter(rng, 5), rng)
		return fmt.Sprintf("%s launches a Flying Kick! %s", actor.Glyph, hitText(actor, defender, out))
	case SkillSkySplitter:
		out := resolveHit(defender, int(float64(actor.Health)*0.3)+jitter(rng, 5), rng)
		return fmt.Sprintf("%s tears the sky open! %s", actor.Glyph, hitText(actor, defender, out))
	case SkillTuckAndRoll:
		actor.Mods.ImmuneNext = true
		return fmt.Sprintf("%s tucks and rolls — the next hit will bounce off!", actor.Glyph)
	case SkillPeachFeast:
		healed := actor.Heal(int(float64(actor.Health)*0.25) + jitter(rng, 8))
		return fmt.Sprintf("%s feasts on a peach and restores %d health!", actor.Glyph, healed)
	case SkillWarlordsMight:
		actor.Attack = int(float64(actor.Attack) * 1.1)
		return fmt.Sprintf("%s swells with a warlord's might — attack up!", actor.Glyph)
	case SkillBedrockGuard:
		actor.Mods.ReductionNext = 0.5
		actor.Mods.AttackBuffNext = 0.05
		return fmt.Sprintf("%s hunkers behind bedrock — next hit halved, next strike sharpened!", actor.Glyph)
	case SkillSoulSiphon:
		out := resolveHit(defender, actor.Attack+jitter(rng, 5), rng)
		if out.Evaded {
			return fmt.Sprintf("%s reaches for a soul to siphon... %s", actor.Glyph, hitText(actor, defender, out))
		}
		healed := actor.Heal(int(float64(actor.Attack) * 0.5))
		return fmt.Sprintf("%s siphons a soul! %s %s drinks back %d health!",
			actor.Glyph, hitText(actor, defender, out), actor.Glyph, healed)
	case SkillPhantomStep:
		actor.Mods.Evasion += 0.08
		return fmt.Sprintf("%s fades into a phantom step — harder to hit!", actor.Glyph)
	case SkillDivineWrath:
		defender.Health = 0
		return fmt.Sprintf("%s calls down Divine Wrath! %s is struck dead!", actor.Glyph, defender.Glyph)
	case SkillIronShell:
		actor.Mods.ShieldNext = 30
		return fmt.Sprintf("%s hardens into an iron shell — 30 damage will be blocked!", actor.Glyph)
	}
	return fmt.Sprintf("%s hesitates and does nothing.", actor.Glyph)
}
