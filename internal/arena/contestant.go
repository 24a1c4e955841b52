package arena

// Modifiers is the bag of transient combat/race effects on a contestant.
// Each field has an explicit expiry point enforced by the tick code:
// one incoming action (ImmuneNext, ReductionNext, ShieldNext), one move
// (Stunned), a tick countdown (SwampTicks) or permanent (Evasion).
type Modifiers struct {
	ImmuneNext     bool    // suppresses the next incoming action entirely
	ReductionNext  float64 // percentage cut on the next incoming damage
	AttackBuffNext float64 // percentage attack raise applied on the next own action
	ShieldNext     int     // flat absorb against the next incoming damage
	Evasion        float64 // persistent dodge probability, additive
	Stunned        bool    // skip the next move
	SwampTicks     int     // speed penalty for N more moves
}

// Contestant is a mutable in-contest actor. Duel contestants use the
// attack/health stats, racers use position/speed; both share the slot,
// glyph, skill set and modifier bag.
type Contestant struct {
	Slot  int
	Glyph string

	Attack    int
	Health    int
	MaxHealth int

	Position int
	Speed    int
	Dead     bool

	Skills []Skill
	Mods   Modifiers
}

// Heal restores health capped at MaxHealth and returns the amount actually
// restored. Negative amounts are ignored.
func (c *Contestant) Heal(amount int) int {
	if amount <= 0 {
		return 0
	}
	healed := amount
	if c.Health+healed > c.MaxHealth {
		healed = c.MaxHealth - c.Health
	}
	c.Health += healed
	return healed
}

// Down reports whether a duel contestant is out of the fight.
func (c *Contestant) Down() bool {
	return c.Health <= 0
}

// Running reports whether a racer can still act and move.
func (c *Contestant) Running() bool {
	return !c.Dead
}

// Finished reports whether a racer has crossed the finish line.
func (c *Contestant) Finished(finishLine int) bool {
	return c.Position >= finishLine
}

// MoveOnce advances a racer by its effective speed. A stunned racer stays
// put and sheds the stun; a swamped racer runs one slower (never below 1).
// Position is clamped to the finish line.
func (c *Contestant) MoveOnce(finishLine int) {
	if c.Dead {
		return
	}
	if c.Mods.Stunned {
		c.Mods.Stunned = false
		return
	}
	speed := c.Speed
	if c.Mods.SwampTicks > 0 {
		speed = max(speed-1, 1)
		c.Mods.SwampTicks--
	}
	c.Position += speed
	if c.Position > finishLine {
		c.Position = finishLine
	}
}

// Knockback pushes a racer toward the start, never past it.
func (c *Contestant) Knockback(steps int) {
	c.Position -= steps
	if c.Position < 0 {
		c.Position = 0
	}
}
