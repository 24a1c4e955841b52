package arena

import (
	"math/rand"
	"strings"
	"testing"
)

func testRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func TestJitterRange(t *testing.T) {
	rng := testRNG(1)
	for i := 0; i < 1000; i++ {
		if j := jitter(rng, 5); j < -5 || j > 5 {
			t.Fatalf("jitter out of range: %d", j)
		}
	}
}

func TestAssignDuelSkills(t *testing.T) {
	rng := testRNG(2)
	for i := 0; i < 100; i++ {
		skills := assignDuelSkills(rng)
		if len(skills) != 2 {
			t.Fatalf("want 2 skills, got %d", len(skills))
		}
		if skills[0].Kind == skills[1].Kind {
			t.Fatalf("duplicate skill assigned: %v", skills[0].Kind)
		}
		for _, s := range skills {
			if s.Kind == SkillHeadbutt {
				t.Fatal("default attack must not be assignable")
			}
		}
	}
}

func TestResolveHitPipelineOrder(t *testing.T) {
	d := &Contestant{Health: 100, MaxHealth: 100}
	d.Mods.ReductionNext = 0.5
	d.Mods.ShieldNext = 30

	out := resolveHit(d, 100, testRNG(3))
	if out.Evaded {
		t.Fatal("no evasion configured, hit must land")
	}
	if out.Reduced != 50 {
		t.Fatalf("reduction cut %d, want 50", out.Reduced)
	}
	if out.Absorbed != 30 {
		t.Fatalf("shield absorbed %d, want 30", out.Absorbed)
	}
	if out.Dealt != 20 || d.Health != 80 {
		t.Fatalf("dealt %d, health %d; want 20 and 80", out.Dealt, d.Health)
	}
}

func TestResolveHitEvasionSkipsEverything(t *testing.T) {
	d := &Contestant{Health: 100, MaxHealth: 100}
	d.Mods.Evasion = 1.0
	d.Mods.ReductionNext = 0.5

	out := resolveHit(d, 80, testRNG(4))
	if !out.Evaded {
		t.Fatal("evasion 1.0 must dodge")
	}
	if d.Health != 100 {
		t.Fatalf("evaded hit changed health to %d", d.Health)
	}
	text := hitText(&Contestant{Glyph: "A"}, d, out)
	if strings.Contains(text, "soaked") || strings.Contains(text, "blocked") {
		t.Fatalf("evaded hit must not report reduction or shield: %q", text)
	}
}

func TestResolveHitClampsToZero(t *testing.T) {
	d := &Contestant{Health: 10, MaxHealth: 100}
	out := resolveHit(d, 1000, testRNG(5))
	if out.Dealt != 10 || d.Health != 0 {
		t.Fatalf("dealt %d, health %d; want 10 and 0", out.Dealt, d.Health)
	}
}

func TestHealCappedAtMax(t *testing.T) {
	c := &Contestant{Health: 90, MaxHealth: 100}
	if healed := c.Heal(50); healed != 10 || c.Health != 100 {
		t.Fatalf("healed %d to %d, want 10 to 100", healed, c.Health)
	}
	if healed := c.Heal(-5); healed != 0 || c.Health != 100 {
		t.Fatalf("negative heal changed state: %d, %d", healed, c.Health)
	}
}

func TestUseSkillTuckAndRoll(t *testing.T) {
	a := &Contestant{Glyph: "A"}
	UseSkill(SkillTuckAndRoll, a, &Contestant{}, testRNG(6))
	if !a.Mods.ImmuneNext {
		t.Fatal("tuck and roll must set immunity")
	}
}

func TestUseSkillWarlordsMight(t *testing.T) {
	a := &Contestant{Glyph: "A", Attack: 100}
	UseSkill(SkillWarlordsMight, a, &Contestant{}, testRNG(7))
	if a.Attack != 110 {
		t.Fatalf("attack %d, want 110", a.Attack)
	}
}

func TestUseSkillBedrockGuard(t *testing.T) {
	a := &Contestant{Glyph: "A", Attack: 100}
	UseSkill(SkillBedrockGuard, a, &Contestant{}, testRNG(8))
	if a.Mods.ReductionNext != 0.5 {
		t.Fatalf("reduction %v, want 0.5", a.Mods.ReductionNext)
	}
	if a.Mods.AttackBuffNext != 0.05 {
		t.Fatalf("attack buff %v, want 0.05", a.Mods.AttackBuffNext)
	}
	if a.Attack != 100 {
		t.Fatalf("attack changed immediately to %d, buff must wait for the next action", a.Attack)
	}
}

func TestUseSkillPhantomStepStacks(t *testing.T) {
	a := &Contestant{Glyph: "A"}
	UseSkill(SkillPhantomStep, a, &Contestant{}, testRNG(9))
	UseSkill(SkillPhantomStep, a, &Contestant{}, testRNG(9))
	if a.Mods.Evasion < 0.159 || a.Mods.Evasion > 0.161 {
		t.Fatalf("evasion %v, want 0.16", a.Mods.Evasion)
	}
}

func TestUseSkillDivineWrath(t *testing.T) {
	d := &Contestant{Glyph: "D", Health: 400, MaxHealth: 400}
	UseSkill(SkillDivineWrath, &Contestant{Glyph: "A"}, d, testRNG(10))
	if !d.Down() {
		t.Fatalf("divine wrath left defender at %d health", d.Health)
	}
}

func TestUseSkillIronShell(t *testing.T) {
	a := &Contestant{Glyph: "A"}
	UseSkill(SkillIronShell, a, &Contestant{}, testRNG(11))
	if a.Mods.ShieldNext != 30 {
		t.Fatalf("shield %d, want 30", a.Mods.ShieldNext)
	}
}

func TestUseSkillSoulSiphonHeals(t *testing.T) {
	a := &Contestant{Glyph: "A", Attack: 40, Health: 100, MaxHealth: 300}
	d := &Contestant{Glyph: "D", Health: 300, MaxHealth: 300}
	UseSkill(SkillSoulSiphon, a, d, testRNG(12))
	if a.Health != 120 {
		t.Fatalf("siphon healed to %d, want 120", a.Health)
	}
	if d.Health >= 300 {
		t.Fatalf("siphon dealt no damage, defender at %d", d.Health)
	}
}

func TestUseSkillSoulSiphonNoHealOnDodge(t *testing.T) {
	a := &Contestant{Glyph: "A", Attack: 40, Health: 100, MaxHealth: 300}
	d := &Contestant{Glyph: "D", Health: 300, MaxHealth: 300}
	d.Mods.Evasion = 1.0
	UseSkill(SkillSoulSiphon, a, d, testRNG(13))
	if a.Health != 100 {
		t.Fatalf("siphon healed to %d on a dodged hit", a.Health)
	}
	if d.Health != 300 {
		t.Fatalf("dodged siphon dealt damage, defender at %d", d.Health)
	}
}

func TestUseSkillPeachFeastCapped(t *testing.T) {
	a := &Contestant{Glyph: "A", Health: 390, MaxHealth: 400}
	UseSkill(SkillPeachFeast, a, &Contestant{}, testRNG(14))
	if a.Health > a.MaxHealth {
		t.Fatalf("peach feast overhealed to %d/%d", a.Health, a.MaxHealth)
	}
}
