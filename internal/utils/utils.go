// Package utils holds the small display helpers shared by the contest
// engine and the chat front end.
package utils

import (
	"math/rand"
	"strings"
)

// glyphPool is the animal pool racers are drawn from.
var glyphPool = []string{
	"🐎", "🦄", "🐴", "🦓", "🐘", "🦒", "🐐", "🐖", "🐕",
	"🦜", "🐧", "🦚", "🦢", "🦩", "🦉", "🐦", "🦃", "🐓",
	"🐙", "🐬", "🐋", "🦈", "🦀", "🦞", "🦐", "🐠", "🐡",
	"🦋", "🐝", "🪲", "🐞", "🦗", "🕷", "🦂", "🐜",
	"🐊", "🐍", "🦎", "🐢", "🐸",
	"🐅", "🐆", "🦌", "🦏", "🦛", "🐪", "🐫", "🦘", "🦙",
	"🐇", "🦝", "🦨", "🦡", "🦫", "🦦", "🐿", "🦔",
	"🐑", "🐄", "🐂", "🦤",
	"🐉", "🐲",
	"🦥", "🦣", "🦭", "🦬",
}

// RandomGlyphs draws n distinct glyphs from the pool.
func RandomGlyphs(rng *rand.Rand, n int) []string {
	pool := make([]string, len(glyphPool))
	copy(pool, glyphPool)
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:n]
}

// RenderTrack draws one racer's lane, finish line on the left. A dead
// racer shows as a tombstone where it fell.
func RenderTrack(position, finishLine int, glyph string, dead bool) string {
	if position > finishLine {
		position = finishLine
	}
	if position < 0 {
		position = 0
	}
	if dead {
		glyph = "💀"
	}
	return strings.Repeat("_", finishLine-position) + glyph + strings.Repeat("_", position)
}
