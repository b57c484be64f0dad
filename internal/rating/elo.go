// Package rating implements the pairwise ELO update used after a duel.
package rating

import "math"

// K is deliberately large for a small closed community: 16 or 32 is typical
// for master-level chess, but every duelist here is of course a legendary
// grandmaster, so swings are steep.
const K = 128.0

// Default is the rating a user starts with.
const Default = 1500

// Update computes the post-duel ratings. firstWins selects the winner.
// The two deltas are nudged by half the floating-point residual before
// rounding so the total rating pool is conserved across all users.
func Update(r1, r2 int, firstWins bool) (int, int) {
	fr1, fr2 := float64(r1), float64(r2)

	e1 := 1.0 / (1.0 + math.Pow(10, (fr2-fr1)/400.0))
	e2 := 1.0 / (1.0 + math.Pow(10, (fr1-fr2)/400.0))

	s1, s2 := 0.0, 1.0
	if firstWins {
		s1, s2 = 1.0, 0.0
	}

	n1 := fr1 + K*(s1-e1)
	n2 := fr2 + K*(s2-e2)

	residual := (fr1 + fr2) - (n1 + n2)
	n1 += residual / 2
	n2 += residual / 2

	return int(math.Round(n1)), int(math.Round(n2))
}
