package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdate_EqualRatings(t *testing.T) {
	n1, n2 := Update(1500, 1500, true)
	assert.Equal(t, 1564, n1)
	assert.Equal(t, 1436, n2)

	n1, n2 = Update(1500, 1500, false)
	assert.Equal(t, 1436, n1)
	assert.Equal(t, 1564, n2)
}

func TestUpdate_UpsetSwingsHarder(t *testing.T) {
	// The lower-rated player beating the higher-rated one gains more than
	// the favourite would have.
	lowWins1, _ := Update(1200, 1800, true)
	favWins1, _ := Update(1800, 1200, true)

	gainUnderdog := lowWins1 - 1200
	gainFavourite := favWins1 - 1800
	assert.Greater(t, gainUnderdog, gainFavourite)
	assert.Greater(t, gainFavourite, 0)
}

func TestUpdate_ZeroSum(t *testing.T) {
	cases := []struct {
		r1, r2 int
		win    bool
	}{
		{1500, 1500, true},
		{1500, 1500, false},
		{800, 3500, true},
		{800, 3500, false},
		{1437, 2999, true},
		{2100, 900, false},
		{1501, 1499, true},
	}

	for _, tc := range cases {
		n1, n2 := Update(tc.r1, tc.r2, tc.win)
		before := tc.r1 + tc.r2
		after := n1 + n2
		diff := after - before
		if diff < 0 {
			diff = -diff
		}
		assert.LessOrEqual(t, diff, 1, "pool must be conserved for %+v", tc)
	}
}

func TestUpdate_WinnerNeverLoses(t *testing.T) {
	n1, _ := Update(3000, 800, true)
	assert.GreaterOrEqual(t, n1, 3000)

	_, n2 := Update(800, 3000, false)
	assert.GreaterOrEqual(t, n2, 3000)
}
