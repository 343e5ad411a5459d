package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierBasisPoints(t *testing.T) {
	var b BusinessConfig

	// empty config falls back to the defaults
	assert.Equal(t, DefaultTierBasisPoints, b.TierBasisPoints())

	b.ReferralTierBasisPoints = []int64{500, 200}
	assert.Equal(t, []int64{500, 200}, b.TierBasisPoints())

	// an oversized table cannot deepen the cascade walk
	b.ReferralTierBasisPoints = []int64{700, 300, 100, 50, 25}
	assert.Equal(t, []int64{700, 300, 100}, b.TierBasisPoints())
}
