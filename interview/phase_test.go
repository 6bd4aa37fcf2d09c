package interview

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStageBoundaries(t *testing.T) {
	cases := map[int]int{
		0:   1,
		3:   1,
		4:   2,
		10:  2,
		11:  3,
		16:  3,
		17:  4,
		21:  4,
		22:  5,
		100: 5,
	}
	for count, want := range cases {
		assert.Equal(t, want, DeriveStage(count), "exchangeCount=%d", count)
	}
}

func TestDeriveStageIsMonotoneAndBounded(t *testing.T) {
	prev := DeriveStage(0)
	for count := 1; count <= 200; count++ {
		stage := DeriveStage(count)
		assert.GreaterOrEqual(t, stage, prev, "stage regressed at count %d", count)
		assert.GreaterOrEqual(t, stage, 1)
		assert.LessOrEqual(t, stage, TotalStages)
		prev = stage
	}
}

func TestStageLabels(t *testing.T) {
	assert.Equal(t, "Warm Up", StageLabel(1))
	assert.Equal(t, "Wishes", StageLabel(TotalStages))
	assert.Equal(t, "", StageLabel(0))
}
