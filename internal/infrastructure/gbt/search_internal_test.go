package gbt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanStd(t *testing.T) {
	mean, std := meanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, mean, 1e-12)
	// population deviation, not the n-1 sample estimate
	assert.InDelta(t, 2.0, std, 1e-12)

	mean, std = meanStd([]float64{0.8})
	assert.InDelta(t, 0.8, mean, 1e-12)
	assert.InDelta(t, 0.0, std, 1e-12)

	mean, std = meanStd(nil)
	assert.Equal(t, 0.0, mean)
	assert.Equal(t, 0.0, std)
}
