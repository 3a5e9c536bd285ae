package analysis_test

import (
	"civicwatch/backend/internal/analysis"
	"civicwatch/backend/internal/config"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetWeight(t *testing.T) {
	assert.Equal(t, 50, analysis.GetWeight("spam"))
	assert.Equal(t, 100, analysis.GetWeight("abusive"))
	assert.Equal(t, 0, analysis.GetWeight("boring"))
}

func TestIsKnownReason(t *testing.T) {
	for reason := range config.ReportWeights {
		assert.True(t, analysis.IsKnownReason(reason), reason)
	}
	assert.False(t, analysis.IsKnownReason(""))
}
