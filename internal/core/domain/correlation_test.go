package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThresholds_Label(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		strength float64
		want     MappingLabel
	}{
		{1.0, LabelEquivalent},
		{0.8, LabelEquivalent},
		{0.79, LabelRelated},
		{0.5, LabelRelated},
		{0.2, LabelComplementary},
		{0.19, LabelNone},
		{0, LabelNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, th.Label(tt.strength), "strength %v", tt.strength)
	}
}
