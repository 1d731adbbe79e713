package telemetry

import (
	"strings"
	"testing"
)

func TestSamplerFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		rate float64
		want string
	}{
		{1, "AlwaysOnSampler"},
		{2, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.25, "ParentBased"},
	}
	for _, tt := range tests {
		if got := samplerFor(tt.rate).Description(); !strings.HasPrefix(got, tt.want) {
			t.Errorf("samplerFor(%v) = %q, want prefix %q", tt.rate, got, tt.want)
		}
	}
}
