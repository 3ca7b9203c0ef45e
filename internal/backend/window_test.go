package backend_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yauhenio2025/modelcall/internal/backend"
)

func testLimits() backend.Limits {
	limits := backend.DefaultLimits()
	limits.StandardContextTokens = 200_000
	limits.ExtendedContextTokens = 1_000_000
	limits.SafetyMarginTokens = 2_000
	limits.MinOutputTokens = 1_024
	limits.CharsPerToken = 4.0
	return limits
}

func TestPlanWindow(t *testing.T) {
	limits := testLimits()

	tests := []struct {
		name         string
		inputTokens  int
		requestedMax int
		wantExtended bool
		expected     backend.WindowPlan
	}{
		{
			name:         "small request stays in standard mode untouched",
			inputTokens:  1_000,
			requestedMax: 8_000,
			expected:     backend.WindowPlan{Extended: false, MaxTokens: 8_000},
		},
		{
			name:         "request at the ceiling boundary stays in standard mode",
			inputTokens:  190_000,
			requestedMax: 8_000,
			expected:     backend.WindowPlan{Extended: false, MaxTokens: 8_000},
		},
		{
			name:         "output budget shrinks to exact headroom when it clears the floor",
			inputTokens:  195_000,
			requestedMax: 8_000,
			expected:     backend.WindowPlan{Extended: false, MaxTokens: 3_000},
		},
		{
			name:         "escalates to extended mode when headroom is below the floor",
			inputTokens:  199_500,
			requestedMax: 8_000,
			expected:     backend.WindowPlan{Extended: true, MaxTokens: 8_000},
		},
		{
			name:         "negative headroom escalates with the original budget",
			inputTokens:  500_000,
			requestedMax: 16_000,
			expected:     backend.WindowPlan{Extended: true, MaxTokens: 16_000},
		},
		{
			name:         "caller-requested extended mode is honored as-is",
			inputTokens:  100,
			requestedMax: 4_000,
			wantExtended: true,
			expected:     backend.WindowPlan{Extended: true, MaxTokens: 4_000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := limits.PlanWindow(tt.inputTokens, tt.requestedMax, tt.wantExtended)
			require.Equal(t, tt.expected, plan)
		})
	}
}

func TestPlanWindow_HugePromptScenario(t *testing.T) {
	// ~4M characters of input estimate to ~1M tokens; headroom in
	// standard mode is far below the floor, so the call must escalate
	// with the requested budget unchanged.
	limits := testLimits()

	input := limits.EstimateTokens(strings.Repeat("a", 4_000_000))
	require.Equal(t, 1_000_000, input)

	plan := limits.PlanWindow(input, 8_000, false)
	require.True(t, plan.Extended)
	require.Equal(t, 8_000, plan.MaxTokens)
}
