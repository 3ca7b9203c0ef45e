package backend

// WindowPlan is the outcome of context-window planning for one call
// attempt: which addressing mode to use and the effective output
// budget. The prompt itself is never truncated; only the output budget
// is adjusted.
type WindowPlan struct {
	Extended  bool
	MaxTokens int
}

// PlanWindow decides between the standard and extended addressing
// modes. Standard is preferred whenever estimated input plus the
// desired output fits under its ceiling with the safety margin. When
// it does not fit, the output budget is shrunk to the remaining
// headroom, provided that headroom still clears the minimum useful
// output floor; otherwise the call escalates to extended mode with the
// originally requested budget intact.
func (l Limits) PlanWindow(inputTokens, requestedMax int, wantExtended bool) WindowPlan {
	if wantExtended {
		return WindowPlan{Extended: true, MaxTokens: requestedMax}
	}

	if inputTokens+requestedMax+l.SafetyMarginTokens <= l.StandardContextTokens {
		return WindowPlan{Extended: false, MaxTokens: requestedMax}
	}

	headroom := l.StandardContextTokens - inputTokens - l.SafetyMarginTokens
	if headroom >= l.MinOutputTokens {
		return WindowPlan{Extended: false, MaxTokens: headroom}
	}

	return WindowPlan{Extended: true, MaxTokens: requestedMax}
}
