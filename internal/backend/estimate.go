package backend

import "math"

const fallbackCharsPerToken = 4.0

// EstimateTokens approximates the token count of the given texts from
// their combined character count. The estimate intentionally errs on
// the simple side: window planning only needs the right order of
// magnitude, and providers report authoritative usage afterwards.
func (l Limits) EstimateTokens(texts ...string) int {
	chars := 0
	for _, t := range texts {
		chars += len(t)
	}

	if chars == 0 {
		return 0
	}

	ratio := l.CharsPerToken
	if ratio <= 0 {
		ratio = fallbackCharsPerToken
	}

	return int(math.Ceil(float64(chars) / ratio))
}
