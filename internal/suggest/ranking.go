package suggest

import "sort"

// RankSuggestions sorts suggestions by Confidence in descending order.
// The sort is stable: suggestions with equal confidence keep the order in
// which their strategies were declared.
func RankSuggestions(suggestions []Suggestion) []Suggestion {
	sorted := make([]Suggestion, len(suggestions))
	copy(sorted, suggestions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})
	return sorted
}
