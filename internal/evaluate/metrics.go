// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluate

import "strings"

// rankingMetrics computes recall@k, precision@k, and the reciprocal rank of
// the first relevant hit for one retrieval. retrieved is the ranked paper id
// list (may contain repeats across chunks; intersection is over unique
// papers); relevant is the ground-truth set.
func rankingMetrics(retrieved []string, relevant map[string]bool, k int) (recall, precision, rr float64) {
	if len(relevant) == 0 || k <= 0 {
		return 0, 0, 0
	}

	hits := make(map[string]bool)
	for rank, paperID := range retrieved {
		if relevant[paperID] {
			if rr == 0 {
				rr = 1 / float64(rank+1)
			}
			hits[paperID] = true
		}
	}

	recall = float64(len(hits)) / float64(len(relevant))
	precision = float64(len(hits)) / float64(k)
	return recall, precision, rr
}

// conceptCoverage returns the fraction of expected concepts present in the
// answer, matched case-insensitively.
func conceptCoverage(answer string, concepts []string) float64 {
	if len(concepts) == 0 {
		return 0
	}
	lower := strings.ToLower(answer)
	var found int
	for _, concept := range concepts {
		if strings.Contains(lower, strings.ToLower(concept)) {
			found++
		}
	}
	return float64(found) / float64(len(concepts))
}

// wordCount returns the answer length in whitespace-separated words.
func wordCount(answer string) int {
	return len(strings.Fields(answer))
}
