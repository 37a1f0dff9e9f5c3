package retrieval

import "github.com/netlab-tutor/tutor-core/src/index"

type classQuota struct {
	Class index.DocClass
	Take  int
}

// errorContextQuotas and defaultQuotas are §4.3's troubleshooting
// prioritization rules.
var (
	errorContextQuotas = []classQuota{
		{index.DocClassErrorPatterns, 2},
		{index.DocClassCommandReference, 2},
		{index.DocClassLabSpecific, 1},
	}
	defaultQuotas = []classQuota{
		{index.DocClassCommandReference, 3},
		{index.DocClassLabSpecific, 2},
	}
)

const resultCap = 5

// bucketFill takes up to Take of each class, in the candidate list's
// existing (score-descending) order, then tops up from any remaining
// candidate of any class until cap is reached — "filling from any class if
// a bucket is short" (§4.3).
func bucketFill(candidates []index.Candidate, quotas []classQuota, cap int) []index.Candidate {
	taken := make(map[string]bool, len(candidates))
	var result []index.Candidate

	for _, q := range quotas {
		count := 0
		for _, c := range candidates {
			if count >= q.Take {
				break
			}
			if c.Chunk.DocClass != q.Class || taken[c.Chunk.ChunkID] {
				continue
			}
			result = append(result, c)
			taken[c.Chunk.ChunkID] = true
			count++
		}
	}

	if len(result) >= cap {
		return result[:cap]
	}
	for _, c := range candidates {
		if len(result) >= cap {
			break
		}
		if taken[c.Chunk.ChunkID] {
			continue
		}
		result = append(result, c)
		taken[c.Chunk.ChunkID] = true
	}
	return result
}

func prioritize(candidates []index.Candidate, errorContext bool) []index.Candidate {
	if errorContext {
		return bucketFill(candidates, errorContextQuotas, resultCap)
	}
	return bucketFill(candidates, defaultQuotas, resultCap)
}
