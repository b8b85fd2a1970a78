package pipeline

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"catchup-rag-be/pkg/rag/result"
)

// citationMarkerRe matches [1] and grouped forms like [2, 3].
var citationMarkerRe = regexp.MustCompile(`\[(\d+(?:,\s*\d+)*)\]`)

// ExtractCitations collects the set of 1-based document indices cited in an
// answer. Markers pointing outside [1, docCount] are ignored.
func ExtractCitations(answer string, docCount int) map[int]bool {
	cited := make(map[int]bool)
	for _, match := range citationMarkerRe.FindAllStringSubmatch(answer, -1) {
		for _, part := range strings.Split(match[1], ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				continue
			}
			if n >= 1 && n <= docCount {
				cited[n] = true
			}
		}
	}
	return cited
}

// SelectSources builds the response sources for an answer. Cited documents
// always make the cut, ordered by their original context index. Uncited
// documents join in score-descending order while they clear the relevance
// threshold, until targetCount is reached; they are then re-slotted after
// the cited block in original-index order. If nothing was cited and nothing
// cleared the threshold, the top 3 by score serve as a fallback.
func SelectSources(docs result.List, cited map[int]bool, threshold float64, targetCount int) []result.ResponseSource {
	if len(docs) == 0 {
		return []result.ResponseSource{}
	}

	chosen := make(map[int]bool, targetCount)
	for idx := range cited {
		chosen[idx] = true
	}

	if len(chosen) < targetCount {
		uncited := make([]int, 0, len(docs))
		for i := range docs {
			if !chosen[i+1] {
				uncited = append(uncited, i+1)
			}
		}
		sort.SliceStable(uncited, func(a, b int) bool {
			return scoreOf(docs[uncited[a]-1]) > scoreOf(docs[uncited[b]-1])
		})
		for _, idx := range uncited {
			if len(chosen) >= targetCount {
				break
			}
			if scoreOf(docs[idx-1]) < threshold {
				break
			}
			chosen[idx] = true
		}
	}

	if len(chosen) == 0 {
		byScore := make([]int, 0, len(docs))
		for i := range docs {
			byScore = append(byScore, i+1)
		}
		sort.SliceStable(byScore, func(a, b int) bool {
			return scoreOf(docs[byScore[a]-1]) > scoreOf(docs[byScore[b]-1])
		})
		if len(byScore) > 3 {
			byScore = byScore[:3]
		}
		for _, idx := range byScore {
			chosen[idx] = true
		}
	}

	// Final ordering: cited first, then uncited, each block by original
	// context index. Score only decided which uncited documents qualify.
	var citedIdx, uncitedIdx []int
	for idx := range chosen {
		if cited[idx] {
			citedIdx = append(citedIdx, idx)
		} else {
			uncitedIdx = append(uncitedIdx, idx)
		}
	}
	sort.Ints(citedIdx)
	sort.Ints(uncitedIdx)

	sources := make([]result.ResponseSource, 0, len(chosen))
	for _, idx := range citedIdx {
		sources = append(sources, result.FromSearchResult(idx, docs[idx-1], true))
	}
	for _, idx := range uncitedIdx {
		sources = append(sources, result.FromSearchResult(idx, docs[idx-1], false))
	}
	return sources
}

func scoreOf(doc result.SearchResult) float64 {
	if s := doc.Score(); s != nil {
		return *s
	}
	return 0
}
