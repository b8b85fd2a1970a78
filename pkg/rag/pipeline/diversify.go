package pipeline

import (
	"catchup-rag-be/pkg/rag/result"
)

// diverseTopK selects up to totalK candidates while guaranteeing each
// active source-type up to minGuarantee slots, so one dominant type cannot
// crowd out thin-but-relevant signal from another.
//
// docs must already be sorted by relevance descending. The output is
// re-sorted by relevance, not left in diversity-pass order.
func diverseTopK(docs result.List, totalK, minGuarantee int) result.List {
	if len(docs) == 0 || totalK <= 0 {
		return result.List{}
	}
	if len(docs) <= totalK {
		out := make(result.List, len(docs))
		copy(out, docs)
		sortByScore(out)
		return out
	}

	groups := make(map[result.SourceType]result.List)
	var groupOrder []result.SourceType
	for _, doc := range docs {
		t := doc.Type()
		if _, seen := groups[t]; !seen {
			groupOrder = append(groupOrder, t)
		}
		groups[t] = append(groups[t], doc)
	}

	selected := make(result.List, 0, totalK)
	taken := make(map[string]bool, totalK)

	// Guarantee pass: reserve slots per active type in relevance order.
	for _, t := range groupOrder {
		reserved := 0
		for _, doc := range groups[t] {
			if len(selected) >= totalK || reserved >= minGuarantee {
				break
			}
			if taken[doc.ID()] {
				continue
			}
			selected = append(selected, doc)
			taken[doc.ID()] = true
			reserved++
		}
	}

	// Fill pass: remaining slots from the full relevance-sorted list.
	for _, doc := range docs {
		if len(selected) >= totalK {
			break
		}
		if taken[doc.ID()] {
			continue
		}
		selected = append(selected, doc)
		taken[doc.ID()] = true
	}

	sortByScore(selected)
	return selected
}
