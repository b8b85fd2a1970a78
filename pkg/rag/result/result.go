package result

import (
	"encoding/json"
	"fmt"

	"catchup-rag-be/pkg/searchengine"
)

// SourceType discriminates the search result variants. The numeric values
// match the sourceType tag stored in the search indices.
type SourceType int

const (
	SourceTypeCode SourceType = iota
	SourceTypePullRequest
	SourceTypeIssue
	SourceTypeTicket
)

func (s SourceType) String() string {
	switch s {
	case SourceTypeCode:
		return "code"
	case SourceTypePullRequest:
		return "pull_request"
	case SourceTypeIssue:
		return "issue"
	case SourceTypeTicket:
		return "ticket"
	default:
		return "unknown"
	}
}

// SearchResult is the closed set of typed retrieval hits flowing through
// the pipeline. Scores are attached in place by the reranker; RenderContext
// is the one piece of formatting each variant implements distinctly.
type SearchResult interface {
	ID() string
	Type() SourceType
	Repo() string
	URL() string
	Text() string
	Score() *float64
	SetScore(score float64)

	// RenderContext produces the citation-numbered context block shown to
	// the generation model. index is 1-based.
	RenderContext(index int) string
}

// Base carries the fields every variant shares.
type Base struct {
	Id             string     `json:"id"`
	SourceType     SourceType `json:"source_type"`
	Source         string     `json:"source"`
	HTMLURL        string     `json:"html_url"`
	Body           string     `json:"text"`
	RelevanceScore *float64   `json:"relevance_score,omitempty"`
}

func (b *Base) ID() string            { return b.Id }
func (b *Base) Type() SourceType      { return b.SourceType }
func (b *Base) Repo() string          { return b.Source }
func (b *Base) URL() string           { return b.HTMLURL }
func (b *Base) Text() string          { return b.Body }
func (b *Base) Score() *float64       { return b.RelevanceScore }
func (b *Base) SetScore(score float64) {
	b.RelevanceScore = &score
}

func baseFromHit(hit searchengine.Hit, sourceType SourceType) Base {
	return Base{
		Id:         metaString(hit.Metadata, "id"),
		SourceType: sourceType,
		Source:     metaString(hit.Metadata, "source"),
		HTMLURL:    metaString(hit.Metadata, "html_url"),
		Body:       hit.Text,
	}
}

// FromHit classifies a raw hit by its embedded sourceType tag and builds
// the matching variant. Hits without a recognizable tag are a parse error;
// the retriever drops them individually.
func FromHit(hit searchengine.Hit) (SearchResult, error) {
	tag, ok := sourceTypeOf(hit.Metadata)
	if !ok {
		return nil, fmt.Errorf("hit %q: missing or invalid sourceType tag", metaString(hit.Metadata, "id"))
	}

	switch tag {
	case SourceTypeCode:
		return codeFromHit(hit), nil
	case SourceTypePullRequest:
		return pullRequestFromHit(hit), nil
	case SourceTypeIssue:
		return issueFromHit(hit), nil
	case SourceTypeTicket:
		return ticketFromHit(hit), nil
	default:
		return nil, fmt.Errorf("hit %q: unknown sourceType %d", metaString(hit.Metadata, "id"), int(tag))
	}
}

func sourceTypeOf(metadata map[string]any) (SourceType, bool) {
	raw, ok := metadata["sourceType"]
	if !ok {
		raw, ok = metadata["source_type"]
	}
	if !ok {
		return 0, false
	}

	switch v := raw.(type) {
	case float64:
		return SourceType(int(v)), true
	case int:
		return SourceType(v), true
	case string:
		switch v {
		case "code":
			return SourceTypeCode, true
		case "pull_request":
			return SourceTypePullRequest, true
		case "issue":
			return SourceTypeIssue, true
		case "ticket":
			return SourceTypeTicket, true
		}
	}
	return 0, false
}

// List is a JSON round-trippable slice of SearchResult. Checkpointed
// session state serializes retrieved docs through this type; decoding
// re-dispatches each element on its source_type tag.
type List []SearchResult

func (l *List) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}

	out := make(List, 0, len(raws))
	for _, raw := range raws {
		var probe struct {
			SourceType SourceType `json:"source_type"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			return err
		}

		var (
			item SearchResult
			err  error
		)
		switch probe.SourceType {
		case SourceTypeCode:
			v := &CodeSearchResult{}
			err = json.Unmarshal(raw, v)
			item = v
		case SourceTypePullRequest:
			v := &PullRequestSearchResult{}
			err = json.Unmarshal(raw, v)
			item = v
		case SourceTypeIssue:
			v := &IssueSearchResult{}
			err = json.Unmarshal(raw, v)
			item = v
		case SourceTypeTicket:
			v := &TicketSearchResult{}
			err = json.Unmarshal(raw, v)
			item = v
		default:
			return fmt.Errorf("decode result list: unknown source_type %d", int(probe.SourceType))
		}
		if err != nil {
			return err
		}
		out = append(out, item)
	}

	*l = out
	return nil
}

// --- metadata accessors ---

func metaString(metadata map[string]any, key string) string {
	if v, ok := metadata[key].(string); ok {
		return v
	}
	return ""
}

func metaInt(metadata map[string]any, key string) int {
	switch v := metadata[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func metaInt64(metadata map[string]any, key string) int64 {
	switch v := metadata[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

func metaInt64Ptr(metadata map[string]any, key string) *int64 {
	if _, ok := metadata[key]; !ok {
		return nil
	}
	if metadata[key] == nil {
		return nil
	}
	v := metaInt64(metadata, key)
	return &v
}

func metaStrings(metadata map[string]any, key string) []string {
	raw, ok := metadata[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
