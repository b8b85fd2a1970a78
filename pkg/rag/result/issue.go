package result

import (
	"fmt"
	"strings"

	"catchup-rag-be/pkg/searchengine"
)

// IssueSearchResult is a GitHub issue from an issue index.
type IssueSearchResult struct {
	Base
	Title       string   `json:"title"`
	IssueNumber int      `json:"issue_number"`
	State       string   `json:"state"`
	Author      string   `json:"author"`
	Labels      []string `json:"labels,omitempty"`
	CreatedAt   int64    `json:"created_at"`
}

var _ SearchResult = &IssueSearchResult{}

func issueFromHit(hit searchengine.Hit) *IssueSearchResult {
	return &IssueSearchResult{
		Base:        baseFromHit(hit, SourceTypeIssue),
		Title:       metaString(hit.Metadata, "title"),
		IssueNumber: metaInt(hit.Metadata, "issue_number"),
		State:       metaString(hit.Metadata, "state"),
		Author:      metaString(hit.Metadata, "author"),
		Labels:      metaStrings(hit.Metadata, "labels"),
		CreatedAt:   metaInt64(hit.Metadata, "created_at"),
	}
}

func (i *IssueSearchResult) RenderContext(index int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%d] Issue #%d: %s (%s)\n", index, i.IssueNumber, i.Title, i.State)
	fmt.Fprintf(&b, "Repository: %s | Author: %s\n", i.Source, i.Author)
	if len(i.Labels) > 0 {
		b.WriteString("Labels: " + strings.Join(i.Labels, ", ") + "\n")
	}
	b.WriteString(strings.TrimRight(i.Body, "\n"))

	return b.String()
}
