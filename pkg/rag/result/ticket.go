package result

import (
	"fmt"
	"strings"

	"catchup-rag-be/pkg/searchengine"
)

// TicketSearchResult is an issue-tracker (Jira) ticket.
type TicketSearchResult struct {
	Base
	Key       string `json:"key"`
	Summary   string `json:"summary"`
	Project   string `json:"project"`
	IssueType string `json:"issue_type"`
	Status    string `json:"status,omitempty"`
	Assignee  string `json:"assignee,omitempty"`
	ParentKey string `json:"parent_key,omitempty"`
}

var _ SearchResult = &TicketSearchResult{}

func ticketFromHit(hit searchengine.Hit) *TicketSearchResult {
	return &TicketSearchResult{
		Base:      baseFromHit(hit, SourceTypeTicket),
		Key:       metaString(hit.Metadata, "key"),
		Summary:   metaString(hit.Metadata, "summary"),
		Project:   metaString(hit.Metadata, "project"),
		IssueType: metaString(hit.Metadata, "issue_type"),
		Status:    metaString(hit.Metadata, "status"),
		Assignee:  metaString(hit.Metadata, "assignee"),
		ParentKey: metaString(hit.Metadata, "parent_key"),
	}
}

func (t *TicketSearchResult) RenderContext(index int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%d] Ticket %s: %s\n", index, t.Key, t.Summary)
	fmt.Fprintf(&b, "Project: %s | Type: %s", t.Project, t.IssueType)
	if t.Status != "" {
		b.WriteString(" | Status: " + t.Status)
	}
	if t.Assignee != "" {
		b.WriteString(" | Assignee: " + t.Assignee)
	}
	b.WriteString("\n")
	if t.ParentKey != "" {
		b.WriteString("Parent: " + t.ParentKey + "\n")
	}
	b.WriteString(strings.TrimRight(t.Body, "\n"))

	return b.String()
}
