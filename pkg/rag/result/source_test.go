package result

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestFromSearchResultProjections(t *testing.T) {
	score := 0.77

	t.Run("code", func(t *testing.T) {
		doc := &CodeSearchResult{
			Base:     Base{Id: "c1", SourceType: SourceTypeCode, Source: "acme/backend", HTMLURL: "https://x/c1", Body: "body", RelevanceScore: &score},
			FilePath: "auth/login.go",
			Language: "Go",
			Category: "handler",
		}
		src := FromSearchResult(4, doc, true)
		if src.Index != 4 || !src.IsCited {
			t.Errorf("projection = %+v", src)
		}
		if src.SourceType != "code" || src.FilePath != "auth/login.go" || src.Language != "Go" || src.Category != "handler" {
			t.Errorf("code fields = %+v", src)
		}
		if src.RelevanceScore == nil || *src.RelevanceScore != 0.77 {
			t.Errorf("score = %v", src.RelevanceScore)
		}
	})

	t.Run("pull request", func(t *testing.T) {
		doc := &PullRequestSearchResult{
			Base:     Base{Id: "p1", SourceType: SourceTypePullRequest},
			Title:    "Add OAuth",
			PRNumber: 42,
		}
		src := FromSearchResult(1, doc, false)
		if src.SourceType != "pull_request" || src.Title != "Add OAuth" || src.PRNumber != 42 {
			t.Errorf("pr fields = %+v", src)
		}
		if src.IsCited {
			t.Error("uncited projection marked cited")
		}
	})

	t.Run("issue number lands in pr_number", func(t *testing.T) {
		doc := &IssueSearchResult{
			Base:        Base{Id: "i1", SourceType: SourceTypeIssue},
			Title:       "Bug",
			IssueNumber: 12,
		}
		src := FromSearchResult(2, doc, false)
		if src.SourceType != "issue" || src.PRNumber != 12 {
			t.Errorf("issue fields = %+v", src)
		}
	})

	t.Run("ticket", func(t *testing.T) {
		doc := &TicketSearchResult{
			Base:    Base{Id: "t1", SourceType: SourceTypeTicket},
			Key:     "ACME-9",
			Summary: "Timeout",
		}
		src := FromSearchResult(3, doc, false)
		if src.SourceType != "ticket" || src.TicketKey != "ACME-9" || src.Summary != "Timeout" {
			t.Errorf("ticket fields = %+v", src)
		}
	})
}

func TestCandidateFromPullRequest(t *testing.T) {
	pr := &PullRequestSearchResult{
		Base:      Base{Id: "p1", SourceType: SourceTypePullRequest, Body: strings.Repeat("a", 150)},
		Title:     "Add OAuth",
		PRNumber:  42,
		Owner:     "acme",
		RepoName:  "backend",
		CreatedAt: 1700000000,
	}

	candidate := CandidateFromPullRequest(pr)
	if candidate.PRNumber != 42 || candidate.Owner != "acme" || candidate.Repo != "backend" {
		t.Errorf("candidate = %+v", candidate)
	}
	if len(candidate.Summary) != 100 {
		t.Errorf("summary length = %d, want truncated to 100", len(candidate.Summary))
	}
	if candidate.CreatedAt != 1700000000 {
		t.Errorf("CreatedAt = %d", candidate.CreatedAt)
	}

	short := &PullRequestSearchResult{Base: Base{Body: "short"}}
	if got := CandidateFromPullRequest(short).Summary; got != "short" {
		t.Errorf("short summary = %q", got)
	}
}

func TestCandidateSummaryKeepsValidUTF8(t *testing.T) {
	// A two-byte rune straddles the cut point; a byte-offset slice would
	// leave half of it in the summary.
	body := strings.Repeat("a", 99) + "ééé"
	pr := &PullRequestSearchResult{Base: Base{Body: body}}

	summary := CandidateFromPullRequest(pr).Summary
	if !utf8.ValidString(summary) {
		t.Errorf("summary is not valid UTF-8: %q", summary)
	}
	if len(summary) != 99 {
		t.Errorf("summary length = %d, want cut back to the rune boundary at 99", len(summary))
	}
	if len(summary) > 100 {
		t.Errorf("summary length = %d, exceeds the 100-byte cap", len(summary))
	}
}
