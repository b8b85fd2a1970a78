package result

import (
	"encoding/json"
	"strings"
	"testing"

	"catchup-rag-be/pkg/searchengine"
)

func TestFromHitDispatch(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]any
		wantType SourceType
	}{
		{
			name:     "numeric code tag",
			metadata: map[string]any{"sourceType": float64(0), "id": "c1", "file_path": "main.go"},
			wantType: SourceTypeCode,
		},
		{
			name:     "numeric pull request tag",
			metadata: map[string]any{"sourceType": float64(1), "id": "p1", "pr_number": float64(7)},
			wantType: SourceTypePullRequest,
		},
		{
			name:     "numeric issue tag",
			metadata: map[string]any{"sourceType": float64(2), "id": "i1", "issue_number": float64(3)},
			wantType: SourceTypeIssue,
		},
		{
			name:     "numeric ticket tag",
			metadata: map[string]any{"sourceType": float64(3), "id": "t1", "key": "ACME-1"},
			wantType: SourceTypeTicket,
		},
		{
			name:     "string tag",
			metadata: map[string]any{"sourceType": "pull_request", "id": "p2"},
			wantType: SourceTypePullRequest,
		},
		{
			name:     "snake case key",
			metadata: map[string]any{"source_type": float64(0), "id": "c2"},
			wantType: SourceTypeCode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromHit(searchengine.Hit{Text: "body", Metadata: tt.metadata})
			if err != nil {
				t.Fatalf("FromHit() error = %v", err)
			}
			if got.Type() != tt.wantType {
				t.Errorf("Type() = %v, want %v", got.Type(), tt.wantType)
			}
			if got.Text() != "body" {
				t.Errorf("Text() = %q", got.Text())
			}
		})
	}
}

func TestFromHitMissingTag(t *testing.T) {
	_, err := FromHit(searchengine.Hit{Text: "body", Metadata: map[string]any{"id": "x"}})
	if err == nil {
		t.Fatal("expected error for missing sourceType")
	}
}

func TestFromHitUnknownTag(t *testing.T) {
	_, err := FromHit(searchengine.Hit{Text: "body", Metadata: map[string]any{"sourceType": float64(9)}})
	if err == nil {
		t.Fatal("expected error for unknown sourceType")
	}
}

func TestFromHitPullRequestFields(t *testing.T) {
	hit := searchengine.Hit{
		Text: "implements retry logic",
		Metadata: map[string]any{
			"sourceType":      float64(1),
			"id":              "p1",
			"title":           "Add retries",
			"pr_number":       float64(42),
			"owner":           "acme",
			"repo_name":       "backend",
			"state":           "merged",
			"changed_files":   []any{"a.go", "b.go"},
			"merged_at":       float64(1700000000),
			"commit_messages": []any{"add retry", "fix test"},
		},
	}

	parsed, err := FromHit(hit)
	if err != nil {
		t.Fatalf("FromHit() error = %v", err)
	}
	pr := parsed.(*PullRequestSearchResult)
	if pr.PRNumber != 42 || pr.Owner != "acme" || pr.RepoName != "backend" {
		t.Errorf("parsed pr = %+v", pr)
	}
	if pr.ChangedFilesCount != 2 {
		t.Errorf("ChangedFilesCount = %d, want 2 (derived)", pr.ChangedFilesCount)
	}
	if pr.MergedAt == nil || *pr.MergedAt != 1700000000 {
		t.Errorf("MergedAt = %v", pr.MergedAt)
	}
	if len(pr.CommitMessages) != 2 {
		t.Errorf("CommitMessages = %v", pr.CommitMessages)
	}
}

func TestListJSONRoundTrip(t *testing.T) {
	score := 0.8
	original := List{
		&CodeSearchResult{
			Base:     Base{Id: "c1", SourceType: SourceTypeCode, Body: "func main() {}", RelevanceScore: &score},
			FilePath: "main.go",
			Language: "Go",
		},
		&PullRequestSearchResult{
			Base:     Base{Id: "p1", SourceType: SourceTypePullRequest, Body: "pr body"},
			Title:    "Add feature",
			PRNumber: 7,
			Owner:    "acme",
			RepoName: "backend",
			FileContext: []PRFileContext{
				{Path: "a.go", Status: "modified", Additions: 3, Deletions: 1, Patch: "@@ -1 +1 @@"},
			},
		},
		&IssueSearchResult{
			Base:        Base{Id: "i1", SourceType: SourceTypeIssue, Body: "issue body"},
			Title:       "Bug report",
			IssueNumber: 12,
		},
		&TicketSearchResult{
			Base:    Base{Id: "t1", SourceType: SourceTypeTicket, Body: "ticket body"},
			Key:     "ACME-9",
			Summary: "Timeout on login",
		},
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded List
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(decoded) != len(original) {
		t.Fatalf("len = %d, want %d", len(decoded), len(original))
	}

	code, ok := decoded[0].(*CodeSearchResult)
	if !ok || code.FilePath != "main.go" {
		t.Errorf("decoded[0] = %#v", decoded[0])
	}
	if code.Score() == nil || *code.Score() != 0.8 {
		t.Errorf("score lost in round trip: %v", code.Score())
	}

	pr, ok := decoded[1].(*PullRequestSearchResult)
	if !ok || pr.PRNumber != 7 {
		t.Fatalf("decoded[1] = %#v", decoded[1])
	}
	if len(pr.FileContext) != 1 || pr.FileContext[0].Path != "a.go" {
		t.Errorf("FileContext lost in round trip: %+v", pr.FileContext)
	}

	if _, ok := decoded[2].(*IssueSearchResult); !ok {
		t.Errorf("decoded[2] = %#v", decoded[2])
	}
	ticket, ok := decoded[3].(*TicketSearchResult)
	if !ok || ticket.Key != "ACME-9" {
		t.Errorf("decoded[3] = %#v", decoded[3])
	}
}

func TestListUnmarshalUnknownType(t *testing.T) {
	var decoded List
	err := json.Unmarshal([]byte(`[{"id":"x","source_type":42}]`), &decoded)
	if err == nil {
		t.Fatal("expected error for unknown source_type")
	}
}

func TestRenderContext(t *testing.T) {
	code := &CodeSearchResult{
		Base:     Base{Id: "c1", SourceType: SourceTypeCode, Source: "acme/backend", Body: "func Login() {}\n"},
		FilePath: "auth/login.go",
		Language: "Go",
	}
	rendered := code.RenderContext(3)
	if !strings.HasPrefix(rendered, "[3] Code: auth/login.go (Go)") {
		t.Errorf("code header = %q", rendered)
	}
	if !strings.Contains(rendered, "```go\nfunc Login() {}\n```") {
		t.Errorf("code fence missing: %q", rendered)
	}

	ticket := &TicketSearchResult{
		Base:    Base{Id: "t1", SourceType: SourceTypeTicket, Body: "details"},
		Key:     "ACME-9",
		Summary: "Timeout on login",
		Project: "ACME",
	}
	rendered = ticket.RenderContext(1)
	if !strings.HasPrefix(rendered, "[1] Ticket ACME-9: Timeout on login") {
		t.Errorf("ticket header = %q", rendered)
	}

	pr := &PullRequestSearchResult{
		Base:     Base{Id: "p1", SourceType: SourceTypePullRequest, Body: "adds oauth"},
		Title:    "Add OAuth",
		PRNumber: 42,
		State:    "merged",
		Owner:    "acme",
		RepoName: "backend",
		FileContext: []PRFileContext{
			{Path: "auth/oauth.go", Status: "added", Additions: 50, Patch: "@@ -0,0 +1,50 @@"},
		},
	}
	rendered = pr.RenderContext(2)
	if !strings.HasPrefix(rendered, "[2] Pull Request #42: Add OAuth (merged)") {
		t.Errorf("pr header = %q", rendered)
	}
	if !strings.Contains(rendered, "--- File changes ---") {
		t.Errorf("file context section missing: %q", rendered)
	}
	if !strings.Contains(rendered, "```diff") {
		t.Errorf("diff fence missing: %q", rendered)
	}
}
