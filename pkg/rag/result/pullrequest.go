package result

import (
	"fmt"
	"strings"
	"time"

	"catchup-rag-be/pkg/searchengine"
)

// PullRequestSearchResult is a pull request from a PR-history index.
// FileContext stays empty until the PR-context step selects this PR for
// detailed analysis; it is populated at most once per turn.
type PullRequestSearchResult struct {
	Base
	Title             string          `json:"title"`
	CommitMessages    []string        `json:"commit_messages,omitempty"`
	ChangedFiles      []string        `json:"changed_files,omitempty"`
	ChangedFilesCount int             `json:"changed_files_count"`
	PRNumber          int             `json:"pr_number"`
	State             string          `json:"state"`
	Author            string          `json:"author"`
	CreatedAt         int64           `json:"created_at"`
	UpdatedAt         int64           `json:"updated_at"`
	MergedAt          *int64          `json:"merged_at,omitempty"`
	ClosedAt          *int64          `json:"closed_at,omitempty"`
	Additions         int             `json:"additions"`
	Deletions         int             `json:"deletions"`
	Labels            []string        `json:"labels,omitempty"`
	Milestone         string          `json:"milestone,omitempty"`
	Owner             string          `json:"owner"`
	RepoName          string          `json:"repo_name"`
	Branch            string          `json:"branch,omitempty"`
	FileContext       []PRFileContext `json:"file_context,omitempty"`
}

var _ SearchResult = &PullRequestSearchResult{}

func pullRequestFromHit(hit searchengine.Hit) *PullRequestSearchResult {
	changedFiles := metaStrings(hit.Metadata, "changed_files")
	count := metaInt(hit.Metadata, "changed_files_count")
	if count == 0 {
		count = len(changedFiles)
	}

	return &PullRequestSearchResult{
		Base:              baseFromHit(hit, SourceTypePullRequest),
		Title:             metaString(hit.Metadata, "title"),
		CommitMessages:    metaStrings(hit.Metadata, "commit_messages"),
		ChangedFiles:      changedFiles,
		ChangedFilesCount: count,
		PRNumber:          metaInt(hit.Metadata, "pr_number"),
		State:             metaString(hit.Metadata, "state"),
		Author:            metaString(hit.Metadata, "author"),
		CreatedAt:         metaInt64(hit.Metadata, "created_at"),
		UpdatedAt:         metaInt64(hit.Metadata, "updated_at"),
		MergedAt:          metaInt64Ptr(hit.Metadata, "merged_at"),
		ClosedAt:          metaInt64Ptr(hit.Metadata, "closed_at"),
		Additions:         metaInt(hit.Metadata, "additions"),
		Deletions:         metaInt(hit.Metadata, "deletions"),
		Labels:            metaStrings(hit.Metadata, "labels"),
		Milestone:         metaString(hit.Metadata, "milestone"),
		Owner:             metaString(hit.Metadata, "owner"),
		RepoName:          metaString(hit.Metadata, "repo_name"),
		Branch:            metaString(hit.Metadata, "branch"),
	}
}

func (p *PullRequestSearchResult) RenderContext(index int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%d] Pull Request #%d: %s (%s)\n", index, p.PRNumber, p.Title, p.State)
	fmt.Fprintf(&b, "Repository: %s/%s | Author: %s", p.Owner, p.RepoName, p.Author)
	if p.CreatedAt > 0 {
		fmt.Fprintf(&b, " | Created: %s", time.Unix(p.CreatedAt, 0).UTC().Format("2006-01-02"))
	}
	b.WriteString("\n")

	if len(p.ChangedFiles) > 0 {
		fmt.Fprintf(&b, "Changed files (%d): %s\n", p.ChangedFilesCount, strings.Join(p.ChangedFiles, ", "))
	}
	if len(p.CommitMessages) > 0 {
		b.WriteString("Commits:\n")
		for _, msg := range p.CommitMessages {
			b.WriteString("- " + msg + "\n")
		}
	}
	if p.Body != "" {
		b.WriteString(strings.TrimRight(p.Body, "\n") + "\n")
	}

	// Nested file diffs appear only after the PR-context step selected
	// this PR and fetched its detail.
	if len(p.FileContext) > 0 {
		b.WriteString("--- File changes ---\n")
		for _, file := range p.FileContext {
			fmt.Fprintf(&b, "### %s (%s, +%d/-%d)", file.Path, file.Status, file.Additions, file.Deletions)
			if file.PreviousFilename != "" {
				fmt.Fprintf(&b, " [renamed from %s]", file.PreviousFilename)
			}
			b.WriteString("\n")
			if file.Patch != "" {
				b.WriteString("```diff\n" + strings.TrimRight(file.Patch, "\n") + "\n```\n")
			}
			for _, comment := range file.Comments {
				fmt.Fprintf(&b, "Review by %s (%s): %s\n", comment.Author, comment.CreatedAt, comment.Body)
			}
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
