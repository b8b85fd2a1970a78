package result

import "unicode/utf8"

// ResponseSource is the citation-ready projection of a SearchResult
// returned to the client. Index is the 1-based position of the result in
// the context block shown to the generator; built fresh each turn.
type ResponseSource struct {
	Index          int      `json:"index"`
	IsCited        bool     `json:"is_cited"`
	SourceType     string   `json:"source_type"`
	Source         string   `json:"source,omitempty"`
	HTMLURL        string   `json:"html_url,omitempty"`
	Text           string   `json:"text,omitempty"`
	RelevanceScore *float64 `json:"relevance_score,omitempty"`

	// Code
	FilePath string `json:"file_path,omitempty"`
	Language string `json:"language,omitempty"`
	Category string `json:"category,omitempty"`

	// Pull request / issue
	Title    string `json:"title,omitempty"`
	PRNumber int    `json:"pr_number,omitempty"`

	// Ticket
	TicketKey string `json:"ticket_key,omitempty"`
	Summary   string `json:"summary,omitempty"`
}

// FromSearchResult builds the projection for one retrieved document.
func FromSearchResult(index int, res SearchResult, isCited bool) ResponseSource {
	source := ResponseSource{
		Index:          index,
		IsCited:        isCited,
		SourceType:     res.Type().String(),
		Source:         res.Repo(),
		HTMLURL:        res.URL(),
		Text:           res.Text(),
		RelevanceScore: res.Score(),
	}

	switch v := res.(type) {
	case *CodeSearchResult:
		source.FilePath = v.FilePath
		source.Language = v.Language
		source.Category = v.Category
	case *PullRequestSearchResult:
		source.Title = v.Title
		source.PRNumber = v.PRNumber
	case *IssueSearchResult:
		source.Title = v.Title
		source.PRNumber = v.IssueNumber
	case *TicketSearchResult:
		source.TicketKey = v.Key
		source.Summary = v.Summary
	}

	return source
}

// PRCandidate is the lightweight payload offered to the user when more
// than one pull request matched and the pipeline suspends for selection.
type PRCandidate struct {
	Id        string `json:"id"`
	PRNumber  int    `json:"pr_number"`
	Title     string `json:"title"`
	Repo      string `json:"repo"`
	Summary   string `json:"summary"`
	Owner     string `json:"owner"`
	CreatedAt int64  `json:"created_at"`
}

// CandidateFromPullRequest trims a PR result down to its selection card.
func CandidateFromPullRequest(pr *PullRequestSearchResult) PRCandidate {
	summary := pr.Body
	if len(summary) > 100 {
		// PR bodies are arbitrary UTF-8; back off to a rune boundary so
		// the cut never leaves a split multi-byte character behind.
		cut := 100
		for cut > 0 && !utf8.RuneStart(summary[cut]) {
			cut--
		}
		summary = summary[:cut]
	}
	return PRCandidate{
		Id:        pr.Id,
		PRNumber:  pr.PRNumber,
		Title:     pr.Title,
		Repo:      pr.RepoName,
		Summary:   summary,
		Owner:     pr.Owner,
		CreatedAt: pr.CreatedAt,
	}
}

// PRSelection is one (owner, repo, number) tuple supplied by the user when
// resuming a suspended turn.
type PRSelection struct {
	PRNumber int    `json:"pr_number"`
	Repo     string `json:"repo"`
	Owner    string `json:"owner"`
}
