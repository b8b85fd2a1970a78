package result

// PRComment is one review comment attached to a changed file.
type PRComment struct {
	Id           int64  `json:"id"`
	Author       string `json:"author"`
	Body         string `json:"body"`
	CreatedAt    string `json:"created_at"`
	Line         *int   `json:"line,omitempty"`
	OriginalLine *int   `json:"original_line,omitempty"`
}

// PRFileContext is the per-file diff plus its review comments. Patch is
// empty for a pure rename (zero additions and deletions).
type PRFileContext struct {
	Path             string      `json:"path"`
	Status           string      `json:"status"` // modified, added, deleted, renamed
	Additions        int         `json:"additions"`
	Deletions        int         `json:"deletions"`
	PreviousFilename string      `json:"previous_filename,omitempty"`
	Patch            string      `json:"patch,omitempty"`
	Comments         []PRComment `json:"comments,omitempty"`
}
