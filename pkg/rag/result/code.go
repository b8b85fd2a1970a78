package result

import (
	"fmt"
	"strings"

	"catchup-rag-be/pkg/searchengine"
)

// CodeSearchResult is a source file chunk from a codebase index.
type CodeSearchResult struct {
	Base
	FilePath string `json:"file_path"`
	Category string `json:"category,omitempty"`
	Language string `json:"language,omitempty"`
}

var _ SearchResult = &CodeSearchResult{}

func codeFromHit(hit searchengine.Hit) *CodeSearchResult {
	return &CodeSearchResult{
		Base:     baseFromHit(hit, SourceTypeCode),
		FilePath: metaString(hit.Metadata, "file_path"),
		Category: metaString(hit.Metadata, "category"),
		Language: metaString(hit.Metadata, "language"),
	}
}

func (c *CodeSearchResult) RenderContext(index int) string {
	var b strings.Builder

	header := fmt.Sprintf("[%d] Code: %s", index, c.FilePath)
	if c.Language != "" {
		header += fmt.Sprintf(" (%s)", c.Language)
	}
	b.WriteString(header + "\n")

	if c.Source != "" {
		b.WriteString("Repository: " + c.Source + "\n")
	}
	if c.Category != "" {
		b.WriteString("Category: " + c.Category + "\n")
	}

	b.WriteString("```")
	if c.Language != "" {
		b.WriteString(strings.ToLower(c.Language))
	}
	b.WriteString("\n")
	b.WriteString(strings.TrimRight(c.Body, "\n"))
	b.WriteString("\n```")

	return b.String()
}
