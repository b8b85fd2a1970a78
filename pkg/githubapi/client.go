package githubapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"catchup-rag-be/pkg/rag/result"
)

// Client talks to the GitHub REST API (or a compatible enterprise host).
type Client struct {
	Token   string
	BaseURL string // e.g. https://api.github.com/repos
	HTTP    *http.Client
	Logger  *log.Logger
}

var _ Gateway = &Client{}

func NewClient(token, baseURL string, logger *log.Logger) *Client {
	return &Client{
		Token:   token,
		BaseURL: baseURL,
		HTTP: &http.Client{
			Timeout: 20 * time.Second,
		},
		Logger: logger,
	}
}

// --- Response structs (Internal to this package) ---

type prFile struct {
	Filename         string `json:"filename"`
	Status           string `json:"status"`
	Additions        int    `json:"additions"`
	Deletions        int    `json:"deletions"`
	Patch            string `json:"patch"`
	PreviousFilename string `json:"previous_filename"`
}

type prComment struct {
	Id        int64  `json:"id"`
	Body      string `json:"body"`
	Path      string `json:"path"`
	CreatedAt string `json:"created_at"`
	Line      *int   `json:"line"`
	OrigLine  *int   `json:"original_line"`
	User      *struct {
		Login string `json:"login"`
	} `json:"user"`
}

// GetPRContext fetches changed files and review comments concurrently and
// merges them per file. Any upstream failure yields an empty list.
func (c *Client) GetPRContext(ctx context.Context, owner, repo string, prNumber int) []result.PRFileContext {
	basePath := fmt.Sprintf("%s/%s/%s/pulls/%d", c.BaseURL, owner, repo, prNumber)

	var (
		files    []prFile
		comments []prComment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.getJSON(gctx, basePath+"/files?per_page=100", &files)
	})
	g.Go(func() error {
		return c.getJSON(gctx, basePath+"/comments?per_page=100", &comments)
	})

	if err := g.Wait(); err != nil {
		c.Logger.Printf("[WARN] PR context fetch failed for %s/%s#%d: %v", owner, repo, prNumber, err)
		return []result.PRFileContext{}
	}

	return mergeFilesAndComments(files, comments)
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("github request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func mergeFilesAndComments(files []prFile, comments []prComment) []result.PRFileContext {
	merged := make([]result.PRFileContext, 0, len(files))
	byPath := make(map[string]int, len(files))

	for _, file := range files {
		patch := file.Patch
		// A rename touching no lines carries no useful diff payload.
		if file.Status == "renamed" && file.Additions == 0 && file.Deletions == 0 {
			patch = ""
		}

		byPath[file.Filename] = len(merged)
		merged = append(merged, result.PRFileContext{
			Path:             file.Filename,
			Status:           file.Status,
			Additions:        file.Additions,
			Deletions:        file.Deletions,
			PreviousFilename: file.PreviousFilename,
			Patch:            patch,
		})
	}

	for _, comment := range comments {
		idx, ok := byPath[comment.Path]
		if !ok {
			continue
		}
		author := "unknown"
		if comment.User != nil {
			author = comment.User.Login
		}
		merged[idx].Comments = append(merged[idx].Comments, result.PRComment{
			Id:           comment.Id,
			Author:       author,
			Body:         comment.Body,
			CreatedAt:    comment.CreatedAt,
			Line:         comment.Line,
			OriginalLine: comment.OrigLine,
		})
	}

	return merged
}
