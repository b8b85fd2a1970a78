package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"
)

// CohereGateway implements Gateway against the Cohere rerank API. A
// process-wide semaphore caps simultaneous calls; callers block until a
// slot frees rather than failing.
type CohereGateway struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client

	sem *semaphore.Weighted
}

var _ Gateway = &CohereGateway{}

func NewCohereGateway(apiKey string, maxConcurrent int64) *CohereGateway {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &CohereGateway{
		BaseURL: "https://api.cohere.com",
		APIKey:  apiKey,
		Model:   "rerank-multilingual-v3.0",
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
		sem: semaphore.NewWeighted(maxConcurrent),
	}
}

// --- Request/Response structs (Internal to this package) ---

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// --- Interface Implementation ---

func (c *CohereGateway) Rerank(ctx context.Context, query string, docs []Document, topN int) ([]Score, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if topN <= 0 || topN > len(docs) {
		topN = len(docs)
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire rerank slot: %w", err)
	}
	defer c.sem.Release(1)

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}

	payloadBytes, err := json.Marshal(rerankRequest{
		Model:     c.Model,
		Query:     query,
		Documents: texts,
		TopN:      topN,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.BaseURL + "/v2/rerank"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var parsed rerankResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	scores := make([]Score, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if r.Index < 0 || r.Index >= len(docs) {
			continue
		}
		scores = append(scores, Score{
			ID:             docs[r.Index].ID,
			RelevanceScore: r.RelevanceScore,
		})
	}
	return scores, nil
}
