package searchengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MeiliGateway implements Gateway against a Meilisearch server with
// user-provided embedders configured on each index.
type MeiliGateway struct {
	BaseURL  string
	APIKey   string
	Embedder string
	Client   *http.Client
}

var _ Gateway = &MeiliGateway{}

func NewMeiliGateway(baseURL, apiKey string) *MeiliGateway {
	return &MeiliGateway{
		BaseURL:  baseURL,
		APIKey:   apiKey,
		Embedder: "default",
		Client: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

// --- Request/Response structs (Internal to this package) ---

type meiliHybrid struct {
	SemanticRatio float64 `json:"semanticRatio"`
	Embedder      string  `json:"embedder"`
}

type meiliQuery struct {
	IndexUID         string       `json:"indexUid"`
	Q                string       `json:"q"`
	Limit            int          `json:"limit"`
	Hybrid           *meiliHybrid `json:"hybrid,omitempty"`
	Filter           string       `json:"filter,omitempty"`
	ShowRankingScore bool         `json:"showRankingScore"`
}

type multiSearchRequest struct {
	Queries []meiliQuery `json:"queries"`
}

type multiSearchResponse struct {
	Results []struct {
		IndexUID string           `json:"indexUid"`
		Hits     []map[string]any `json:"hits"`
	} `json:"results"`
}

// --- Interface Implementation ---

func (m *MeiliGateway) Search(ctx context.Context, req SearchRequest) ([]Hit, error) {
	pages, err := m.MultiSearch(ctx, []SearchRequest{req})
	if err != nil {
		return nil, err
	}
	return pages[0], nil
}

func (m *MeiliGateway) MultiSearch(ctx context.Context, reqs []SearchRequest) ([][]Hit, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	queries := make([]meiliQuery, len(reqs))
	for i, r := range reqs {
		queries[i] = meiliQuery{
			IndexUID: r.IndexName,
			Q:        r.Query,
			Limit:    r.K,
			Hybrid: &meiliHybrid{
				SemanticRatio: r.SemanticRatio,
				Embedder:      m.Embedder,
			},
			Filter:           r.Filter,
			ShowRankingScore: true,
		}
	}

	payloadBytes, err := json.Marshal(multiSearchRequest{Queries: queries})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := m.BaseURL + "/multi-search"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if m.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+m.APIKey)
	}

	resp, err := m.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("meilisearch request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("meilisearch error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var parsed multiSearchResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(parsed.Results) != len(reqs) {
		return nil, fmt.Errorf("meilisearch error: %d results for %d queries", len(parsed.Results), len(reqs))
	}

	pages := make([][]Hit, len(parsed.Results))
	for i, page := range parsed.Results {
		hits := make([]Hit, 0, len(page.Hits))
		for _, raw := range page.Hits {
			hits = append(hits, parseHit(raw))
		}
		pages[i] = hits
	}
	return pages, nil
}

// parseHit splits one raw document into body text, score, and metadata.
// The indexer stores the body under "text"; everything else is metadata.
func parseHit(raw map[string]any) Hit {
	hit := Hit{Metadata: make(map[string]any, len(raw))}

	for key, value := range raw {
		switch key {
		case "text":
			if s, ok := value.(string); ok {
				hit.Text = s
			}
		case "_rankingScore":
			if f, ok := value.(float64); ok {
				hit.RankingScore = f
			}
		case "_vectors", "_semanticScore":
			// internal engine payloads, not useful downstream
		default:
			hit.Metadata[key] = value
		}
	}

	// Some indexers nest metadata under a dedicated key; flatten it.
	if nested, ok := hit.Metadata["metadata"].(map[string]any); ok {
		delete(hit.Metadata, "metadata")
		for key, value := range nested {
			hit.Metadata[key] = value
		}
	}

	return hit
}
