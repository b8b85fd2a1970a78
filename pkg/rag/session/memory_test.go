package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"catchup-rag-be/pkg/llm"
	"catchup-rag-be/pkg/rag/pipeline"
	"catchup-rag-be/pkg/rag/result"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	ctx := context.Background()

	score := 0.9
	state := pipeline.NewState("sess-1", "user", []string{"acme-codebase", "acme-prs"})
	state.AppendMessage(llm.Message{Role: "user", Content: "explain the login flow"})
	state.CurrentQuery = "login flow implementation"
	state.RetryCount = 1
	state.RetrievedDocs = result.List{
		&result.CodeSearchResult{
			Base:     result.Base{Id: "c1", SourceType: result.SourceTypeCode, Body: "func Login() {}", RelevanceScore: &score},
			FilePath: "auth/login.go",
		},
		&result.PullRequestSearchResult{
			Base:     result.Base{Id: "p1", SourceType: result.SourceTypePullRequest},
			PRNumber: 42,
			Owner:    "acme",
			RepoName: "backend",
		},
	}
	state.PendingNode = pipeline.NodePRContext
	state.PRCandidates = []result.PRCandidate{{Id: "p1", PRNumber: 42, Owner: "acme", Repo: "backend"}}

	assert.NoError(t, store.Save(ctx, state))

	loaded, err := store.Load(ctx, "sess-1")
	assert.NoError(t, err)
	assert.Equal(t, "sess-1", loaded.SessionID)
	assert.Equal(t, []string{"acme-codebase", "acme-prs"}, loaded.IndexList)
	assert.Equal(t, "login flow implementation", loaded.CurrentQuery)
	assert.True(t, loaded.Suspended())
	assert.Len(t, loaded.PRCandidates, 1)

	// Typed variants survive the round trip.
	assert.Len(t, loaded.RetrievedDocs, 2)
	code, ok := loaded.RetrievedDocs[0].(*result.CodeSearchResult)
	assert.True(t, ok, "first doc should decode as code result")
	assert.Equal(t, "auth/login.go", code.FilePath)
	assert.NotNil(t, code.Score())

	pr, ok := loaded.RetrievedDocs[1].(*result.PullRequestSearchResult)
	assert.True(t, ok, "second doc should decode as pull request result")
	assert.Equal(t, 42, pr.PRNumber)
}

func TestMemoryStoreLoadMissing(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	_, err := store.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	ctx := context.Background()

	state := pipeline.NewState("sess-2", "user", nil)
	assert.NoError(t, store.Save(ctx, state))
	assert.NoError(t, store.Delete(ctx, "sess-2"))

	_, err := store.Load(ctx, "sess-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreSaveOverwrites(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	ctx := context.Background()

	state := pipeline.NewState("sess-3", "user", nil)
	state.CurrentQuery = "first"
	assert.NoError(t, store.Save(ctx, state))

	state.CurrentQuery = "second"
	assert.NoError(t, store.Save(ctx, state))

	loaded, err := store.Load(ctx, "sess-3")
	assert.NoError(t, err)
	assert.Equal(t, "second", loaded.CurrentQuery)
}
