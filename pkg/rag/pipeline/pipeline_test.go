package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"testing"

	"catchup-rag-be/pkg/llm"
	"catchup-rag-be/pkg/rag/result"
	"catchup-rag-be/pkg/rerank"
	"catchup-rag-be/pkg/searchengine"
)

// --- fakes ---

type fakeLLM struct {
	mu         sync.Mutex
	datasource string
	rewritten  string
	plans      []PlannedQuery
	grades     []string
	answer     string

	generateCalls int
	gradeCalls    int
	chatCalls     int
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatCalls++
	return f.answer, nil
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generateCalls++
	return f.rewritten, nil
}

func (f *fakeLLM) GenerateStructured(ctx context.Context, prompt string, out any, options ...llm.Option) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := out.(type) {
	case *routeDecision:
		v.Datasource = f.datasource
	case *searchPlan:
		v.Queries = f.plans
	case *gradeVerdict:
		verdict := "yes"
		if f.gradeCalls < len(f.grades) {
			verdict = f.grades[f.gradeCalls]
		}
		f.gradeCalls++
		v.BinaryScore = verdict
	default:
		return fmt.Errorf("unexpected structured target %T", out)
	}
	return nil
}

type fakeSearch struct {
	mu       sync.Mutex
	hits     map[string][]searchengine.Hit // keyed by index name
	failFor  string                        // indices containing this substring fail
	requests []searchengine.SearchRequest
}

func (f *fakeSearch) Search(ctx context.Context, req searchengine.SearchRequest) ([]searchengine.Hit, error) {
	pages, err := f.MultiSearch(ctx, []searchengine.SearchRequest{req})
	if err != nil {
		return nil, err
	}
	return pages[0], nil
}

func (f *fakeSearch) MultiSearch(ctx context.Context, reqs []searchengine.SearchRequest) ([][]searchengine.Hit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pages := make([][]searchengine.Hit, len(reqs))
	for i, req := range reqs {
		if f.failFor != "" && strings.Contains(req.IndexName, f.failFor) {
			return nil, errors.New("index unavailable")
		}
		f.requests = append(f.requests, req)
		pages[i] = f.hits[req.IndexName]
	}
	return pages, nil
}

type fakeRerank struct {
	scores map[string]float64 // keyed by positional ID
	err    error
}

func (f *fakeRerank) Rerank(ctx context.Context, query string, docs []rerank.Document, topN int) ([]rerank.Score, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []rerank.Score
	for _, doc := range docs {
		if score, ok := f.scores[doc.ID]; ok {
			out = append(out, rerank.Score{ID: doc.ID, RelevanceScore: score})
		}
	}
	return out, nil
}

type fakeGithub struct {
	mu      sync.Mutex
	fetched []int
	context []result.PRFileContext
}

func (f *fakeGithub) GetPRContext(ctx context.Context, owner, repo string, prNumber int) []result.PRFileContext {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, prNumber)
	return f.context
}

type fakeStore struct {
	mu    sync.Mutex
	saves int
	err   error
}

func (f *fakeStore) Save(ctx context.Context, state *State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saves++
	return nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) Emit(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// --- hit builders ---

func codeHit(id, path, text string) searchengine.Hit {
	return searchengine.Hit{
		Text: text,
		Metadata: map[string]any{
			"sourceType": float64(0),
			"id":         id,
			"source":     "acme/backend",
			"file_path":  path,
			"language":   "Go",
		},
	}
}

func prHit(id string, number int, title string) searchengine.Hit {
	return searchengine.Hit{
		Text: "pull request body",
		Metadata: map[string]any{
			"sourceType": float64(1),
			"id":         id,
			"source":     "acme/backend",
			"title":      title,
			"pr_number":  float64(number),
			"owner":      "acme",
			"repo_name":  "backend",
			"state":      "merged",
		},
	}
}

func ticketHit(id, key, summary string) searchengine.Hit {
	return searchengine.Hit{
		Text: "ticket body",
		Metadata: map[string]any{
			"sourceType": float64(3),
			"id":         id,
			"key":        key,
			"summary":    summary,
			"project":    "ACME",
			"issue_type": "Bug",
		},
	}
}

func newTestPipeline(llmFake *fakeLLM, search *fakeSearch, rr *fakeRerank, gh *fakeGithub, store Checkpointer) *Pipeline {
	return New(llmFake, search, rr, gh, store, DefaultConfig(), log.New(io.Discard, "", 0))
}

func newSearchState(question string, indices []string) *State {
	state := NewState("sess-1", "user", indices)
	state.AppendMessage(llm.Message{Role: "user", Content: question})
	return state
}

// --- tests ---

func TestRunChitchat(t *testing.T) {
	llmFake := &fakeLLM{datasource: "chitchat", answer: "Hello! How can I help?"}
	store := &fakeStore{}
	p := newTestPipeline(llmFake, &fakeSearch{}, &fakeRerank{}, &fakeGithub{}, store)

	state := newSearchState("hi there", nil)
	rec := &eventRecorder{}

	turn, err := p.Run(context.Background(), state, rec)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if turn.Answer != "Hello! How can I help?" {
		t.Errorf("Answer = %q", turn.Answer)
	}
	if len(turn.Sources) != 0 {
		t.Errorf("Sources = %d, want 0", len(turn.Sources))
	}
	if llmFake.chatCalls != 1 {
		t.Errorf("chatCalls = %d, want 1", llmFake.chatCalls)
	}
	if store.saves != 1 {
		t.Errorf("checkpoint saves = %d, want 1", store.saves)
	}
	if got := state.Messages[len(state.Messages)-1]; got.Role != "assistant" {
		t.Errorf("last message role = %q, want assistant", got.Role)
	}
}

func TestRunSearchFlow(t *testing.T) {
	search := &fakeSearch{
		hits: map[string][]searchengine.Hit{
			"acme-codebase": {
				codeHit("c1", "internal/auth/login.go", "func Login() {}"),
				codeHit("c2", "internal/auth/session.go", "func NewSession() {}"),
			},
			"acme-jira": {
				ticketHit("t1", "ACME-42", "Login timeout"),
			},
		},
	}
	llmFake := &fakeLLM{
		datasource: "search_pipeline",
		rewritten:  "login flow implementation",
		plans:      []PlannedQuery{{Datasource: "codebase", Query: "login flow"}},
		grades:     []string{"yes"},
		answer:     "The login flow starts in Login [1] and creates a session [2].",
	}
	store := &fakeStore{}
	p := newTestPipeline(llmFake, search, &fakeRerank{scores: map[string]float64{"0": 0.9, "1": 0.8}}, &fakeGithub{}, store)

	state := newSearchState("explain the login flow", []string{"acme-codebase", "acme-jira"})
	rec := &eventRecorder{}

	turn, err := p.Run(context.Background(), state, rec)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(turn.Sources) != 2 {
		t.Fatalf("Sources = %d, want 2", len(turn.Sources))
	}
	for i, src := range turn.Sources {
		if !src.IsCited {
			t.Errorf("source %d not cited", i)
		}
	}
	if turn.Sources[0].Index != 1 || turn.Sources[1].Index != 2 {
		t.Errorf("source indices = %d,%d want 1,2", turn.Sources[0].Index, turn.Sources[1].Index)
	}

	if len(turn.RelatedTickets) != 1 {
		t.Fatalf("RelatedTickets = %d, want 1", len(turn.RelatedTickets))
	}
	ticket, ok := turn.RelatedTickets[0].(*result.TicketSearchResult)
	if !ok || ticket.Key != "ACME-42" {
		t.Errorf("related ticket = %#v", turn.RelatedTickets[0])
	}

	types := rec.types()
	if types[len(types)-1] != EventResult {
		t.Errorf("last event = %q, want result", types[len(types)-1])
	}
	if store.saves != 1 {
		t.Errorf("checkpoint saves = %d, want 1", store.saves)
	}
}

func TestRunGradeRetryCeiling(t *testing.T) {
	search := &fakeSearch{
		hits: map[string][]searchengine.Hit{
			"acme-codebase": {codeHit("c1", "main.go", "package main")},
		},
	}
	llmFake := &fakeLLM{
		datasource: "search_pipeline",
		rewritten:  "some query",
		plans:      []PlannedQuery{{Datasource: "codebase", Query: "some query"}},
		grades:     []string{"no", "no", "no"},
		answer:     "Best effort answer.",
	}
	p := newTestPipeline(llmFake, search, &fakeRerank{}, &fakeGithub{}, &fakeStore{})

	state := newSearchState("vague question", []string{"acme-codebase"})
	turn, err := p.Run(context.Background(), state, NopEmitter{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if turn.Answer != "Best effort answer." {
		t.Errorf("Answer = %q", turn.Answer)
	}

	// Rewrite ran once per loop entry; the third grade short-circuits at
	// the ceiling without another gateway call.
	if llmFake.generateCalls != 3 {
		t.Errorf("rewrite calls = %d, want 3", llmFake.generateCalls)
	}
	if llmFake.gradeCalls != 2 {
		t.Errorf("grade gateway calls = %d, want 2", llmFake.gradeCalls)
	}
	if state.GradeStatus != GradeMaxRetries {
		t.Errorf("GradeStatus = %q, want %q", state.GradeStatus, GradeMaxRetries)
	}
}

func TestRunEmptyRetrievalGradesBadWithoutGatewayCall(t *testing.T) {
	// Session permits no index any plan can resolve, so retrieval stays
	// empty and grading must not call the completion gateway.
	llmFake := &fakeLLM{
		datasource: "search_pipeline",
		rewritten:  "anything",
		plans:      []PlannedQuery{{Datasource: "codebase", Query: "anything"}},
		answer:     "I could not find anything relevant.",
	}
	p := newTestPipeline(llmFake, &fakeSearch{}, &fakeRerank{}, &fakeGithub{}, &fakeStore{})

	state := newSearchState("question", []string{"acme-unrelated"})
	turn, err := p.Run(context.Background(), state, NopEmitter{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if llmFake.gradeCalls != 0 {
		t.Errorf("grade gateway calls = %d, want 0", llmFake.gradeCalls)
	}
	if len(turn.Sources) != 0 {
		t.Errorf("Sources = %d, want 0", len(turn.Sources))
	}
}

func TestRunSuspendsOnMultiplePRs(t *testing.T) {
	search := &fakeSearch{
		hits: map[string][]searchengine.Hit{
			"acme-prs": {
				prHit("p1", 101, "Add OAuth login"),
				prHit("p2", 102, "Refactor session handling"),
			},
		},
	}
	llmFake := &fakeLLM{
		datasource: "search_pipeline",
		rewritten:  "login changes",
		plans:      []PlannedQuery{{Datasource: "pr_history", Query: "login changes"}},
		answer:     "unused",
	}
	store := &fakeStore{}
	gh := &fakeGithub{}
	p := newTestPipeline(llmFake, search, &fakeRerank{}, gh, store)

	state := newSearchState("what changed in login?", []string{"acme-prs"})
	rec := &eventRecorder{}

	turn, err := p.Run(context.Background(), state, rec)
	if turn != nil {
		t.Fatalf("expected no turn result, got %+v", turn)
	}
	interrupt, ok := AsInterrupt(err)
	if !ok {
		t.Fatalf("expected InterruptError, got %v", err)
	}
	if len(interrupt.Candidates) != 2 {
		t.Errorf("candidates = %d, want 2", len(interrupt.Candidates))
	}
	if !state.Suspended() {
		t.Error("state not suspended")
	}
	if store.saves == 0 {
		t.Error("state was not checkpointed before the interrupt")
	}
	if len(gh.fetched) != 0 {
		t.Errorf("GetPRContext called %d times before selection", len(gh.fetched))
	}

	var sawInterrupt bool
	for _, et := range rec.types() {
		if et == EventInterrupt {
			sawInterrupt = true
		}
	}
	if !sawInterrupt {
		t.Error("no interrupt event emitted")
	}
}

func TestRunSuspensionCheckpointFailureIsFatal(t *testing.T) {
	search := &fakeSearch{
		hits: map[string][]searchengine.Hit{
			"acme-prs": {
				prHit("p1", 101, "Add OAuth login"),
				prHit("p2", 102, "Refactor session handling"),
			},
		},
	}
	llmFake := &fakeLLM{
		datasource: "search_pipeline",
		rewritten:  "login changes",
		plans:      []PlannedQuery{{Datasource: "pr_history", Query: "login changes"}},
	}
	store := &fakeStore{err: errors.New("redis down")}
	p := newTestPipeline(llmFake, search, &fakeRerank{}, &fakeGithub{}, store)

	state := newSearchState("what changed?", []string{"acme-prs"})
	_, err := p.Run(context.Background(), state, NopEmitter{})
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := AsInterrupt(err); ok {
		t.Fatal("checkpoint failure must not surface as an interrupt")
	}
}

func TestRunAutoFetchesSinglePR(t *testing.T) {
	search := &fakeSearch{
		hits: map[string][]searchengine.Hit{
			"acme-prs": {prHit("p1", 101, "Add OAuth login")},
		},
	}
	llmFake := &fakeLLM{
		datasource: "search_pipeline",
		rewritten:  "login changes",
		plans:      []PlannedQuery{{Datasource: "pr_history", Query: "login changes"}},
		grades:     []string{"yes"},
		answer:     "PR #101 added OAuth login [1].",
	}
	gh := &fakeGithub{context: []result.PRFileContext{{Path: "auth/oauth.go", Status: "added", Additions: 50}}}
	p := newTestPipeline(llmFake, search, &fakeRerank{}, gh, &fakeStore{})

	state := newSearchState("what changed in login?", []string{"acme-prs"})
	turn, err := p.Run(context.Background(), state, NopEmitter{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if state.Suspended() {
		t.Error("single PR must not suspend")
	}
	if len(gh.fetched) != 1 || gh.fetched[0] != 101 {
		t.Errorf("fetched = %v, want [101]", gh.fetched)
	}
	if len(turn.Sources) == 0 {
		t.Error("no sources returned")
	}
}

func TestResume(t *testing.T) {
	search := &fakeSearch{
		hits: map[string][]searchengine.Hit{
			"acme-prs": {
				prHit("p1", 101, "Add OAuth login"),
				prHit("p2", 102, "Refactor session handling"),
			},
		},
	}
	llmFake := &fakeLLM{
		datasource: "search_pipeline",
		rewritten:  "login changes",
		plans:      []PlannedQuery{{Datasource: "pr_history", Query: "login changes"}},
		grades:     []string{"yes"},
		answer:     "PR #102 refactored session handling [2].",
	}
	gh := &fakeGithub{context: []result.PRFileContext{{Path: "auth/session.go", Status: "modified"}}}
	p := newTestPipeline(llmFake, search, &fakeRerank{}, gh, &fakeStore{})

	state := newSearchState("what changed in login?", []string{"acme-prs"})
	if _, err := p.Run(context.Background(), state, NopEmitter{}); err == nil {
		t.Fatal("expected suspension")
	}

	selection := []result.PRSelection{{PRNumber: 102, Repo: "backend", Owner: "acme"}}
	turn, err := p.Resume(context.Background(), state, selection, NopEmitter{})
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if state.Suspended() {
		t.Error("state still suspended after resume")
	}
	if len(gh.fetched) != 1 || gh.fetched[0] != 102 {
		t.Errorf("fetched = %v, want [102]", gh.fetched)
	}
	if turn.Answer == "" {
		t.Error("empty answer after resume")
	}
}

func TestResumeNotSuspended(t *testing.T) {
	p := newTestPipeline(&fakeLLM{}, &fakeSearch{}, &fakeRerank{}, &fakeGithub{}, &fakeStore{})
	state := newSearchState("question", nil)

	_, err := p.Resume(context.Background(), state, nil, NopEmitter{})
	if !errors.Is(err, ErrNotSuspended) {
		t.Errorf("err = %v, want ErrNotSuspended", err)
	}
}

func TestRelatedTicketsDegradeToEmpty(t *testing.T) {
	search := &fakeSearch{
		hits: map[string][]searchengine.Hit{
			"acme-codebase": {codeHit("c1", "main.go", "package main")},
		},
		failFor: "jira",
	}
	llmFake := &fakeLLM{
		datasource: "search_pipeline",
		rewritten:  "query",
		plans:      []PlannedQuery{{Datasource: "codebase", Query: "query"}},
		grades:     []string{"yes"},
		answer:     "Answer [1].",
	}
	p := newTestPipeline(llmFake, search, &fakeRerank{}, &fakeGithub{}, &fakeStore{})

	state := newSearchState("question", []string{"acme-codebase", "acme-jira"})
	turn, err := p.Run(context.Background(), state, NopEmitter{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(turn.RelatedTickets) != 0 {
		t.Errorf("RelatedTickets = %d, want 0 on side-search failure", len(turn.RelatedTickets))
	}
	if turn.Answer != "Answer [1]." {
		t.Errorf("main flow affected by side-search failure: %q", turn.Answer)
	}
}

func TestRerankFailureKeepsNativeOrder(t *testing.T) {
	search := &fakeSearch{
		hits: map[string][]searchengine.Hit{
			"acme-codebase": {
				codeHit("c1", "a.go", "first"),
				codeHit("c2", "b.go", "second"),
			},
		},
	}
	llmFake := &fakeLLM{
		datasource: "search_pipeline",
		rewritten:  "query",
		plans:      []PlannedQuery{{Datasource: "codebase", Query: "query"}},
		grades:     []string{"yes"},
		answer:     "Answer [1].",
	}
	p := newTestPipeline(llmFake, search, &fakeRerank{err: errors.New("cohere down")}, &fakeGithub{}, &fakeStore{})

	state := newSearchState("question", []string{"acme-codebase"})
	turn, err := p.Run(context.Background(), state, NopEmitter{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(state.RetrievedDocs) != 2 {
		t.Fatalf("RetrievedDocs = %d, want 2", len(state.RetrievedDocs))
	}
	if state.RetrievedDocs[0].ID() != "c1" {
		t.Errorf("native order not preserved, first doc = %s", state.RetrievedDocs[0].ID())
	}
	if turn == nil || turn.Answer == "" {
		t.Error("turn failed on rerank degradation")
	}
}

func TestRunAbortsWhenStreamContextCancelled(t *testing.T) {
	search := &fakeSearch{
		hits: map[string][]searchengine.Hit{
			"acme-codebase": {codeHit("c1", "main.go", "func main() {}")},
		},
	}
	llmFake := &fakeLLM{
		datasource: "search_pipeline",
		rewritten:  "rewritten",
		plans:      []PlannedQuery{{Datasource: "codebase", Query: "main"}},
		answer:     "never produced",
	}
	p := newTestPipeline(llmFake, search, &fakeRerank{}, &fakeGithub{}, &fakeStore{})

	state := newSearchState("explain main", []string{"acme-codebase"})

	// The stream handler cancels the turn context when a write to the
	// client fails; model that with an emitter that cancels on the first
	// frame it pushes.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	emitter := EmitterFunc(func(Event) { cancel() })

	turn, err := p.Run(ctx, state, emitter)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if turn != nil {
		t.Errorf("turn = %+v, want nil", turn)
	}
	if len(search.requests) != 0 {
		t.Errorf("search requests after disconnect = %d, want 0", len(search.requests))
	}
	if llmFake.chatCalls != 0 || llmFake.gradeCalls != 0 {
		t.Errorf("gateway kept burning calls: chat=%d grade=%d", llmFake.chatCalls, llmFake.gradeCalls)
	}
}

func TestRouteIdempotent(t *testing.T) {
	tests := []struct {
		name    string
		decided string
		want    string
	}{
		{"chitchat label", "chitchat", DatasourceChitchat},
		{"search label", "search_pipeline", DatasourceSearch},
		{"unknown label falls through to search", "banter", DatasourceSearch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llmFake := &fakeLLM{datasource: tt.decided}
			p := newTestPipeline(llmFake, &fakeSearch{}, &fakeRerank{}, &fakeGithub{}, &fakeStore{})
			state := newSearchState("how does login work?", []string{"acme-codebase"})

			for i := 0; i < 2; i++ {
				if err := p.route(context.Background(), state); err != nil {
					t.Fatalf("route() call %d error = %v", i+1, err)
				}
				if state.Datasource != tt.want {
					t.Errorf("call %d: Datasource = %q, want %q", i+1, state.Datasource, tt.want)
				}
			}
		})
	}
}
