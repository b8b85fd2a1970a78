package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"catchup-rag-be/pkg/githubapi"
	"catchup-rag-be/pkg/llm"
	"catchup-rag-be/pkg/rag/result"
	"catchup-rag-be/pkg/rerank"
	"catchup-rag-be/pkg/searchengine"
)

// Config carries the pipeline tuning knobs. Defaults mirror the production
// settings; override per deployment through the environment.
type Config struct {
	SemanticRatio       float64 // hybrid search blend ratio
	MinKPerIndex        int     // floor of the per-index retrieval budget
	GlobalBudget        int     // total retrieval budget across resolved indices
	RerankTopN          int     // candidates sent to the rerank gateway
	TotalK              int     // documents surviving diverse top-k
	MinGuarantee        int     // reserved slots per active source-type
	RerankThreshold     float64 // score floor for uncited response sources
	TargetSourceCount   int     // response source target count
	RelatedTicketsTopN  int
	MaxRetries          int
	HistoryTokenBudget  int
	RouterUseHistory    bool // feed recent history to the router, not just the latest turn
	RouterHistoryTurns  int
	RewriteHistoryTurns int
}

func DefaultConfig() Config {
	return Config{
		SemanticRatio:       0.5,
		MinKPerIndex:        3,
		GlobalBudget:        12,
		RerankTopN:          10,
		TotalK:              8,
		MinGuarantee:        2,
		RerankThreshold:     0.35,
		TargetSourceCount:   5,
		RelatedTicketsTopN:  3,
		MaxRetries:          3,
		HistoryTokenBudget:  2000,
		RouterUseHistory:    false,
		RouterHistoryTurns:  6,
		RewriteHistoryTurns: 6,
	}
}

// Checkpointer persists session state at suspension points and turn
// boundaries. pkg/rag/session provides the implementations.
type Checkpointer interface {
	Save(ctx context.Context, state *State) error
}

// Pipeline is the multi-stage query orchestrator. All gateways are
// stateless, concurrency-safe singletons injected at construction.
type Pipeline struct {
	llm    llm.LLMProvider
	search searchengine.Gateway
	rerank rerank.Gateway
	github githubapi.Gateway
	store  Checkpointer
	cfg    Config
	logger *log.Logger
}

func New(
	llmProvider llm.LLMProvider,
	search searchengine.Gateway,
	rerankGateway rerank.Gateway,
	github githubapi.Gateway,
	store Checkpointer,
	cfg Config,
	logger *log.Logger,
) *Pipeline {
	return &Pipeline{
		llm:    llmProvider,
		search: search,
		rerank: rerankGateway,
		github: github,
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// Run executes one turn. The caller appends the human message to state
// before calling; the runner appends the assistant reply and checkpoints
// the state on completion. A turn that suspends at the PR-context step
// returns an *InterruptError after checkpointing.
func (p *Pipeline) Run(ctx context.Context, state *State, emitter Emitter) (*TurnResult, error) {
	start := time.Now()

	emitter.Emit(statusEvent(NodeRouter, "Classifying the question"))
	if err := p.route(ctx, state); err != nil {
		return nil, fmt.Errorf("route: %w", err)
	}

	if state.Datasource == DatasourceChitchat {
		emitter.Emit(statusEvent(NodeChitchat, "Answering directly"))
		answer, err := p.chitchat(ctx, state)
		if err != nil {
			return nil, fmt.Errorf("chitchat: %w", err)
		}
		state.AppendMessage(llm.Message{Role: "assistant", Content: answer})
		turn := &TurnResult{
			Answer:      answer,
			Sources:     []result.ResponseSource{},
			ProcessTime: time.Since(start).Seconds(),
		}
		p.checkpoint(ctx, state)
		emitter.Emit(Event{Type: EventResult, Node: NodeChitchat, Result: turn})
		return turn, nil
	}

	state.RetryCount = 0
	state.RelatedTickets = nil
	return p.runSearch(ctx, state, emitter, start, false)
}

// Resume continues a turn suspended at the PR-context step. selection is
// the user's (owner, repo, number) choice; an empty selection passes the
// retrieved docs through unchanged.
func (p *Pipeline) Resume(ctx context.Context, state *State, selection []result.PRSelection, emitter Emitter) (*TurnResult, error) {
	if !state.Suspended() {
		return nil, ErrNotSuspended
	}
	start := time.Now()

	emitter.Emit(statusEvent(NodePRContext, "Loading pull request detail"))
	if err := p.applyPRSelection(ctx, state, selection); err != nil {
		return nil, fmt.Errorf("resume pr context: %w", err)
	}
	state.PendingNode = ""
	state.PRCandidates = nil

	return p.runSearch(ctx, state, emitter, start, true)
}

// runSearch drives the rewrite -> plan -> retrieve -> rerank -> pr-context
// -> grade loop and ends in generation. skipToGrade continues a resumed
// turn from the grade step.
func (p *Pipeline) runSearch(ctx context.Context, state *State, emitter Emitter, start time.Time, skipToGrade bool) (*TurnResult, error) {
	var ticketsCh chan result.List

	for {
		// The stream handler cancels this context when the client goes
		// away; stop between stages instead of finishing the turn.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !skipToGrade {
			emitter.Emit(statusEvent(NodeRewrite, "Rewriting the search query"))
			if err := p.rewrite(ctx, state); err != nil {
				return nil, fmt.Errorf("rewrite: %w", err)
			}

			// The related-ticket side search branches off the first rewrite
			// and never gates the main flow.
			if ticketsCh == nil && state.RelatedTickets == nil {
				ticketsCh = make(chan result.List, 1)
				go p.relatedTickets(ctx, state.CurrentQuery, state.IndexList, ticketsCh)
			}

			emitter.Emit(statusEvent(NodePlan, "Planning datasource queries"))
			if err := p.plan(ctx, state); err != nil {
				return nil, fmt.Errorf("plan: %w", err)
			}

			emitter.Emit(statusEvent(NodeRetrieve, "Searching knowledge indices"))
			p.retrieve(ctx, state)

			emitter.Emit(statusEvent(NodeRerank, "Reranking results"))
			p.rerankAndDiversify(ctx, state)

			// Join the side search before any suspension so the checkpoint
			// carries the tickets.
			if ticketsCh != nil {
				select {
				case tickets := <-ticketsCh:
					state.RelatedTickets = tickets
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				ticketsCh = nil
			}

			interrupted, err := p.managePRContext(ctx, state, emitter)
			if err != nil {
				return nil, fmt.Errorf("pr context: %w", err)
			}
			if interrupted != nil {
				return nil, interrupted
			}
		}
		skipToGrade = false

		emitter.Emit(statusEvent(NodeGrade, "Grading retrieval quality"))
		if err := p.grade(ctx, state); err != nil {
			return nil, fmt.Errorf("grade: %w", err)
		}
		if state.GradeStatus == GradeBad {
			continue
		}
		break
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	emitter.Emit(statusEvent(NodeGenerate, "Generating the answer"))
	answer, sources, err := p.generate(ctx, state, emitter)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	state.AppendMessage(llm.Message{Role: "assistant", Content: answer})
	turn := &TurnResult{
		Answer:         answer,
		Sources:        sources,
		RelatedTickets: state.RelatedTickets,
		ProcessTime:    time.Since(start).Seconds(),
	}
	p.checkpoint(ctx, state)
	emitter.Emit(Event{Type: EventResult, Node: NodeGenerate, Result: turn})
	return turn, nil
}

// checkpoint persists state at a turn boundary. Persistence failure here is
// logged, not fatal: the answer is already produced.
func (p *Pipeline) checkpoint(ctx context.Context, state *State) {
	if p.store == nil {
		return
	}
	if err := p.store.Save(ctx, state); err != nil {
		p.logger.Printf("[WARN] checkpoint failed for session %s: %v", state.SessionID, err)
	}
}
