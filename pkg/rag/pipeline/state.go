package pipeline

import (
	"catchup-rag-be/pkg/llm"
	"catchup-rag-be/pkg/rag/result"
)

// GradeStatus is the transient verdict of the grade step.
type GradeStatus string

const (
	GradeGood       GradeStatus = "good"
	GradeBad        GradeStatus = "bad"
	GradeMaxRetries GradeStatus = "max_retries"
)

// Node names, used for streaming status events and suspension markers.
const (
	NodeRouter         = "router"
	NodeChitchat       = "chitchat"
	NodeRewrite        = "rewrite"
	NodePlan           = "plan"
	NodeRetrieve       = "retrieve"
	NodeRerank         = "rerank"
	NodePRContext      = "manage_pr_context"
	NodeGrade          = "grade"
	NodeGenerate       = "generate"
	NodeRelatedTickets = "related_tickets"
)

// Datasource tags the router can choose.
const (
	DatasourceChitchat = "chitchat"
	DatasourceSearch   = "search_pipeline"
)

// Planner datasource types.
const (
	PlanCodebase    = "codebase"
	PlanGithubIssue = "github_issue"
	PlanPRHistory   = "pr_history"
	PlanJiraIssue   = "jira_issue"
)

// PlannedQuery is one (datasource-type, query) pair produced by the planner
// and consumed once by the retriever.
type PlannedQuery struct {
	Datasource string `json:"datasource"`
	Query      string `json:"query"`
}

// State is the per-session pipeline state. It is owned exclusively by the
// pipeline runner, checkpointed to the session store between turns and
// across the PR-selection suspension.
type State struct {
	SessionID string `json:"session_id"`
	Role      string `json:"role"`

	Messages     []llm.Message `json:"messages"`
	CurrentQuery string        `json:"current_query"`
	RetryCount   int           `json:"retry_count"`
	Datasource   string        `json:"datasource"`

	SearchQueries  []PlannedQuery `json:"search_queries,omitempty"`
	RetrievedDocs  result.List    `json:"retrieved_docs,omitempty"`
	GradeStatus    GradeStatus    `json:"grade_status,omitempty"`
	IndexList      []string       `json:"index_list"`
	RelatedTickets result.List    `json:"related_tickets,omitempty"`

	// Suspension bookkeeping. PendingNode is set while the pipeline waits
	// for an external resume payload.
	PendingNode  string               `json:"pending_node,omitempty"`
	PRCandidates []result.PRCandidate `json:"pr_candidates,omitempty"`
}

// NewState starts a fresh session.
func NewState(sessionID, role string, indexList []string) *State {
	return &State{
		SessionID: sessionID,
		Role:      role,
		IndexList: indexList,
	}
}

// Suspended reports whether the session is parked at an interrupt.
func (s *State) Suspended() bool {
	return s.PendingNode != ""
}

// messageWindowHumanTurns is the sliding-window size: the reducer keeps the
// system preamble plus everything from the Nth-from-last human turn on.
const messageWindowHumanTurns = 10

// AppendMessage is the append-then-trim reducer for conversation history.
// Ordering is never disturbed; only oldest turns fall off.
func (s *State) AppendMessage(msg llm.Message) {
	s.Messages = append(s.Messages, msg)
	s.Messages = trimMessageWindow(s.Messages, messageWindowHumanTurns)
}

func trimMessageWindow(messages []llm.Message, humanTurns int) []llm.Message {
	humanSeen := 0
	cut := 0
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			humanSeen++
			if humanSeen == humanTurns {
				cut = i
				break
			}
		}
	}
	if cut == 0 {
		return messages
	}

	trimmed := make([]llm.Message, 0, len(messages)-cut+1)
	// Preserve a leading system preamble if one exists.
	if messages[0].Role == "system" {
		trimmed = append(trimmed, messages[0])
	}
	trimmed = append(trimmed, messages[cut:]...)
	return trimmed
}

// LatestQuery returns the content of the most recent human turn.
func (s *State) LatestQuery() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == "user" {
			return s.Messages[i].Content
		}
	}
	return ""
}
