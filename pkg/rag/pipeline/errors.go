package pipeline

import (
	"errors"
	"fmt"

	"catchup-rag-be/pkg/rag/result"
)

// ErrNotSuspended is returned when a resume arrives for a session that has
// no pending interrupt.
var ErrNotSuspended = errors.New("session is not suspended")

// InterruptError signals that the turn suspended at the PR-context step.
// State has been checkpointed; the caller must collect a user selection and
// call Resume.
type InterruptError struct {
	Node       string
	Candidates []result.PRCandidate
}

func (e *InterruptError) Error() string {
	return fmt.Sprintf("pipeline suspended at %s awaiting selection among %d pull requests", e.Node, len(e.Candidates))
}

// AsInterrupt unwraps an InterruptError if err carries one.
func AsInterrupt(err error) (*InterruptError, bool) {
	var ie *InterruptError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}
