package domain

import (
	"errors"
	"fmt"
)

// Action is the per-turn routing decision
type Action string

const (
	ActionSearchWeb        Action = "SEARCH_WEB"
	ActionAnalyzeData      Action = "ANALYZE_DATA"
	ActionSearchAndAnalyze Action = "SEARCH_AND_ANALYZE"
	ActionGeneralResponse  Action = "GENERAL_RESPONSE"

	// ActionComprehensive is the fixed first-turn path; the router never returns it
	ActionComprehensive Action = "COMPREHENSIVE_ANALYSIS"
)

// RoutableActions lists the tokens the intent router may answer with
var RoutableActions = []Action{
	ActionSearchWeb,
	ActionAnalyzeData,
	ActionSearchAndAnalyze,
	ActionGeneralResponse,
}

// ParseAction matches a classifier answer case-sensitively against the
// routable tokens. Anything unknown resolves to ActionGeneralResponse.
func ParseAction(s string) Action {
	for _, a := range RoutableActions {
		if string(a) == s {
			return a
		}
	}
	return ActionGeneralResponse
}

// ErrPolicyViolation is returned when user input fails the responsible-AI guard
var ErrPolicyViolation = errors.New("input violates responsible AI policy")

// PolicyViolationMessage is shown to the user when a turn is rejected
const PolicyViolationMessage = "These are not part of the Responsible AI Framework"

// ErrorKind classifies a degraded turn
type ErrorKind string

const (
	ErrorKindCompletion ErrorKind = "completion"
	ErrorKindRouting    ErrorKind = "routing"
	ErrorKindDataset    ErrorKind = "dataset"
)

// TurnError describes why a turn could not be composed
type TurnError struct {
	Kind    ErrorKind
	Message string
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("Error: %s", e.Message)
}

// TurnResult is the outcome of composing one assistant reply
type TurnResult struct {
	Action  Action
	Content string
	Err     *TurnError
}

// Text returns the content to store as the assistant message
func (r TurnResult) Text() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return r.Content
}

// ArticleEntry is a (title, url) pair parsed from search output
type ArticleEntry struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	// Line is the bullet as emitted, kept verbatim for markdown-link lines
	Line string `json:"-"`
}

// DatasetRow is an opaque record forwarded to the LLM as context
type DatasetRow = map[string]any
