// Package dispatch builds and submits batched push requests and interprets
// per-token delivery outcomes.
package dispatch

import "errors"

// Dispatch errors.
var (
	// ErrNoTokens is returned when Dispatch is invoked with an empty token
	// set. Callers must short-circuit before reaching the dispatcher.
	ErrNoTokens = errors.New("no tokens to dispatch")
)

// Payload is the shared notification content for one event. Data values
// must be plain strings; provider APIs reject non-string metadata.
type Payload struct {
	Title string
	Body  string
	Data  map[string]string
}

// Outcome is the delivery result for a single token.
type Outcome struct {
	Success bool
	Reason  string
}

// Result is the per-token outcome of one multicast submission.
// Outcomes[i] always corresponds to Tokens[i].
type Result struct {
	Tokens   []string
	Outcomes []Outcome
}

// FailedTokens returns the tokens whose outcome was a failure, extracted by
// index position.
func (r *Result) FailedTokens() []string {
	var failed []string
	for i, o := range r.Outcomes {
		if !o.Success && i < len(r.Tokens) && r.Tokens[i] != "" {
			failed = append(failed, r.Tokens[i])
		}
	}
	return failed
}

// SuccessCount returns the number of successful deliveries.
func (r *Result) SuccessCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Success {
			n++
		}
	}
	return n
}

// Target addresses one event's recipients on both provider variants.
type Target struct {
	// Tokens are FCM device registration tokens, deduplicated by the caller.
	Tokens []string

	// PlayerIDs are OneSignal player ids, deduplicated by the caller.
	PlayerIDs []string
}
