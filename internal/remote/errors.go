package remote

import "fmt"

// FailKind classifies why a remote call failed. Every kind carries its own
// diagnostic, but callers treat them uniformly as "step failed"; the kind
// exists for logs and tests, not for branching retry logic.
type FailKind int

const (
	// FailNetwork: the HTTP request itself failed (unreachable, timeout).
	FailNetwork FailKind = iota
	// FailDecode: the response body was not valid JSON.
	FailDecode
	// FailStatus: the API answered with a non-"ok" status in the body.
	FailStatus
	// FailEmpty: the API answered ok but the data payload was absent.
	FailEmpty
)

func (k FailKind) String() string {
	switch k {
	case FailNetwork:
		return "network"
	case FailDecode:
		return "decode"
	case FailStatus:
		return "status"
	case FailEmpty:
		return "empty-payload"
	default:
		return "unknown"
	}
}

// CallError is the tagged failure result of one remote call.
type CallError struct {
	Kind    FailKind
	Action  string // API action name, e.g. "set_group_card"
	Message string // server-supplied message, when present
	Err     error  // underlying transport/decode error, when present
}

func (e *CallError) Error() string {
	switch e.Kind {
	case FailNetwork:
		return fmt.Sprintf("%s: request failed: %v", e.Action, e.Err)
	case FailDecode:
		return fmt.Sprintf("%s: malformed response: %v", e.Action, e.Err)
	case FailStatus:
		msg := e.Message
		if msg == "" {
			msg = "unknown error"
		}
		return fmt.Sprintf("%s: api rejected request: %s", e.Action, msg)
	case FailEmpty:
		return fmt.Sprintf("%s: empty data payload", e.Action)
	default:
		return fmt.Sprintf("%s: call failed", e.Action)
	}
}

func (e *CallError) Unwrap() error { return e.Err }
