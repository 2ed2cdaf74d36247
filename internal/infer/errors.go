package infer

import "fmt"

// parseFailedFailure is the ParseFailed taxonomy entry (spec §7): both
// dialects failed to parse the snippet. Named/typed the way the
// teacher's errors.go distinguishes failure kinds (badOptsFailure,
// missingSourceFailure) rather than relying on sentinel equality alone.
type parseFailedFailure struct{}

func (parseFailedFailure) Error() string { return "both dialects failed to parse the snippet" }

// ErrParseFailed is the canonical parseFailedFailure value.
var ErrParseFailed error = parseFailedFailure{}

// kgQueryFailure is the KGQueryError taxonomy entry: a backend I/O
// failure during any KG call, which propagates upward and fails the
// whole inference.
type kgQueryFailure struct {
	phase string
	cause error
}

func (e *kgQueryFailure) Error() string {
	return fmt.Sprintf("knowledge graph query failed during %s: %v", e.phase, e.cause)
}

func (e *kgQueryFailure) Unwrap() error { return e.cause }

func kgFailure(phase string, cause error) error {
	return &kgQueryFailure{phase: phase, cause: cause}
}
