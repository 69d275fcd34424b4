package llm

import (
	"errors"
	"fmt"
)

// Transient failure kinds the retry policy acts on.
const (
	KindRateLimit   = "rate_limit"
	KindTimeout     = "timeout"
	KindConnection  = "connection"
	KindServerError = "server_error"
)

// TransientError marks a backend failure worth retrying.
type TransientError struct {
	Kind string
	Err  error
}

func (e *TransientError) Error() string {
	if e == nil {
		return "llm: transient error <nil>"
	}
	if e.Err == nil {
		return fmt.Sprintf("llm: transient %s", e.Kind)
	}
	return fmt.Sprintf("llm: transient %s: %v", e.Kind, e.Err)
}

func (e *TransientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func transient(kind string, err error) *TransientError {
	return &TransientError{Kind: kind, Err: err}
}

// IsTransient reports whether err should be retried under the shared policy.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
