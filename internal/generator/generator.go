// Package generator wraps the external content-generation collaborator: a
// single request/response text call whose output is expected to contain a
// JSON object somewhere in free-form prose.
package generator

import (
	"context"
	"errors"
	"fmt"
)

// Request is the collaborator's input contract.
type Request struct {
	InstructionPrompt string `json:"instruction_prompt"`
	ContextText       string `json:"context_text"`
}

// Client is the transport to the collaborator. Implementations must be safe
// for concurrent use.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// TransportError means the call to the generator failed outright. It is
// surfaced as retryable; the mastery loop stays in its current state.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("generator transport failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError means the generator's response could not be parsed into the
// expected JSON shape. Callers recover locally with a deterministic
// fallback; this error is never fatal.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("generator response unparseable: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err is a generator transport failure.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsParseError reports whether err is a generator parse failure.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
