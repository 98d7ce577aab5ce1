package enrichment

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/studentdiary-backend/internal/pkg/httpx"
)

type Provider string

const (
	ProviderLLM    Provider = "llm"
	ProviderVector Provider = "vector"
	ProviderGraph  Provider = "graph"
)

type Kind string

const (
	Transient Kind = "transient"
	Permanent Kind = "permanent"
)

// ErrDisabled marks a capability that is not configured in this deployment.
var ErrDisabled = errors.New("provider not configured")

// ProviderError is the only error type the enrichment client returns.
type ProviderError struct {
	Provider Provider
	Kind     Kind
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider %s failure: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Transient() bool { return e.Kind == Transient }

// Disabled reports whether err is a ProviderError for an unconfigured capability.
func Disabled(err error) bool {
	return errors.Is(err, ErrDisabled)
}

// Classify wraps err as a ProviderError. Timeouts, throttling, 5xx and network errors are
// transient; everything else is permanent. Existing ProviderErrors keep their kind.
func Classify(provider Provider, err error) *ProviderError {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	kind := Permanent
	if httpx.IsRetryableError(err) && !errors.Is(err, context.Canceled) {
		kind = Transient
	}
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

// Recovered turns a value caught by recover into a permanent ProviderError.
func Recovered(provider Provider, r any) *ProviderError {
	return &ProviderError{Provider: provider, Kind: Permanent, Err: fmt.Errorf("panic: %v", r)}
}

func disabledError(provider Provider) *ProviderError {
	return &ProviderError{Provider: provider, Kind: Permanent, Err: ErrDisabled}
}
