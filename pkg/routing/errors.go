package routing

import (
	"errors"
	"fmt"
	"strings"
)

// Common routing errors that can be checked with errors.Is().
var (
	// ErrInvalidReference is returned when a model reference is not of the
	// form "provider/model".
	ErrInvalidReference = errors.New("invalid model reference")

	// ErrUnknownProvider is returned when a reference names a provider that
	// has no configuration entry.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrNoPrimaryModel is returned when model.primary is not configured.
	ErrNoPrimaryModel = errors.New("no primary model configured in model.primary")
)

// InvalidReferenceError is returned when a model reference cannot be split
// into a provider name and a model ID.
type InvalidReferenceError struct {
	// Ref is the reference as written in configuration.
	Ref string
}

// Error implements the error interface.
func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("invalid model reference %q: expected \"provider/model\" format", e.Ref)
}

// Is implements error matching for errors.Is().
func (e *InvalidReferenceError) Is(target error) bool {
	return target == ErrInvalidReference
}

// UnknownProviderError is returned when the provider part of a reference has
// no matching entry under providers.
type UnknownProviderError struct {
	// Provider is the requested provider name.
	Provider string

	// AvailableProviders contains the names of configured providers.
	AvailableProviders []string
}

// Error implements the error interface.
func (e *UnknownProviderError) Error() string {
	if len(e.AvailableProviders) == 0 {
		return fmt.Sprintf("provider %q not found in config (no providers configured)", e.Provider)
	}
	return fmt.Sprintf("provider %q not found in config (available providers: %s)",
		e.Provider, strings.Join(e.AvailableProviders, ", "))
}

// Is implements error matching for errors.Is().
func (e *UnknownProviderError) Is(target error) bool {
	return target == ErrUnknownProvider
}
