package providerfactory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"yiyi-hq/gateway/pkg/providers"
)

// ErrUnsupportedAPI is matched by every UnsupportedAPIError.
var ErrUnsupportedAPI = errors.New("unsupported api")

// UnsupportedAPIError is returned when a model's API family has no adapter.
type UnsupportedAPIError struct {
	API      string
	Provider string
}

// Error implements the error interface.
func (e *UnsupportedAPIError) Error() string {
	return fmt.Sprintf("unsupported api %q for provider %q", e.API, e.Provider)
}

// Is allows errors.Is(err, ErrUnsupportedAPI).
func (e *UnsupportedAPIError) Is(target error) bool {
	return target == ErrUnsupportedAPI
}

// Registry maps API families to adapters.
//
// The map is built once and never mutated, so lookups need no locking and a
// Registry can be shared by every connection.
type Registry struct {
	adapters map[string]providers.Adapter
}

// NewRegistry creates a registry from adapters. A later adapter for the same
// API family replaces an earlier one.
func NewRegistry(adapters ...providers.Adapter) *Registry {
	m := make(map[string]providers.Adapter, len(adapters))
	for _, adapter := range adapters {
		if _, ok := m[adapter.API()]; ok {
			slog.Warn("replacing adapter", "api", adapter.API())
		}
		m[adapter.API()] = adapter
	}
	return &Registry{adapters: m}
}

// ResolveAdapter returns the adapter for model's API family.
func (r *Registry) ResolveAdapter(model *providers.ResolvedModel) (providers.Adapter, error) {
	adapter, ok := r.adapters[model.API]
	if !ok {
		return nil, &UnsupportedAPIError{API: model.API, Provider: model.ProviderName}
	}
	return adapter, nil
}

// APIs returns the registered API families in sorted order.
func (r *Registry) APIs() []string {
	apis := make([]string, 0, len(r.adapters))
	for api := range r.adapters {
		apis = append(apis, api)
	}
	sort.Strings(apis)
	return apis
}

// Close releases the connection pools of adapters that hold one.
func (r *Registry) Close() error {
	var errs []error
	for api, adapter := range r.adapters {
		closer, ok := adapter.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close adapter %q: %w", api, err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Debug("adapter registry closed")
	return nil
}
