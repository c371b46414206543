// Package provider hides each external generation service behind one narrow
// submit/poll contract. Adapters normalize heterogeneous native status
// vocabularies onto the canonical five-state enum and extract output URLs
// from whatever shape the provider chooses to return.
package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/aahadr1/AdsCreator-sub003/internal/domain"
)

// PollResult is the canonical view of one provider poll.
type PollResult struct {
	Status    domain.JobStatus
	OutputURL string
	Error     string
	// NativeStatus is the provider's raw status string, kept for logging.
	NativeStatus string
	// UnknownStatus marks a native status that did not map onto the
	// canonical enum and was conservatively bucketed as queued. Pollers log
	// these distinctly from a true queued observation.
	UnknownStatus bool
}

// Adapter is the per-provider submit/poll contract. Submit returns the
// provider-assigned job id; Poll is idempotent and safe to repeat.
type Adapter interface {
	Name() string
	Submit(ctx context.Context, kind domain.JobKind, modelRef string, input map[string]any) (string, error)
	Poll(ctx context.Context, jobID string) (PollResult, error)
}

// Registry resolves provider names to adapters.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds a registry from the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		if a != nil {
			r.adapters[a.Name()] = a
		}
	}
	return r
}

// Get returns the adapter for a provider name.
func (r *Registry) Get(name string) (Adapter, error) {
	a, ok := r.adapters[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrValidation, name)
	}
	return a, nil
}

// Names lists registered provider names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}

// ExtractOutputURL pulls a usable URL out of a heterogeneous provider
// output value. Shapes are tried in fixed priority order: bare string,
// first element of an array, then an object exposing a url-like field.
// The first non-empty match wins; anything else yields "".
func ExtractOutputURL(output any) string {
	switch v := output.(type) {
	case string:
		return strings.TrimSpace(v)
	case []any:
		if len(v) == 0 {
			return ""
		}
		return ExtractOutputURL(v[0])
	case []string:
		if len(v) == 0 {
			return ""
		}
		return strings.TrimSpace(v[0])
	case map[string]any:
		for _, field := range []string{"url", "video", "audio", "image", "output"} {
			if inner, ok := v[field]; ok {
				if u := ExtractOutputURL(inner); u != "" {
					return u
				}
			}
		}
	}
	return ""
}
