// Package providers recognizes the event header conventions of the
// supported version-control systems.
package providers

import (
	"fmt"

	"github.com/buildhook/webhook-dispatcher/pkg/jsonpath"
)

// Provider extracts event information for one header convention. Header
// names are expected in lower case.
type Provider interface {
	// Name identifies the convention in logs
	Name() string

	// Matches reports whether the delivery follows this convention
	Matches(headers map[string]string) bool

	// IsPing reports whether the delivery is a connectivity check
	IsPing(headers map[string]string) bool

	// EventType returns the event type to compare with the configured one
	EventType(headers map[string]string, payload jsonpath.Value) string
}

// Registry holds the known conventions in detection order
type Registry struct {
	providers []Provider
}

// NewRegistry creates a registry with the Bitbucket and GitHub conventions.
// Bitbucket is checked first.
func NewRegistry() *Registry {
	return &Registry{
		providers: []Provider{
			NewBitbucketProvider(),
			NewGitHubProvider(),
		},
	}
}

// Detect returns the first provider whose convention the headers follow
func (r *Registry) Detect(headers map[string]string) (Provider, error) {
	for _, p := range r.providers {
		if p.Matches(headers) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("event type not found in headers")
}

// Names returns the registered provider names in detection order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		names = append(names, p.Name())
	}
	return names
}
