// Package secrets resolves secret references such as Secrets Manager ARNs.
package secrets

import (
	"context"
	"fmt"
)

// Store resolves a secret reference to its value
type Store interface {
	GetSecret(ctx context.Context, ref string) (string, error)
}

// NotFoundError reports a reference the store does not know
type NotFoundError struct {
	Ref string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("secret %s not found", e.Ref)
}

// StaticStore serves secrets from a fixed map
type StaticStore map[string]string

// GetSecret returns the value stored under ref
func (s StaticStore) GetSecret(_ context.Context, ref string) (string, error) {
	value, ok := s[ref]
	if !ok {
		return "", &NotFoundError{Ref: ref}
	}
	return value, nil
}
