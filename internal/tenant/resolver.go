// Package tenant maps an upload-origin identifier (an API key handed to a
// law firm) onto its tenant id. Absence of a tenant is valid: such documents
// pair in the global namespace.
package tenant

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Resolver resolves an origin key to a tenant id. nil, nil means "no tenant".
type Resolver interface {
	Resolve(ctx context.Context, origin string) (*uuid.UUID, error)
}

// StaticResolver resolves from a fixed table, typically loaded from the
// TENANT_KEYS env entry ("key1:uuid,key2:uuid").
type StaticResolver struct {
	byKey map[string]uuid.UUID
}

func NewStaticResolver(spec string) *StaticResolver {
	byKey := make(map[string]uuid.UUID)
	for _, pair := range strings.Split(spec, ",") {
		key, val, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			continue
		}
		id, err := uuid.Parse(strings.TrimSpace(val))
		if err != nil {
			continue
		}
		byKey[strings.TrimSpace(key)] = id
	}
	return &StaticResolver{byKey: byKey}
}

func (r *StaticResolver) Resolve(_ context.Context, origin string) (*uuid.UUID, error) {
	if id, ok := r.byKey[origin]; ok {
		out := id
		return &out, nil
	}
	return nil, nil
}
