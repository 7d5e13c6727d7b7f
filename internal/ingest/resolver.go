package ingest

import (
	"context"
	"fmt"

	"pubgraph/internal/graph"
	"pubgraph/internal/store"
)

// Resolver maps typed entity references onto the entity index, creating on
// first sight and fill-missing merging otherwise. The store serializes
// concurrent resolution per natural key, so two workers racing the same
// reference converge on a single entity.
type Resolver struct {
	store store.Store
}

func NewResolver(s store.Store) *Resolver {
	return &Resolver{store: s}
}

func (r *Resolver) Resolve(ctx context.Context, ref graph.EntityRef, attrs graph.Attributes) (bool, error) {
	if !graph.IsEntityType(ref.Type) {
		return false, fmt.Errorf("resolve %s: %w", ref.Key(), graph.ErrUnknownEntityType)
	}
	created, err := r.store.UpsertEntity(ctx, ref, attrs)
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", ref.Key(), err)
	}
	return created, nil
}
