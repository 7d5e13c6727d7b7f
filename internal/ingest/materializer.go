package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"pubgraph/internal/graph"
	"pubgraph/internal/store"
)

var (
	ErrUnknownRelKind = errors.New("unknown relationship kind")

	// ErrDanglingReference is reserved for strict modes: the resolver
	// always upserts, so a missing endpoint indicates an upstream
	// invariant violation.
	ErrDanglingReference = errors.New("dangling entity reference")
)

// Materializer owns the edge index side of ingestion: exactly one directed
// edge per (source, kind, target) triple, re-encounters merge properties.
type Materializer struct {
	store store.Store
	log   *zap.Logger
}

func NewMaterializer(s store.Store, log *zap.Logger) *Materializer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Materializer{store: s, log: log}
}

// Materialize upserts the edge and reports whether a self-loop was seen.
// Self-loops are accepted and warned, not rejected.
func (m *Materializer) Materialize(ctx context.Context, kind graph.RelKind, source, target graph.EntityRef, props graph.Attributes) (store.EdgeOutcome, bool, error) {
	if !graph.IsRelKind(kind) {
		return "", false, fmt.Errorf("materialize %s: %w", kind, ErrUnknownRelKind)
	}
	selfLoop := source == target
	if selfLoop {
		m.log.Warn("self-loop edge",
			zap.String("kind", string(kind)),
			zap.String("key", source.Key()))
	}
	out, err := m.store.UpsertEdge(ctx, kind, source, target, props)
	if err != nil {
		return "", selfLoop, fmt.Errorf("materialize %s %s -> %s: %w", kind, source.Key(), target.Key(), err)
	}
	return out, selfLoop, nil
}
