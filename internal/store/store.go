package store

import (
	"context"

	"pubgraph/internal/graph"
)

type EdgeOutcome string

const (
	EdgeCreated EdgeOutcome = "created"
	EdgeMerged  EdgeOutcome = "merged"
)

type Direction string

const (
	DirOut  Direction = "out"
	DirIn   Direction = "in"
	DirBoth Direction = "both"
)

// Summary reports node counts per entity type and edge counts per kind.
type Summary struct {
	Entities map[graph.EntityType]int `json:"entities"`
	Edges    map[graph.RelKind]int    `json:"edges"`
}

func (s Summary) TotalEntities() int {
	n := 0
	for _, c := range s.Entities {
		n += c
	}
	return n
}

func (s Summary) TotalEdges() int {
	n := 0
	for _, c := range s.Edges {
		n += c
	}
	return n
}

// Store is the shared mutable state behind the ingestion engine: an entity
// index keyed by (type, naturalKey) and an edge index keyed by
// (source, kind, target). Implementations must serialize upserts per key
// and per triple so parallel source streams cannot race a duplicate in.
type Store interface {
	// UpsertEntity creates the entity on first sight or fill-missing merges
	// attrs into the existing record. Reports whether it created.
	UpsertEntity(ctx context.Context, ref graph.EntityRef, attrs graph.Attributes) (bool, error)

	GetEntity(ctx context.Context, typ graph.EntityType, naturalKey string) (graph.Entity, bool, error)

	// UpsertEdge inserts the (source, kind, target) edge or fill-missing
	// merges props into the existing one. At most one edge ever exists per
	// triple.
	UpsertEdge(ctx context.Context, kind graph.RelKind, source, target graph.EntityRef, props graph.Attributes) (EdgeOutcome, error)

	GetEdge(ctx context.Context, kind graph.RelKind, source, target graph.EntityRef) (graph.Edge, bool, error)

	// GetEdges lists edges touching ref. kind "" matches every kind.
	GetEdges(ctx context.Context, ref graph.EntityRef, kind graph.RelKind, dir Direction) ([]graph.Edge, error)

	// EdgesByKind streams every edge of one kind through fn; fn returning
	// false stops the scan.
	EdgesByKind(ctx context.Context, kind graph.RelKind, fn func(graph.Edge) bool) error

	Summary(ctx context.Context) (Summary, error)
}
