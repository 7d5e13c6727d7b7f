package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"pubgraph/internal/graph"
	"pubgraph/internal/store"
)

// GraphStore is the transactional-store implementation of store.Store. The
// fill-missing merge runs inside the upsert statement itself (existing jsonb
// wins over the excluded row), so per-key serialization falls out of row
// locking and no retry loop is needed for concurrent creates.
type GraphStore struct {
	db *DB

	schemaMu       sync.Mutex
	schemaPrepared bool
}

var _ store.Store = (*GraphStore)(nil)

func NewGraphStore(db *DB) *GraphStore {
	return &GraphStore{db: db}
}

func (s *GraphStore) UpsertEntity(ctx context.Context, ref graph.EntityRef, attrs graph.Attributes) (bool, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return false, err
	}
	payload, err := json.Marshal(attrs.Clone())
	if err != nil {
		return false, fmt.Errorf("marshal attrs: %w", err)
	}
	var created bool
	err = s.db.Pool.QueryRow(ctx, `
INSERT INTO graph_entities(entity_type, natural_key, attrs)
VALUES ($1, $2, COALESCE($3::jsonb, '{}'::jsonb))
ON CONFLICT (entity_type, natural_key)
DO UPDATE SET attrs = EXCLUDED.attrs || graph_entities.attrs, updated_at = NOW()
RETURNING (xmax = 0)`,
		string(ref.Type), ref.NaturalKey, nullIfEmptyJSON(payload)).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert entity %s: %w", ref.Key(), err)
	}
	return created, nil
}

func (s *GraphStore) GetEntity(ctx context.Context, typ graph.EntityType, naturalKey string) (graph.Entity, bool, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return graph.Entity{}, false, err
	}
	var raw []byte
	err := s.db.Pool.QueryRow(ctx,
		`SELECT attrs FROM graph_entities WHERE entity_type=$1 AND natural_key=$2`,
		string(typ), naturalKey).Scan(&raw)
	if err != nil {
		if isNoRows(err) {
			return graph.Entity{}, false, nil
		}
		return graph.Entity{}, false, fmt.Errorf("get entity: %w", err)
	}
	attrs, err := unmarshalAttrs(raw)
	if err != nil {
		return graph.Entity{}, false, err
	}
	return graph.Entity{Ref: graph.EntityRef{Type: typ, NaturalKey: naturalKey}, Attrs: attrs}, true, nil
}

func (s *GraphStore) UpsertEdge(ctx context.Context, kind graph.RelKind, source, target graph.EntityRef, props graph.Attributes) (store.EdgeOutcome, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return "", err
	}
	payload, err := json.Marshal(props.Clone())
	if err != nil {
		return "", fmt.Errorf("marshal props: %w", err)
	}
	var created bool
	err = s.db.Pool.QueryRow(ctx, `
INSERT INTO graph_edges(source_type, source_key, kind, target_type, target_key, props)
VALUES ($1, $2, $3, $4, $5, COALESCE($6::jsonb, '{}'::jsonb))
ON CONFLICT (source_type, source_key, kind, target_type, target_key)
DO UPDATE SET props = EXCLUDED.props || graph_edges.props, updated_at = NOW()
RETURNING (xmax = 0)`,
		string(source.Type), source.NaturalKey, string(kind),
		string(target.Type), target.NaturalKey, nullIfEmptyJSON(payload)).Scan(&created)
	if err != nil {
		return "", fmt.Errorf("upsert edge %s %s -> %s: %w", kind, source.Key(), target.Key(), err)
	}
	if created {
		return store.EdgeCreated, nil
	}
	return store.EdgeMerged, nil
}

func (s *GraphStore) GetEdge(ctx context.Context, kind graph.RelKind, source, target graph.EntityRef) (graph.Edge, bool, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return graph.Edge{}, false, err
	}
	var raw []byte
	err := s.db.Pool.QueryRow(ctx, `
SELECT props FROM graph_edges
WHERE source_type=$1 AND source_key=$2 AND kind=$3 AND target_type=$4 AND target_key=$5`,
		string(source.Type), source.NaturalKey, string(kind),
		string(target.Type), target.NaturalKey).Scan(&raw)
	if err != nil {
		if isNoRows(err) {
			return graph.Edge{}, false, nil
		}
		return graph.Edge{}, false, fmt.Errorf("get edge: %w", err)
	}
	props, err := unmarshalAttrs(raw)
	if err != nil {
		return graph.Edge{}, false, err
	}
	return graph.Edge{Kind: kind, Source: source, Target: target, Props: props}, true, nil
}

func (s *GraphStore) GetEdges(ctx context.Context, ref graph.EntityRef, kind graph.RelKind, dir store.Direction) ([]graph.Edge, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	if dir == "" {
		dir = store.DirBoth
	}
	q := `
SELECT source_type, source_key, kind, target_type, target_key, props
FROM graph_edges
WHERE (($3 IN ('out','both') AND source_type=$1 AND source_key=$2)
    OR ($3 IN ('in','both') AND target_type=$1 AND target_key=$2))
  AND ($4 = '' OR kind = $4)`
	rows, err := s.db.Pool.Query(ctx, q, string(ref.Type), ref.NaturalKey, string(dir), string(kind))
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()
	out := make([]graph.Edge, 0)
	for rows.Next() {
		e, err := scanEdge(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *GraphStore) EdgesByKind(ctx context.Context, kind graph.RelKind, fn func(graph.Edge) bool) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	rows, err := s.db.Pool.Query(ctx, `
SELECT source_type, source_key, kind, target_type, target_key, props
FROM graph_edges WHERE kind=$1`, string(kind))
	if err != nil {
		return fmt.Errorf("query edges by kind: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		e, err := scanEdge(rows.Scan)
		if err != nil {
			return err
		}
		if !fn(e) {
			return nil
		}
	}
	return rows.Err()
}

func (s *GraphStore) Summary(ctx context.Context) (store.Summary, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return store.Summary{}, err
	}
	sum := store.Summary{
		Entities: make(map[graph.EntityType]int),
		Edges:    make(map[graph.RelKind]int),
	}
	rows, err := s.db.Pool.Query(ctx, `SELECT entity_type, COUNT(*) FROM graph_entities GROUP BY entity_type`)
	if err != nil {
		return store.Summary{}, fmt.Errorf("count entities: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return store.Summary{}, err
		}
		sum.Entities[graph.EntityType(typ)] = n
	}
	if err := rows.Err(); err != nil {
		return store.Summary{}, err
	}
	rows, err = s.db.Pool.Query(ctx, `SELECT kind, COUNT(*) FROM graph_edges GROUP BY kind`)
	if err != nil {
		return store.Summary{}, fmt.Errorf("count edges: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return store.Summary{}, err
		}
		sum.Edges[graph.RelKind(kind)] = n
	}
	return sum, rows.Err()
}

func scanEdge(scan func(...any) error) (graph.Edge, error) {
	var srcType, srcKey, kind, tgtType, tgtKey string
	var raw []byte
	if err := scan(&srcType, &srcKey, &kind, &tgtType, &tgtKey, &raw); err != nil {
		return graph.Edge{}, fmt.Errorf("scan edge: %w", err)
	}
	props, err := unmarshalAttrs(raw)
	if err != nil {
		return graph.Edge{}, err
	}
	return graph.Edge{
		Kind:   graph.RelKind(kind),
		Source: graph.EntityRef{Type: graph.EntityType(srcType), NaturalKey: srcKey},
		Target: graph.EntityRef{Type: graph.EntityType(tgtType), NaturalKey: tgtKey},
		Props:  props,
	}, nil
}

func unmarshalAttrs(raw []byte) (graph.Attributes, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var attrs graph.Attributes
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, fmt.Errorf("decode attrs: %w", err)
	}
	if len(attrs) == 0 {
		return nil, nil
	}
	return attrs, nil
}

func nullIfEmptyJSON(b []byte) any {
	if len(b) == 0 || string(b) == "null" || string(b) == "{}" {
		return nil
	}
	return string(b)
}

func (s *GraphStore) ensureSchema(ctx context.Context) error {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()

	if s.schemaPrepared {
		return nil
	}

	// Keep migrations resilient even if the operator forgot to run them.
	ddl := `
CREATE TABLE IF NOT EXISTS graph_entities (
  entity_type TEXT NOT NULL,
  natural_key TEXT NOT NULL,
  attrs JSONB NOT NULL DEFAULT '{}'::jsonb,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  PRIMARY KEY (entity_type, natural_key)
);

CREATE TABLE IF NOT EXISTS graph_edges (
  source_type TEXT NOT NULL,
  source_key TEXT NOT NULL,
  kind TEXT NOT NULL,
  target_type TEXT NOT NULL,
  target_key TEXT NOT NULL,
  props JSONB NOT NULL DEFAULT '{}'::jsonb,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  PRIMARY KEY (source_type, source_key, kind, target_type, target_key)
);

CREATE INDEX IF NOT EXISTS idx_graph_edges_target ON graph_edges(target_type, target_key, kind);
CREATE INDEX IF NOT EXISTS idx_graph_edges_kind ON graph_edges(kind);
`
	if _, err := s.db.Pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure graph schema: %w", err)
	}
	s.schemaPrepared = true
	return nil
}
