package store

import (
	"context"
	"hash/fnv"
	"sync"

	"pubgraph/internal/graph"
)

const memShards = 32

type entityShard struct {
	mu       sync.RWMutex
	entities map[string]graph.Entity
}

type edgeShard struct {
	mu    sync.RWMutex
	edges map[string]graph.Edge
}

// Memory is the in-process Store. Both indexes are sharded by key hash so
// parallel source streams contend per key and per triple, not globally.
type Memory struct {
	entities [memShards]entityShard
	edges    [memShards]edgeShard
}

func NewMemory() *Memory {
	m := &Memory{}
	for i := range m.entities {
		m.entities[i].entities = make(map[string]graph.Entity)
	}
	for i := range m.edges {
		m.edges[i].edges = make(map[string]graph.Edge)
	}
	return m
}

func shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % memShards)
}

func tripleKey(kind graph.RelKind, source, target graph.EntityRef) string {
	return source.Key() + "\x00" + string(kind) + "\x00" + target.Key()
}

func (m *Memory) UpsertEntity(_ context.Context, ref graph.EntityRef, attrs graph.Attributes) (bool, error) {
	key := ref.Key()
	sh := &m.entities[shardIndex(key)]
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if ent, ok := sh.entities[key]; ok {
		merged := ent.Attrs
		if merged.MergeMissing(attrs) {
			ent.Attrs = merged
			sh.entities[key] = ent
		}
		return false, nil
	}
	sh.entities[key] = graph.Entity{Ref: ref, Attrs: attrs.Clone()}
	return true, nil
}

func (m *Memory) GetEntity(_ context.Context, typ graph.EntityType, naturalKey string) (graph.Entity, bool, error) {
	key := graph.EntityRef{Type: typ, NaturalKey: naturalKey}.Key()
	sh := &m.entities[shardIndex(key)]
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	ent, ok := sh.entities[key]
	if !ok {
		return graph.Entity{}, false, nil
	}
	ent.Attrs = ent.Attrs.Clone()
	return ent, true, nil
}

func (m *Memory) UpsertEdge(_ context.Context, kind graph.RelKind, source, target graph.EntityRef, props graph.Attributes) (EdgeOutcome, error) {
	key := tripleKey(kind, source, target)
	sh := &m.edges[shardIndex(key)]
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if e, ok := sh.edges[key]; ok {
		merged := e.Props
		if merged.MergeMissing(props) {
			e.Props = merged
			sh.edges[key] = e
		}
		return EdgeMerged, nil
	}
	sh.edges[key] = graph.Edge{Kind: kind, Source: source, Target: target, Props: props.Clone()}
	return EdgeCreated, nil
}

func (m *Memory) GetEdge(_ context.Context, kind graph.RelKind, source, target graph.EntityRef) (graph.Edge, bool, error) {
	key := tripleKey(kind, source, target)
	sh := &m.edges[shardIndex(key)]
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	e, ok := sh.edges[key]
	if !ok {
		return graph.Edge{}, false, nil
	}
	e.Props = e.Props.Clone()
	return e, true, nil
}

func (m *Memory) GetEdges(ctx context.Context, ref graph.EntityRef, kind graph.RelKind, dir Direction) ([]graph.Edge, error) {
	if dir == "" {
		dir = DirBoth
	}
	out := make([]graph.Edge, 0)
	for i := range m.edges {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sh := &m.edges[i]
		sh.mu.RLock()
		for _, e := range sh.edges {
			if kind != "" && e.Kind != kind {
				continue
			}
			match := (dir == DirOut || dir == DirBoth) && e.Source == ref ||
				(dir == DirIn || dir == DirBoth) && e.Target == ref
			if !match {
				continue
			}
			e.Props = e.Props.Clone()
			out = append(out, e)
		}
		sh.mu.RUnlock()
	}
	return out, nil
}

func (m *Memory) EdgesByKind(ctx context.Context, kind graph.RelKind, fn func(graph.Edge) bool) error {
	for i := range m.edges {
		if err := ctx.Err(); err != nil {
			return err
		}
		sh := &m.edges[i]
		sh.mu.RLock()
		// Snapshot the shard so fn can upsert without holding the lock.
		batch := make([]graph.Edge, 0, len(sh.edges))
		for _, e := range sh.edges {
			if e.Kind != kind {
				continue
			}
			e.Props = e.Props.Clone()
			batch = append(batch, e)
		}
		sh.mu.RUnlock()
		for _, e := range batch {
			if !fn(e) {
				return nil
			}
		}
	}
	return nil
}

func (m *Memory) Summary(_ context.Context) (Summary, error) {
	sum := Summary{
		Entities: make(map[graph.EntityType]int),
		Edges:    make(map[graph.RelKind]int),
	}
	for i := range m.entities {
		sh := &m.entities[i]
		sh.mu.RLock()
		for _, ent := range sh.entities {
			sum.Entities[ent.Ref.Type]++
		}
		sh.mu.RUnlock()
	}
	for i := range m.edges {
		sh := &m.edges[i]
		sh.mu.RLock()
		for _, e := range sh.edges {
			sum.Edges[e.Kind]++
		}
		sh.mu.RUnlock()
	}
	return sum, nil
}
