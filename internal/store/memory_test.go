package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"pubgraph/internal/graph"
)

func TestMemoryUpsertEntityFillMissing(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	ref := graph.EntityRef{Type: graph.EntityPaper, NaturalKey: "13553038"}

	created, err := m.UpsertEntity(ctx, ref, graph.Attributes{"title": "Aureomycin in therapy"})
	require.NoError(t, err)
	require.True(t, created)

	created, err = m.UpsertEntity(ctx, ref, graph.Attributes{"title": "different title", "doi": "10.1000/x"})
	require.NoError(t, err)
	require.False(t, created)

	ent, ok, err := m.GetEntity(ctx, graph.EntityPaper, "13553038")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Aureomycin in therapy", ent.Attrs["title"], "existing value must survive")
	require.Equal(t, "10.1000/x", ent.Attrs["doi"], "absent value must be filled")
}

func TestMemoryUpsertEdgeIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	src := graph.EntityRef{Type: graph.EntityPaper, NaturalKey: "100"}
	dst := graph.EntityRef{Type: graph.EntityPaper, NaturalKey: "200"}

	out, err := m.UpsertEdge(ctx, graph.RelCites, src, dst, graph.Attributes{"citation_text": "Smith 1998"})
	require.NoError(t, err)
	require.Equal(t, EdgeCreated, out)

	out, err = m.UpsertEdge(ctx, graph.RelCites, src, dst, nil)
	require.NoError(t, err)
	require.Equal(t, EdgeMerged, out)

	e, ok, err := m.GetEdge(ctx, graph.RelCites, src, dst)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Smith 1998", e.Props["citation_text"], "merge must not clear props")

	sum, err := m.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, sum.Edges[graph.RelCites])
}

func TestMemoryGetEdgesDirection(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	author := graph.EntityRef{Type: graph.EntityAuthor, NaturalKey: "97952a7ab4"}
	paper := graph.EntityRef{Type: graph.EntityPaper, NaturalKey: "13553038"}

	_, err := m.UpsertEdge(ctx, graph.RelWrote, author, paper, nil)
	require.NoError(t, err)
	_, err = m.UpsertEdge(ctx, graph.RelAuthored, paper, author, nil)
	require.NoError(t, err)

	out, err := m.GetEdges(ctx, author, graph.RelWrote, DirOut)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, paper, out[0].Target)

	in, err := m.GetEdges(ctx, author, "", DirIn)
	require.NoError(t, err)
	require.Len(t, in, 1)
	require.Equal(t, graph.RelAuthored, in[0].Kind)

	both, err := m.GetEdges(ctx, author, "", DirBoth)
	require.NoError(t, err)
	require.Len(t, both, 2)
}

func TestMemoryConcurrentResolveSingleEntity(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	ref := graph.EntityRef{Type: graph.EntityJournal, NaturalKey: "0372516"}

	const workers = 16
	var wg sync.WaitGroup
	createdCount := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created, err := m.UpsertEntity(ctx, ref, graph.Attributes{"name": fmt.Sprintf("name-%d", i)})
			if err == nil && created {
				createdCount <- true
			}
		}(i)
	}
	wg.Wait()
	close(createdCount)
	require.Len(t, createdCount, 1, "exactly one worker must create")

	sum, err := m.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, sum.Entities[graph.EntityJournal])
}
