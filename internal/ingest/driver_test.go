package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"pubgraph/internal/graph"
	"pubgraph/internal/store"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func authoredPair(t *testing.T, dir string) Manifest {
	t.Helper()
	authored := writeFixture(t, dir, "authored_rels.csv",
		"startNode,endNode\nAuthor_97952a7ab4,Paper_13553038\n")
	authorOf := writeFixture(t, dir, "author_of_rels.csv",
		"startNode,endNode\nPaper_13553038,Author_97952a7ab4\n")
	return Manifest{
		Relationships: []RelationshipSource{
			{Name: "authored_rels.csv", Path: authored, Kind: graph.RelWrote},
			{Name: "author_of_rels.csv", Path: authorOf, Kind: graph.RelAuthored},
		},
	}
}

func TestImportAuthoredPairEndToEnd(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	d := NewDriver(s, nil, 2)

	report, err := d.ImportAll(ctx, authoredPair(t, t.TempDir()))
	require.NoError(t, err)
	require.Empty(t, report.Errors)
	require.Empty(t, report.Discrepancies)
	require.Equal(t, 2, report.TotalCreated())

	author := graph.EntityRef{Type: graph.EntityAuthor, NaturalKey: "97952a7ab4"}
	paper := graph.EntityRef{Type: graph.EntityPaper, NaturalKey: "13553038"}

	wrote, err := s.GetEdges(ctx, author, graph.RelWrote, store.DirOut)
	require.NoError(t, err)
	require.Len(t, wrote, 1)
	require.Equal(t, paper, wrote[0].Target)

	inv, err := s.GetEdges(ctx, paper, graph.RelWrote.Inverse(), store.DirOut)
	require.NoError(t, err)
	require.Len(t, inv, 1)
	require.Equal(t, author, inv[0].Target)
}

func TestImportIdempotence(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	d := NewDriver(s, nil, 2)
	m := authoredPair(t, t.TempDir())

	first, err := d.ImportAll(ctx, m)
	require.NoError(t, err)
	second, err := d.ImportAll(ctx, m)
	require.NoError(t, err)

	require.Equal(t, 0, second.TotalCreated(), "second pass must not create")
	require.Equal(t, first.TotalCreated(), second.TotalMerged(), "second pass outcomes are all merges")
	require.Equal(t, first.Summary, second.Summary, "graph unchanged by re-import")
}

func TestImportOrderIndependence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	nodes := writeFixture(t, dir, "paper_nodes.csv",
		"id,pmid,title,doi\nPaper_13553038,13553038,Aureomycin in therapy,\n")
	rels := writeFixture(t, dir, "published_in_rels.csv",
		"startNode,endNode\nPaper_13553038,Journal_0372516\n")
	relsInv := writeFixture(t, dir, "publishes_rels.csv",
		"startNode,endNode\nJournal_0372516,Paper_13553038\n")

	forward := Manifest{
		Nodes: []NodeSource{{Name: "paper_nodes.csv", Path: nodes, Type: graph.EntityPaper}},
		Relationships: []RelationshipSource{
			{Name: "published_in_rels.csv", Path: rels, Kind: graph.RelPublishedIn},
			{Name: "publishes_rels.csv", Path: relsInv, Kind: graph.RelPublishes},
		},
	}
	reversed := Manifest{
		Nodes: forward.Nodes,
		Relationships: []RelationshipSource{
			forward.Relationships[1],
			forward.Relationships[0],
		},
	}

	// Serial execution so source order is the only variable.
	sA := store.NewMemory()
	_, err := NewDriver(sA, nil, 1).ImportAll(ctx, forward)
	require.NoError(t, err)
	sB := store.NewMemory()
	_, err = NewDriver(sB, nil, 1).ImportAll(ctx, reversed)
	require.NoError(t, err)

	sumA, err := sA.Summary(ctx)
	require.NoError(t, err)
	sumB, err := sB.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, sumA, sumB)

	entA, ok, err := sA.GetEntity(ctx, graph.EntityPaper, "13553038")
	require.NoError(t, err)
	require.True(t, ok)
	entB, _, err := sB.GetEntity(ctx, graph.EntityPaper, "13553038")
	require.NoError(t, err)
	require.Equal(t, entA.Attrs, entB.Attrs)
}

func TestImportSymmetryCounts(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cites := writeFixture(t, dir, "cites_rels.csv",
		"startNode,endNode,citation_text\nPaper_100,Paper_200,Smith 1998\nPaper_100,Paper_300,Jones 2001\n")
	citedBy := writeFixture(t, dir, "cited_by_rels.csv",
		"startNode,endNode,citation_text\nPaper_200,Paper_100,Smith 1998\nPaper_300,Paper_100,Jones 2001\n")

	s := store.NewMemory()
	report, err := NewDriver(s, nil, 2).ImportAll(ctx, Manifest{
		Relationships: []RelationshipSource{
			{Name: "cites_rels.csv", Path: cites, Kind: graph.RelCites},
			{Name: "cited_by_rels.csv", Path: citedBy, Kind: graph.RelCitedBy},
		},
	})
	require.NoError(t, err)
	require.Empty(t, report.Discrepancies)
	require.Equal(t, report.Summary.Edges[graph.RelCites], report.Summary.Edges[graph.RelCitedBy])
}

func TestAttributeMonotonicity(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	full := writeFixture(t, dir, "full.csv",
		"id,title\nPaper_42,The original title\n")
	sparse := writeFixture(t, dir, "sparse.csv",
		"id,title,doi\nPaper_42,,10.1000/42\n")

	s := store.NewMemory()
	d := NewDriver(s, nil, 1)

	_, err := d.ImportAll(ctx, Manifest{Nodes: []NodeSource{{Name: "full", Path: full, Type: graph.EntityPaper}}})
	require.NoError(t, err)
	_, err = d.ImportAll(ctx, Manifest{Nodes: []NodeSource{{Name: "sparse", Path: sparse, Type: graph.EntityPaper}}})
	require.NoError(t, err)

	ent, ok, err := s.GetEntity(ctx, graph.EntityPaper, "42")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "The original title", ent.Attrs["title"], "set value must never be cleared")
	require.Equal(t, "10.1000/42", ent.Attrs["doi"])
}

func TestSelfLoopAcceptedAndFlagged(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cites := writeFixture(t, dir, "cites_rels.csv",
		"startNode,endNode,citation_text\nPaper_100,Paper_100,self reference\n")

	s := store.NewMemory()
	report, err := NewDriver(s, nil, 1).ImportAll(ctx, Manifest{
		Relationships: []RelationshipSource{{Name: "cites_rels.csv", Path: cites, Kind: graph.RelCites}},
	})
	require.NoError(t, err)
	require.Empty(t, report.Errors, "self-loop is a warning, not an error")
	require.Equal(t, 1, report.Relationships[0].Created)
	require.Equal(t, 1, report.Relationships[0].SelfLoops)
}

func TestSkipAndContinueOnMalformedRows(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	rels := writeFixture(t, dir, "has_keyword_rels.csv",
		"startNode,endNode\n"+
			"Paper_1,Keyword_aa11\n"+
			"Banana_9,Keyword_aa11\n"+ // unknown entity type
			"Paper_2\n"+ // wrong column count
			"Paper_3,Keyword_bb22\n")

	s := store.NewMemory()
	report, err := NewDriver(s, nil, 1).ImportAll(ctx, Manifest{
		Relationships: []RelationshipSource{{Name: "has_keyword_rels.csv", Path: rels, Kind: graph.RelHasKeyword}},
	})
	require.NoError(t, err, "record errors must not abort the batch")

	sr := report.Relationships[0]
	require.Equal(t, 2, sr.Created)
	require.Equal(t, 2, sr.Skipped)
	require.Len(t, report.Errors, 2)
	require.Equal(t, 3, report.Errors[0].Line)
	require.Equal(t, 4, report.Errors[1].Line)
}

func TestBadSourceDoesNotAbortOthers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	good := writeFixture(t, dir, "cites_rels.csv",
		"startNode,endNode\nPaper_100,Paper_200\n")

	s := store.NewMemory()
	report, err := NewDriver(s, nil, 2).ImportAll(ctx, Manifest{
		Relationships: []RelationshipSource{
			{Name: "missing.csv", Path: filepath.Join(dir, "missing.csv"), Kind: graph.RelCitedBy},
			{Name: "cites_rels.csv", Path: good, Kind: graph.RelCites},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, report.Relationships[1].Created, "healthy source must finish")
	require.NotEmpty(t, report.Errors)
	require.Equal(t, "missing.csv", report.Errors[0].Source)
}

func TestImportCancelledBetweenRecords(t *testing.T) {
	dir := t.TempDir()
	rels := writeFixture(t, dir, "cites_rels.csv",
		"startNode,endNode\nPaper_1,Paper_2\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := store.NewMemory()
	_, err := NewDriver(s, nil, 1).ImportAll(ctx, Manifest{
		Relationships: []RelationshipSource{{Name: "cites_rels.csv", Path: rels, Kind: graph.RelCites}},
	})
	require.ErrorIs(t, err, context.Canceled)
}
