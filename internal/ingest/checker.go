package ingest

import (
	"context"
	"fmt"

	"pubgraph/internal/graph"
	"pubgraph/internal/store"
)

// Discrepancy is one violation of the forward/inverse symmetry invariant:
// either the paired direction is missing, or both exist with conflicting
// properties.
type Discrepancy struct {
	Kind        graph.RelKind `json:"kind"`
	Source      string        `json:"source"`
	Target      string        `json:"target"`
	MissingSide string        `json:"missing_side,omitempty"` // "forward" or "inverse"
	Conflict    bool          `json:"conflict,omitempty"`
	Detail      string        `json:"detail,omitempty"`
}

type RepairReport struct {
	Scanned   int           `json:"scanned"`
	Repaired  int           `json:"repaired"`
	Conflicts []Discrepancy `json:"conflicts,omitempty"`
}

// Checker audits graph symmetry decoupled from ingestion. The source data
// ships both directions of every paired kind as independent files; a partial
// import leaves the graph asymmetric until the counterpart file lands, and
// the checker is what makes that visible.
type Checker struct {
	store store.Store
}

func NewChecker(s store.Store) *Checker {
	return &Checker{store: s}
}

// Check scans every paired kind in both directions and reports one
// discrepancy per asymmetric or conflicting edge pair. It never mutates the
// graph. Conflicts are reported once, from the forward side.
func (c *Checker) Check(ctx context.Context) ([]Discrepancy, error) {
	out := make([]Discrepancy, 0)
	for _, fwd := range graph.ForwardKinds() {
		inv := fwd.Inverse()

		ds, err := c.scanKind(ctx, fwd, "inverse", true)
		if err != nil {
			return nil, err
		}
		out = append(out, ds...)

		// Inverse-only edges: the forward side never loaded.
		ds, err = c.scanKind(ctx, inv, "forward", false)
		if err != nil {
			return nil, err
		}
		out = append(out, ds...)
	}
	return out, nil
}

func (c *Checker) scanKind(ctx context.Context, kind graph.RelKind, missingSide string, reportConflicts bool) ([]Discrepancy, error) {
	var out []Discrepancy
	var scanErr error
	err := c.store.EdgesByKind(ctx, kind, func(e graph.Edge) bool {
		pair, ok, err := c.store.GetEdge(ctx, kind.Inverse(), e.Target, e.Source)
		if err != nil {
			scanErr = err
			return false
		}
		if !ok {
			out = append(out, Discrepancy{
				Kind:        e.Kind,
				Source:      e.Source.Key(),
				Target:      e.Target.Key(),
				MissingSide: missingSide,
			})
			return true
		}
		if reportConflicts && !e.Props.Equal(pair.Props) {
			out = append(out, Discrepancy{
				Kind:     e.Kind,
				Source:   e.Source.Key(),
				Target:   e.Target.Key(),
				Conflict: true,
				Detail:   "properties differ between forward and inverse edge",
			})
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s edges: %w", kind, err)
	}
	if scanErr != nil {
		return nil, fmt.Errorf("scan %s edges: %w", kind, scanErr)
	}
	return out, nil
}

// Reconcile synthesizes every missing direction by copying properties from
// the side that exists. It never deletes an edge and never resolves a
// property conflict silently; conflicts come back unrepaired for manual
// resolution.
func (c *Checker) Reconcile(ctx context.Context) (RepairReport, error) {
	ds, err := c.Check(ctx)
	if err != nil {
		return RepairReport{}, err
	}
	report := RepairReport{Scanned: len(ds)}
	for _, d := range ds {
		if d.Conflict {
			report.Conflicts = append(report.Conflicts, d)
			continue
		}
		src, err := graph.ParseKey(d.Source)
		if err != nil {
			return report, fmt.Errorf("reconcile: %w", err)
		}
		tgt, err := graph.ParseKey(d.Target)
		if err != nil {
			return report, fmt.Errorf("reconcile: %w", err)
		}
		present, ok, err := c.store.GetEdge(ctx, d.Kind, src, tgt)
		if err != nil {
			return report, fmt.Errorf("reconcile %s %s -> %s: %w", d.Kind, d.Source, d.Target, err)
		}
		if !ok {
			// Repaired by an earlier synthesis in this pass.
			continue
		}
		if _, err := c.store.UpsertEdge(ctx, d.Kind.Inverse(), tgt, src, present.Props); err != nil {
			return report, fmt.Errorf("reconcile %s %s -> %s: %w", d.Kind, d.Source, d.Target, err)
		}
		report.Repaired++
	}
	return report, nil
}
