package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"pubgraph/internal/graph"
)

// Manifest enumerates the sources of one constructed-KG export: node
// attribute files and relationship files, in load order. Order only matters
// cosmetically; the merge policies make the final graph order-independent.
type Manifest struct {
	Nodes         []NodeSource         `yaml:"nodes" json:"nodes,omitempty"`
	Relationships []RelationshipSource `yaml:"relationships" json:"relationships"`
}

func LoadManifest(path string) (Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	base := filepath.Dir(path)
	for i := range m.Nodes {
		if m.Nodes[i].Name == "" {
			m.Nodes[i].Name = filepath.Base(m.Nodes[i].Path)
		}
		if !filepath.IsAbs(m.Nodes[i].Path) {
			m.Nodes[i].Path = filepath.Join(base, m.Nodes[i].Path)
		}
	}
	for i := range m.Relationships {
		src := &m.Relationships[i]
		if src.Name == "" {
			src.Name = filepath.Base(src.Path)
		}
		if !filepath.IsAbs(src.Path) {
			src.Path = filepath.Join(base, src.Path)
		}
		if src.Kind == "" {
			k, ok := KindFromFilename(src.Path)
			if !ok {
				return Manifest{}, fmt.Errorf("manifest: cannot infer kind for %s", src.Name)
			}
			src.Kind = k
		}
		if !graph.IsRelKind(src.Kind) {
			return Manifest{}, fmt.Errorf("manifest %s: %w: %s", src.Name, ErrUnknownRelKind, src.Kind)
		}
	}
	return m, nil
}

// legacyKindNames maps exporter file stems that predate the current kind
// names. The exporter wrote authored_rels.csv for what is now the WROTE
// kind, and author_of_rels.csv for its inverse.
var legacyKindNames = map[string]graph.RelKind{
	"authored":  graph.RelWrote,
	"author_of": graph.RelAuthored,
}

// KindFromFilename infers the relationship kind from an exporter-style file
// name such as has_mesh_term_rels.csv.
func KindFromFilename(path string) (graph.RelKind, bool) {
	stem := strings.ToLower(filepath.Base(path))
	stem = strings.TrimSuffix(stem, ".csv")
	stem = strings.TrimSuffix(stem, "_rels")
	if k, ok := legacyKindNames[stem]; ok {
		return k, true
	}
	k := graph.RelKind(strings.ToUpper(stem))
	if graph.IsRelKind(k) {
		return k, true
	}
	return "", false
}

// DiscoverManifest walks an exporter output directory laid out as
// csv/nodes/*_nodes.csv and csv/relationships/*_rels.csv and builds a
// manifest from what it finds. Files whose kind cannot be inferred are
// ignored.
func DiscoverManifest(dir string) (Manifest, error) {
	var m Manifest

	nodesDir := filepath.Join(dir, "nodes")
	entries, err := os.ReadDir(nodesDir)
	if err != nil && !os.IsNotExist(err) {
		return Manifest{}, fmt.Errorf("discover nodes: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, "_nodes.csv") {
			continue
		}
		typ, ok := typeFromFilename(name)
		if !ok {
			continue
		}
		m.Nodes = append(m.Nodes, NodeSource{
			Name: name,
			Path: filepath.Join(nodesDir, name),
			Type: typ,
		})
	}

	relsDir := filepath.Join(dir, "relationships")
	entries, err = os.ReadDir(relsDir)
	if err != nil && !os.IsNotExist(err) {
		return Manifest{}, fmt.Errorf("discover relationships: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, "_rels.csv") {
			continue
		}
		kind, ok := KindFromFilename(name)
		if !ok {
			continue
		}
		m.Relationships = append(m.Relationships, RelationshipSource{
			Name: name,
			Path: filepath.Join(relsDir, name),
			Kind: kind,
		})
	}

	sort.Slice(m.Nodes, func(i, j int) bool { return m.Nodes[i].Name < m.Nodes[j].Name })
	sort.Slice(m.Relationships, func(i, j int) bool { return m.Relationships[i].Name < m.Relationships[j].Name })
	return m, nil
}

func typeFromFilename(name string) (graph.EntityType, bool) {
	stem := strings.TrimSuffix(strings.ToLower(name), "_nodes.csv")
	for _, t := range graph.EntityTypes() {
		if strings.ToLower(string(t)) == stem {
			return t, true
		}
	}
	return "", false
}
