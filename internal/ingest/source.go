package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"pubgraph/internal/graph"
)

const (
	colStartNode = "startNode"
	colEndNode   = "endNode"
	colID        = "id"
)

var (
	ErrMissingColumn = errors.New("missing required column")
	ErrRowShape      = errors.New("malformed row")
)

// RelationshipSource is one delimited relationship file: a header row naming
// startNode, endNode and optional property columns, then one composite-key
// pair per row. The kind is declared per file, not per row.
type RelationshipSource struct {
	Name string        `yaml:"name" json:"name"`
	Path string        `yaml:"path" json:"path"`
	Kind graph.RelKind `yaml:"kind" json:"kind"`
}

// NodeSource is one entity attribute file: an id column holding the
// composite key plus one column per attribute.
type NodeSource struct {
	Name string           `yaml:"name" json:"name"`
	Path string           `yaml:"path" json:"path"`
	Type graph.EntityType `yaml:"type" json:"type"`
}

// relRecord is a single parsed relationship row.
type relRecord struct {
	line   int
	source graph.EntityRef
	target graph.EntityRef
	props  graph.Attributes
}

// nodeRecord is a single parsed node attribute row.
type nodeRecord struct {
	line  int
	ref   graph.EntityRef
	attrs graph.Attributes
}

// rowError carries the file position of a skipped record.
type rowError struct {
	line int
	err  error
}

// streamRows reads a delimited file row by row, pairing each data row with
// its 1-based line number. Malformed rows surface through errFn and never
// stop the stream; only I/O failure aborts.
func streamRows(path string, rowFn func(line int, header []string, rec []string) error, errFn func(rowError)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open source %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("read header %s: %w", path, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	line := 1
	for {
		rec, err := r.Read()
		line++
		if err == io.EOF {
			return nil
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				errFn(rowError{line: line, err: fmt.Errorf("%w: %v", ErrRowShape, err)})
				continue
			}
			return fmt.Errorf("read %s: %w", path, err)
		}
		if len(rec) != len(header) {
			errFn(rowError{line: line, err: fmt.Errorf("%w: %d columns, header has %d", ErrRowShape, len(rec), len(header))})
			continue
		}
		if err := rowFn(line, header, rec); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			errFn(rowError{line: line, err: err})
		}
	}
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

// streamRelRecords decodes each row of a relationship source into a pair of
// typed refs and edge properties.
func streamRelRecords(src RelationshipSource, recFn func(relRecord) error, errFn func(rowError)) error {
	return streamRows(src.Path, func(line int, header []string, rec []string) error {
		startIdx := columnIndex(header, colStartNode)
		endIdx := columnIndex(header, colEndNode)
		if startIdx < 0 || endIdx < 0 {
			return fmt.Errorf("%w: need %s and %s", ErrMissingColumn, colStartNode, colEndNode)
		}
		source, err := graph.ParseKey(rec[startIdx])
		if err != nil {
			return err
		}
		target, err := graph.ParseKey(rec[endIdx])
		if err != nil {
			return err
		}
		var props graph.Attributes
		for i, h := range header {
			if i == startIdx || i == endIdx || rec[i] == "" {
				continue
			}
			if props == nil {
				props = graph.Attributes{}
			}
			props[h] = rec[i]
		}
		return recFn(relRecord{line: line, source: source, target: target, props: props})
	}, errFn)
}

// streamNodeRecords decodes each row of a node attribute source. The id
// column is the composite key; every other non-empty column becomes an
// attribute. When the source declares a type, mismatched rows are rejected.
func streamNodeRecords(src NodeSource, recFn func(nodeRecord) error, errFn func(rowError)) error {
	return streamRows(src.Path, func(line int, header []string, rec []string) error {
		idIdx := columnIndex(header, colID)
		if idIdx < 0 {
			return fmt.Errorf("%w: need %s", ErrMissingColumn, colID)
		}
		ref, err := graph.ParseKey(rec[idIdx])
		if err != nil {
			return err
		}
		if src.Type != "" && ref.Type != src.Type {
			return fmt.Errorf("%w: row type %s in %s source", ErrRowShape, ref.Type, src.Type)
		}
		var attrs graph.Attributes
		for i, h := range header {
			if i == idIdx || rec[i] == "" {
				continue
			}
			if attrs == nil {
				attrs = graph.Attributes{}
			}
			attrs[h] = rec[i]
		}
		return recFn(nodeRecord{line: line, ref: ref, attrs: attrs})
	}, errFn)
}
