package graph

import (
	"errors"
	"fmt"
	"strings"
)

const keySeparator = "_"

var (
	ErrUnknownEntityType = errors.New("unknown entity type prefix")
	ErrEmptyKey          = errors.New("empty key component")
)

// ParseKey decodes a composite key of the form <EntityType>_<NaturalId>.
// Only the first separator splits: natural keys legitimately contain
// further underscores (e.g. "Grant_United Kingdom_Wellcome Trust" parses
// to type Grant, key "United Kingdom_Wellcome Trust"). There is no escaping
// scheme in the source data, so a type prefix can never contain the
// separator itself.
func ParseKey(raw string) (EntityRef, error) {
	prefix, rest, found := strings.Cut(raw, keySeparator)
	if !found {
		return EntityRef{}, fmt.Errorf("parse key %q: %w", raw, ErrEmptyKey)
	}
	if prefix == "" || rest == "" {
		return EntityRef{}, fmt.Errorf("parse key %q: %w", raw, ErrEmptyKey)
	}
	typ := EntityType(prefix)
	if !IsEntityType(typ) {
		return EntityRef{}, fmt.Errorf("parse key %q: %w: %q", raw, ErrUnknownEntityType, prefix)
	}
	return EntityRef{Type: typ, NaturalKey: rest}, nil
}
