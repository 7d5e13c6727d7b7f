package graph

import (
	"errors"
	"testing"
)

func TestParseKeySimple(t *testing.T) {
	ref, err := ParseKey("Paper_13553038")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ref.Type != EntityPaper || ref.NaturalKey != "13553038" {
		t.Fatalf("unexpected ref: %+v", ref)
	}
}

func TestParseKeySeparatorInsideNaturalKey(t *testing.T) {
	ref, err := ParseKey("Grant_United Kingdom_Wellcome Trust")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ref.Type != EntityGrant {
		t.Fatalf("got type %q", ref.Type)
	}
	if ref.NaturalKey != "United Kingdom_Wellcome Trust" {
		t.Fatalf("natural key mis-split: %q", ref.NaturalKey)
	}
}

func TestParseKeyUnknownType(t *testing.T) {
	_, err := ParseKey("Banana_42")
	if !errors.Is(err, ErrUnknownEntityType) {
		t.Fatalf("expected ErrUnknownEntityType, got %v", err)
	}
}

func TestParseKeyEmptyHalves(t *testing.T) {
	for _, raw := range []string{"", "Paper", "Paper_", "_13553038"} {
		if _, err := ParseKey(raw); !errors.Is(err, ErrEmptyKey) {
			t.Fatalf("parse %q: expected ErrEmptyKey, got %v", raw, err)
		}
	}
}

func TestKeyRoundTrip(t *testing.T) {
	ref := EntityRef{Type: EntityMeshTerm, NaturalKey: "D009369"}
	got, err := ParseKey(ref.Key())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != ref {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}
