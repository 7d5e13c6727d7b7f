package graph

import "testing"

func TestInversePairsCoverClosedSet(t *testing.T) {
	seen := map[RelKind]bool{}
	for _, fwd := range ForwardKinds() {
		inv := fwd.Inverse()
		if inv == "" {
			t.Fatalf("forward kind %s has no inverse", fwd)
		}
		if inv.Inverse() != fwd {
			t.Fatalf("inverse of %s does not map back, got %s", fwd, inv.Inverse())
		}
		if !fwd.IsForward() || inv.IsForward() {
			t.Fatalf("direction flags wrong for pair %s/%s", fwd, inv)
		}
		seen[fwd] = true
		seen[inv] = true
	}
	if len(seen) != 18 {
		t.Fatalf("expected 18 kinds in the closed set, got %d", len(seen))
	}
	for k := range seen {
		if !IsRelKind(k) {
			t.Fatalf("%s not recognized by IsRelKind", k)
		}
	}
	if IsRelKind("RETRIEVED_FOR_TOPIC") {
		t.Fatal("kind outside closed set accepted")
	}
}

func TestAttributesMergeMissing(t *testing.T) {
	a := Attributes{"title": "Old Title", "doi": ""}
	changed := a.MergeMissing(Attributes{"title": "New Title", "doi": "10.1/x", "pages": "7-12", "issue": ""})
	if !changed {
		t.Fatal("expected change")
	}
	if a["title"] != "Old Title" {
		t.Fatalf("present value overwritten: %q", a["title"])
	}
	if a["doi"] != "10.1/x" || a["pages"] != "7-12" {
		t.Fatalf("missing values not filled: %+v", a)
	}
	if _, ok := a["issue"]; ok && a["issue"] != "" {
		t.Fatalf("empty incoming value stored: %+v", a)
	}
	if a.MergeMissing(Attributes{"title": "", "doi": "10.1/other"}) {
		t.Fatal("second merge should be a no-op")
	}
}

func TestAttributesEqualIgnoresEmpty(t *testing.T) {
	a := Attributes{"citation_text": "Smith 1998", "x": ""}
	b := Attributes{"citation_text": "Smith 1998"}
	if !a.Equal(b) || !b.Equal(a) {
		t.Fatal("empty values should not break equality")
	}
	if a.Equal(Attributes{"citation_text": "Jones 2001"}) {
		t.Fatal("differing values reported equal")
	}
}
