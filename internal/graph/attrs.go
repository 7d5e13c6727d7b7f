package graph

// Attributes holds the scalar fields of an entity or edge. An empty string
// counts as absent.
type Attributes map[string]string

// Clone returns a copy, dropping empty values. nil maps stay nil.
func (a Attributes) Clone() Attributes {
	if len(a) == 0 {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		if v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// MergeMissing applies the fill-missing policy: a value already present in a
// is never replaced, absent or empty slots are filled from in. Returns true
// when anything changed. This makes entity and edge updates commutative
// across import order.
func (a *Attributes) MergeMissing(in Attributes) bool {
	changed := false
	for k, v := range in {
		if v == "" {
			continue
		}
		if (*a)[k] != "" {
			continue
		}
		if *a == nil {
			*a = make(Attributes, len(in))
		}
		(*a)[k] = v
		changed = true
	}
	return changed
}

// Equal compares attribute sets treating empty values as absent.
func (a Attributes) Equal(b Attributes) bool {
	for k, v := range a {
		if v != "" && b[k] != v {
			return false
		}
	}
	for k, v := range b {
		if v != "" && a[k] != v {
			return false
		}
	}
	return true
}
