package graph

type EntityType string

const (
	EntityPaper           EntityType = "Paper"
	EntityAuthor          EntityType = "Author"
	EntityMeshTerm        EntityType = "MeshTerm"
	EntityPublicationType EntityType = "PublicationType"
	EntityChemical        EntityType = "Chemical"
	EntityKeyword         EntityType = "Keyword"
	EntityGrant           EntityType = "Grant"
	EntityJournal         EntityType = "Journal"
	EntityCountry         EntityType = "Country"
)

func EntityTypes() []EntityType {
	return []EntityType{
		EntityPaper, EntityAuthor, EntityMeshTerm, EntityPublicationType,
		EntityChemical, EntityKeyword, EntityGrant, EntityJournal, EntityCountry,
	}
}

func IsEntityType(x EntityType) bool {
	switch x {
	case EntityPaper, EntityAuthor, EntityMeshTerm, EntityPublicationType,
		EntityChemical, EntityKeyword, EntityGrant, EntityJournal, EntityCountry:
		return true
	default:
		return false
	}
}

type RelKind string

const (
	RelWrote              RelKind = "WROTE"
	RelHasMeshTerm        RelKind = "HAS_MESH_TERM"
	RelHasPublicationType RelKind = "HAS_PUBLICATION_TYPE"
	RelContainsChemical   RelKind = "CONTAINS_CHEMICAL"
	RelHasKeyword         RelKind = "HAS_KEYWORD"
	RelCites              RelKind = "CITES"
	RelFundedBy           RelKind = "FUNDED_BY"
	RelPublishedIn        RelKind = "PUBLISHED_IN"
	RelPublishedFrom      RelKind = "PUBLISHED_FROM"

	RelAuthored          RelKind = "AUTHORED"
	RelMeshTermOf        RelKind = "MESH_TERM_OF"
	RelPublicationTypeOf RelKind = "PUBLICATION_TYPE_OF"
	RelChemicalIn        RelKind = "CHEMICAL_IN"
	RelKeywordOf         RelKind = "KEYWORD_OF"
	RelCitedBy           RelKind = "CITED_BY"
	RelFunds             RelKind = "FUNDS"
	RelPublishes         RelKind = "PUBLISHES"
	RelOriginOf          RelKind = "ORIGIN_OF"
)

// inverses maps each forward kind to its declared inverse. Every kind in the
// closed set belongs to exactly one pair.
var inverses = map[RelKind]RelKind{
	RelWrote:              RelAuthored,
	RelHasMeshTerm:        RelMeshTermOf,
	RelHasPublicationType: RelPublicationTypeOf,
	RelContainsChemical:   RelChemicalIn,
	RelHasKeyword:         RelKeywordOf,
	RelCites:              RelCitedBy,
	RelFundedBy:           RelFunds,
	RelPublishedIn:        RelPublishes,
	RelPublishedFrom:      RelOriginOf,
}

var toForward = func() map[RelKind]RelKind {
	m := make(map[RelKind]RelKind, len(inverses))
	for fwd, inv := range inverses {
		m[inv] = fwd
	}
	return m
}()

func ForwardKinds() []RelKind {
	return []RelKind{
		RelWrote, RelHasMeshTerm, RelHasPublicationType, RelContainsChemical,
		RelHasKeyword, RelCites, RelFundedBy, RelPublishedIn, RelPublishedFrom,
	}
}

func IsRelKind(k RelKind) bool {
	_, fwd := inverses[k]
	_, inv := toForward[k]
	return fwd || inv
}

func (k RelKind) IsForward() bool {
	_, ok := inverses[k]
	return ok
}

// Inverse returns the paired kind, in either direction. The zero value is
// returned for kinds outside the closed set.
func (k RelKind) Inverse() RelKind {
	if inv, ok := inverses[k]; ok {
		return inv
	}
	return toForward[k]
}

// EntityRef is a parsed, strongly-typed entity reference. Raw composite keys
// never travel past ParseKey; everything downstream works with refs.
type EntityRef struct {
	Type       EntityType `json:"type"`
	NaturalKey string     `json:"natural_key"`
}

func (r EntityRef) Key() string {
	return string(r.Type) + keySeparator + r.NaturalKey
}

func (r EntityRef) IsZero() bool {
	return r.Type == "" && r.NaturalKey == ""
}

type Entity struct {
	Ref   EntityRef  `json:"ref"`
	Attrs Attributes `json:"attrs,omitempty"`
}

type Edge struct {
	Kind   RelKind    `json:"kind"`
	Source EntityRef  `json:"source"`
	Target EntityRef  `json:"target"`
	Props  Attributes `json:"props,omitempty"`
}

// SelfLoop reports whether the edge starts and ends on the same entity.
// Citation self-references occur in noisy source data and are tolerated.
func (e Edge) SelfLoop() bool {
	return e.Source == e.Target
}
