package models

import (
	"fmt"
	"slices"
	"strings"
)

// RelationType names one of the three edge categories backed by CBDB tables.
type RelationType string

// Relation types.
const (
	RelationKinship     RelationType = "kinship"
	RelationAssociation RelationType = "association"
	RelationOffice      RelationType = "office"
)

// AllRelationTypes lists every relation type in query order.
var AllRelationTypes = []RelationType{RelationKinship, RelationAssociation, RelationOffice}

// Valid reports whether t is a known relation type.
func (t RelationType) Valid() bool {
	return slices.Contains(AllRelationTypes, t)
}

// ParseRelationTypes parses a comma-separated list. Empty input means all types.
// Duplicates are dropped and the result follows AllRelationTypes order.
func ParseRelationTypes(s string) ([]RelationType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return slices.Clone(AllRelationTypes), nil
	}

	parts := strings.Split(s, ",")
	types := make([]RelationType, 0, len(parts))

	for _, p := range parts {
		t := RelationType(strings.ToLower(strings.TrimSpace(p)))
		if t == "" {
			continue
		}

		if !t.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRelationType, p)
		}

		types = append(types, t)
	}

	return NormalizeRelationTypes(types), nil
}

// NormalizeRelationTypes dedupes types into canonical order. Empty input means all types.
func NormalizeRelationTypes(types []RelationType) []RelationType {
	if len(types) == 0 {
		return slices.Clone(AllRelationTypes)
	}

	out := make([]RelationType, 0, len(AllRelationTypes))
	for _, t := range AllRelationTypes {
		if slices.Contains(types, t) {
			out = append(out, t)
		}
	}

	return out
}

// RelationEdge is a single relation between two persons.
// Source and Target follow the underlying table's personid → related-id direction.
type RelationEdge struct {
	Source   int64        `json:"source"`
	Target   int64        `json:"target"`
	Type     RelationType `json:"edge_type"`
	Code     int          `json:"edge_code"`
	Label    string       `json:"label,omitempty"`
	Weight   float64      `json:"weight,omitempty"`
	Depth    int          `json:"depth"`
	Color    string       `json:"color,omitempty"`
	Strength float64      `json:"strength,omitempty"`
}

// EdgeStats holds aggregate relation counts for a set of persons.
type EdgeStats struct {
	PersonIDs   []int64 `json:"person_ids"`
	Kinship     int     `json:"kinship"`
	Association int     `json:"association"`
	Office      int     `json:"office"`
	Total       int     `json:"total"`
}

// Count returns the count for a single relation type.
func (s *EdgeStats) Count(t RelationType) int {
	switch t {
	case RelationKinship:
		return s.Kinship
	case RelationAssociation:
		return s.Association
	case RelationOffice:
		return s.Office
	default:
		return 0
	}
}

// TotalFor sums the counts of the given relation types.
func (s *EdgeStats) TotalFor(types []RelationType) int {
	total := 0
	for _, t := range NormalizeRelationTypes(types) {
		total += s.Count(t)
	}

	return total
}
