package service

import (
	"fmt"

	"github.com/cbdb-network/cbdbnet/internal/models"
)

// Presentation colors per relation type.
const (
	ColorKinship     = "#e74c3c"
	ColorAssociation = "#3498db"
	ColorOffice      = "#2ecc71"
	ColorUnknown     = "#95a5a6"
)

var typeColors = map[models.RelationType]string{
	models.RelationKinship:     ColorKinship,
	models.RelationAssociation: ColorAssociation,
	models.RelationOffice:      ColorOffice,
}

var typeBaseWeights = map[models.RelationType]float64{
	models.RelationKinship:     3,
	models.RelationAssociation: 2,
	models.RelationOffice:      1,
}

// Kinship code groups from KINSHIP_CODES.
var (
	kinParents  = []int{75, 111}           // F, M
	kinChildren = []int{180, 214}          // S, D
	kinSpouses  = []int{127, 140}          // W, H
	kinSiblings = []int{101, 102, 103, 119} // B+, B-, B, Z
)

// kinshipMultipliers maps kinship codes to their weight multiplier.
var kinshipMultipliers = func() map[int]float64 {
	m := make(map[int]float64)

	for _, group := range [][]int{kinParents, kinChildren, kinSpouses} {
		for _, code := range group {
			m[code] = 1.5
		}
	}

	for _, code := range kinSiblings {
		m[code] = 1.2
	}

	return m
}()

// primaryAssocCodeLimit: association codes below it are the core
// mentor, friend and correspondence relations.
const primaryAssocCodeLimit = 100

// codeMultiplier returns the weight multiplier for an edge's type and code.
func codeMultiplier(t models.RelationType, code int) float64 {
	switch t {
	case models.RelationKinship:
		if m, ok := kinshipMultipliers[code]; ok {
			return m
		}
	case models.RelationAssociation:
		if code > 0 && code < primaryAssocCodeLimit {
			return 1.2
		}
	}

	return 1.0
}

// EdgeColor returns the display color for a relation type.
func EdgeColor(t models.RelationType) string {
	if c, ok := typeColors[t]; ok {
		return c
	}

	return ColorUnknown
}

// EdgeWeight returns the base weight of t scaled by the code multiplier.
func EdgeWeight(t models.RelationType, code int) float64 {
	base, ok := typeBaseWeights[t]
	if !ok {
		base = 1
	}

	return base * codeMultiplier(t, code)
}

// EnrichEdge returns e with color, weight, strength and a fallback label set.
func EnrichEdge(e models.RelationEdge) models.RelationEdge {
	e.Color = EdgeColor(e.Type)
	e.Weight = EdgeWeight(e.Type, e.Code)
	e.Strength = e.Weight

	if e.Label == "" {
		e.Label = fmt.Sprintf("%s #%d", e.Type, e.Code)
	}

	return e
}

// EnrichEdges returns a new slice with every edge enriched. The input is not modified.
func EnrichEdges(edges []models.RelationEdge) []models.RelationEdge {
	out := make([]models.RelationEdge, len(edges))
	for i, e := range edges {
		out[i] = EnrichEdge(e)
	}

	return out
}
