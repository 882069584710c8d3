package store

import (
	"fmt"
	"strings"

	"github.com/cbdb-network/cbdbnet/internal/models"
)

// officeEdgeLimit caps colleague pairs per office query; a widely held title
// otherwise fans out combinatorially.
const officeEdgeLimit = 20000

// relationSpec describes how one CBDB table projects into relation edges.
type relationSpec struct {
	typ       models.RelationType
	from      string
	sourceCol string
	targetCol string
	codeExpr  string
	labelExpr string
	baseWhere string
	distinct  bool
	// symmetric specs already yield both directions; reciprocal lookups add nothing.
	symmetric bool
	limit     int
}

var relationSpecs = map[models.RelationType]relationSpec{
	models.RelationKinship: {
		typ:       models.RelationKinship,
		from:      "KIN_DATA k LEFT JOIN KINSHIP_CODES kc ON kc.c_kincode = k.c_kin_code",
		sourceCol: "k.c_personid",
		targetCol: "k.c_kin_id",
		codeExpr:  "COALESCE(k.c_kin_code, 0)",
		labelExpr: "COALESCE(NULLIF(kc.c_kinrel_chn, ''), NULLIF(kc.c_kinrel, ''), '')",
		baseWhere: "k.c_kin_id IS NOT NULL AND k.c_kin_id > 0",
	},
	models.RelationAssociation: {
		typ:       models.RelationAssociation,
		from:      "ASSOC_DATA a LEFT JOIN ASSOC_CODES ac ON ac.c_assoc_code = a.c_assoc_code",
		sourceCol: "a.c_personid",
		targetCol: "a.c_assoc_id",
		codeExpr:  "COALESCE(a.c_assoc_code, 0)",
		labelExpr: "COALESCE(NULLIF(ac.c_assoc_desc_chn, ''), NULLIF(ac.c_assoc_desc, ''), '')",
		baseWhere: "a.c_assoc_id IS NOT NULL AND a.c_assoc_id > 0",
	},
	models.RelationOffice: {
		typ: models.RelationOffice,
		from: `POSTED_TO_OFFICE_DATA p1
			JOIN POSTED_TO_OFFICE_DATA p2
				ON p2.c_office_id = p1.c_office_id
				AND p2.c_personid <> p1.c_personid
				AND p2.c_firstyear <= p1.c_lastyear
				AND p1.c_firstyear <= p2.c_lastyear
			LEFT JOIN OFFICE_CODES oc ON oc.c_office_id = p1.c_office_id`,
		sourceCol: "p1.c_personid",
		targetCol: "p2.c_personid",
		codeExpr:  "COALESCE(p1.c_office_id, 0)",
		labelExpr: "COALESCE(NULLIF(oc.c_office_chn, ''), NULLIF(oc.c_office_pinyin, ''), '')",
		baseWhere: `p1.c_office_id IS NOT NULL AND p1.c_office_id > 0
			AND p1.c_firstyear > 0 AND p1.c_lastyear > 0
			AND p2.c_firstyear > 0 AND p2.c_lastyear > 0`,
		distinct:  true,
		symmetric: true,
		limit:     officeEdgeLimit,
	},
}

func specFor(t models.RelationType) (relationSpec, error) {
	spec, ok := relationSpecs[t]
	if !ok {
		return relationSpec{}, fmt.Errorf("%w: %q", models.ErrInvalidRelationType, t)
	}

	return spec, nil
}

// selectSQL renders the edge projection with an optional extra predicate.
// Columns: source_id, target_id, edge_type, edge_code, edge_label.
func (s relationSpec) selectSQL(extraWhere string) string {
	var b strings.Builder

	b.WriteString("SELECT ")
	if s.distinct {
		b.WriteString("DISTINCT ")
	}

	fmt.Fprintf(&b, "%s AS source_id, %s AS target_id, '%s' AS edge_type, %s AS edge_code, %s AS edge_label",
		s.sourceCol, s.targetCol, s.typ, s.codeExpr, s.labelExpr)
	b.WriteString(" FROM ")
	b.WriteString(s.from)
	b.WriteString(" WHERE ")
	b.WriteString(s.baseWhere)

	if extraWhere != "" {
		b.WriteString(" AND (")
		b.WriteString(extraWhere)
		b.WriteString(")")
	}

	return b.String()
}

// personFilter returns the predicate selecting edges touching n bound IDs and
// how many times the ID list must be repeated in the arguments.
func (s relationSpec) personFilter(n int, includeReciprocal bool) (string, int) {
	ph := placeholders(n)
	if includeReciprocal && !s.symmetric {
		return fmt.Sprintf("%s IN (%s) OR %s IN (%s)", s.sourceCol, ph, s.targetCol, ph), 2
	}

	return fmt.Sprintf("%s IN (%s)", s.sourceCol, ph), 1
}

// batchSQL renders the ordered, optionally limited batch query for n IDs.
func (s relationSpec) batchSQL(n int, includeReciprocal bool) (string, int) {
	where, times := s.personFilter(n, includeReciprocal)
	q := "SELECT source_id, target_id, edge_type, edge_code, edge_label FROM (" +
		s.selectSQL(where) +
		") edges ORDER BY source_id, target_id, edge_code"

	if s.limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", s.limit)
	}

	return q, times
}

// splitsReverse reports whether reciprocal rows can span two chunks: a row
// whose source sits in one chunk and whose target sits in another matches both.
func (s relationSpec) splitsReverse(chunks int, includeReciprocal bool) bool {
	return includeReciprocal && !s.symmetric && chunks > 1
}

// reverseSourcesSQL lists the source of every row pointing at n bound IDs from
// a source outside them. Callers drop sources owned by another chunk.
func (s relationSpec) reverseSourcesSQL(n int) (string, int) {
	ph := placeholders(n)
	where := fmt.Sprintf("%s IN (%s) AND %s NOT IN (%s)", s.targetCol, ph, s.sourceCol, ph)

	return "SELECT source_id FROM (" + s.selectSQL(where) + ") edges", 2
}

// countSQL renders a COUNT over the same projection as batchSQL.
func (s relationSpec) countSQL(n int, includeReciprocal bool) (string, int) {
	where, times := s.personFilter(n, includeReciprocal)

	return "SELECT COUNT(*) FROM (" + s.selectSQL(where) + ") edges", times
}

// allEdgesSQL renders the UNION ALL of every requested edge projection, unfiltered.
func allEdgesSQL(types []models.RelationType) (string, error) {
	parts := make([]string, 0, len(types))
	for _, t := range types {
		spec, err := specFor(t)
		if err != nil {
			return "", err
		}

		parts = append(parts, spec.selectSQL(""))
	}

	return strings.Join(parts, "\nUNION ALL\n"), nil
}
