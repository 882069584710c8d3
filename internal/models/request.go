package models

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Request limits and defaults.
const (
	MaxSeeds          = 50
	MaxRequestDepth   = 10
	MaxCentralityList = 1000
	DefaultDepth      = 1
)

// ErrInvalidRequest wraps field-level validation failures.
var ErrInvalidRequest = errors.New("invalid request")

var validate = validator.New(validator.WithRequiredStructEnabled())

// ExploreRequest is the payload for a network exploration.
type ExploreRequest struct {
	PersonIDs         []int64        `json:"person_ids" validate:"required,min=1,max=50,dive,gt=0"`
	Depth             *int           `json:"depth,omitempty" validate:"omitempty,min=0,max=10"`
	RelationTypes     []RelationType `json:"relation_types,omitempty" validate:"dive,oneof=kinship association office"`
	IncludeReciprocal bool           `json:"include_reciprocal"`
	ProximityRadius   int            `json:"proximity_radius,omitempty" validate:"min=0,max=10"`
	IncludeCentrality bool           `json:"include_centrality,omitempty"`
	CentralityFor     []int64        `json:"centrality_for,omitempty" validate:"max=1000,dive,gt=0"`
	ExactBridges      bool           `json:"exact_bridges,omitempty"`
}

// Validate checks field constraints on ExploreRequest.
func (r *ExploreRequest) Validate() error {
	if len(r.PersonIDs) == 0 {
		return ErrNoSeeds
	}

	if len(r.PersonIDs) > MaxSeeds {
		return fmt.Errorf("%w: at most %d", ErrTooManySeeds, MaxSeeds)
	}

	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w: %s", ErrInvalidRequest, describeValidation(verrs))
		}

		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	return nil
}

// EffectiveDepth returns the requested depth, or DefaultDepth when unset.
func (r *ExploreRequest) EffectiveDepth() int {
	if r.Depth == nil {
		return DefaultDepth
	}

	return *r.Depth
}

// EffectiveRadius returns the bridge search radius; unset means the depth.
func (r *ExploreRequest) EffectiveRadius() int {
	if r.ProximityRadius > 0 {
		return r.ProximityRadius
	}

	return r.EffectiveDepth()
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Seeds returns the distinct seed IDs in ascending order.
func (r *ExploreRequest) Seeds() []int64 {
	seeds := slices.Clone(r.PersonIDs)
	slices.Sort(seeds)

	return slices.Compact(seeds)
}

func describeValidation(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		}
	}

	return strings.Join(msgs, "; ")
}
