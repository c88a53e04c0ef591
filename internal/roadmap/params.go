package roadmap

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidParams is returned when generation parameters are inconsistent
var ErrInvalidParams = errors.New("invalid generation parameters")

// validate is a singleton validator instance
var validate = validator.New()

// Params is the flat set of generation parameters
type Params struct {
	NodeCount            int     `yaml:"node_count" json:"nodeCount" validate:"min=1"`
	MapSize              float64 `yaml:"map_size" json:"mapSize" validate:"gt=0"` // Half-extent of the square map
	MinDegree            int     `yaml:"min_degree" json:"minDegree" validate:"min=0"`
	MaxDegree            int     `yaml:"max_degree" json:"maxDegree" validate:"min=1,gtefield=MinDegree"`
	CellSize             float64 `yaml:"cell_size" json:"cellSize" validate:"gt=0"` // Grid bucket width and connection radius
	MaxAttemptsPerNode   int     `yaml:"max_attempts_per_node" json:"maxAttemptsPerNode" validate:"min=1"`
	AugmentRounds        int     `yaml:"augment_rounds" json:"augmentRounds" validate:"min=1"` // Upper bound on augmentation passes
	PreventIntersections bool    `yaml:"prevent_intersections" json:"preventIntersections"`
	Seed                 int64   `yaml:"seed" json:"seed"`
}

// DefaultParams returns the parameters of the stock 10,000 node map
func DefaultParams() Params {
	return Params{
		NodeCount:            10000,
		MapSize:              100,
		MinDegree:            2,
		MaxDegree:            5,
		CellSize:             10,
		MaxAttemptsPerNode:   8,
		AugmentRounds:        4,
		PreventIntersections: true,
		Seed:                 1,
	}
}

// Validate rejects parameters that would silently produce a wrong graph
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, formatValidationError(err))
	}
	return nil
}

// formatValidationError converts validator errors to user-friendly messages
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		param := e.Param()

		switch e.Tag() {
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "gt":
			return fmt.Errorf("%s: must be greater than %s", field, param)
		case "gtefield":
			return fmt.Errorf("%s: must not be less than %s", field, param)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}
