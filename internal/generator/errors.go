package generator

import (
	"errors"
	"fmt"
	"math"

	"github.com/hashicorp/go-multierror"
)

// ErrInvalidParameter matches every *InvalidParameterError through errors.Is
var ErrInvalidParameter = errors.New("invalid parameter")

// InvalidParameterError reports a configuration value a stage cannot generate from.
// It is always returned before any row of the stage is produced.
type InvalidParameterError struct {
	Stage      string
	Parameter  string
	Constraint string
	Value      interface{}
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("%s: %s must be %s, got %v", e.Stage, e.Parameter, e.Constraint, e.Value)
}

// Is reports whether target is ErrInvalidParameter
func (e *InvalidParameterError) Is(target error) bool {
	return target == ErrInvalidParameter
}

// violations collects the parameter errors of one stage
type violations struct {
	stage string
	errs  *multierror.Error
}

func newViolations(stage string) *violations {
	return &violations{stage: stage}
}

func (v *violations) add(parameter, constraint string, value interface{}) {
	v.errs = multierror.Append(v.errs, &InvalidParameterError{
		Stage:      v.stage,
		Parameter:  parameter,
		Constraint: constraint,
		Value:      value,
	})
}

func (v *violations) positive(parameter string, value int) {
	if value <= 0 {
		v.add(parameter, "> 0", value)
	}
}

func (v *violations) ordered(minName, maxName string, min, max int64) {
	if min > max {
		v.add(maxName, fmt.Sprintf(">= %s (%d)", minName, min), max)
	} else if max-min+1 <= 0 {
		v.add(maxName, fmt.Sprintf("less than 2^63 above %s (%d)", minName, min), max)
	}
}

func (v *violations) weights(parameter string, weights []float64, n int) {
	if len(weights) == 0 {
		return
	}
	if len(weights) != n {
		v.add(parameter, fmt.Sprintf("a list of %d weights", n), len(weights))
		return
	}
	var total float64
	for _, w := range weights {
		if w < 0 || math.IsNaN(w) {
			v.add(parameter, "non-negative", weights)
			return
		}
		total += w
	}
	if total <= 0 {
		v.add(parameter, "a list with a positive sum", weights)
	}
}

func (v *violations) err() error {
	return v.errs.ErrorOrNil()
}
