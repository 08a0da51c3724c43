package augprep

// Normalisation of scalar-or-pair parameters into (min, max) ranges.

import "fmt"

// ToTuple converts a randomised-parameter argument into a canonical
// (min, max) pair.
//
// param may be a scalar or a sequence of exactly two scalars. A scalar
// param combined with low yields the pair (low, param) in ascending
// order; a scalar on its own yields the symmetric pair (-param, param).
// bias, mutually exclusive with low, is added to both ends of the derived
// pair. low and bias must be scalars or nil.
func ToTuple(param, low, bias interface{}) ([2]float64, error) {
	if low != nil && bias != nil {
		return [2]float64{}, fmt.Errorf("%w: arguments low and bias cannot be used together", ErrConfiguration)
	}

	var min, max float64
	if pair, ok := asPair(param); ok {
		min, max = pair[0], pair[1]
		if min > max {
			min, max = max, min
		}
	} else if v, ok := asScalar(param); ok {
		if low != nil {
			l, ok := asScalar(low)
			if !ok {
				return [2]float64{}, fmt.Errorf("%w: argument low must be a scalar, got %T", ErrConfiguration, low)
			}
			if min, max = l, v; min > max {
				min, max = max, min
			}
		} else {
			min, max = -v, v
		}
	} else {
		return [2]float64{}, fmt.Errorf(
			"%w: argument param must be a scalar or a sequence of 2 elements, got %T", ErrConfiguration, param)
	}

	if bias != nil {
		b, ok := asScalar(bias)
		if !ok {
			return [2]float64{}, fmt.Errorf("%w: argument bias must be a scalar, got %T", ErrConfiguration, bias)
		}
		return [2]float64{b + min, b + max}, nil
	}

	return [2]float64{min, max}, nil
}

// asScalar coerces the supported numeric types to float64.
func asScalar(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// asPair coerces the supported two-element sequence types.
func asPair(v interface{}) ([2]float64, bool) {
	switch s := v.(type) {
	case [2]float64:
		return s, true
	case [2]int:
		return [2]float64{float64(s[0]), float64(s[1])}, true
	case []float64:
		if len(s) == 2 {
			return [2]float64{s[0], s[1]}, true
		}
	case []int:
		if len(s) == 2 {
			return [2]float64{float64(s[0]), float64(s[1])}, true
		}
	case []interface{}:
		if len(s) == 2 {
			a, okA := asScalar(s[0])
			b, okB := asScalar(s[1])
			if okA && okB {
				return [2]float64{a, b}, true
			}
		}
	}
	return [2]float64{}, false
}
