package augprep

// Keypoint specific functionality.
//
// The canonical keypoint representation is (x, y, angle, scale) with
// absolute pixel coordinates and the angle in radians, normalised to
// [0, 2*pi).

import (
	"fmt"
	"math"
)

// The known external keypoint formats. The letters name the component
// order: x, y, a (angle) and s (scale).
const (
	FormatXY   = "xy"
	FormatYX   = "yx"
	FormatXYA  = "xya"
	FormatXYS  = "xys"
	FormatXYAS = "xyas"
	FormatXYSA = "xysa"
)

// kpFormat converts a single keypoint between an external encoding and
// the canonical representation. toRad and fromRad translate the angle
// unit declared by the parameter set.
type kpFormat struct {
	arity         int
	toCanonical   func(c []float64, toRad func(float64) float64) [4]float64
	fromCanonical func(c [4]float64, fromRad func(float64) float64) []float64
}

var kpFormats = map[string]kpFormat{
	FormatXY: {
		arity: 2,
		toCanonical: func(c []float64, _ func(float64) float64) [4]float64 {
			return [4]float64{c[0], c[1], 0, 0}
		},
		fromCanonical: func(c [4]float64, _ func(float64) float64) []float64 {
			return []float64{c[0], c[1]}
		},
	},
	FormatYX: {
		arity: 2,
		toCanonical: func(c []float64, _ func(float64) float64) [4]float64 {
			return [4]float64{c[1], c[0], 0, 0}
		},
		fromCanonical: func(c [4]float64, _ func(float64) float64) []float64 {
			return []float64{c[1], c[0]}
		},
	},
	FormatXYA: {
		arity: 3,
		toCanonical: func(c []float64, toRad func(float64) float64) [4]float64 {
			return [4]float64{c[0], c[1], normalizeAngle(toRad(c[2])), 0}
		},
		fromCanonical: func(c [4]float64, fromRad func(float64) float64) []float64 {
			return []float64{c[0], c[1], fromRad(c[2])}
		},
	},
	FormatXYS: {
		arity: 3,
		toCanonical: func(c []float64, _ func(float64) float64) [4]float64 {
			return [4]float64{c[0], c[1], 0, c[2]}
		},
		fromCanonical: func(c [4]float64, _ func(float64) float64) []float64 {
			return []float64{c[0], c[1], c[3]}
		},
	},
	FormatXYAS: {
		arity: 4,
		toCanonical: func(c []float64, toRad func(float64) float64) [4]float64 {
			return [4]float64{c[0], c[1], normalizeAngle(toRad(c[2])), c[3]}
		},
		fromCanonical: func(c [4]float64, fromRad func(float64) float64) []float64 {
			return []float64{c[0], c[1], fromRad(c[2]), c[3]}
		},
	},
	FormatXYSA: {
		arity: 4,
		toCanonical: func(c []float64, toRad func(float64) float64) [4]float64 {
			return [4]float64{c[0], c[1], normalizeAngle(toRad(c[3])), c[2]}
		},
		fromCanonical: func(c [4]float64, fromRad func(float64) float64) []float64 {
			return []float64{c[0], c[1], c[3], fromRad(c[2])}
		},
	},
}

// normalizeAngle maps an angle in radians into [0, 2*pi).
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// kpOps implements Ops for keypoint streams.
type kpOps struct {
	format          *kpFormat // nil when the declared format is canonical
	removeInvisible bool
	angleInDegrees  bool
}

func newKeypointOps(params KeypointParams) (*kpOps, error) {
	ops := &kpOps{
		removeInvisible: params.RemoveInvisible,
		angleInDegrees:  params.AngleInDegrees,
	}
	if params.Format == FormatCanonical {
		return ops, nil
	}
	f, ok := kpFormats[params.Format]
	if !ok {
		return nil, fmt.Errorf("%w: unknown keypoint format %q", ErrConfiguration, params.Format)
	}
	ops.format = &f
	return ops, nil
}

func (*kpOps) DefaultDataName() string { return string(KindKeypoints) }

func (o *kpOps) toRad(a float64) float64 {
	if o.angleInDegrees {
		return a * math.Pi / 180
	}
	return a
}

func (o *kpOps) fromRad(a float64) float64 {
	if o.angleInDegrees {
		return a * 180 / math.Pi
	}
	return a
}

// ToCanonical converts every record from the declared external format to
// the canonical representation, filling absent angle and scale components
// with zero.
func (o *kpOps) ToCanonical(records []Record, _ Shape) ([]Record, error) {
	out := make([]Record, len(records))
	for i, r := range records {
		if len(r.Coords) < o.format.arity {
			return nil, fmt.Errorf("%w: keypoint %d has %d coordinates, want %d",
				ErrValidation, i, len(r.Coords), o.format.arity)
		}
		c := o.format.toCanonical(r.Coords, o.toRad)
		out[i] = r.withCoords(c[0], c[1], c[2], c[3])
	}
	return out, nil
}

// FromCanonical is the inverse of ToCanonical; components the external
// format does not carry are dropped.
func (o *kpOps) FromCanonical(records []Record, _ Shape) ([]Record, error) {
	out := make([]Record, len(records))
	for i, r := range records {
		c, err := kpCoords(r, i)
		if err != nil {
			return nil, err
		}
		out[i] = r.withCoords(o.format.fromCanonical(c, o.fromRad)...)
	}
	return out, nil
}

// Check validates canonical keypoint records: coordinates inside the
// frame and the angle within [0, 2*pi).
func (o *kpOps) Check(records []Record, shape Shape) error {
	w, h := float64(shape.Width), float64(shape.Height)
	for i, r := range records {
		c, err := kpCoords(r, i)
		if err != nil {
			return err
		}
		if c[0] < 0 || c[0] >= w || c[1] < 0 || c[1] >= h {
			return fmt.Errorf("%w: keypoint %d at (%v, %v) is outside the %dx%d frame",
				ErrValidation, i, c[0], c[1], shape.Width, shape.Height)
		}
		if c[2] < 0 || c[2] >= 2*math.Pi {
			return fmt.Errorf("%w: keypoint %d has angle %v outside [0, 2*pi)", ErrValidation, i, c[2])
		}
	}
	return nil
}

// Filter drops keypoints that lie outside the frame when RemoveInvisible
// is set. The relative order of survivors is preserved.
func (o *kpOps) Filter(records []Record, shape Shape) []Record {
	if !o.removeInvisible {
		return records
	}

	w, h := float64(shape.Width), float64(shape.Height)
	kept := make([]Record, 0, len(records))
	for _, r := range records {
		if len(r.Coords) < 2 {
			continue
		}
		x, y := r.Coords[0], r.Coords[1]
		if x < 0 || x >= w || y < 0 || y >= h {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

func kpCoords(r Record, idx int) ([4]float64, error) {
	if len(r.Coords) < 2 {
		return [4]float64{}, fmt.Errorf("%w: keypoint %d has %d coordinates, want at least 2",
			ErrValidation, idx, len(r.Coords))
	}
	var c [4]float64
	copy(c[:], r.Coords)
	return c, nil
}
