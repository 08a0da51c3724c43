package augprep

// Bounding box specific functionality.
//
// The canonical box representation is the normalised corner form
// (x_min, y_min, x_max, y_max), all values in [0, 1].

import (
	"fmt"
	"math"
)

// The known external box formats.
const (
	FormatPascalVOC = "pascal_voc" // absolute x_min, y_min, x_max, y_max
	FormatCOCO      = "coco"       // absolute x_min, y_min, width, height
	FormatYOLO      = "yolo"       // normalised center x, center y, width, height
)

const (
	boxArity = 4
	boxEps   = 1e-6
)

// boxFormat converts a single box between an external encoding and the
// canonical representation.
type boxFormat struct {
	toCanonical   func(c [4]float64, shape Shape) [4]float64
	fromCanonical func(c [4]float64, shape Shape) [4]float64
}

var boxFormats = map[string]boxFormat{
	FormatPascalVOC: {
		toCanonical: func(c [4]float64, shape Shape) [4]float64 {
			w, h := float64(shape.Width), float64(shape.Height)
			return [4]float64{c[0] / w, c[1] / h, c[2] / w, c[3] / h}
		},
		fromCanonical: func(c [4]float64, shape Shape) [4]float64 {
			w, h := float64(shape.Width), float64(shape.Height)
			return [4]float64{c[0] * w, c[1] * h, c[2] * w, c[3] * h}
		},
	},
	FormatCOCO: {
		toCanonical: func(c [4]float64, shape Shape) [4]float64 {
			w, h := float64(shape.Width), float64(shape.Height)
			return [4]float64{c[0] / w, c[1] / h, (c[0] + c[2]) / w, (c[1] + c[3]) / h}
		},
		fromCanonical: func(c [4]float64, shape Shape) [4]float64 {
			w, h := float64(shape.Width), float64(shape.Height)
			return [4]float64{c[0] * w, c[1] * h, (c[2] - c[0]) * w, (c[3] - c[1]) * h}
		},
	},
	FormatYOLO: {
		toCanonical: func(c [4]float64, _ Shape) [4]float64 {
			halfW, halfH := c[2]/2, c[3]/2
			return [4]float64{c[0] - halfW, c[1] - halfH, c[0] + halfW, c[1] + halfH}
		},
		fromCanonical: func(c [4]float64, _ Shape) [4]float64 {
			return [4]float64{(c[0] + c[2]) / 2, (c[1] + c[3]) / 2, c[2] - c[0], c[3] - c[1]}
		},
	},
}

// boxOps implements Ops for bounding box streams.
type boxOps struct {
	format        *boxFormat // nil when the declared format is canonical
	minArea       float64
	minVisibility float64
}

func newBoxOps(params BoxParams) (*boxOps, error) {
	ops := &boxOps{minArea: params.MinArea, minVisibility: params.MinVisibility}
	if params.Format == FormatCanonical {
		return ops, nil
	}
	f, ok := boxFormats[params.Format]
	if !ok {
		return nil, fmt.Errorf("%w: unknown box format %q", ErrConfiguration, params.Format)
	}
	ops.format = &f
	return ops, nil
}

func (*boxOps) DefaultDataName() string { return string(KindBoxes) }

// ToCanonical converts every record from the declared external format to
// the canonical representation.
func (o *boxOps) ToCanonical(records []Record, shape Shape) ([]Record, error) {
	return convertBoxes(records, shape, o.format.toCanonical)
}

// FromCanonical is the inverse of ToCanonical.
func (o *boxOps) FromCanonical(records []Record, shape Shape) ([]Record, error) {
	return convertBoxes(records, shape, o.format.fromCanonical)
}

func convertBoxes(records []Record, shape Shape, conv func([4]float64, Shape) [4]float64) ([]Record, error) {
	out := make([]Record, len(records))
	for i, r := range records {
		c, err := boxCoords(r, i)
		if err != nil {
			return nil, err
		}
		c = conv(c, shape)
		out[i] = r.withCoords(c[0], c[1], c[2], c[3])
	}
	return out, nil
}

// Check validates canonical box records: normalised values in [0, 1] and
// a positive extent along both axes.
func (o *boxOps) Check(records []Record, _ Shape) error {
	for i, r := range records {
		c, err := boxCoords(r, i)
		if err != nil {
			return err
		}
		for _, v := range c {
			if v < -boxEps || v > 1+boxEps {
				return fmt.Errorf("%w: box %d has value %v outside [0, 1]: %v", ErrValidation, i, v, c)
			}
		}
		if c[2] <= c[0] || c[3] <= c[1] {
			return fmt.Errorf("%w: box %d has a non-positive extent: %v", ErrValidation, i, c)
		}
	}
	return nil
}

// Filter clips canonical boxes to the frame and drops those whose
// remaining pixel area does not exceed the configured minimum area, or whose
// visible fraction of the original area is below the configured minimum
// visibility. The relative order of survivors is preserved.
func (o *boxOps) Filter(records []Record, shape Shape) []Record {
	w, h := float64(shape.Width), float64(shape.Height)
	kept := make([]Record, 0, len(records))

	for i, r := range records {
		c, err := boxCoords(r, i)
		if err != nil {
			continue
		}

		fullArea := (c[2] - c[0]) * (c[3] - c[1]) * w * h

		clipped := [4]float64{
			math.Max(c[0], 0), math.Max(c[1], 0),
			math.Min(c[2], 1), math.Min(c[3], 1),
		}
		if clipped[2] <= clipped[0] || clipped[3] <= clipped[1] {
			continue
		}
		area := (clipped[2] - clipped[0]) * (clipped[3] - clipped[1]) * w * h

		if area <= o.minArea {
			continue
		}
		if fullArea > 0 && area/fullArea < o.minVisibility {
			continue
		}

		kept = append(kept, r.withCoords(clipped[0], clipped[1], clipped[2], clipped[3]))
	}

	return kept
}

func boxCoords(r Record, idx int) ([4]float64, error) {
	if len(r.Coords) < boxArity {
		return [4]float64{}, fmt.Errorf("%w: box %d has %d coordinates, want %d",
			ErrValidation, idx, len(r.Coords), boxArity)
	}
	return [4]float64{r.Coords[0], r.Coords[1], r.Coords[2], r.Coords[3]}, nil
}
