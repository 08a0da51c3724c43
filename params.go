package augprep

// Stream parameter sets: the declared external format and the auxiliary
// label columns carried alongside one annotation stream.

import "fmt"

// FormatCanonical is the internal coordinate representation all transform
// stages operate on. A stream declared with this format is validated
// instead of converted.
const FormatCanonical = "canonical"

// Params configures one annotation stream.
type Params struct {
	// Format names the external annotation encoding, or FormatCanonical
	// when the caller already supplies canonical records.
	Format string

	// LabelFields are the distinct sample keys holding auxiliary
	// per-annotation columns (class ids, scores, ...), in the order their
	// values are appended to each record during preprocessing.
	LabelFields []string
}

// ToDict returns the serializable configuration mapping, sufficient to
// reconstruct the parameter set.
func (p Params) ToDict() map[string]interface{} {
	return map[string]interface{}{
		"format":       p.Format,
		"label_fields": p.LabelFields,
	}
}

// validate checks the label field keys for duplicates.
func (p Params) validate() error {
	seen := make(map[string]bool, len(p.LabelFields))
	for _, f := range p.LabelFields {
		if seen[f] {
			return fmt.Errorf("%w: duplicate label field %q", ErrConfiguration, f)
		}
		seen[f] = true
	}
	return nil
}

// BoxParams configures a bounding box stream.
type BoxParams struct {
	Params

	// MinArea is the pixel area a box must exceed after clipping to the
	// frame to survive postprocess filtering.
	MinArea float64

	// MinVisibility is the minimum fraction of a box's original area that
	// must remain visible after clipping.
	MinVisibility float64
}

// KeypointParams configures a keypoint stream.
type KeypointParams struct {
	Params

	// RemoveInvisible drops keypoints that land outside the frame during
	// postprocess filtering.
	RemoveInvisible bool

	// AngleInDegrees declares the angle unit of the external format.
	// Canonical records always store radians.
	AngleInDegrees bool
}

// DefaultKeypointParams returns KeypointParams for the given format with
// the stock behaviour: invisible keypoints removed, angles in degrees.
func DefaultKeypointParams(format string, labelFields ...string) KeypointParams {
	return KeypointParams{
		Params:          Params{Format: format, LabelFields: labelFields},
		RemoveInvisible: true,
		AngleInDegrees:  true,
	}
}
