package augprep

// The sample and annotation record representations that flow through a
// transform pipeline.

import (
	"fmt"
	"reflect"
)

// ImageKey is the reserved sample key holding the image value.
const ImageKey = "image"

// Record is a single annotation: geometric coordinates with a fixed arity
// per annotation kind, plus auxiliary label values appended while the
// record is in transit between Preprocess and Postprocess. Label order
// matches Params.LabelFields.
type Record struct {
	Coords []float64
	Labels []interface{}
}

// withCoords returns a copy of r holding the given coordinates and sharing
// no backing storage with the original.
func (r Record) withCoords(coords ...float64) Record {
	out := Record{Coords: coords}
	if r.Labels != nil {
		out.Labels = make([]interface{}, len(r.Labels))
		copy(out.Labels, r.Labels)
	}
	return out
}

// Sample maps stream names to their current values: the image under
// ImageKey, annotation streams under the processor's data field names as
// []Record, and label columns under their own keys as slices.
type Sample map[string]interface{}

// records returns the annotation stream stored under name. The second
// return value reports whether the key is present at all.
func (s Sample) records(name string) ([]Record, bool, error) {
	v, ok := s[name]
	if !ok {
		return nil, false, nil
	}
	rs, ok := v.([]Record)
	if !ok {
		return nil, true, fmt.Errorf("%w: stream %q holds %T, want []Record", ErrUnsupportedType, name, v)
	}
	return rs, true, nil
}

// column returns the label column stored under field as a generic slice.
// Any slice or array type is accepted.
func (s Sample) column(field string) ([]interface{}, bool, error) {
	v, ok := s[field]
	if !ok {
		return nil, false, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, true, fmt.Errorf("%w: label field %q holds %T, want a slice", ErrUnsupportedType, field, v)
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true, nil
}
