package augprep

// The annotation stream processor: orchestrates the
// preprocess -> (external transform stages) -> postprocess cycle for one
// or more named annotation streams, dispatching format conversion to the
// kind-specific operations.

import (
	"fmt"
	"log"
	"sync/atomic"
)

// Kind identifies the annotation domain a Processor handles.
type Kind string

// The supported annotation kinds, also the default stream names.
const (
	KindBoxes     Kind = "bboxes"
	KindKeypoints Kind = "keypoints"
)

// Ops is the capability set a concrete annotation kind provides to the
// processor. Check and Filter operate on canonical records; ToCanonical
// and FromCanonical convert between the declared external format and the
// canonical representation.
type Ops interface {
	DefaultDataName() string
	Check(records []Record, shape Shape) error
	Filter(records []Record, shape Shape) []Record
	ToCanonical(records []Record, shape Shape) ([]Record, error)
	FromCanonical(records []Record, shape Shape) ([]Record, error)
}

// direction selects the conversion applied by checkAndConvert.
type direction int

const (
	directionTo direction = iota
	directionFrom
)

// Processor prepares annotation streams for a transform pipeline and
// restores them afterwards. Its configuration is immutable after the
// setup phase; one instance may then be shared across concurrent pipeline
// invocations on different samples.
type Processor struct {
	params     Params
	ops        Ops
	dataFields []string
	dropped    atomic.Int64
}

// NewProcessor constructs a processor for the given kind with stock
// parameters for that kind.
func NewProcessor(kind Kind, params Params) (*Processor, error) {
	switch kind {
	case KindBoxes:
		return NewBoxProcessor(BoxParams{Params: params})
	case KindKeypoints:
		kp := DefaultKeypointParams(params.Format, params.LabelFields...)
		return NewKeypointProcessor(kp)
	}
	return nil, fmt.Errorf("%w: unknown annotation kind %q", ErrConfiguration, kind)
}

// NewBoxProcessor constructs a processor for bounding box streams.
func NewBoxProcessor(params BoxParams) (*Processor, error) {
	ops, err := newBoxOps(params)
	if err != nil {
		return nil, err
	}
	return newProcessor(params.Params, ops)
}

// NewKeypointProcessor constructs a processor for keypoint streams.
func NewKeypointProcessor(params KeypointParams) (*Processor, error) {
	ops, err := newKeypointOps(params)
	if err != nil {
		return nil, err
	}
	return newProcessor(params.Params, ops)
}

func newProcessor(params Params, ops Ops) (*Processor, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &Processor{
		params:     params,
		ops:        ops,
		dataFields: []string{ops.DefaultDataName()},
	}, nil
}

// Params returns the processor's parameter set.
func (p *Processor) Params() Params { return p.params }

// DataFields returns the stream names this processor is responsible for,
// default stream first.
func (p *Processor) DataFields() []string {
	out := make([]string, len(p.dataFields))
	copy(out, p.dataFields)
	return out
}

// AddTargets registers additional stream names to be treated exactly like
// the default stream. Aliases whose target is not this processor's
// default stream belong to a different processor and are ignored, as are
// names already registered. Must complete before concurrent Preprocess or
// Postprocess calls begin.
func (p *Processor) AddTargets(targets map[string]string) {
	for alias, target := range targets {
		if target != p.ops.DefaultDataName() || p.hasDataField(alias) {
			continue
		}
		p.dataFields = append(p.dataFields, alias)
	}
}

func (p *Processor) hasDataField(name string) bool {
	for _, f := range p.dataFields {
		if f == name {
			return true
		}
	}
	return false
}

// Dropped reports how many records the most recent Postprocess call
// filtered out. Diagnostic only; when the processor is shared across
// concurrent pipeline invocations the value reflects an arbitrary one of
// them.
func (p *Processor) Dropped() int { return int(p.dropped.Load()) }

// Preprocess appends the declared label columns to each record of every
// stream present in the sample and converts the streams from the declared
// external format into the canonical representation. The sample is
// updated in place; streams receive newly built record sequences.
func (p *Processor) Preprocess(sample Sample) error {
	if err := p.addLabelFields(sample); err != nil {
		return err
	}

	shape, err := ImageShape(sample[ImageKey])
	if err != nil {
		return err
	}

	for _, name := range p.dataFields {
		records, ok, err := sample.records(name)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		converted, err := p.checkAndConvert(records, shape, directionTo)
		if err != nil {
			return err
		}
		sample[name] = converted
	}

	return nil
}

// Postprocess filters out records that are no longer valid for the
// current image shape, converts the survivors back to the declared
// external format and redistributes the label values appended by
// Preprocess into their own sample keys. Returns the updated sample.
func (p *Processor) Postprocess(sample Sample) (Sample, error) {
	shape, err := ImageShape(sample[ImageKey])
	if err != nil {
		return nil, err
	}

	dropped := 0
	for _, name := range p.dataFields {
		records, ok, err := sample.records(name)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		kept := p.ops.Filter(records, shape)
		dropped += len(records) - len(kept)

		converted, err := p.checkAndConvert(kept, shape, directionFrom)
		if err != nil {
			return nil, err
		}
		sample[name] = converted
	}

	p.dropped.Store(int64(dropped))
	if dropped > 0 {
		log.Printf("Filtered out %d invalid records", dropped)
	}

	return p.removeLabelFields(sample)
}

// checkAndConvert converts records between the external and canonical
// formats. When the declared format already is canonical, the records are
// validated instead of converted.
func (p *Processor) checkAndConvert(records []Record, shape Shape, dir direction) ([]Record, error) {
	if p.params.Format == FormatCanonical {
		if err := p.ops.Check(records, shape); err != nil {
			return nil, err
		}
		return records, nil
	}

	switch dir {
	case directionTo:
		return p.ops.ToCanonical(records, shape)
	case directionFrom:
		return p.ops.FromCanonical(records, shape)
	}
	return nil, fmt.Errorf("%w: invalid conversion direction %d", ErrConfiguration, dir)
}

// addLabelFields appends each record's label values, in declared order,
// to the end of the record. All streams are length-checked against their
// label columns before any stream is rebuilt.
func (p *Processor) addLabelFields(sample Sample) error {
	if len(p.params.LabelFields) == 0 {
		return nil
	}

	type streamColumns struct {
		name    string
		records []Record
		columns [][]interface{}
	}
	var pending []streamColumns

	for _, name := range p.dataFields {
		records, ok, err := sample.records(name)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		sc := streamColumns{name: name, records: records}
		for _, field := range p.params.LabelFields {
			col, ok, err := sample.column(field)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: label field %q is missing from the sample", ErrDataShape, field)
			}
			if len(col) != len(records) {
				return fmt.Errorf("%w: the lengths of %q and %q do not match, got %d and %d",
					ErrDataShape, name, field, len(records), len(col))
			}
			sc.columns = append(sc.columns, col)
		}
		pending = append(pending, sc)
	}

	for _, sc := range pending {
		withLabels := make([]Record, len(sc.records))
		for i, r := range sc.records {
			labels := make([]interface{}, 0, len(r.Labels)+len(sc.columns))
			labels = append(labels, r.Labels...)
			for _, col := range sc.columns {
				labels = append(labels, col[i])
			}
			coords := make([]float64, len(r.Coords))
			copy(coords, r.Coords)
			withLabels[i] = Record{Coords: coords, Labels: labels}
		}
		sample[sc.name] = withLabels
	}

	return nil
}

// removeLabelFields strips the trailing label values off each record and
// stores them back under the label field keys, one column per field in
// declared order.
func (p *Processor) removeLabelFields(sample Sample) (Sample, error) {
	numFields := len(p.params.LabelFields)
	if numFields == 0 {
		return sample, nil
	}

	for _, name := range p.dataFields {
		records, ok, err := sample.records(name)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		stripped := make([]Record, len(records))
		columns := make([][]interface{}, numFields)
		for i := range columns {
			columns[i] = make([]interface{}, len(records))
		}

		for i, r := range records {
			if len(r.Labels) < numFields {
				return nil, fmt.Errorf("%w: record %d of %q carries %d label values, want %d",
					ErrDataShape, i, name, len(r.Labels), numFields)
			}
			tail := r.Labels[len(r.Labels)-numFields:]
			for j, v := range tail {
				columns[j][i] = v
			}

			coords := make([]float64, len(r.Coords))
			copy(coords, r.Coords)
			remaining := r.Labels[:len(r.Labels)-numFields]
			var labels []interface{}
			if len(remaining) > 0 {
				labels = make([]interface{}, len(remaining))
				copy(labels, remaining)
			}
			stripped[i] = Record{Coords: coords, Labels: labels}
		}

		sample[name] = stripped
		for j, field := range p.params.LabelFields {
			sample[field] = columns[j]
		}
	}

	return sample, nil
}
