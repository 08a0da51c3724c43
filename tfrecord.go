package augprep

// TFRecord object detection export for processed samples.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/disintegration/imaging"
	"github.com/golang/protobuf/proto"
	"github.com/ryszard/tfutils/go/example"
	"github.com/ryszard/tfutils/go/tfrecord"
)

// TFFeatureMap maps feature names to their values. Values must be
// convertible to tensorflow.Feature.
type TFFeatureMap map[string]interface{}

// TFRecordWriter serialises samples holding canonical box streams as
// tensorflow.Example records. The writer owns the string to class id
// label map and grows it as new class labels appear.
type TFRecordWriter struct {
	w           io.Writer
	boxField    string // the stream to export, canonical format
	classField  string // the label column providing the class text
	labelMap    map[string]int64
	nextLabelID int64
}

// NewTFRecordWriter creates a writer that exports the canonical box
// stream stored under boxField, taking the class text of each box from
// the label column stored under classField.
func NewTFRecordWriter(w io.Writer, boxField, classField string) *TFRecordWriter {
	return &TFRecordWriter{
		w:           w,
		boxField:    boxField,
		classField:  classField,
		labelMap:    make(map[string]int64),
		nextLabelID: 1,
	}
}

// LabelMap returns a copy of the class label to id mapping accumulated so
// far.
func (t *TFRecordWriter) LabelMap() map[string]int64 {
	out := make(map[string]int64, len(t.labelMap))
	for k, v := range t.labelMap {
		out[k] = v
	}
	return out
}

// WriteSample converts the sample to a tensorflow.Example and appends it
// to the record stream.
func (t *TFRecordWriter) WriteSample(sample Sample, sourceID string) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("conversion to TensorFlow Example failed: %v", e)
		}
	}()

	f, err := t.featureMap(sample, sourceID)
	if err != nil {
		return err
	}

	enc, err := proto.Marshal(example.New(f))
	if err != nil {
		return err
	}

	return tfrecord.Write(t.w, enc)
}

// featureMap builds the object detection feature layout for the sample.
func (t *TFRecordWriter) featureMap(sample Sample, sourceID string) (TFFeatureMap, error) {
	shape, err := ImageShape(sample[ImageKey])
	if err != nil {
		return nil, err
	}

	records, ok, err := sample.records(t.boxField)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: sample has no %q stream to export", ErrDataShape, t.boxField)
	}

	classes, haveClasses, err := sample.column(t.classField)
	if err != nil {
		return nil, err
	}
	if haveClasses && len(classes) != len(records) {
		return nil, fmt.Errorf("%w: the lengths of %q and %q do not match, got %d and %d",
			ErrDataShape, t.boxField, t.classField, len(records), len(classes))
	}

	f := make(TFFeatureMap, 16)
	f["image/height"] = shape.Height
	f["image/width"] = shape.Width
	f["image/source_id"] = sourceID

	// Embed the encoded image when the sample holds a decoded one.
	if img, ok := sample[ImageKey].(image.Image); ok {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, err
		}
		f["image/encoded"] = buf.Bytes()
		f["image/format"] = "png"
	}

	numBoxes := len(records)
	xmins := make([]float32, numBoxes)
	ymins := make([]float32, numBoxes)
	xmaxs := make([]float32, numBoxes)
	ymaxs := make([]float32, numBoxes)
	classTexts := make([]string, numBoxes)
	classIDs := make([]int64, numBoxes)
	for i, r := range records {
		c, err := boxCoords(r, i)
		if err != nil {
			return nil, err
		}
		xmins[i] = float32(c[0])
		ymins[i] = float32(c[1])
		xmaxs[i] = float32(c[2])
		ymaxs[i] = float32(c[3])

		if haveClasses {
			classTexts[i] = fmt.Sprint(classes[i])
		}
		classIDs[i] = t.classID(classTexts[i])
	}
	f["image/object/bbox/xmin"] = xmins
	f["image/object/bbox/ymin"] = ymins
	f["image/object/bbox/xmax"] = xmaxs
	f["image/object/bbox/ymax"] = ymaxs
	f["image/object/class/text"] = classTexts
	f["image/object/class/label"] = classIDs

	return f, nil
}

// classID returns the id for the class text, assigning the next free id
// on first sight.
func (t *TFRecordWriter) classID(text string) int64 {
	id, ok := t.labelMap[text]
	if !ok {
		id = t.nextLabelID
		t.labelMap[text] = id
		t.nextLabelID++
	}
	return id
}

// SaveLabelMap writes the accumulated label map to path as JSON.
func (t *TFRecordWriter) SaveLabelMap(path string) error {
	enc, err := json.MarshalIndent(t.labelMap, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, enc, 0644); err != nil {
		return fmt.Errorf("failed to write the label map %q: %v", path, err)
	}
	return nil
}

// LoadLabelMap reads a label map previously written by SaveLabelMap and
// seeds the writer with it, continuing id assignment past the largest
// loaded id.
func (t *TFRecordWriter) LoadLabelMap(path string) error {
	enc, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	labelMap := make(map[string]int64)
	if err := json.Unmarshal(enc, &labelMap); err != nil {
		return fmt.Errorf("failed to parse the label map %q: %v", path, err)
	}

	var maxID int64
	for k, v := range labelMap {
		if k == "" || v <= 0 {
			return fmt.Errorf("%w: invalid label map entry %q: %d", ErrConfiguration, k, v)
		}
		if v > maxID {
			maxID = v
		}
	}

	t.labelMap = labelMap
	t.nextLabelID = maxID + 1
	return nil
}
