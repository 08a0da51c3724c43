package augprep

// JSON dataset I/O: per-image annotation entries with coordinate rows in
// the declared external format plus named label columns.

import (
	"encoding/json"
	"fmt"
	"os"
)

// AnnotatedImage is the JSON annotation structure for a single image.
// Coordinate rows are stored in the dataset's declared external format;
// label columns are keyed by label field name and parallel to the
// coordinate rows of their stream.
type AnnotatedImage struct {
	FilePath  string                   `json:"filename"`
	Boxes     [][]float64              `json:"boxes,omitempty"`
	Keypoints [][]float64              `json:"keypoints,omitempty"`
	Labels    map[string][]interface{} `json:"labels,omitempty"`
}

// ReadAnnotations reads and parses a JSON annotation file.
func ReadAnnotations(path string) ([]AnnotatedImage, error) {
	enc, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var data []AnnotatedImage
	if err := json.Unmarshal(enc, &data); err != nil {
		return nil, fmt.Errorf("failed to parse annotations from %q: %v", path, err)
	}
	return data, nil
}

// WriteAnnotations writes the annotation data to outFile as JSON.
func WriteAnnotations(outFile string, data []AnnotatedImage) error {
	enc, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(outFile, enc, 0644); err != nil {
		return fmt.Errorf("cannot write file %q: %v", outFile, err)
	}
	return nil
}

// Sample assembles a pipeline sample from the annotation entry and the
// image value stored under ImageKey.
func (a AnnotatedImage) Sample(img interface{}) Sample {
	sample := Sample{ImageKey: img}
	if a.Boxes != nil {
		sample[string(KindBoxes)] = CoordsToRecords(a.Boxes)
	}
	if a.Keypoints != nil {
		sample[string(KindKeypoints)] = CoordsToRecords(a.Keypoints)
	}
	for field, column := range a.Labels {
		sample[field] = column
	}
	return sample
}

// FromSample rebuilds the annotation entry from a postprocessed sample,
// collecting the given label columns.
func FromSample(sample Sample, filePath string, labelFields []string) (AnnotatedImage, error) {
	out := AnnotatedImage{FilePath: filePath}

	boxes, ok, err := sample.records(string(KindBoxes))
	if err != nil {
		return out, err
	}
	if ok {
		out.Boxes = RecordsToCoords(boxes)
	}

	keypoints, ok, err := sample.records(string(KindKeypoints))
	if err != nil {
		return out, err
	}
	if ok {
		out.Keypoints = RecordsToCoords(keypoints)
	}

	for _, field := range labelFields {
		column, ok, err := sample.column(field)
		if err != nil {
			return out, err
		}
		if !ok {
			continue
		}
		if out.Labels == nil {
			out.Labels = make(map[string][]interface{}, len(labelFields))
		}
		out.Labels[field] = column
	}

	return out, nil
}

// CoordsToRecords wraps raw coordinate rows as annotation records.
func CoordsToRecords(rows [][]float64) []Record {
	records := make([]Record, len(rows))
	for i, row := range rows {
		coords := make([]float64, len(row))
		copy(coords, row)
		records[i] = Record{Coords: coords}
	}
	return records
}

// RecordsToCoords extracts the coordinate rows from annotation records.
func RecordsToCoords(records []Record) [][]float64 {
	rows := make([][]float64, len(records))
	for i, r := range records {
		row := make([]float64, len(r.Coords))
		copy(row, r.Coords)
		rows[i] = row
	}
	return rows
}
