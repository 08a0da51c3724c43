package augprep

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeypointConversions(t *testing.T) {
	shape := Shape{Height: 50, Width: 100}

	tests := []struct {
		format    string
		external  []float64
		canonical []float64
	}{
		{FormatXY, []float64{10, 20}, []float64{10, 20, 0, 0}},
		{FormatYX, []float64{20, 10}, []float64{10, 20, 0, 0}},
		{FormatXYA, []float64{10, 20, 90}, []float64{10, 20, math.Pi / 2, 0}},
		{FormatXYS, []float64{10, 20, 2}, []float64{10, 20, 0, 2}},
		{FormatXYAS, []float64{10, 20, 180, 2}, []float64{10, 20, math.Pi, 2}},
		{FormatXYSA, []float64{10, 20, 2, 180}, []float64{10, 20, math.Pi, 2}},
	}

	for _, tc := range tests {
		t.Run(tc.format, func(t *testing.T) {
			ops, err := newKeypointOps(DefaultKeypointParams(tc.format))
			require.NoError(t, err)

			canonical, err := ops.ToCanonical(CoordsToRecords([][]float64{tc.external}), shape)
			require.NoError(t, err)
			require.Len(t, canonical, 1)
			for i, v := range tc.canonical {
				assert.InDelta(t, v, canonical[0].Coords[i], 1e-9)
			}

			back, err := ops.FromCanonical(canonical, shape)
			require.NoError(t, err)
			require.Len(t, back, 1)
			require.Len(t, back[0].Coords, len(tc.external))
			for i, v := range tc.external {
				assert.InDelta(t, v, back[0].Coords[i], 1e-6,
					"component %d did not survive the round trip", i)
			}
		})
	}
}

func TestKeypointAngleInRadians(t *testing.T) {
	params := DefaultKeypointParams(FormatXYA)
	params.AngleInDegrees = false
	ops, err := newKeypointOps(params)
	require.NoError(t, err)

	out, err := ops.ToCanonical(CoordsToRecords([][]float64{{1, 2, math.Pi / 4}}), Shape{Height: 10, Width: 10})
	require.NoError(t, err)
	assert.InDelta(t, math.Pi/4, out[0].Coords[2], 1e-9)
}

func TestKeypointAngleNormalised(t *testing.T) {
	ops, err := newKeypointOps(DefaultKeypointParams(FormatXYA))
	require.NoError(t, err)

	// -90 degrees wraps to 270 degrees.
	out, err := ops.ToCanonical(CoordsToRecords([][]float64{{1, 2, -90}}), Shape{Height: 10, Width: 10})
	require.NoError(t, err)
	assert.InDelta(t, 3*math.Pi/2, out[0].Coords[2], 1e-9)
}

func TestKeypointCheck(t *testing.T) {
	ops, err := newKeypointOps(DefaultKeypointParams(FormatCanonical))
	require.NoError(t, err)
	shape := Shape{Height: 50, Width: 100}

	tests := []struct {
		name   string
		coords []float64
		ok     bool
	}{
		{"inside", []float64{10, 20, 0, 0}, true},
		{"origin", []float64{0, 0, 0, 0}, true},
		{"x at width", []float64{100, 20, 0, 0}, false},
		{"negative y", []float64{10, -1, 0, 0}, false},
		{"angle out of range", []float64{10, 20, 7, 0}, false},
		{"single coordinate", []float64{10}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ops.Check(CoordsToRecords([][]float64{tc.coords}), shape)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrValidation)
			}
		})
	}
}

func TestKeypointFilter(t *testing.T) {
	shape := Shape{Height: 50, Width: 100}
	records := CoordsToRecords([][]float64{
		{10, 20, 0, 0},
		{-1, 20, 0, 0},
		{10, 60, 0, 0},
		{99, 49, 0, 0},
	})

	t.Run("remove invisible", func(t *testing.T) {
		ops, err := newKeypointOps(DefaultKeypointParams(FormatCanonical))
		require.NoError(t, err)

		kept := ops.Filter(records, shape)
		require.Len(t, kept, 2)
		assert.Equal(t, 10.0, kept[0].Coords[0])
		assert.Equal(t, 99.0, kept[1].Coords[0])
	})

	t.Run("keep invisible", func(t *testing.T) {
		params := DefaultKeypointParams(FormatCanonical)
		params.RemoveInvisible = false
		ops, err := newKeypointOps(params)
		require.NoError(t, err)

		assert.Len(t, ops.Filter(records, shape), len(records))
	})
}

func TestKeypointProcessorRoundTrip(t *testing.T) {
	proc, err := NewKeypointProcessor(DefaultKeypointParams(FormatXYA, "visibility"))
	require.NoError(t, err)

	sample := Sample{
		ImageKey:     testImage(100, 50),
		"keypoints":  CoordsToRecords([][]float64{{10, 20, 45}, {70, 30, 0}}),
		"visibility": []int{2, 1},
	}

	require.NoError(t, proc.Preprocess(sample))
	sample, err = proc.Postprocess(sample)
	require.NoError(t, err)

	records, _, err := sample.records("keypoints")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.InDelta(t, 45, records[0].Coords[2], 1e-6)
	assert.Equal(t, []interface{}{2, 1}, sample["visibility"])
	assert.Zero(t, proc.Dropped())
}
