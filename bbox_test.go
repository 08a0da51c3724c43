package augprep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoxConversions(t *testing.T) {
	shape := Shape{Height: 50, Width: 100}

	tests := []struct {
		format    string
		external  []float64
		canonical []float64
	}{
		{FormatPascalVOC, []float64{10, 10, 30, 40}, []float64{0.1, 0.2, 0.3, 0.8}},
		{FormatCOCO, []float64{10, 10, 20, 30}, []float64{0.1, 0.2, 0.3, 0.8}},
		{FormatYOLO, []float64{0.2, 0.5, 0.2, 0.6}, []float64{0.1, 0.2, 0.3, 0.8}},
	}

	for _, tc := range tests {
		t.Run(tc.format, func(t *testing.T) {
			ops, err := newBoxOps(BoxParams{Params: Params{Format: tc.format}})
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
			for i, v := range tc.external {
				assert.InDelta(t, v, back[0].Coords[i], 1e-6,
					"component %d did not survive the round trip", i)
			}
		})
	}
}

func TestBoxConversionPreservesLabels(t *testing.T) {
	ops, err := newBoxOps(BoxParams{Params: Params{Format: FormatPascalVOC}})
	require.NoError(t, err)

	in := []Record{{Coords: []float64{10, 10, 20, 20}, Labels: []interface{}{"cat"}}}
	out, err := ops.ToCanonical(in, Shape{Height: 100, Width: 100})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"cat"}, out[0].Labels)

	// The conversion must not alias the input record's storage.
	out[0].Labels[0] = "dog"
	assert.Equal(t, "cat", in[0].Labels[0])
}

func TestBoxCheck(t *testing.T) {
	ops, err := newBoxOps(BoxParams{Params: Params{Format: FormatCanonical}})
	require.NoError(t, err)
	shape := Shape{Height: 10, Width: 10}

	tests := []struct {
		name   string
		coords []float64
		ok     bool
	}{
		{"valid", []float64{0.1, 0.1, 0.5, 0.5}, true},
		{"touching the frame", []float64{0, 0, 1, 1}, true},
		{"value above one", []float64{0.1, 0.1, 1.5, 0.5}, false},
		{"negative value", []float64{-0.2, 0.1, 0.5, 0.5}, false},
		{"zero width", []float64{0.5, 0.1, 0.5, 0.5}, false},
		{"inverted height", []float64{0.1, 0.6, 0.5, 0.5}, false},
		{"missing coordinates", []float64{0.1, 0.2}, false},
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

func TestBoxFilter(t *testing.T) {
	shape := Shape{Height: 100, Width: 100}

	t.Run("clips and keeps order", func(t *testing.T) {
		ops, err := newBoxOps(BoxParams{Params: Params{Format: FormatCanonical}})
		require.NoError(t, err)

		kept := ops.Filter(canonicalBoxes(
			[]float64{-0.1, -0.1, 0.5, 0.5},
			[]float64{1.1, 1.1, 1.2, 1.2},
			[]float64{0.6, 0.6, 0.8, 0.8},
		), shape)

		require.Len(t, kept, 2)
		assert.Equal(t, []float64{0, 0, 0.5, 0.5}, kept[0].Coords)
		assert.Equal(t, []float64{0.6, 0.6, 0.8, 0.8}, kept[1].Coords)
	})

	t.Run("min area", func(t *testing.T) {
		ops, err := newBoxOps(BoxParams{
			Params:  Params{Format: FormatCanonical},
			MinArea: 500,
		})
		require.NoError(t, err)

		kept := ops.Filter(canonicalBoxes(
			[]float64{0, 0, 0.1, 0.1}, // 100 px
			[]float64{0, 0, 0.1, 0.5}, // exactly 500 px, still dropped
			[]float64{0, 0, 0.3, 0.3}, // 900 px
		), shape)
		require.Len(t, kept, 1)
		assert.Equal(t, 0.3, kept[0].Coords[2])
	})

	t.Run("min visibility", func(t *testing.T) {
		ops, err := newBoxOps(BoxParams{
			Params:        Params{Format: FormatCanonical},
			MinVisibility: 0.5,
		})
		require.NoError(t, err)

		kept := ops.Filter(canonicalBoxes(
			[]float64{-0.4, 0, 0.1, 0.5}, // only a fifth remains visible
			[]float64{-0.1, 0, 0.4, 0.5}, // four fifths remain visible
		), shape)
		require.Len(t, kept, 1)
		assert.Equal(t, 0.4, kept[0].Coords[2])
	})
}
