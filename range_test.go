package augprep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToTuple(t *testing.T) {
	tests := []struct {
		name  string
		param interface{}
		low   interface{}
		bias  interface{}
		want  [2]float64
	}{
		{name: "scalar is symmetric", param: 5, want: [2]float64{-5, 5}},
		{name: "scalar float", param: 2.5, want: [2]float64{-2.5, 2.5}},
		{name: "scalar with low", param: 5, low: 2, want: [2]float64{2, 5}},
		{name: "scalar with low above param", param: 2, low: 5, want: [2]float64{2, 5}},
		{name: "pair is sorted", param: []float64{3, 1}, want: [2]float64{1, 3}},
		{name: "pair array", param: [2]float64{4, -2}, want: [2]float64{-2, 4}},
		{name: "int pair", param: []int{7, 3}, want: [2]float64{3, 7}},
		{name: "scalar with bias", param: 4, bias: 10, want: [2]float64{6, 14}},
		{name: "pair with bias", param: []float64{1, 3}, bias: 1, want: [2]float64{2, 4}},
		{name: "pair ignores low", param: []float64{1, 3}, low: 99, want: [2]float64{1, 3}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ToTuple(tc.param, tc.low, tc.bias)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestToTupleErrors(t *testing.T) {
	tests := []struct {
		name  string
		param interface{}
		low   interface{}
		bias  interface{}
	}{
		{name: "low and bias together", param: 5, low: 2, bias: 1},
		{name: "string param", param: "x"},
		{name: "nil param"},
		{name: "three element sequence", param: []float64{1, 2, 3}},
		{name: "non-scalar low", param: 5, low: "2"},
		{name: "non-scalar bias", param: 5, bias: []float64{1, 2}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ToTuple(tc.param, tc.low, tc.bias)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}
