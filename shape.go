package augprep

// Image shape derivation for the supported image representations.

import (
	"fmt"
	"image"

	"gonum.org/v1/gonum/mat"
)

// Shape is the spatial extent of an image.
type Shape struct {
	Height int
	Width  int
}

// ImageShape derives the spatial extent of the sample's image value.
// Decoded images (image.Image) and numeric matrices (gonum mat.Matrix,
// rows as height and columns as width) are supported.
func ImageShape(img interface{}) (Shape, error) {
	switch v := img.(type) {
	case image.Image:
		b := v.Bounds()
		return Shape{Height: b.Dy(), Width: b.Dx()}, nil
	case mat.Matrix:
		rows, cols := v.Dims()
		return Shape{Height: rows, Width: cols}, nil
	}
	return Shape{}, fmt.Errorf("%w: images must be an image.Image or a mat.Matrix, got %T", ErrUnsupportedType, img)
}
