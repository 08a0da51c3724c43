package augprep

// A resize transform stage and the image helpers backing it. The stage
// runs between Preprocess and Postprocess and operates on canonical
// streams: normalised boxes survive a resize untouched, keypoints are
// rescaled here.

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// ResampleFilterByName maps a filter name to its imaging implementation.
func ResampleFilterByName(name string) (imaging.ResampleFilter, error) {
	switch name {
	case "nearest":
		return imaging.NearestNeighbor, nil
	case "box":
		return imaging.Box, nil
	case "linear":
		return imaging.Linear, nil
	case "gaussian":
		return imaging.Gaussian, nil
	case "lanczos":
		return imaging.Lanczos, nil
	}
	return imaging.ResampleFilter{}, fmt.Errorf("%w: unknown resampling filter %q", ErrConfiguration, name)
}

// ResizeStage rescales the sample image so that its longer and shorter
// sides match the configured targets (one may be zero to keep the aspect
// ratio), then rescales any canonical keypoint streams accordingly.
type ResizeStage struct {
	LongerSide  int
	ShorterSide int
	Downsample  imaging.ResampleFilter
	Upsample    imaging.ResampleFilter

	// KeypointFields names the canonical keypoint streams whose absolute
	// coordinates must follow the image scale.
	KeypointFields []string
}

// Apply resizes the sample image in place.
func (s ResizeStage) Apply(sample Sample) error {
	img, ok := sample[ImageKey].(image.Image)
	if !ok {
		return fmt.Errorf("%w: resizing requires an image.Image, got %T", ErrUnsupportedType, sample[ImageKey])
	}

	resized, scaleW, scaleH := resizeImage(img, s.LongerSide, s.ShorterSide, s.Downsample, s.Upsample)
	sample[ImageKey] = resized

	for _, name := range s.KeypointFields {
		records, ok, err := sample.records(name)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		scaled := make([]Record, len(records))
		for i, r := range records {
			c, err := kpCoords(r, i)
			if err != nil {
				return err
			}
			scaled[i] = r.withCoords(c[0]*scaleW, c[1]*scaleH, c[2], c[3]*math.Max(scaleW, scaleH))
		}
		sample[name] = scaled
	}

	return nil
}

// resizeImage resamples the image to match the longer and shorter side
// targets (one may be 0).
//
// Returns the resized image along with the width and height scale factors.
func resizeImage(img image.Image, longerSide, shorterSide int,
	downsamplingFilter, upsamplingFilter imaging.ResampleFilter) (
	resized image.Image, scaleWidth, scaleHeight float64) {

	imgBounds := img.Bounds()
	imgWidth := imgBounds.Dx()
	imgHeight := imgBounds.Dy()

	imgLonger := imgWidth
	imgShorter := imgHeight
	isLandscape := true
	if imgHeight > imgWidth {
		imgLonger = imgHeight
		imgShorter = imgWidth
		isLandscape = false
	}

	// Calculate the target dimensions.
	if longerSide <= 0 {
		longerSide = int(math.Round(float64(shorterSide) * (float64(imgLonger) / float64(imgShorter))))
	} else if shorterSide <= 0 {
		shorterSide = int(math.Round(float64(longerSide) * (float64(imgShorter) / float64(imgLonger))))
	}

	// Select the filter based on the direction of the rescaling operation.
	var filter imaging.ResampleFilter
	if longerSide*shorterSide < imgWidth*imgHeight {
		filter = downsamplingFilter
	} else {
		filter = upsamplingFilter
	}

	if isLandscape {
		resized = imaging.Resize(img, longerSide, shorterSide, filter)
		scaleWidth = float64(longerSide) / float64(imgLonger)
		scaleHeight = float64(shorterSide) / float64(imgShorter)
	} else { // Portrait.
		resized = imaging.Resize(img, shorterSide, longerSide, filter)
		scaleWidth = float64(shorterSide) / float64(imgShorter)
		scaleHeight = float64(longerSide) / float64(imgLonger)
	}

	return resized, scaleWidth, scaleHeight
}
