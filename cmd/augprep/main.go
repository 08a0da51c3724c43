// Normalises annotation streams (bounding boxes, keypoints) around an
// image transform step: converts them to the canonical representation,
// optionally resizes the images, then filters and converts the
// annotations back, with auxiliary label columns kept in sync. Outputs
// JSON annotations or a TFRecord file.
package main

import (
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/sensorable/augprep"
)

var (
	annotationsPath    string // The input JSON annotation file.
	annotationsOutPath string // The output JSON annotation file.
	imageDirPath       string // The input directory with the annotated images.
	imageOutDirPath    string // The output directory for resized images.

	boxFormat      string   // The external bounding box format.
	keypointFormat string   // The external keypoint format.
	labelFields    []string // The label columns attached to the box stream.

	filterMinArea       float64 // The min. remaining box area in pixels.
	filterMinVisibility float64 // The min. visible fraction of a box.
	keepInvisible       bool    // Keep keypoints that fall outside the frame.

	imageResizeLonger       int    // The target length for the longer side of the image.
	imageResizeShorter      int    // The target length for the shorter side of the image.
	imageDownsamplingFilter string // The algorithm to use when downsampling.
	imageUpsamplingFilter   string // The algorithm to use when upsampling.
	imageJPEGQuality        int    // The JPEG quality for JPEG outputs.

	tfRecordOutPath  string // The TFRecord output file.
	tfRecordLabelMap string // The TFRecord label map file.
)

func init() {
	printUsageAndExit := func(msg ...interface{}) {
		log.Print(msg...)
		flag.Usage()
		os.Exit(1)
	}

	flag.StringVar(&annotationsPath, "annotations", annotationsPath,
		"The `path` to the JSON annotation input file")
	flag.StringVar(&annotationsOutPath, "annotations-out", annotationsOutPath,
		"The `path` to the JSON annotation output file")
	flag.StringVar(&imageDirPath, "images", imageDirPath,
		"The `path` to the image input directory")
	flag.StringVar(&imageOutDirPath, "images-out", imageOutDirPath,
		"The `path` to the image output directory (required when resizing)")

	flag.StringVar(&boxFormat, "format", "pascal_voc",
		"The bounding box `format` {pascal_voc, coco, yolo, canonical}")
	flag.StringVar(&keypointFormat, "kp-format", "xy",
		"The keypoint `format` {xy, yx, xya, xys, xyas, xysa, canonical}")
	fields := flag.String("label-fields", "",
		"Comma-separated label column names (`name[,...]`) attached to the box stream")

	flag.Float64Var(&filterMinArea, "min-area", filterMinArea,
		"The min. remaining box area in `pixels` to keep a box after the transform")
	flag.Float64Var(&filterMinVisibility, "min-visibility", filterMinVisibility,
		"The min. visible `fraction` of a box's original area to keep it")
	flag.BoolVar(&keepInvisible, "keep-invisible", keepInvisible,
		"Keep keypoints that end up outside the frame")

	flag.IntVar(&imageResizeLonger, "resize-longer", imageResizeLonger,
		"The target `length` for the longer side of the image (zero to keep aspect ratio)")
	flag.IntVar(&imageResizeShorter, "resize-shorter", imageResizeShorter,
		"The target `length` for the shorter side of the image (zero to keep aspect ratio)")
	flag.StringVar(&imageDownsamplingFilter, "downsample-filter", "box",
		"The filter to use when downsampling an image {nearest, box, linear, gaussian, lanczos}")
	flag.StringVar(&imageUpsamplingFilter, "upsample-filter", "linear",
		"The filter to use when upsampling an image {nearest, box, linear, gaussian, lanczos}")
	flag.IntVar(&imageJPEGQuality, "jpeg-quality", 90,
		"The quality to use when encoding JPEGs [1, 100]")

	flag.StringVar(&tfRecordOutPath, "tfrecord-out", tfRecordOutPath,
		"The `path` to the TFRecord output file")
	flag.StringVar(&tfRecordLabelMap, "tfrecord-label-map-file", tfRecordLabelMap,
		"The `path` to the TFRecord label map file")

	flag.Parse()

	if *fields != "" {
		labelFields = strings.Split(*fields, ",")
	}

	if annotationsPath == "" || imageDirPath == "" {
		printUsageAndExit("Missing annotation or image input path argument")
	}
	if annotationsOutPath == "" && tfRecordOutPath == "" {
		printUsageAndExit("Missing output path argument (-annotations-out or -tfrecord-out)")
	}
	if tfRecordOutPath != "" && tfRecordLabelMap == "" {
		printUsageAndExit("Missing -tfrecord-label-map-file argument")
	}
	if (imageResizeLonger > 0 || imageResizeShorter > 0) && imageOutDirPath == "" {
		printUsageAndExit("Missing image output directory path")
	}
	if imageJPEGQuality < 1 || imageJPEGQuality > 100 {
		imageJPEGQuality = 92
		log.Print("Invalid JPEG quality, setting it to ", imageJPEGQuality)
	}

	imageDirPath = filepath.Clean(imageDirPath)
	if imageOutDirPath != "" {
		imageOutDirPath = filepath.Clean(imageOutDirPath)
		if imageDirPath == imageOutDirPath {
			printUsageAndExit("The image input and output paths cannot be identical")
		}
	}
}

func main() {
	boxProc, err := augprep.NewBoxProcessor(augprep.BoxParams{
		Params: augprep.Params{
			Format:      boxFormat,
			LabelFields: labelFields,
		},
		MinArea:       filterMinArea,
		MinVisibility: filterMinVisibility,
	})
	if err != nil {
		log.Fatal("Invalid box configuration: ", err)
	}

	kpParams := augprep.DefaultKeypointParams(keypointFormat)
	kpParams.RemoveInvisible = !keepInvisible
	kpProc, err := augprep.NewKeypointProcessor(kpParams)
	if err != nil {
		log.Fatal("Invalid keypoint configuration: ", err)
	}

	data, err := augprep.ReadAnnotations(annotationsPath)
	if err != nil {
		log.Fatal("Failed to parse the input: ", err)
	}
	log.Printf("Processing annotations for %d files", len(data))

	var resize *augprep.ResizeStage
	if imageResizeLonger > 0 || imageResizeShorter > 0 {
		downsample, err := augprep.ResampleFilterByName(imageDownsamplingFilter)
		if err != nil {
			log.Fatal(err)
		}
		upsample, err := augprep.ResampleFilterByName(imageUpsamplingFilter)
		if err != nil {
			log.Fatal(err)
		}
		resize = &augprep.ResizeStage{
			LongerSide:     imageResizeLonger,
			ShorterSide:    imageResizeShorter,
			Downsample:     downsample,
			Upsample:       upsample,
			KeypointFields: []string{string(augprep.KindKeypoints)},
		}
	}

	var tfWriter *augprep.TFRecordWriter
	var tfFile *os.File
	if tfRecordOutPath != "" {
		tfFile, err = os.Create(tfRecordOutPath)
		if err != nil {
			log.Fatal("Failed to create the TFRecord file: ", err)
		}
		defer tfFile.Close()

		tfWriter = augprep.NewTFRecordWriter(tfFile, string(augprep.KindBoxes), firstLabelField())
		if _, err := os.Stat(tfRecordLabelMap); err == nil {
			if err := tfWriter.LoadLabelMap(tfRecordLabelMap); err != nil {
				log.Fatal("Failed to load the label map: ", err)
			}
			log.Print("Label map loaded successfully")
		}
	}

	// The export pass re-normalises postprocessed boxes without touching
	// the restored label columns.
	exportProc, err := augprep.NewBoxProcessor(augprep.BoxParams{
		Params: augprep.Params{Format: boxFormat},
	})
	if err != nil {
		log.Fatal("Invalid box configuration: ", err)
	}

	out := make([]augprep.AnnotatedImage, 0, len(data))
	dropped := 0
	for _, entry := range data {
		imagePath := filepath.Join(imageDirPath, entry.FilePath)
		img, err := imaging.Open(imagePath)
		if err != nil {
			log.Printf("Error while loading, skipping %q: %v", imagePath, err)
			continue
		}

		sample := entry.Sample(img)
		if err := boxProc.Preprocess(sample); err != nil {
			log.Fatalf("Preprocessing failed for %q: %v", entry.FilePath, err)
		}
		if err := kpProc.Preprocess(sample); err != nil {
			log.Fatalf("Preprocessing failed for %q: %v", entry.FilePath, err)
		}

		if resize != nil {
			if err := resize.Apply(sample); err != nil {
				log.Fatalf("Resizing failed for %q: %v", entry.FilePath, err)
			}
		}

		sample, err = boxProc.Postprocess(sample)
		if err != nil {
			log.Fatalf("Postprocessing failed for %q: %v", entry.FilePath, err)
		}
		dropped += boxProc.Dropped()
		sample, err = kpProc.Postprocess(sample)
		if err != nil {
			log.Fatalf("Postprocessing failed for %q: %v", entry.FilePath, err)
		}
		dropped += kpProc.Dropped()

		if resize != nil {
			outPath := filepath.Join(imageOutDirPath, entry.FilePath)
			if err := saveSampleImage(sample, outPath); err != nil {
				log.Fatalf("Failed to save %q: %v", outPath, err)
			}
		}

		if _, hasBoxes := sample[string(augprep.KindBoxes)]; tfWriter != nil && hasBoxes {
			if err := exportProc.Preprocess(sample); err != nil {
				log.Fatalf("Export normalisation failed for %q: %v", entry.FilePath, err)
			}
			if err := tfWriter.WriteSample(sample, entry.FilePath); err != nil {
				log.Fatalf("TFRecord export failed for %q: %v", entry.FilePath, err)
			}
			sample, err = exportProc.Postprocess(sample)
			if err != nil {
				log.Fatalf("Export denormalisation failed for %q: %v", entry.FilePath, err)
			}
		}

		converted, err := augprep.FromSample(sample, entry.FilePath, labelFields)
		if err != nil {
			log.Fatalf("Failed to rebuild annotations for %q: %v", entry.FilePath, err)
		}
		out = append(out, converted)
	}

	if dropped > 0 {
		log.Printf("Filtered out %d annotations in total", dropped)
	}

	if tfWriter != nil {
		if err := tfWriter.SaveLabelMap(tfRecordLabelMap); err != nil {
			log.Fatal("Failed to write the label map: ", err)
		}
		log.Printf("Successfully wrote %d TFRecord examples to %s", len(out), tfRecordOutPath)
	}

	if annotationsOutPath != "" {
		if err := augprep.WriteAnnotations(annotationsOutPath, out); err != nil {
			log.Fatal("Failed to write the annotations: ", err)
		}
		log.Printf("Successfully wrote annotations for %d files to %s", len(out), annotationsOutPath)
	}
}

func firstLabelField() string {
	if len(labelFields) > 0 {
		return labelFields[0]
	}
	return ""
}

// saveSampleImage writes the sample image to path, creating the parent
// directory if needed.
func saveSampleImage(sample augprep.Sample, path string) error {
	img, ok := sample[augprep.ImageKey].(image.Image)
	if !ok {
		return fmt.Errorf("the sample image is %T, want image.Image", sample[augprep.ImageKey])
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return imaging.Save(img, path, imaging.JPEGQuality(imageJPEGQuality))
}
