package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"

	"lookout/internal/geometry"
)

// Normalization holds per-channel constants applied when converting pixels
// to model input values: (px/255 - Mean[c]) / Std[c]. The constants are part
// of each model's training contract and must match exactly.
type Normalization struct {
	Mean [3]float32
	Std  [3]float32
}

// DetectorNormalization matches the face detection model, which was trained
// with (px - 127) / 128 per channel.
var DetectorNormalization = Normalization{
	Mean: [3]float32{127.0 / 255.0, 127.0 / 255.0, 127.0 / 255.0},
	Std:  [3]float32{128.0 / 255.0, 128.0 / 255.0, 128.0 / 255.0},
}

// EmbedderNormalization matches the face embedding model (ImageNet constants).
var EmbedderNormalization = Normalization{
	Mean: [3]float32{0.485, 0.456, 0.406},
	Std:  [3]float32{0.229, 0.224, 0.225},
}

// Decode parses an encoded frame (JPEG or PNG) into an image.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// EncodeJPEG re-encodes an image as JPEG for alert payloads and storage.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// ResizeForDetection scales the image to exactly width x height without
// preserving aspect ratio. The detector expects its fixed input resolution
// and its box outputs are normalized, so distortion is undone when boxes
// are mapped back to the source frame.
func ResizeForDetection(img image.Image, width, height int) *image.RGBA {
	resized := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Over, nil)
	return resized
}

// CenterCrop extracts the largest centered square from the image (full
// height for portrait, full width for landscape) and scales it to
// size x size.
func CenterCrop(img image.Image, size int) *image.RGBA {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	var cropX, cropY, cropSize int
	if width >= height {
		cropX = width/2 - height/2
		cropY = 0
		cropSize = height
	} else {
		cropX = 0
		cropY = height/2 - width/2
		cropSize = width
	}

	src := image.Rect(
		bounds.Min.X+cropX,
		bounds.Min.Y+cropY,
		bounds.Min.X+cropX+cropSize,
		bounds.Min.Y+cropY+cropSize,
	)

	out := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(out, out.Bounds(), img, src, draw.Over, nil)
	return out
}

// Crop returns the sub-image covered by box, clamped to the image bounds.
// Returns false when the clamped region has no area; such detections are
// dropped by callers rather than treated as errors.
func Crop(img image.Image, box geometry.Box) (*image.RGBA, bool) {
	bounds := img.Bounds()
	clamped := box.Clamp(bounds.Dx(), bounds.Dy())

	x1 := int(clamped.X1)
	y1 := int(clamped.Y1)
	x2 := int(clamped.X2)
	y2 := int(clamped.Y2)
	if x2-x1 <= 0 || y2-y1 <= 0 {
		return nil, false
	}

	out := image.NewRGBA(image.Rect(0, 0, x2-x1, y2-y1))
	src := image.Rect(bounds.Min.X+x1, bounds.Min.Y+y1, bounds.Min.X+x2, bounds.Min.Y+y2)
	draw.Draw(out, out.Bounds(), img, src.Min, draw.Src)
	return out, true
}

// ToNormalizedTensor converts the image to channel-first planar float32
// layout: all R values, then all G, then all B, each normalized with the
// given per-channel constants. The returned slice has length 3*w*h.
func ToNormalizedTensor(img image.Image, norm Normalization) []float32 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	stride := width * height

	out := make([]float32, 3*stride)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			idx := y*width + x
			out[idx] = (float32(r>>8)/255.0 - norm.Mean[0]) / norm.Std[0]
			out[stride+idx] = (float32(g>>8)/255.0 - norm.Mean[1]) / norm.Std[1]
			out[2*stride+idx] = (float32(b>>8)/255.0 - norm.Mean[2]) / norm.Std[2]
		}
	}
	return out
}

// Rotate applies the frame source's orientation hint (degrees clockwise,
// one of 0/90/180/270) before analysis.
func Rotate(img image.Image, degrees int) image.Image {
	degrees = ((degrees % 360) + 360) % 360
	if degrees == 0 {
		return img
	}

	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	var out *image.RGBA
	switch degrees {
	case 90, 270:
		out = image.NewRGBA(image.Rect(0, 0, h, w))
	default:
		out = image.NewRGBA(image.Rect(0, 0, w, h))
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := img.At(bounds.Min.X+x, bounds.Min.Y+y)
			switch degrees {
			case 90:
				out.Set(h-1-y, x, c)
			case 180:
				out.Set(w-1-x, h-1-y, c)
			case 270:
				out.Set(y, w-1-x, c)
			}
		}
	}
	return out
}
