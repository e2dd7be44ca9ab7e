package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"lookout/internal/geometry"
)

// BoxLabel pairs a detection box with an optional overlay caption.
type BoxLabel struct {
	Box   geometry.Box
	Label string
	Color color.RGBA
}

// AlertBoxColor marks the face that triggered an alert.
var AlertBoxColor = color.RGBA{R: 255, A: 255}

// DetectionBoxColor marks other detected faces.
var DetectionBoxColor = color.RGBA{R: 255, G: 165, A: 255}

// DrawBoxes returns a copy of the frame with detection boxes and labels
// drawn on it. Used for alert photos and the live event stream.
func DrawBoxes(img image.Image, labels []BoxLabel) *image.RGBA {
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)

	for _, l := range labels {
		clamped := l.Box.Clamp(bounds.Dx(), bounds.Dy())
		x := bounds.Min.X + int(clamped.X1)
		y := bounds.Min.Y + int(clamped.Y1)
		w := int(clamped.Width())
		h := int(clamped.Height())
		if w <= 0 || h <= 0 {
			continue
		}
		drawRect(rgba, x, y, w, h, l.Color, 2)
		if l.Label != "" {
			drawLabel(rgba, x, y-5, l.Label, l.Color)
		}
	}
	return rgba
}

// FormatScoreLabel renders a name and similarity for box captions.
func FormatScoreLabel(name string, score float32) string {
	if name == "" {
		return fmt.Sprintf("%.0f%%", score*100)
	}
	return fmt.Sprintf("%s %.0f%%", name, score*100)
}

func drawRect(img *image.RGBA, x, y, w, h int, c color.RGBA, thickness int) {
	bounds := img.Bounds()

	for t := 0; t < thickness; t++ {
		for i := x; i < x+w && i < bounds.Max.X; i++ {
			if y+t >= 0 && y+t < bounds.Max.Y && i >= 0 {
				img.Set(i, y+t, c)
			}
			if y+h-t >= 0 && y+h-t < bounds.Max.Y && i >= 0 {
				img.Set(i, y+h-t, c)
			}
		}
		for j := y; j < y+h && j < bounds.Max.Y; j++ {
			if x+t >= 0 && x+t < bounds.Max.X && j >= 0 {
				img.Set(x+t, j, c)
			}
			if x+w-t >= 0 && x+w-t < bounds.Max.X && j >= 0 {
				img.Set(x+w-t, j, c)
			}
		}
	}
}

func drawLabel(img *image.RGBA, x, y int, label string, c color.RGBA) {
	if y < 10 {
		y = 10
	}
	if x < 0 {
		x = 0
	}

	// Background rectangle so the caption stays readable on busy frames.
	bgColor := color.RGBA{A: 180}
	textWidth := len(label) * 7
	for dy := -2; dy < 12; dy++ {
		for dx := -2; dx < textWidth+2; dx++ {
			px, py := x+dx, y+dy
			if px >= 0 && px < img.Bounds().Max.X && py >= 0 && py < img.Bounds().Max.Y {
				img.Set(px, py, bgColor)
			}
		}
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y + 10)},
	}
	d.DrawString(label)
}
