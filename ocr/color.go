package ocr

import (
	"image"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// inkDistance is the CIE-Lab distance from the background above which a
// pixel counts as ink.
const inkDistance = 0.2

// SampleColors returns a copy of tokens with Color set to the estimated ink
// color inside each bounding box. The background is the mean of the box's
// border pixels; the ink is the mean of the pixels far enough from it in
// Lab space. Tokens whose box holds no such pixel keep a nil Color.
func SampleColors(img image.Image, tokens []Token) []Token {
	out := make([]Token, len(tokens))
	copy(out, tokens)
	if img == nil {
		return out
	}
	for i := range out {
		if c, ok := inkColor(img, out[i].Rect()); ok {
			out[i].Color = &c
		}
	}
	return out
}

func inkColor(img image.Image, box image.Rectangle) (RGB, bool) {
	box = box.Intersect(img.Bounds())
	if box.Dx() < 3 || box.Dy() < 3 {
		return RGB{}, false
	}

	bg, ok := borderMean(img, box)
	if !ok {
		return RGB{}, false
	}

	step := 1 + max(box.Dx(), box.Dy())/128
	var sum colorful.Color
	n := 0
	for y := box.Min.Y + 1; y < box.Max.Y-1; y += step {
		for x := box.Min.X + 1; x < box.Max.X-1; x += step {
			c, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				continue
			}
			if c.DistanceLab(bg) <= inkDistance {
				continue
			}
			sum.R += c.R
			sum.G += c.G
			sum.B += c.B
			n++
		}
	}
	if n == 0 {
		return RGB{}, false
	}
	mean := colorful.Color{R: sum.R / float64(n), G: sum.G / float64(n), B: sum.B / float64(n)}
	r, g, b := mean.Clamped().RGB255()
	return RGB{R: r, G: g, B: b}, true
}

func borderMean(img image.Image, box image.Rectangle) (colorful.Color, bool) {
	var sum colorful.Color
	n := 0
	add := func(x, y int) {
		c, ok := colorful.MakeColor(img.At(x, y))
		if !ok {
			return
		}
		sum.R += c.R
		sum.G += c.G
		sum.B += c.B
		n++
	}
	for x := box.Min.X; x < box.Max.X; x++ {
		add(x, box.Min.Y)
		add(x, box.Max.Y-1)
	}
	for y := box.Min.Y + 1; y < box.Max.Y-1; y++ {
		add(box.Min.X, y)
		add(box.Max.X-1, y)
	}
	if n == 0 {
		return colorful.Color{}, false
	}
	return colorful.Color{R: sum.R / float64(n), G: sum.G / float64(n), B: sum.B / float64(n)}, true
}
