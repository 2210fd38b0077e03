// Package compose turns clustered OCR output into positioned slide
// elements and writes the resulting document as a PowerPoint file.
package compose

import (
	"fmt"
	"image"
	"strings"

	"github.com/VantageDataChat/SlideOCR/layout"
	"github.com/VantageDataChat/SlideOCR/ocr"
)

const (
	// PixelsPerUnit converts page pixels to slide inches.
	PixelsPerUnit = 96
	// MinFontSize is the smallest font size in points an element gets.
	MinFontSize = 8
	// FontScale maps a pixel height to a point size.
	FontScale = 0.75

	// DefaultWidth and DefaultHeight are used for documents without pages.
	DefaultWidth  = 10.0
	DefaultHeight = 7.5

	// MinSlideSize and MaxSlideSize bound each slide side in inches.
	// PowerPoint rejects sldSz values outside this range.
	MinSlideSize = 1.0
	MaxSlideSize = 56.0
)

// Mode selects how a page is turned into slide content.
type Mode string

const (
	// ModeBlocks places one text box per layout block.
	ModeBlocks Mode = "blocks"
	// ModeTokens places one text box per OCR token.
	ModeTokens Mode = "tokens"
	// ModeText places the whole page text in one fixed text box.
	ModeText Mode = "text"
	// ModeImage places the page raster as a full-slide picture, no OCR.
	ModeImage Mode = "image"
)

// Modes lists the accepted modes.
var Modes = []Mode{ModeBlocks, ModeTokens, ModeText, ModeImage}

// ParseMode parses a mode name. The empty string means ModeBlocks.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return ModeBlocks, nil
	}
	for _, m := range Modes {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// NeedsOCR reports whether pages composed in this mode need recognized text.
func (m Mode) NeedsOCR() bool { return m != ModeImage }

// Page is one rasterized source page with its recognition results.
type Page struct {
	Index     int
	Width     int // pixels
	Height    int // pixels
	Blocks    []layout.Block
	Tokens    []ocr.Token
	Image     []byte
	ImageMIME string
}

// Element is a positioned text box. Geometry is in inches, FontSize in
// points; a zero FontSize means the document default.
type Element struct {
	Text     string
	X        float64
	Y        float64
	Width    float64
	Height   float64
	FontSize float64
	Color    *ocr.RGB
}

// Slide is the content of one output slide. Picture, when set, covers the
// whole slide behind the elements.
type Slide struct {
	Elements    []Element
	Picture     []byte
	PictureMIME string
}

// Document is an ordered list of slides with a common size in inches.
type Document struct {
	Title  string
	Width  float64
	Height float64
	Slides []Slide
}

// NewDocument returns an empty document of the default size.
func NewDocument(title string) *Document {
	return &Document{Title: title}
}

// Append adds a composed page. The first page that has a pixel size sets
// the document size, scaled into the allowed slide range. Every page's
// elements are then rescaled from its own size to the document size so they
// stay aligned with a full-slide picture, which is stretched the same way.
func (d *Document) Append(page Page, s Slide) {
	pw, ph := ToUnits(page.Width), ToUnits(page.Height)
	if pw > 0 && ph > 0 {
		if d.Width == 0 && d.Height == 0 {
			d.Width, d.Height = fitSlide(pw, ph)
		}
		s = s.scaled(d.Width/pw, d.Height/ph)
	}
	d.Slides = append(d.Slides, s)
}

// Size returns the slide size in inches, falling back to 10 x 7.5.
func (d *Document) Size() (w, h float64) {
	if d.Width > 0 && d.Height > 0 {
		return fitSlide(d.Width, d.Height)
	}
	return DefaultWidth, DefaultHeight
}

// fitSlide scales w x h uniformly into [MinSlideSize, MaxSlideSize]. Pages
// too elongated to fit keep the scale and have the offending side clamped.
func fitSlide(w, h float64) (float64, float64) {
	f := 1.0
	if long := max(w, h); long > MaxSlideSize {
		f = MaxSlideSize / long
	}
	if short := min(w, h); short*f < MinSlideSize {
		f = MinSlideSize / short
	}
	return clampSide(w * f), clampSide(h * f)
}

func clampSide(v float64) float64 {
	return min(MaxSlideSize, max(MinSlideSize, v))
}

// scaled returns s with element geometry multiplied by sx and sy. Font sizes
// follow the smaller factor.
func (s Slide) scaled(sx, sy float64) Slide {
	if sx == 1 && sy == 1 || len(s.Elements) == 0 {
		return s
	}
	elems := make([]Element, len(s.Elements))
	for i, e := range s.Elements {
		e.X *= sx
		e.Width *= sx
		e.Y *= sy
		e.Height *= sy
		if e.FontSize > 0 {
			e.FontSize = max(MinFontSize, e.FontSize*min(sx, sy))
		}
		elems[i] = e
	}
	s.Elements = elems
	return s
}

// ToUnits converts pixels to inches.
func ToUnits(px int) float64 {
	return float64(px) / PixelsPerUnit
}

// FontSize returns the point size for text heightPx pixels tall.
func FontSize(heightPx int) float64 {
	return max(MinFontSize, FontScale*float64(heightPx))
}

// Composer builds slides from pages.
type Composer struct {
	Mode Mode
	// KeepImage also places the page raster behind the text in OCR modes.
	KeepImage bool
}

// ComposePage builds the slide for one page. Pages without text produce
// a slide without elements.
func (c *Composer) ComposePage(p Page) Slide {
	var s Slide
	mode := c.Mode
	if mode == "" {
		mode = ModeBlocks
	}
	if mode == ModeImage || c.KeepImage {
		s.Picture = p.Image
		s.PictureMIME = p.ImageMIME
	}

	switch mode {
	case ModeBlocks:
		for _, b := range p.Blocks {
			if len(b.Tokens) == 0 {
				continue
			}
			s.Elements = append(s.Elements, elementAt(b.Text(), b.Bounds(), b.Anchor().Height, b.Color()))
		}
	case ModeTokens:
		for _, t := range p.Tokens {
			s.Elements = append(s.Elements, elementAt(t.Text, t.Rect(), t.Height, t.Color))
		}
	case ModeText:
		if text := pageText(p.Blocks); text != "" {
			s.Elements = append(s.Elements, Element{Text: text, X: 1, Y: 1, Width: 8, Height: 5})
		}
	}
	return s
}

func elementAt(text string, r image.Rectangle, heightPx int, color *ocr.RGB) Element {
	return Element{
		Text:     text,
		X:        ToUnits(r.Min.X),
		Y:        ToUnits(r.Min.Y),
		Width:    ToUnits(r.Dx()),
		Height:   ToUnits(r.Dy()),
		FontSize: FontSize(heightPx),
		Color:    color,
	}
}

// pageText joins block texts with newlines.
func pageText(blocks []layout.Block) string {
	lines := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if t := b.Text(); t != "" {
			lines = append(lines, t)
		}
	}
	return strings.Join(lines, "\n")
}
