package gopresentation

import (
	"fmt"
	"os"
	"strings"
)

// Shape is the interface that all shapes implement.
type Shape interface {
	GetType() ShapeType
	GetOffsetX() int64
	GetOffsetY() int64
	GetWidth() int64
	GetHeight() int64
	GetName() string
	// base returns the underlying BaseShape (unexported, internal use only).
	base() *BaseShape
}

// ShapeType represents the type of shape.
type ShapeType int

const (
	ShapeTypeRichText ShapeType = iota
	ShapeTypeDrawing
	ShapeTypeAutoShape
)

// BaseShape contains common shape properties.
type BaseShape struct {
	name        string
	description string
	offsetX     int64 // in EMU
	offsetY     int64 // in EMU
	width       int64 // in EMU
	height      int64 // in EMU
	fill        *Fill
	border      *Border
}

func (b *BaseShape) GetOffsetX() int64 { return b.offsetX }
func (b *BaseShape) GetOffsetY() int64 { return b.offsetY }
func (b *BaseShape) GetWidth() int64   { return b.width }
func (b *BaseShape) GetHeight() int64  { return b.height }
func (b *BaseShape) GetName() string   { return b.name }
func (b *BaseShape) base() *BaseShape  { return b }

func (b *BaseShape) SetName(n string) *BaseShape { b.name = n; return b }

// SetPosition sets both offset X and Y in EMU.
func (b *BaseShape) SetPosition(x, y int64) *BaseShape {
	b.offsetX = x
	b.offsetY = y
	return b
}

// SetSize sets both width and height in EMU.
func (b *BaseShape) SetSize(w, h int64) *BaseShape {
	b.width = w
	b.height = h
	return b
}

func (b *BaseShape) GetFill() *Fill {
	if b.fill == nil {
		b.fill = NewFill()
	}
	return b.fill
}

// RichTextShape represents a text box.
type RichTextShape struct {
	BaseShape
	paragraphs      []*Paragraph
	activeParagraph int
	autoFit         AutoFitType
	wordWrap        bool
	textAnchor      TextAnchorType
}

// TextAnchorType represents the text anchoring type within a shape.
type TextAnchorType string

const (
	TextAnchorTop    TextAnchorType = "t"
	TextAnchorMiddle TextAnchorType = "ctr"
	TextAnchorBottom TextAnchorType = "b"
	TextAnchorNone   TextAnchorType = ""
)

// AutoFitType represents the auto-fit behavior.
type AutoFitType int

const (
	AutoFitNone AutoFitType = iota
	AutoFitNormal
	AutoFitShape
)

func (r *RichTextShape) GetType() ShapeType { return ShapeTypeRichText }

// NewRichTextShape creates a new rich text shape with one empty paragraph.
func NewRichTextShape() *RichTextShape {
	return &RichTextShape{
		paragraphs: []*Paragraph{NewParagraph()},
		wordWrap:   true,
	}
}

// GetActiveParagraph returns the active paragraph.
func (r *RichTextShape) GetActiveParagraph() *Paragraph {
	if len(r.paragraphs) == 0 {
		r.paragraphs = append(r.paragraphs, NewParagraph())
	}
	return r.paragraphs[r.activeParagraph]
}

// CreateParagraph creates a new paragraph and makes it active.
func (r *RichTextShape) CreateParagraph() *Paragraph {
	p := NewParagraph()
	r.paragraphs = append(r.paragraphs, p)
	r.activeParagraph = len(r.paragraphs) - 1
	return p
}

// GetParagraphs returns all paragraphs.
func (r *RichTextShape) GetParagraphs() []*Paragraph {
	return r.paragraphs
}

// CreateTextRun creates a text run in the active paragraph.
func (r *RichTextShape) CreateTextRun(text string) *TextRun {
	return r.GetActiveParagraph().CreateTextRun(text)
}

func (r *RichTextShape) SetAutoFit(fit AutoFitType)    { r.autoFit = fit }
func (r *RichTextShape) GetAutoFit() AutoFitType       { return r.autoFit }
func (r *RichTextShape) SetWordWrap(wrap bool)         { r.wordWrap = wrap }
func (r *RichTextShape) GetWordWrap() bool             { return r.wordWrap }
func (r *RichTextShape) GetTextAnchor() TextAnchorType { return r.textAnchor }

// SetTextAnchor sets where text sits vertically inside the box.
func (r *RichTextShape) SetTextAnchor(anchor TextAnchorType) { r.textAnchor = anchor }

// Paragraph represents a text paragraph.
type Paragraph struct {
	elements  []ParagraphElement
	alignment *Alignment
}

// ParagraphElement is the interface for paragraph content.
type ParagraphElement interface {
	GetElementType() string
}

// NewParagraph creates a new paragraph.
func NewParagraph() *Paragraph {
	return &Paragraph{
		elements:  make([]ParagraphElement, 0),
		alignment: NewAlignment(),
	}
}

// GetAlignment returns the paragraph alignment.
func (p *Paragraph) GetAlignment() *Alignment { return p.alignment }

// SetAlignment sets the paragraph alignment.
func (p *Paragraph) SetAlignment(a *Alignment) { p.alignment = a }

// GetElements returns all paragraph elements.
func (p *Paragraph) GetElements() []ParagraphElement { return p.elements }

// GetText returns the concatenated text of the paragraph's runs; line breaks
// become newlines.
func (p *Paragraph) GetText() string {
	var sb strings.Builder
	for _, elem := range p.elements {
		switch e := elem.(type) {
		case *TextRun:
			sb.WriteString(e.text)
		case *BreakElement:
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// CreateTextRun creates a new text run.
func (p *Paragraph) CreateTextRun(text string) *TextRun {
	tr := &TextRun{
		text: text,
		font: NewFont(),
	}
	p.elements = append(p.elements, tr)
	return tr
}

// CreateBreak creates a line break element.
func (p *Paragraph) CreateBreak() *BreakElement {
	br := &BreakElement{}
	p.elements = append(p.elements, br)
	return br
}

// TextRun represents a run of text with formatting.
type TextRun struct {
	text string
	font *Font
}

func (tr *TextRun) GetElementType() string { return "textrun" }

// GetText returns the text content.
func (tr *TextRun) GetText() string { return tr.text }

// SetText sets the text content.
func (tr *TextRun) SetText(text string) { tr.text = text }

// GetFont returns the font properties.
func (tr *TextRun) GetFont() *Font { return tr.font }

// SetFont sets the font properties.
func (tr *TextRun) SetFont(f *Font) { tr.font = f }

// BreakElement represents a line break.
type BreakElement struct{}

func (br *BreakElement) GetElementType() string { return "break" }

// DrawingShape represents a picture.
type DrawingShape struct {
	BaseShape
	data     []byte // raw image data
	mimeType string
}

func (d *DrawingShape) GetType() ShapeType { return ShapeTypeDrawing }

// NewDrawingShape creates a new drawing shape.
func NewDrawingShape() *DrawingShape {
	return &DrawingShape{}
}

// SetImageData sets the raw image data.
func (d *DrawingShape) SetImageData(data []byte, mimeType string) *DrawingShape {
	d.data = data
	d.mimeType = mimeType
	return d
}

// GetImageData returns the raw image data.
func (d *DrawingShape) GetImageData() []byte { return d.data }

// GetMimeType returns the image MIME type.
func (d *DrawingShape) GetMimeType() string { return d.mimeType }

// maxImageFileSize is the maximum allowed size for an image file loaded from disk.
const maxImageFileSize = 50 << 20 // 50 MB

// SetImageFromFile loads an image from a file path and sets the data and MIME type.
func (d *DrawingShape) SetImageFromFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat image file: %w", err)
	}
	if info.Size() > maxImageFileSize {
		return fmt.Errorf("image file too large: %d bytes (max %d)", info.Size(), maxImageFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image file: %w", err)
	}
	d.data = data
	d.mimeType = guessMimeType(path)
	return nil
}

// guessMimeType guesses the MIME type from a file extension.
func guessMimeType(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".gif"):
		return "image/gif"
	case strings.HasSuffix(lower, ".bmp"):
		return "image/bmp"
	case strings.HasSuffix(lower, ".tif"), strings.HasSuffix(lower, ".tiff"):
		return "image/tiff"
	default:
		return "image/png"
	}
}

// AutoShape represents a preset-geometry shape (rectangle, ellipse, ...).
// Text inside it is rendered centered.
type AutoShape struct {
	BaseShape
	shapeType  AutoShapeType
	paragraphs []*Paragraph
}

// AutoShapeType is the DrawingML preset geometry name.
type AutoShapeType string

const (
	AutoShapeRectangle      AutoShapeType = "rect"
	AutoShapeRoundRectangle AutoShapeType = "roundRect"
	AutoShapeEllipse        AutoShapeType = "ellipse"
)

func (a *AutoShape) GetType() ShapeType { return ShapeTypeAutoShape }

// NewAutoShape creates a rectangle auto shape.
func NewAutoShape() *AutoShape {
	return &AutoShape{shapeType: AutoShapeRectangle}
}

// SetAutoShapeType sets the preset geometry.
func (a *AutoShape) SetAutoShapeType(t AutoShapeType) *AutoShape {
	a.shapeType = t
	return a
}

// GetAutoShapeType returns the preset geometry.
func (a *AutoShape) GetAutoShapeType() AutoShapeType { return a.shapeType }

// SetSolidFill sets a solid fill color.
func (a *AutoShape) SetSolidFill(c Color) *AutoShape {
	a.GetFill().SetSolid(c)
	return a
}

// SetText replaces the shape's text with a single paragraph.
func (a *AutoShape) SetText(text string) *AutoShape {
	p := NewParagraph()
	p.CreateTextRun(text)
	a.paragraphs = []*Paragraph{p}
	return a
}

// GetText returns the shape's text, one paragraph per line.
func (a *AutoShape) GetText() string {
	lines := make([]string, 0, len(a.paragraphs))
	for _, p := range a.paragraphs {
		lines = append(lines, p.GetText())
	}
	return strings.Join(lines, "\n")
}

// GetParagraphs returns the shape's paragraphs.
func (a *AutoShape) GetParagraphs() []*Paragraph { return a.paragraphs }
