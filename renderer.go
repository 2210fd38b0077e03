package gopresentation

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/tiff"
)

// ImageFormat represents the output image format.
type ImageFormat int

const (
	ImageFormatPNG ImageFormat = iota
	ImageFormatJPEG
)

// RenderOptions configures slide-to-image rendering.
type RenderOptions struct {
	// PixelsPerInch fixes the raster resolution relative to the slide size.
	// When set it takes precedence over Width.
	PixelsPerInch float64
	// Width is the output image width in pixels when PixelsPerInch is zero.
	// Height follows the slide aspect ratio. Default: 960
	Width int
	// Format is the output image format (PNG or JPEG).
	Format ImageFormat
	// JPEGQuality is the JPEG quality (1-100). Default: 90.
	JPEGQuality int
	// BackgroundColor overrides the slide background. Nil means use slide background or white.
	BackgroundColor *color.RGBA
	// DPI is the rendering DPI for font sizing. Default: 96.
	DPI float64
	// FontDirs specifies additional directories to search for TrueType/OpenType fonts.
	FontDirs []string
	// FontCache allows sharing a pre-configured FontCache across renders.
	FontCache *FontCache
}

// DefaultRenderOptions returns default rendering options.
func DefaultRenderOptions() *RenderOptions {
	return &RenderOptions{
		Width:       960,
		Format:      ImageFormatPNG,
		JPEGQuality: 90,
		DPI:         96,
	}
}

// SlideSizePixels returns the raster size a slide renders to under opts.
func (p *Presentation) SlideSizePixels(opts *RenderOptions) (int, int) {
	if opts == nil {
		opts = DefaultRenderOptions()
	}
	layout := p.layout
	if layout == nil || layout.CX <= 0 || layout.CY <= 0 {
		layout = NewDocumentLayout()
	}
	var w int
	if opts.PixelsPerInch > 0 {
		w = int(math.Round(EMUToPixel(layout.CX, opts.PixelsPerInch)))
	} else {
		w = opts.Width
		if w <= 0 {
			w = 960
		}
	}
	h := int(math.Round(float64(w) * float64(layout.CY) / float64(layout.CX)))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// SlideToImage renders a single slide to an image.
func (p *Presentation) SlideToImage(slideIndex int, opts *RenderOptions) (image.Image, error) {
	if slideIndex < 0 || slideIndex >= len(p.slides) {
		return nil, fmt.Errorf("slide index %d out of range (0-%d)", slideIndex, len(p.slides)-1)
	}
	if opts == nil {
		opts = DefaultRenderOptions()
	}

	slide := p.slides[slideIndex]
	imgW, imgH := p.SlideSizePixels(opts)
	layout := p.layout
	if layout == nil || layout.CX <= 0 || layout.CY <= 0 {
		layout = NewDocumentLayout()
	}

	img := image.NewRGBA(image.Rect(0, 0, imgW, imgH))

	bgColor := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	if opts.BackgroundColor != nil {
		bgColor = *opts.BackgroundColor
	} else if slide.background != nil && slide.background.Type == FillSolid {
		bgColor = argbToRGBA(slide.background.Color)
	}
	draw.Draw(img, img.Bounds(), &image.Uniform{bgColor}, image.Point{}, draw.Src)

	r := &renderer{
		img:       img,
		scaleX:    float64(imgW) / float64(layout.CX),
		scaleY:    float64(imgH) / float64(layout.CY),
		fontCache: opts.FontCache,
		dpi:       opts.DPI,
	}
	if r.fontCache == nil {
		r.fontCache = NewFontCache(opts.FontDirs...)
	}
	if r.dpi <= 0 {
		r.dpi = 96
	}

	for _, shape := range slide.shapes {
		r.renderShape(shape)
	}

	return img, nil
}

// SlidesToImages renders all slides to images.
func (p *Presentation) SlidesToImages(opts *RenderOptions) ([]image.Image, error) {
	images := make([]image.Image, len(p.slides))
	for i := range p.slides {
		img, err := p.SlideToImage(i, opts)
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", i, err)
		}
		images[i] = img
	}
	return images, nil
}

// SaveSlideAsImage renders a slide and saves it to a file.
func (p *Presentation) SaveSlideAsImage(slideIndex int, path string, opts *RenderOptions) error {
	img, err := p.SlideToImage(slideIndex, opts)
	if err != nil {
		return err
	}
	return saveImage(img, path, opts)
}

func saveImage(img image.Image, path string, opts *RenderOptions) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if err := EncodeImage(f, img, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// EncodeImage writes img in the format selected by opts.
func EncodeImage(w io.Writer, img image.Image, opts *RenderOptions) error {
	if opts == nil {
		opts = DefaultRenderOptions()
	}
	switch opts.Format {
	case ImageFormatJPEG:
		quality := opts.JPEGQuality
		if quality <= 0 || quality > 100 {
			quality = 90
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	default:
		return png.Encode(w, img)
	}
}

// --- renderer ---

type renderer struct {
	img       *image.RGBA
	scaleX    float64
	scaleY    float64
	fontCache *FontCache
	dpi       float64
}

func (r *renderer) renderShape(shape Shape) {
	switch s := shape.(type) {
	case *RichTextShape:
		r.renderRichText(s)
	case *DrawingShape:
		r.renderDrawing(s)
	case *AutoShape:
		r.renderAutoShape(s)
	}
}

func (r *renderer) shapeRect(b *BaseShape) image.Rectangle {
	x := int(float64(b.offsetX) * r.scaleX)
	y := int(float64(b.offsetY) * r.scaleY)
	w := int(float64(b.width) * r.scaleX)
	h := int(float64(b.height) * r.scaleY)
	return image.Rect(x, y, x+w, y+h)
}

func argbToRGBA(c Color) color.RGBA {
	return color.RGBA{
		R: c.GetRed(),
		G: c.GetGreen(),
		B: c.GetBlue(),
		A: c.GetAlpha(),
	}
}

// textColor is the run color, black when the run inherits.
func textColor(f *Font) color.RGBA {
	if f == nil || !f.HasColor() {
		return color.RGBA{A: 255}
	}
	return argbToRGBA(f.Color)
}

func (r *renderer) borderWidth(b *Border) int {
	bw := b.Width
	if bw <= 0 {
		bw = 1
	}
	// points to pixels at the current scale
	pw := int(float64(Point(float64(bw))) * r.scaleX)
	if pw < 1 {
		pw = 1
	}
	return pw
}

// --- Shape rendering ---

func (r *renderer) renderRichText(s *RichTextShape) {
	rect := r.shapeRect(&s.BaseShape)

	if s.fill != nil && s.fill.Type == FillSolid {
		draw.Draw(r.img, rect, &image.Uniform{argbToRGBA(s.fill.Color)}, image.Point{}, draw.Over)
	}
	if s.border != nil && s.border.Style != BorderNone {
		r.drawRect(rect, argbToRGBA(s.border.Color), r.borderWidth(s.border))
	}

	r.drawParagraphs(s.paragraphs, rect, s.textAnchor)
}

func (r *renderer) renderDrawing(s *DrawingShape) {
	if len(s.data) == 0 {
		return
	}
	rect := r.shapeRect(&s.BaseShape)

	srcImg, _, err := image.Decode(bytes.NewReader(s.data))
	if err != nil {
		// undecodable formats (EMF, WMF, ...) leave a grey frame
		r.drawRect(rect, color.RGBA{R: 200, G: 200, B: 200, A: 255}, 1)
		return
	}
	draw.ApproxBiLinear.Scale(r.img, rect, srcImg, srcImg.Bounds(), draw.Over, nil)
}

func (r *renderer) renderAutoShape(s *AutoShape) {
	rect := r.shapeRect(&s.BaseShape)

	if s.fill != nil && s.fill.Type == FillSolid {
		fillColor := argbToRGBA(s.fill.Color)
		switch s.shapeType {
		case AutoShapeEllipse:
			r.fillEllipse(rect, fillColor)
		default:
			draw.Draw(r.img, rect, &image.Uniform{fillColor}, image.Point{}, draw.Over)
		}
	}

	if s.border != nil && s.border.Style != BorderNone {
		borderColor := argbToRGBA(s.border.Color)
		switch s.shapeType {
		case AutoShapeEllipse:
			r.drawEllipse(rect, borderColor)
		default:
			r.drawRect(rect, borderColor, r.borderWidth(s.border))
		}
	}

	if len(s.paragraphs) > 0 {
		r.drawParagraphs(s.paragraphs, rect, TextAnchorMiddle)
	}
}

// --- Drawing primitives ---

func (r *renderer) drawRect(rect image.Rectangle, c color.RGBA, width int) {
	u := &image.Uniform{c}
	for i := 0; i < width; i++ {
		edges := []image.Rectangle{
			image.Rect(rect.Min.X, rect.Min.Y+i, rect.Max.X, rect.Min.Y+i+1),
			image.Rect(rect.Min.X, rect.Max.Y-1-i, rect.Max.X, rect.Max.Y-i),
			image.Rect(rect.Min.X+i, rect.Min.Y, rect.Min.X+i+1, rect.Max.Y),
			image.Rect(rect.Max.X-1-i, rect.Min.Y, rect.Max.X-i, rect.Max.Y),
		}
		for _, e := range edges {
			draw.Draw(r.img, e, u, image.Point{}, draw.Over)
		}
	}
}

func (r *renderer) fillEllipse(rect image.Rectangle, c color.RGBA) {
	rx := float64(rect.Dx()) / 2
	ry := float64(rect.Dy()) / 2
	if rx <= 0 || ry <= 0 {
		return
	}
	centerX := float64(rect.Min.X) + rx
	centerY := float64(rect.Min.Y) + ry

	for py := rect.Min.Y; py < rect.Max.Y; py++ {
		for px := rect.Min.X; px < rect.Max.X; px++ {
			dx := (float64(px) + 0.5 - centerX) / rx
			dy := (float64(py) + 0.5 - centerY) / ry
			if dx*dx+dy*dy <= 1.0 {
				r.setPixel(px, py, c)
			}
		}
	}
}

func (r *renderer) drawEllipse(rect image.Rectangle, c color.RGBA) {
	rx := float64(rect.Dx()) / 2
	ry := float64(rect.Dy()) / 2
	centerX := float64(rect.Min.X) + rx
	centerY := float64(rect.Min.Y) + ry

	steps := int(math.Max(float64(rect.Dx()), float64(rect.Dy())) * 4)
	if steps < 100 {
		steps = 100
	}
	for i := 0; i < steps; i++ {
		angle := 2 * math.Pi * float64(i) / float64(steps)
		r.setPixel(int(centerX+rx*math.Cos(angle)), int(centerY+ry*math.Sin(angle)), c)
	}
}

func (r *renderer) setPixel(x, y int, c color.RGBA) {
	if (image.Point{X: x, Y: y}).In(r.img.Bounds()) {
		r.img.SetRGBA(x, y, c)
	}
}

// --- Text rendering ---

// getFace returns a font.Face for f scaled to the raster, falling back to basicfont.
func (r *renderer) getFace(f *Font) font.Face {
	if f == nil {
		f = NewFont()
	}
	sizePt := f.Size
	if sizePt <= 0 {
		sizePt = DefaultFontSize
	}
	// design points -> EMU -> raster pixels -> points at the face DPI
	scaledPt := float64(Point(sizePt)) * r.scaleY * 72.0 / r.dpi

	name := f.Name
	if name == "" {
		name = "Calibri"
	}
	if face := r.fontCache.GetFace(name, scaledPt, r.dpi, f.Bold, f.Italic); face != nil {
		return face
	}
	for _, fallback := range []string{"arial", "helvetica", "dejavu sans", "liberation sans", "noto sans"} {
		if face := r.fontCache.GetFace(fallback, scaledPt, r.dpi, f.Bold, f.Italic); face != nil {
			return face
		}
	}
	return basicfont.Face7x13
}

// textRun holds rendering info for a single text run.
type textRun struct {
	text  string
	face  font.Face
	color color.RGBA
}

// textLine holds a wrapped line of text runs.
type textLine struct {
	runs      []textRun
	width     int
	height    int
	alignment HorizontalAlignment
}

func buildTextLine(runs []textRun, align HorizontalAlignment) textLine {
	totalW, maxH := 0, 0
	for _, r := range runs {
		totalW += font.MeasureString(r.face, r.text).Ceil()
		if h := r.face.Metrics().Height.Ceil(); h > maxH {
			maxH = h
		}
	}
	if maxH <= 0 {
		maxH = 14
	}
	return textLine{runs: runs, width: totalW, height: maxH, alignment: align}
}

func (r *renderer) layoutParagraphs(paragraphs []*Paragraph, maxWidth int) []textLine {
	var lines []textLine
	for _, para := range paragraphs {
		align := HorizontalLeft
		if para.alignment != nil {
			align = para.alignment.Horizontal
		}

		var runs []textRun
		for _, elem := range para.elements {
			switch e := elem.(type) {
			case *TextRun:
				runs = append(runs, textRun{text: e.text, face: r.getFace(e.font), color: textColor(e.font)})
			case *BreakElement:
				lines = append(lines, buildTextLine(runs, align))
				runs = nil
			}
		}
		lines = append(lines, buildTextLine(runs, align))
	}

	var wrapped []textLine
	for _, line := range lines {
		if line.width <= maxWidth || maxWidth <= 0 || len(line.runs) == 0 {
			wrapped = append(wrapped, line)
			continue
		}
		wrapped = append(wrapped, wrapRunLine(line, maxWidth)...)
	}
	return wrapped
}

func (r *renderer) drawParagraphs(paragraphs []*Paragraph, rect image.Rectangle, anchor TextAnchorType) {
	lines := r.layoutParagraphs(paragraphs, rect.Dx())

	total := 0
	for _, l := range lines {
		total += l.height
	}
	curY := rect.Min.Y
	switch anchor {
	case TextAnchorMiddle:
		curY += (rect.Dy() - total) / 2
	case TextAnchorBottom:
		curY += rect.Dy() - total
	}

	for _, line := range lines {
		curY += line.height
		if curY > rect.Max.Y+line.height {
			break
		}

		drawX := rect.Min.X
		switch line.alignment {
		case HorizontalCenter:
			drawX += (rect.Dx() - line.width) / 2
		case HorizontalRight:
			drawX += rect.Dx() - line.width
		}

		for _, run := range line.runs {
			d := &font.Drawer{
				Dst:  r.img,
				Src:  &image.Uniform{run.color},
				Face: run.face,
				Dot:  fixed.P(drawX, curY-run.face.Metrics().Descent.Ceil()),
			}
			d.DrawString(run.text)
			drawX += font.MeasureString(run.face, run.text).Ceil()
		}
	}
}

// wrapRunLine wraps a textLine into lines that fit within maxWidth.
func wrapRunLine(line textLine, maxWidth int) []textLine {
	type styledWord struct {
		word  string
		face  font.Face
		color color.RGBA
	}

	var words []styledWord
	for _, run := range line.runs {
		for i, w := range strings.Fields(run.text) {
			if i > 0 {
				w = " " + w
			}
			words = append(words, styledWord{word: w, face: run.face, color: run.color})
		}
	}
	if len(words) == 0 {
		return []textLine{line}
	}

	var result []textLine
	var curRuns []textRun
	curWidth := 0
	for _, sw := range words {
		ww := font.MeasureString(sw.face, sw.word).Ceil()
		if curWidth+ww > maxWidth && curWidth > 0 {
			result = append(result, buildTextLine(curRuns, line.alignment))
			curRuns = nil
			curWidth = 0
			sw.word = strings.TrimLeft(sw.word, " ")
			ww = font.MeasureString(sw.face, sw.word).Ceil()
		}
		curRuns = append(curRuns, textRun{text: sw.word, face: sw.face, color: sw.color})
		curWidth += ww
	}
	if len(curRuns) > 0 {
		result = append(result, buildTextLine(curRuns, line.alignment))
	}
	return result
}
