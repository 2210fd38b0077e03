package compose

import (
	"context"
	"fmt"
	"strings"

	gopresentation "github.com/VantageDataChat/SlideOCR"
)

// PPTXWriter writes Documents as PowerPoint 2007 files.
type PPTXWriter struct {
	// FontName is applied to every run. Empty keeps the library default.
	FontName string
}

// NewPPTXWriter returns a writer with default settings.
func NewPPTXWriter() *PPTXWriter {
	return &PPTXWriter{}
}

// Write builds the presentation and saves it to path atomically.
func (w *PPTXWriter) Write(ctx context.Context, doc *Document, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pres, err := w.Build(doc)
	if err != nil {
		return err
	}
	defer pres.Close()
	if err := pres.Save(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// Build converts doc into an in-memory presentation.
func (w *PPTXWriter) Build(doc *Document) (*gopresentation.Presentation, error) {
	if doc == nil {
		return nil, fmt.Errorf("nil document")
	}
	pres := gopresentation.New()
	width, height := doc.Size()
	pres.GetLayout().SetCustomLayout(gopresentation.Inch(width), gopresentation.Inch(height))

	props := pres.GetDocumentProperties()
	props.Title = doc.Title
	props.Creator = gopresentation.ApplicationName()
	props.LastModifiedBy = props.Creator

	for i, s := range doc.Slides {
		slide := pres.CreateSlide()
		if len(s.Picture) > 0 {
			pic := slide.CreateDrawingShape()
			mime := s.PictureMIME
			if mime == "" {
				mime = "image/png"
			}
			pic.SetImageData(s.Picture, mime)
			pic.SetName(fmt.Sprintf("Page %d", i+1))
			pic.SetPosition(0, 0)
			pic.SetSize(gopresentation.Inch(width), gopresentation.Inch(height))
		}
		for j, e := range s.Elements {
			w.addTextBox(slide, e, j+1)
		}
	}

	if err := pres.Validate(); err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	return pres, nil
}

func (w *PPTXWriter) addTextBox(slide *gopresentation.Slide, e Element, n int) {
	tb := slide.CreateRichTextShape()
	tb.SetName(fmt.Sprintf("Text %d", n))
	tb.SetPosition(gopresentation.Inch(e.X), gopresentation.Inch(e.Y))
	tb.SetSize(gopresentation.Inch(e.Width), gopresentation.Inch(e.Height))
	// Multi-line text is the whole-page layout; single boxes keep their lines.
	multiline := strings.Contains(e.Text, "\n")
	tb.SetWordWrap(multiline)
	if multiline {
		tb.SetAutoFit(gopresentation.AutoFitNormal)
	}
	tb.SetTextAnchor(gopresentation.TextAnchorTop)

	for i, line := range strings.Split(e.Text, "\n") {
		if i > 0 {
			tb.CreateParagraph()
		}
		run := tb.CreateTextRun(line)
		font := run.GetFont()
		if e.FontSize > 0 {
			font.SetSize(e.FontSize)
		}
		if w.FontName != "" {
			font.SetName(w.FontName)
		}
		if e.Color != nil {
			font.SetColor(gopresentation.NewColorRGB(e.Color.R, e.Color.G, e.Color.B))
		}
	}
}
