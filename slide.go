package gopresentation

// Slide is a single slide: an ordered shape tree plus an optional background.
// Shapes are drawn and written in insertion order, so the first shape ends up
// at the bottom of the z-order.
type Slide struct {
	name       string
	shapes     []Shape
	background *Fill
}

func newSlide() *Slide {
	return &Slide{shapes: make([]Shape, 0)}
}

// GetName returns the slide name.
func (s *Slide) GetName() string { return s.name }

// SetName sets the slide name.
func (s *Slide) SetName(name string) { s.name = name }

// GetShapes returns the slide's shapes in z-order.
func (s *Slide) GetShapes() []Shape { return s.shapes }

// AddShape appends a shape to the slide.
func (s *Slide) AddShape(shape Shape) {
	s.shapes = append(s.shapes, shape)
}

// CreateRichTextShape creates a text box and adds it to the slide.
func (s *Slide) CreateRichTextShape() *RichTextShape {
	rt := NewRichTextShape()
	s.shapes = append(s.shapes, rt)
	return rt
}

// CreateDrawingShape creates a picture shape and adds it to the slide.
func (s *Slide) CreateDrawingShape() *DrawingShape {
	d := NewDrawingShape()
	s.shapes = append(s.shapes, d)
	return d
}

// CreateAutoShape creates a preset-geometry shape and adds it to the slide.
func (s *Slide) CreateAutoShape() *AutoShape {
	a := NewAutoShape()
	s.shapes = append(s.shapes, a)
	return a
}

// GetBackground returns the slide background fill, or nil when the slide
// inherits the master background.
func (s *Slide) GetBackground() *Fill { return s.background }

// SetBackground sets the slide background fill.
func (s *Slide) SetBackground(f *Fill) { s.background = f }

// ExtractText returns the text of all text-bearing shapes on the slide, one
// paragraph per line.
func (s *Slide) ExtractText() string {
	var parts []string
	for _, shape := range s.shapes {
		for _, para := range shapeParagraphs(shape) {
			if t := para.GetText(); t != "" {
				parts = append(parts, t)
			}
		}
	}
	return joinNonEmpty(parts, "\n")
}

// shapeParagraphs returns the paragraphs for shapes that carry text.
func shapeParagraphs(shape Shape) []*Paragraph {
	switch s := shape.(type) {
	case *RichTextShape:
		return s.paragraphs
	case *AutoShape:
		return s.paragraphs
	}
	return nil
}

func joinNonEmpty(parts []string, sep string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += sep
		}
		out += p
	}
	return out
}
