// Package gopresentation is the in-memory PowerPoint model used by SlideOCR.
//
// It reads .pptx files (Office Open XML), renders their slides to raster
// images, and writes freshly composed presentations back out. Only the subset
// of DrawingML needed to rasterize a deck and to emit text boxes and pictures
// is modeled; everything else in a source file is skipped on read.
//
// See the Version variable for the current library version.
package gopresentation

import (
	"errors"
	"time"
)

// Presentation represents an in-memory PowerPoint presentation.
type Presentation struct {
	properties *DocumentProperties
	slides     []*Slide
	layout     *DocumentLayout
}

// New creates an empty Presentation with the default 4:3 layout.
// Unlike a file opened from disk it has no slides until CreateSlide is called.
func New() *Presentation {
	return &Presentation{
		properties: NewDocumentProperties(),
		slides:     make([]*Slide, 0),
		layout:     NewDocumentLayout(),
	}
}

// GetDocumentProperties returns the document properties.
func (p *Presentation) GetDocumentProperties() *DocumentProperties {
	return p.properties
}

// SetDocumentProperties sets the document properties.
func (p *Presentation) SetDocumentProperties(props *DocumentProperties) {
	p.properties = props
}

// GetLayout returns the document layout.
func (p *Presentation) GetLayout() *DocumentLayout {
	return p.layout
}

// SetLayout sets the document layout.
func (p *Presentation) SetLayout(layout *DocumentLayout) {
	p.layout = layout
}

// CreateSlide creates a new blank slide and appends it to the presentation.
func (p *Presentation) CreateSlide() *Slide {
	slide := newSlide()
	p.slides = append(p.slides, slide)
	return slide
}

// AddSlide appends an existing slide to the presentation.
func (p *Presentation) AddSlide(slide *Slide) *Slide {
	p.slides = append(p.slides, slide)
	return slide
}

// GetSlide returns a slide by index.
func (p *Presentation) GetSlide(index int) (*Slide, error) {
	if index < 0 || index >= len(p.slides) {
		return nil, errors.New("slide index out of range")
	}
	return p.slides[index], nil
}

// GetAllSlides returns all slides.
func (p *Presentation) GetAllSlides() []*Slide {
	return p.slides
}

// GetSlideCount returns the number of slides.
func (p *Presentation) GetSlideCount() int {
	return len(p.slides)
}

// DocumentProperties holds the core document properties written to docProps/core.xml.
type DocumentProperties struct {
	Creator        string
	LastModifiedBy string
	Created        time.Time
	Modified       time.Time
	Title          string
	Description    string
	Subject        string
	Keywords       string
	Category       string
	Company        string
	Revision       string
}

// NewDocumentProperties creates new document properties with defaults.
func NewDocumentProperties() *DocumentProperties {
	now := time.Now()
	return &DocumentProperties{
		Creator:        "SlideOCR",
		LastModifiedBy: "SlideOCR",
		Created:        now,
		Modified:       now,
		Revision:       "1",
	}
}
