package gopresentation

import (
	"io"
)

// Open reads the PPTX file at path.
func Open(path string) (*Presentation, error) {
	return (&PPTXReader{}).Read(path)
}

// ReadFrom reads a PPTX package of the given size from r.
func ReadFrom(r io.ReaderAt, size int64) (*Presentation, error) {
	return (&PPTXReader{}).ReadFromReader(r, size)
}

// Save writes p to path as a PPTX file. The file appears atomically: other
// processes see either the previous file or the complete new one.
func (p *Presentation) Save(path string) error {
	return (&PPTXWriter{presentation: p}).Save(path)
}

// WriteTo streams p as a PPTX package into w.
func (p *Presentation) WriteTo(w io.Writer) error {
	return (&PPTXWriter{presentation: p}).WriteTo(w)
}

// Close drops the slides and their image data so a large deck can be
// collected while the caller still holds p.
func (p *Presentation) Close() error {
	p.slides, p.properties, p.layout = nil, nil, nil
	return nil
}

// ExtractText returns the text of every slide, one paragraph per line.
func (p *Presentation) ExtractText() string {
	texts := make([]string, len(p.slides))
	for i, s := range p.slides {
		texts[i] = s.ExtractText()
	}
	return joinNonEmpty(texts, "\n")
}
