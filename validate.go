package gopresentation

import (
	"fmt"
	"strings"
)

// problems collects validation findings under a location prefix.
type problems struct {
	list []string
}

func (ps *problems) addf(format string, args ...any) {
	ps.list = append(ps.list, fmt.Sprintf(format, args...))
}

func (ps *problems) err() error {
	if len(ps.list) == 0 {
		return nil
	}
	return fmt.Errorf("validation failed:\n  %s", strings.Join(ps.list, "\n  "))
}

// Validate reports every structural problem that would make the written
// package unreadable. An empty presentation is valid.
func (p *Presentation) Validate() error {
	var ps problems
	switch {
	case p.properties == nil:
		ps.addf("document properties are nil")
	case p.layout == nil:
		ps.addf("document layout is nil")
	case p.layout.CX <= 0 || p.layout.CY <= 0:
		ps.addf("slide size %dx%d EMU is not positive", p.layout.CX, p.layout.CY)
	}
	for i, s := range p.slides {
		if s == nil {
			ps.addf("slide %d is nil", i+1)
			continue
		}
		s.validate(&ps, fmt.Sprintf("slide %d", i+1))
	}
	return ps.err()
}

func (s *Slide) validate(ps *problems, where string) {
	if bg := s.background; bg != nil && bg.Type == FillSolid && !isValidARGB(bg.Color.ARGB) {
		ps.addf("%s: background color %q is not ARGB", where, bg.Color.ARGB)
	}
	for j, shape := range s.shapes {
		at := fmt.Sprintf("%s shape %d", where, j+1)
		if shape == nil {
			ps.addf("%s is nil", at)
			continue
		}
		if shape.GetWidth() < 0 || shape.GetHeight() < 0 {
			ps.addf("%s: negative size %dx%d", at, shape.GetWidth(), shape.GetHeight())
		}
		switch sh := shape.(type) {
		case *DrawingShape:
			if len(sh.data) == 0 {
				ps.addf("%s: picture has no image data", at)
			}
			if sh.mimeType != "" && !isValidImageMime(sh.mimeType) {
				ps.addf("%s: unsupported image type %s", at, sh.mimeType)
			}
		case *RichTextShape:
			if len(sh.paragraphs) == 0 {
				ps.addf("%s: text box has no paragraphs", at)
			}
			validateRuns(ps, at, sh.paragraphs)
		case *AutoShape:
			if sh.shapeType == "" {
				ps.addf("%s: auto shape has no geometry", at)
			}
			validateRuns(ps, at, sh.paragraphs)
		}
	}
}

func validateRuns(ps *problems, at string, paragraphs []*Paragraph) {
	for i, para := range paragraphs {
		if para == nil {
			ps.addf("%s: paragraph %d is nil", at, i+1)
			continue
		}
		for k, elem := range para.elements {
			tr, ok := elem.(*TextRun)
			switch {
			case !ok:
			case tr.font == nil:
				ps.addf("%s: paragraph %d run %d has no font", at, i+1, k+1)
			case tr.font.HasColor() && !isValidARGB(tr.font.Color.ARGB):
				ps.addf("%s: paragraph %d run %d color %q is not ARGB", at, i+1, k+1, tr.font.Color.ARGB)
			}
		}
	}
}

func isValidImageMime(mime string) bool {
	switch mime {
	case "image/png", "image/jpeg", "image/gif", "image/bmp", "image/tiff":
		return true
	}
	return false
}
