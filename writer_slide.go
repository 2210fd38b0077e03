package gopresentation

import (
	"archive/zip"
	"fmt"
	"math"
	"strings"
)

// slideImageRels returns the relationship ID of every picture on a slide.
// rId1 is always the slide layout; pictures follow in shape order. The slide
// XML and its .rels part are both generated from this map.
func (w *PPTXWriter) slideImageRels(slide *Slide) map[Shape]string {
	m := make(map[Shape]string)
	relIdx := 2
	for _, shape := range slide.shapes {
		ds, ok := shape.(*DrawingShape)
		if !ok || len(ds.data) == 0 {
			continue
		}
		m[shape] = fmt.Sprintf("rId%d", relIdx)
		relIdx++
	}
	return m
}

func (w *PPTXWriter) writeSlide(zw *zip.Writer, slide *Slide, slideNum int) error {
	rels := w.slideImageRels(slide)

	var shapesXML strings.Builder
	shapeID := 2 // 1 is the spTree group

	for _, shape := range slide.shapes {
		switch s := shape.(type) {
		case *RichTextShape:
			shapesXML.WriteString(w.writeRichTextShapeXML(s, &shapeID))
		case *DrawingShape:
			if rid, ok := rels[shape]; ok {
				shapesXML.WriteString(w.writeDrawingShapeXML(s, &shapeID, rid))
			}
		case *AutoShape:
			shapesXML.WriteString(w.writeAutoShapeXML(s, &shapeID))
		}
	}

	bgXML := ""
	if slide.background != nil && slide.background.Type != FillNone {
		bgXML = "    <p:bg>\n      <p:bgPr>\n"
		bgXML += w.writeFillXML(slide.background)
		bgXML += "        <a:effectLst/>\n      </p:bgPr>\n    </p:bg>\n"
	}

	nameAttr := ""
	if slide.name != "" {
		nameAttr = fmt.Sprintf(` name="%s"`, xmlEscape(slide.name))
	}

	content := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="%s" xmlns:r="%s" xmlns:p="%s">
  <p:cSld%s>
%s    <p:spTree>
      <p:nvGrpSpPr>
        <p:cNvPr id="1" name=""/>
        <p:cNvGrpSpPr/>
        <p:nvPr/>
      </p:nvGrpSpPr>
      <p:grpSpPr>
        <a:xfrm>
          <a:off x="0" y="0"/>
          <a:ext cx="0" cy="0"/>
          <a:chOff x="0" y="0"/>
          <a:chExt cx="0" cy="0"/>
        </a:xfrm>
      </p:grpSpPr>
%s    </p:spTree>
  </p:cSld>
  <p:clrMapOvr>
    <a:masterClrMapping/>
  </p:clrMapOvr>
</p:sld>`, nsDrawingML, nsOfficeDocRels, nsPresentationML, nameAttr, bgXML, shapesXML.String())

	return writeRawXMLToZip(zw, fmt.Sprintf("ppt/slides/slide%d.xml", slideNum), content)
}

func (w *PPTXWriter) writeSlideRels(zw *zip.Writer, slide *Slide, slideNum int) error {
	rels := xmlRelationships{
		Xmlns: nsRelationships,
		Relationships: []xmlRelationship{
			{ID: "rId1", Type: relTypeSlideLayout, Target: "../slideLayouts/slideLayout1.xml"},
		},
	}

	ids := w.slideImageRels(slide)
	for _, shape := range slide.shapes {
		rid, ok := ids[shape]
		if !ok {
			continue
		}
		ds := shape.(*DrawingShape)
		rels.Relationships = append(rels.Relationships, xmlRelationship{
			ID:     rid,
			Type:   relTypeImage,
			Target: fmt.Sprintf("../media/image%d.%s", w.media[ds], imageExtension(ds.mimeType)),
		})
	}

	return writeXMLToZip(zw, fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", slideNum), rels)
}

// --- Rich Text Shape XML ---

func (w *PPTXWriter) writeRichTextShapeXML(s *RichTextShape, shapeID *int) string {
	id := *shapeID
	*shapeID++

	name := s.name
	if name == "" {
		name = fmt.Sprintf("TextBox %d", id)
	}

	var paragraphsXML strings.Builder
	for _, para := range s.paragraphs {
		paragraphsXML.WriteString(w.writeParagraphXML(para))
	}

	return fmt.Sprintf(`      <p:sp>
        <p:nvSpPr>
          <p:cNvPr id="%d" name="%s"%s/>
          <p:cNvSpPr txBox="1"/>
          <p:nvPr/>
        </p:nvSpPr>
        <p:spPr>
          <a:xfrm>
            <a:off x="%d" y="%d"/>
            <a:ext cx="%d" cy="%d"/>
          </a:xfrm>
          <a:prstGeom prst="rect">
            <a:avLst/>
          </a:prstGeom>
%s%s        </p:spPr>
        <p:txBody>
          <a:bodyPr wrap="%s" lIns="0" tIns="0" rIns="0" bIns="0"%s>%s</a:bodyPr>
          <a:lstStyle/>
%s        </p:txBody>
      </p:sp>
`, id, xmlEscape(name), descrAttr(s.description),
		s.offsetX, s.offsetY, s.width, s.height,
		w.writeFillXML(s.fill), w.writeBorderXML(s.border),
		boolToWrap(s.wordWrap), textAnchorAttr(s.textAnchor),
		autoFitXML(s.autoFit),
		paragraphsXML.String())
}

func descrAttr(d string) string {
	if d == "" {
		return ""
	}
	return fmt.Sprintf(` descr="%s"`, xmlEscape(d))
}

func boolToWrap(wrap bool) string {
	if wrap {
		return "square"
	}
	return "none"
}

// textAnchorAttr returns the anchor attribute string for <a:bodyPr>.
func textAnchorAttr(anchor TextAnchorType) string {
	if anchor == TextAnchorNone {
		return ""
	}
	return fmt.Sprintf(` anchor="%s"`, string(anchor))
}

func autoFitXML(fit AutoFitType) string {
	switch fit {
	case AutoFitNormal:
		return "<a:normAutofit/>"
	case AutoFitShape:
		return "<a:spAutoFit/>"
	}
	return ""
}

func (w *PPTXWriter) writeParagraphXML(para *Paragraph) string {
	algn := ""
	if para.alignment != nil && para.alignment.Horizontal != "" {
		algn = fmt.Sprintf(` algn="%s"`, para.alignment.Horizontal)
	}

	var elementsXML strings.Builder
	for _, elem := range para.elements {
		switch e := elem.(type) {
		case *TextRun:
			elementsXML.WriteString(w.writeTextRunXML(e))
		case *BreakElement:
			elementsXML.WriteString("            <a:br/>\n")
		}
	}

	return fmt.Sprintf(`          <a:p>
            <a:pPr%s/>
%s          </a:p>
`, algn, elementsXML.String())
}

// fontSizeHundredths converts a point size to the 1/100 pt integer DrawingML
// stores in the sz attribute.
func fontSizeHundredths(size float64) int {
	if size <= 0 {
		size = DefaultFontSize
	}
	return int(math.Round(size * 100))
}

func (w *PPTXWriter) writeTextRunXML(tr *TextRun) string {
	font := tr.font
	if font == nil {
		font = NewFont()
	}
	attrs := fmt.Sprintf(` lang="en-US" sz="%d" dirty="0"`, fontSizeHundredths(font.Size))
	if font.Bold {
		attrs += ` b="1"`
	}
	if font.Italic {
		attrs += ` i="1"`
	}

	solidFill := ""
	if font.HasColor() {
		solidFill = fmt.Sprintf(`
                <a:solidFill><a:srgbClr val="%s"/></a:solidFill>`, colorRGB(font.Color))
	}

	latin := ""
	if font.Name != "" {
		latin = fmt.Sprintf(`
                <a:latin typeface="%s"/>`, xmlEscape(font.Name))
	}

	return fmt.Sprintf(`            <a:r>
              <a:rPr%s>%s%s
              </a:rPr>
              <a:t>%s</a:t>
            </a:r>
`, attrs, solidFill, latin, xmlEscape(tr.text))
}

// --- Drawing Shape XML ---

func (w *PPTXWriter) writeDrawingShapeXML(s *DrawingShape, shapeID *int, relID string) string {
	id := *shapeID
	*shapeID++

	name := s.name
	if name == "" {
		name = fmt.Sprintf("Picture %d", id)
	}

	return fmt.Sprintf(`      <p:pic>
        <p:nvPicPr>
          <p:cNvPr id="%d" name="%s" descr="%s"/>
          <p:cNvPicPr>
            <a:picLocks noChangeAspect="1"/>
          </p:cNvPicPr>
          <p:nvPr/>
        </p:nvPicPr>
        <p:blipFill>
          <a:blip r:embed="%s"/>
          <a:stretch>
            <a:fillRect/>
          </a:stretch>
        </p:blipFill>
        <p:spPr>
          <a:xfrm>
            <a:off x="%d" y="%d"/>
            <a:ext cx="%d" cy="%d"/>
          </a:xfrm>
          <a:prstGeom prst="rect">
            <a:avLst/>
          </a:prstGeom>
        </p:spPr>
      </p:pic>
`, id, xmlEscape(name), xmlEscape(s.description),
		relID,
		s.offsetX, s.offsetY, s.width, s.height)
}

// --- Auto Shape XML ---

func (w *PPTXWriter) writeAutoShapeXML(s *AutoShape, shapeID *int) string {
	id := *shapeID
	*shapeID++

	name := s.name
	if name == "" {
		name = fmt.Sprintf("Shape %d", id)
	}

	textXML := ""
	if len(s.paragraphs) > 0 {
		var paragraphsXML strings.Builder
		for _, para := range s.paragraphs {
			paragraphsXML.WriteString(w.writeParagraphXML(para))
		}
		textXML = fmt.Sprintf(`
        <p:txBody>
          <a:bodyPr anchor="ctr"/>
          <a:lstStyle/>
%s        </p:txBody>`, paragraphsXML.String())
	}

	return fmt.Sprintf(`      <p:sp>
        <p:nvSpPr>
          <p:cNvPr id="%d" name="%s"%s/>
          <p:cNvSpPr/>
          <p:nvPr/>
        </p:nvSpPr>
        <p:spPr>
          <a:xfrm>
            <a:off x="%d" y="%d"/>
            <a:ext cx="%d" cy="%d"/>
          </a:xfrm>
          <a:prstGeom prst="%s">
            <a:avLst/>
          </a:prstGeom>
%s%s        </p:spPr>%s
      </p:sp>
`, id, xmlEscape(name), descrAttr(s.description),
		s.offsetX, s.offsetY, s.width, s.height,
		s.shapeType,
		w.writeFillXML(s.fill), w.writeBorderXML(s.border), textXML)
}

// --- Fill and Border helpers ---

func (w *PPTXWriter) writeFillXML(f *Fill) string {
	if f == nil {
		return ""
	}
	switch f.Type {
	case FillSolid:
		return fmt.Sprintf("          <a:solidFill><a:srgbClr val=\"%s\"/></a:solidFill>\n", colorRGB(f.Color))
	default:
		return ""
	}
}

func (w *PPTXWriter) writeBorderXML(b *Border) string {
	if b == nil || b.Style == BorderNone || b.Style == "" {
		return ""
	}
	dashXML := ""
	if b.Style == BorderDash {
		dashXML = "<a:prstDash val=\"dash\"/>"
	}
	return fmt.Sprintf("          <a:ln w=\"%d\"><a:solidFill><a:srgbClr val=\"%s\"/></a:solidFill>%s</a:ln>\n",
		Point(float64(b.Width)), colorRGB(b.Color), dashXML)
}

// --- Media ---

func (w *PPTXWriter) writeMedia(zw *zip.Writer) error {
	for i, ds := range w.mediaOrder {
		fw, err := zw.Create(fmt.Sprintf("ppt/media/image%d.%s", i+1, imageExtension(ds.mimeType)))
		if err != nil {
			return err
		}
		if _, err := fw.Write(ds.data); err != nil {
			return fmt.Errorf("failed to write media %d: %w", i+1, err)
		}
	}
	return nil
}
