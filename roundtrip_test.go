package gopresentation

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// helper: write presentation to buffer and read back
func roundTrip(t *testing.T, p *Presentation) *Presentation {
	t.Helper()
	var buf bytes.Buffer
	if err := p.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	data := buf.Bytes()
	pres, err := ReadFrom(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("ReadFrom failed: %v", err)
	}
	return pres
}

// helper: save to temp file and re-open
func roundTripFile(t *testing.T, p *Presentation) *Presentation {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.pptx")
	if err := p.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	pres, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return pres
}

// helper: create a minimal 1x1 PNG
func testPNG() []byte {
	return []byte{
		0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
		0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53,
		0xDE, 0x00, 0x00, 0x00, 0x0C, 0x49, 0x44, 0x41,
		0x54, 0x08, 0xD7, 0x63, 0xF8, 0xCF, 0xC0, 0x00,
		0x00, 0x00, 0x02, 0x00, 0x01, 0xE2, 0x21, 0xBC,
		0x33, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4E,
		0x44, 0xAE, 0x42, 0x60, 0x82,
	}
}

// zipPart returns the content of one part of a written package.
func zipPart(t *testing.T, p *Presentation, name string) string {
	t.Helper()
	var buf bytes.Buffer
	if err := p.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		return string(data)
	}
	t.Fatalf("part %s not found", name)
	return ""
}

func TestRoundTripTextBoxes(t *testing.T) {
	p := New()
	slide := p.CreateSlide()

	rt := slide.CreateRichTextShape()
	rt.SetName("Block 1")
	rt.SetPosition(Inch(1), Inch(0.5))
	rt.SetSize(Inch(4), Inch(0.25))
	tr := rt.CreateTextRun("Hello World")
	tr.GetFont().SetSize(13.5).SetBold(true).SetColor(NewColor("336699"))

	plain := slide.CreateRichTextShape()
	plain.SetPosition(Inch(2), Inch(3))
	plain.SetSize(Inch(1), Inch(1))
	plain.CreateTextRun("inherits color")

	got := roundTrip(t, p)
	if got.GetSlideCount() != 1 {
		t.Fatalf("expected 1 slide, got %d", got.GetSlideCount())
	}
	shapes := got.GetAllSlides()[0].GetShapes()
	if len(shapes) != 2 {
		t.Fatalf("expected 2 shapes, got %d", len(shapes))
	}

	box, ok := shapes[0].(*RichTextShape)
	if !ok {
		t.Fatalf("shape 0 is %T, want *RichTextShape", shapes[0])
	}
	if box.GetName() != "Block 1" {
		t.Errorf("name = %q", box.GetName())
	}
	if box.GetOffsetX() != Inch(1) || box.GetOffsetY() != Inch(0.5) {
		t.Errorf("position = (%d, %d)", box.GetOffsetX(), box.GetOffsetY())
	}
	if box.GetWidth() != Inch(4) || box.GetHeight() != Inch(0.25) {
		t.Errorf("size = (%d, %d)", box.GetWidth(), box.GetHeight())
	}
	run := box.GetParagraphs()[0].GetElements()[0].(*TextRun)
	if run.GetText() != "Hello World" {
		t.Errorf("text = %q", run.GetText())
	}
	font := run.GetFont()
	if font.Size != 13.5 {
		t.Errorf("font size = %v, want 13.5", font.Size)
	}
	if !font.Bold {
		t.Error("expected bold")
	}
	if font.Color.ARGB != "FF336699" {
		t.Errorf("color = %q", font.Color.ARGB)
	}

	second := shapes[1].(*RichTextShape)
	if second.GetParagraphs()[0].GetElements()[0].(*TextRun).GetFont().HasColor() {
		t.Error("run without color should stay uncolored")
	}
}

func TestRoundTripLayoutAndProperties(t *testing.T) {
	p := New()
	p.GetLayout().SetCustomLayout(Inch(13.333), Inch(7.5))
	p.GetDocumentProperties().Title = "scan <1> & co"
	p.CreateSlide()

	got := roundTripFile(t, p)
	if got.GetLayout().CX != Inch(13.333) || got.GetLayout().CY != Inch(7.5) {
		t.Errorf("layout = %dx%d", got.GetLayout().CX, got.GetLayout().CY)
	}
	if got.GetLayout().Name != LayoutCustom {
		t.Errorf("layout name = %q", got.GetLayout().Name)
	}
	if got.GetDocumentProperties().Title != "scan <1> & co" {
		t.Errorf("title = %q", got.GetDocumentProperties().Title)
	}
}

func TestRoundTripPictures(t *testing.T) {
	p := New()
	for i := 0; i < 2; i++ {
		slide := p.CreateSlide()
		pic := slide.CreateDrawingShape()
		pic.SetImageData(testPNG(), "image/png")
		pic.SetPosition(0, 0)
		pic.SetSize(p.GetLayout().CX, p.GetLayout().CY)
		tb := slide.CreateRichTextShape()
		tb.SetPosition(Inch(1), Inch(1))
		tb.SetSize(Inch(2), Inch(1))
		tb.CreateTextRun("over the picture")
	}

	got := roundTrip(t, p)
	for i, slide := range got.GetAllSlides() {
		shapes := slide.GetShapes()
		if len(shapes) != 2 {
			t.Fatalf("slide %d: expected 2 shapes, got %d", i, len(shapes))
		}
		pic, ok := shapes[0].(*DrawingShape)
		if !ok {
			t.Fatalf("slide %d: shape 0 is %T", i, shapes[0])
		}
		if !bytes.Equal(pic.GetImageData(), testPNG()) {
			t.Errorf("slide %d: image data mismatch", i)
		}
		if pic.GetMimeType() != "image/png" {
			t.Errorf("slide %d: mime = %q", i, pic.GetMimeType())
		}
		if _, ok := shapes[1].(*RichTextShape); !ok {
			t.Errorf("slide %d: shape 1 is %T", i, shapes[1])
		}
	}

	ct := zipPart(t, p, "[Content_Types].xml")
	if strings.Count(ct, `Extension="png"`) != 1 {
		t.Errorf("expected one png default in content types:\n%s", ct)
	}
	rels := zipPart(t, p, "ppt/slides/_rels/slide2.xml.rels")
	if !strings.Contains(rels, "../media/image2.png") {
		t.Errorf("slide 2 should reference image2.png:\n%s", rels)
	}
}

func TestRoundTripAutoShapeAndBackground(t *testing.T) {
	p := New()
	slide := p.CreateSlide()
	slide.SetBackground(NewFill().SetSolid(NewColor("EEEEEE")))
	as := slide.CreateAutoShape()
	as.SetAutoShapeType(AutoShapeEllipse)
	as.SetPosition(Inch(1), Inch(1))
	as.SetSize(Inch(2), Inch(2))
	as.SetSolidFill(NewColor("FF0000"))
	as.SetText("circle")

	got := roundTrip(t, p).GetAllSlides()[0]
	if bg := got.GetBackground(); bg == nil || bg.Type != FillSolid || bg.Color.ARGB != "FFEEEEEE" {
		t.Errorf("background = %+v", bg)
	}
	shape, ok := got.GetShapes()[0].(*AutoShape)
	if !ok {
		t.Fatalf("shape is %T", got.GetShapes()[0])
	}
	if shape.GetAutoShapeType() != AutoShapeEllipse {
		t.Errorf("geometry = %q", shape.GetAutoShapeType())
	}
	if shape.GetText() != "circle" {
		t.Errorf("text = %q", shape.GetText())
	}
	if shape.GetFill().Color.ARGB != "FFFF0000" {
		t.Errorf("fill = %q", shape.GetFill().Color.ARGB)
	}
}

func TestWriteEmptyPresentation(t *testing.T) {
	p := New()
	got := roundTrip(t, p)
	if got.GetSlideCount() != 0 {
		t.Errorf("expected 0 slides, got %d", got.GetSlideCount())
	}
	if err := got.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if strings.Contains(zipPart(t, p, "ppt/presentation.xml"), "sldIdLst") {
		t.Error("empty presentation should not carry a slide id list")
	}
}

func TestPresentationRelsMatchSlideIDs(t *testing.T) {
	p := New()
	for i := 0; i < 3; i++ {
		p.CreateSlide()
	}
	pres := zipPart(t, p, "ppt/presentation.xml")
	rels := zipPart(t, p, "ppt/_rels/presentation.xml.rels")
	for i, rid := range []string{"rId2", "rId3", "rId4"} {
		if !strings.Contains(pres, `r:id="`+rid+`"`) {
			t.Errorf("presentation.xml missing %s", rid)
		}
		want := `Id="` + rid + `"`
		if !strings.Contains(rels, want) {
			t.Errorf("rels missing %s for slide %d", rid, i+1)
		}
	}
	if !strings.Contains(pres, `id="256"`) {
		t.Error("first slide id should be 256")
	}
}

func TestFontSizeHundredths(t *testing.T) {
	tests := []struct {
		size float64
		want int
	}{
		{8, 800},
		{13.5, 1350},
		{10.125, 1013},
		{0, 1800},
	}
	for _, tt := range tests {
		if got := fontSizeHundredths(tt.size); got != tt.want {
			t.Errorf("fontSizeHundredths(%v) = %d, want %d", tt.size, got, tt.want)
		}
	}
}

func TestSaveIsAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deck.pptx")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := New()
	p.CreateSlide()
	if err := p.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the output file, found %d entries", len(entries))
	}
	if _, err := Open(path); err != nil {
		t.Errorf("Open after overwrite: %v", err)
	}
}

func TestReadErrors(t *testing.T) {
	if _, err := ReadFrom(bytes.NewReader(nil), 0); err == nil {
		t.Error("expected error for empty input")
	}
	junk := []byte("not a zip archive")
	if _, err := ReadFrom(bytes.NewReader(junk), int64(len(junk))); err == nil {
		t.Error("expected error for non-zip input")
	}
	if _, err := Open(filepath.Join(t.TempDir(), "missing.pptx")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReadGroupTransform(t *testing.T) {
	// group scales its children by 2 and moves them by one inch
	slideXML := `<?xml version="1.0" encoding="UTF-8"?>
<p:sld xmlns:a="` + nsDrawingML + `" xmlns:p="` + nsPresentationML + `">
  <p:cSld><p:spTree>
    <p:grpSp>
      <p:grpSpPr><a:xfrm>
        <a:off x="914400" y="914400"/><a:ext cx="200" cy="200"/>
        <a:chOff x="0" y="0"/><a:chExt cx="100" cy="100"/>
      </a:xfrm></p:grpSpPr>
      <p:sp>
        <p:nvSpPr><p:cNvPr id="3" name="child"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>
        <p:spPr><a:xfrm><a:off x="10" y="20"/><a:ext cx="30" cy="40"/></a:xfrm></p:spPr>
        <p:txBody><a:bodyPr/><a:p><a:r><a:rPr sz="2400"/><a:t>grouped</a:t></a:r></a:p></p:txBody>
      </p:sp>
    </p:grpSp>
  </p:spTree></p:cSld>
</p:sld>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"ppt/presentation.xml": `<p:presentation xmlns:p="` + nsPresentationML + `" xmlns:r="` + nsOfficeDocRels + `">
  <p:sldIdLst><p:sldId id="256" r:id="rId7"/></p:sldIdLst></p:presentation>`,
		"ppt/_rels/presentation.xml.rels": `<Relationships xmlns="` + nsRelationships + `">
  <Relationship Id="rId7" Type="` + relTypeSlide + `" Target="slides/slide1.xml"/></Relationships>`,
		"ppt/slides/slide1.xml": slideXML,
	}
	for name, content := range files {
		fw, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	pres, err := ReadFrom(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	shapes := pres.GetAllSlides()[0].GetShapes()
	if len(shapes) != 1 {
		t.Fatalf("expected 1 shape, got %d", len(shapes))
	}
	s := shapes[0]
	if s.GetOffsetX() != 914400+20 || s.GetOffsetY() != 914400+40 {
		t.Errorf("offset = (%d, %d)", s.GetOffsetX(), s.GetOffsetY())
	}
	if s.GetWidth() != 60 || s.GetHeight() != 80 {
		t.Errorf("size = (%d, %d)", s.GetWidth(), s.GetHeight())
	}
	if pres.ExtractText() != "grouped" {
		t.Errorf("text = %q", pres.ExtractText())
	}
}

func TestValidate(t *testing.T) {
	p := New()
	slide := p.CreateSlide()
	slide.CreateDrawingShape()
	if err := p.Validate(); err == nil {
		t.Error("expected error for picture without data")
	}

	p = New()
	p.CreateSlide().CreateRichTextShape().CreateTextRun("ok")
	if err := p.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestColors(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"FF0000", "FFFF0000"},
		{"#00ff00", "FF00FF00"},
		{"800000FF", "800000FF"},
		{"nothex", "FF000000"},
	}
	for _, tt := range tests {
		if got := NewColor(tt.in).ARGB; got != tt.want {
			t.Errorf("NewColor(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	c := NewColorRGB(1, 2, 255)
	if c.GetRed() != 1 || c.GetGreen() != 2 || c.GetBlue() != 255 || c.GetAlpha() != 255 {
		t.Errorf("NewColorRGB components = %d %d %d %d", c.GetRed(), c.GetGreen(), c.GetBlue(), c.GetAlpha())
	}
}

func TestMeasurements(t *testing.T) {
	if Inch(1) != 914400 {
		t.Errorf("Inch(1) = %d", Inch(1))
	}
	if Pixel(96, 96) != 914400 {
		t.Errorf("Pixel(96, 96) = %d", Pixel(96, 96))
	}
	if Pixel(10, 0) != 0 {
		t.Error("Pixel with zero ppi should be 0")
	}
	if got := EMUToPixel(Inch(2), 96); got != 192 {
		t.Errorf("EMUToPixel = %v", got)
	}
}
