package raster

import (
	"archive/zip"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	gopresentation "github.com/VantageDataChat/SlideOCR"
)

const redSquareSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="100" height="50">
<rect x="0" y="0" width="50" height="50" fill="#ff0000"/>
</svg>`

func writeNotebook(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lesson.notebook")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, body := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func readPNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return img
}

func TestNotebookPageOrder(t *testing.T) {
	path := writeNotebook(t, map[string]string{
		"page10.svg":       redSquareSVG,
		"Page2.svg":        redSquareSVG,
		"images/page1.SVG": redSquareSVG,
		"page.svg":         redSquareSVG,
		"thumbnail.svg":    redSquareSVG,
		"page3.png":        "not svg",
		"metadata.xml":     "<x/>",
	})
	src, err := (&Notebook{}).Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	want := []string{"page.svg", "images/page1.SVG", "Page2.svg", "page10.svg"}
	pages := src.Pages()
	if len(pages) != len(want) {
		t.Fatalf("got %d pages, want %d", len(pages), len(want))
	}
	for i, p := range pages {
		if p.Name != want[i] || p.Index != i {
			t.Errorf("page %d = %+v, want %s", i, p, want[i])
		}
	}
}

func TestNotebookRasterize(t *testing.T) {
	path := writeNotebook(t, map[string]string{"page1.svg": redSquareSVG})
	src, err := (&Notebook{}).Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	work := t.TempDir()
	r, err := src.Rasterize(context.Background(), src.Pages()[0], work)
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if r.Width != 100 || r.Height != 50 {
		t.Errorf("size = %dx%d, want 100x50", r.Width, r.Height)
	}
	if filepath.Dir(r.Path) != work {
		t.Errorf("raster written outside the work dir: %s", r.Path)
	}
	img := readPNG(t, r.Path)
	red := color.RGBAModel.Convert(img.At(10, 10)).(color.RGBA)
	if red.R < 250 || red.G > 5 || red.B > 5 {
		t.Errorf("inside square = %v, want red", red)
	}
	white := color.RGBAModel.Convert(img.At(80, 10)).(color.RGBA)
	if white.R != 255 || white.G != 255 || white.B != 255 {
		t.Errorf("outside square = %v, want white", white)
	}
}

func TestNotebookBrokenPage(t *testing.T) {
	path := writeNotebook(t, map[string]string{"page1.svg": "<svg"})
	src, err := (&Notebook{}).Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()
	if _, err := src.Rasterize(context.Background(), src.Pages()[0], t.TempDir()); err == nil {
		t.Error("expected an error for a broken page without a fallback")
	}
	if _, err := src.Rasterize(context.Background(), PageRef{Index: 3}, t.TempDir()); err == nil {
		t.Error("expected an error for an out-of-range page")
	}
}

func TestNotebookNoPages(t *testing.T) {
	path := writeNotebook(t, map[string]string{"metadata.xml": "<x/>"})
	_, err := (&Notebook{}).Open(context.Background(), path)
	if !errors.Is(err, ErrNoPages) {
		t.Errorf("expected ErrNoPages, got %v", err)
	}
}

func TestNotebookMagickFallback(t *testing.T) {
	magick, err := exec.LookPath("magick")
	if err != nil {
		t.Skip("ImageMagick not installed")
	}
	// width in mm is not understood natively
	svg := `<svg xmlns="http://www.w3.org/2000/svg" width="20mm" height="10mm"><rect width="10" height="10"/></svg>`
	path := writeNotebook(t, map[string]string{"page1.svg": svg})
	src, err := (&Notebook{MagickPath: magick}).Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()
	r, err := src.Rasterize(context.Background(), src.Pages()[0], t.TempDir())
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if r.Width == 0 || r.Height == 0 {
		t.Errorf("empty raster %+v", r)
	}
}

func writePresentation(t *testing.T, slides int) string {
	t.Helper()
	p := gopresentation.New()
	for i := 0; i < slides; i++ {
		s := p.CreateSlide()
		s.SetBackground(gopresentation.NewFill().SetSolid(gopresentation.NewColor("00FF00")))
	}
	path := filepath.Join(t.TempDir(), "deck.pptx")
	if err := p.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return path
}

func TestPPTXRasterize(t *testing.T) {
	path := writePresentation(t, 2)
	r := &PPTX{}
	src, err := r.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	pages := src.Pages()
	if len(pages) != 2 || pages[1].Name != "slide 2" {
		t.Fatalf("pages = %+v", pages)
	}
	ras, err := src.Rasterize(context.Background(), pages[1], t.TempDir())
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if ras.Width != 960 || ras.Height != 720 {
		t.Errorf("size = %dx%d, want 960x720", ras.Width, ras.Height)
	}
	got := color.RGBAModel.Convert(readPNG(t, ras.Path).At(5, 5)).(color.RGBA)
	if got.G != 255 || got.R != 0 {
		t.Errorf("background pixel = %v, want green", got)
	}
	if r.FontCache == nil {
		t.Error("font cache should be created on first Open")
	}
}

func TestPPTXNoSlides(t *testing.T) {
	path := writePresentation(t, 0)
	if _, err := (&PPTX{}).Open(context.Background(), path); !errors.Is(err, ErrNoPages) {
		t.Errorf("expected ErrNoPages, got %v", err)
	}
}

func TestMux(t *testing.T) {
	m := NewMux(&Notebook{}, &PPTX{}, &Office{Exts: []string{".ppt", ".pptx"}})
	exts := m.Extensions()
	want := []string{".notebook", ".pptx", ".ppt"}
	if len(exts) != len(want) {
		t.Fatalf("Extensions() = %v, want %v", exts, want)
	}
	for i := range want {
		if exts[i] != want[i] {
			t.Errorf("Extensions()[%d] = %q, want %q", i, exts[i], want[i])
		}
	}
	if !m.Supports("Deck.PPTX") || !m.Supports("a/b/c.notebook") || m.Supports("notes.txt") {
		t.Error("Supports mismatch")
	}
	if _, err := m.Open(context.Background(), "notes.txt"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}

	src, err := m.Open(context.Background(), writePresentation(t, 1))
	if err != nil {
		t.Fatalf("Open pptx: %v", err)
	}
	defer src.Close()
	if _, ok := src.(*pptxSource); !ok {
		t.Errorf("pptx routed to %T, want the native renderer", src)
	}
}

func TestTrailingNumber(t *testing.T) {
	tests := map[string]int{
		"/tmp/all-1.png":  1,
		"/tmp/all-01.png": 1,
		"all-10.png":      10,
		"all.png":         0,
	}
	for in, want := range tests {
		if got := trailingNumber(in); got != want {
			t.Errorf("trailingNumber(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestOfficeRasterize(t *testing.T) {
	soffice, err := exec.LookPath("soffice")
	if err != nil {
		t.Skip("LibreOffice not installed")
	}
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		t.Skip("pdftoppm not installed")
	}
	o := &Office{SofficePath: soffice, Exts: []string{".pptx"}}
	src, err := o.Open(context.Background(), writePresentation(t, 2))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	dir := src.(*officeSource).dir
	if len(src.Pages()) != 2 {
		t.Errorf("pages = %d, want 2", len(src.Pages()))
	}
	r, err := src.Rasterize(context.Background(), src.Pages()[0], t.TempDir())
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if r.Width == 0 || r.Height == 0 {
		t.Errorf("empty raster %+v", r)
	}
	if err := src.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("conversion dir %s not removed", dir)
	}
}

func TestOfficeMissingTool(t *testing.T) {
	o := &Office{SofficePath: filepath.Join(t.TempDir(), "no-soffice")}
	if _, err := o.Open(context.Background(), "deck.ppt"); err == nil {
		t.Error("expected an error for a missing executable")
	}
}
