package gopresentation

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"testing"
)

// emptyFontCache avoids scanning system font directories in tests.
func emptyFontCache() *FontCache {
	fc := NewFontCache()
	fc.dirs = nil
	return fc
}

func testRenderOptions() *RenderOptions {
	opts := DefaultRenderOptions()
	opts.FontCache = emptyFontCache()
	return opts
}

func solidPNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestSlideToImage_BlankSlide(t *testing.T) {
	p := New()
	p.CreateSlide()
	img, err := p.SlideToImage(0, testRenderOptions())
	if err != nil {
		t.Fatalf("SlideToImage: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 960 || bounds.Dy() != 720 {
		t.Errorf("expected 960x720, got %dx%d", bounds.Dx(), bounds.Dy())
	}
	r, g, b, _ := img.At(10, 10).RGBA()
	if r>>8 != 255 || g>>8 != 255 || b>>8 != 255 {
		t.Errorf("expected white background, got %v", img.At(10, 10))
	}
}

func TestSlideSizePixels(t *testing.T) {
	tests := []struct {
		name   string
		layout string
		ppi    float64
		width  int
		wantW  int
		wantH  int
	}{
		{"4x3 at 96ppi", LayoutScreen4x3, 96, 0, 960, 720},
		{"16x9 at 96ppi", LayoutScreen16x9, 96, 0, 1280, 720},
		{"4x3 at 192ppi", LayoutScreen4x3, 192, 0, 1920, 1440},
		{"width wins without ppi", LayoutScreen16x9, 0, 640, 640, 360},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New()
			p.GetLayout().SetLayout(tt.layout)
			opts := &RenderOptions{PixelsPerInch: tt.ppi, Width: tt.width}
			w, h := p.SlideSizePixels(opts)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("got %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestSlideToImage_OutOfRange(t *testing.T) {
	p := New()
	if _, err := p.SlideToImage(0, nil); err == nil {
		t.Error("expected error for empty presentation")
	}
	p.CreateSlide()
	if _, err := p.SlideToImage(5, nil); err == nil {
		t.Error("expected error for out-of-range slide index")
	}
}

func TestSlideToImage_Background(t *testing.T) {
	p := New()
	slide := p.CreateSlide()
	slide.SetBackground(NewFill().SetSolid(NewColor("102030")))

	img, err := p.SlideToImage(0, testRenderOptions())
	if err != nil {
		t.Fatalf("SlideToImage: %v", err)
	}
	got := color.RGBAModel.Convert(img.At(5, 5)).(color.RGBA)
	want := color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 255}
	if got != want {
		t.Errorf("background = %v, want %v", got, want)
	}

	opts := testRenderOptions()
	opts.BackgroundColor = &color.RGBA{R: 30, G: 30, B: 30, A: 255}
	img, err = p.SlideToImage(0, opts)
	if err != nil {
		t.Fatalf("SlideToImage: %v", err)
	}
	got = color.RGBAModel.Convert(img.At(5, 5)).(color.RGBA)
	if got != *opts.BackgroundColor {
		t.Errorf("override background = %v, want %v", got, *opts.BackgroundColor)
	}
}

func TestSlideToImage_AutoShapeFill(t *testing.T) {
	p := New()
	slide := p.CreateSlide()
	as := slide.CreateAutoShape()
	as.SetPosition(Inch(1), Inch(1))
	as.SetSize(Inch(2), Inch(1))
	as.SetSolidFill(NewColor("FF6600"))
	as.SetText("Box")

	opts := testRenderOptions()
	opts.PixelsPerInch = 96
	img, err := p.SlideToImage(0, opts)
	if err != nil {
		t.Fatalf("SlideToImage: %v", err)
	}
	// top-left corner of the shape, away from the centered label
	got := color.RGBAModel.Convert(img.At(100, 100)).(color.RGBA)
	want := color.RGBA{R: 0xFF, G: 0x66, B: 0x00, A: 255}
	if got != want {
		t.Errorf("fill = %v, want %v", got, want)
	}
}

func TestSlideToImage_Picture(t *testing.T) {
	p := New()
	slide := p.CreateSlide()
	pic := slide.CreateDrawingShape()
	pic.SetImageData(solidPNG(t, 4, 4, color.RGBA{R: 200, A: 255}), "image/png")
	pic.SetPosition(0, 0)
	pic.SetSize(Inch(1), Inch(1))

	opts := testRenderOptions()
	opts.PixelsPerInch = 96
	img, err := p.SlideToImage(0, opts)
	if err != nil {
		t.Fatalf("SlideToImage: %v", err)
	}
	got := color.RGBAModel.Convert(img.At(48, 48)).(color.RGBA)
	if got.R != 200 || got.G != 0 || got.B != 0 {
		t.Errorf("picture pixel = %v, want red", got)
	}
	outside := color.RGBAModel.Convert(img.At(200, 200)).(color.RGBA)
	if outside.R != 255 || outside.G != 255 {
		t.Errorf("outside pixel = %v, want white", outside)
	}
}

func TestSlideToImage_TextDrawsInk(t *testing.T) {
	p := New()
	slide := p.CreateSlide()
	tb := slide.CreateRichTextShape()
	tb.SetPosition(Inch(1), Inch(1))
	tb.SetSize(Inch(6), Inch(1))
	tb.CreateTextRun("Hello, World!").GetFont().SetColor(ColorBlack)

	opts := testRenderOptions()
	opts.PixelsPerInch = 96
	img, err := p.SlideToImage(0, opts)
	if err != nil {
		t.Fatalf("SlideToImage: %v", err)
	}
	dark := 0
	for y := 96; y < 192; y++ {
		for x := 96; x < 672; x++ {
			if r, _, _, _ := img.At(x, y).RGBA(); r>>8 < 128 {
				dark++
			}
		}
	}
	if dark == 0 {
		t.Error("expected text pixels inside the text box")
	}
}

func TestSaveSlideAsImage_JPEG(t *testing.T) {
	p := New()
	p.CreateSlide()
	opts := testRenderOptions()
	opts.Format = ImageFormatJPEG
	opts.JPEGQuality = 85

	path := filepath.Join(t.TempDir(), "out", "slide.jpg")
	if err := p.SaveSlideAsImage(0, path, opts); err != nil {
		t.Fatalf("SaveSlideAsImage: %v", err)
	}

	img, err := p.SlideToImage(0, opts)
	if err != nil {
		t.Fatalf("SlideToImage: %v", err)
	}
	var buf bytes.Buffer
	if err := EncodeImage(&buf, img, opts); err != nil {
		t.Fatalf("EncodeImage: %v", err)
	}
	if _, err := jpeg.Decode(&buf); err != nil {
		t.Errorf("output is not a JPEG: %v", err)
	}
}

func TestSlidesToImages(t *testing.T) {
	p := New()
	for i := 0; i < 3; i++ {
		p.CreateSlide()
	}
	images, err := p.SlidesToImages(testRenderOptions())
	if err != nil {
		t.Fatalf("SlidesToImages: %v", err)
	}
	if len(images) != 3 {
		t.Errorf("expected 3 images, got %d", len(images))
	}
}
