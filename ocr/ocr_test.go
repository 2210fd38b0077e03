package ocr

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"testing"
)

func TestFilter(t *testing.T) {
	raw := []RawToken{
		{Text: "keep", Left: 1, Top: 2, Width: 3, Height: 4, Confidence: 90},
		{Text: "edge", Confidence: 60},
		{Text: "low", Confidence: 12.5},
		{Text: "   ", Confidence: 99},
		{Text: "\t\n", Confidence: 99},
		{Text: "  padded ", Width: 5, Height: 5, Confidence: 60.5},
		{Text: "neg", Width: -3, Height: -1, Confidence: 70},
	}
	got := Filter(raw, DefaultMinConfidence)

	want := []string{"keep", "padded", "neg"}
	if len(got) != len(want) {
		t.Fatalf("Filter returned %d tokens, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].Text != w {
			t.Errorf("token %d text = %q, want %q", i, got[i].Text, w)
		}
	}
	if got[0].X != 1 || got[0].Y != 2 || got[0].Width != 3 || got[0].Height != 4 {
		t.Errorf("geometry not carried over: %+v", got[0])
	}
	if got[2].Width != 0 || got[2].Height != 0 {
		t.Errorf("negative size should clamp to zero: %+v", got[2])
	}
	for _, tok := range got {
		if tok.Color != nil {
			t.Errorf("Filter should not assign colors: %+v", tok)
		}
	}
}

func TestFilterNormalizesNFC(t *testing.T) {
	decomposed := "Café" // e + combining acute
	got := Filter([]RawToken{{Text: decomposed, Confidence: 95}}, DefaultMinConfidence)
	if len(got) != 1 {
		t.Fatalf("expected one token, got %d", len(got))
	}
	if got[0].Text != "Café" {
		t.Errorf("text = %q, want composed form", got[0].Text)
	}
}

func TestFilterEmpty(t *testing.T) {
	if got := Filter(nil, DefaultMinConfidence); len(got) != 0 {
		t.Errorf("expected no tokens, got %d", len(got))
	}
}

func TestSampleColors(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 40))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	// red "ink" inside the first box
	draw.Draw(img, image.Rect(5, 5, 25, 15), &image.Uniform{C: color.RGBA{R: 220, A: 255}}, image.Point{}, draw.Src)

	tokens := []Token{
		{Text: "red", X: 0, Y: 0, Width: 30, Height: 20},
		{Text: "blank", X: 50, Y: 0, Width: 30, Height: 20},
		{Text: "outside", X: 500, Y: 500, Width: 10, Height: 10},
	}
	got := SampleColors(img, tokens)

	if got[0].Color == nil {
		t.Fatal("expected a color for the inked box")
	}
	if c := *got[0].Color; c.R < 200 || c.G > 30 || c.B > 30 {
		t.Errorf("ink color = %+v, want red", c)
	}
	if got[1].Color != nil {
		t.Errorf("uniform box should have no color, got %+v", *got[1].Color)
	}
	if got[2].Color != nil {
		t.Error("box outside the image should have no color")
	}
	if tokens[0].Color != nil {
		t.Error("SampleColors must not modify its input")
	}
}

func TestRGBHex(t *testing.T) {
	if got := (RGB{R: 0x12, G: 0xAB, B: 0x0F}).Hex(); got != "12AB0F" {
		t.Errorf("Hex() = %q", got)
	}
}

func TestRecognizerFunc(t *testing.T) {
	var called string
	var rec TextRecognizer = RecognizerFunc(func(ctx context.Context, path string) ([]RawToken, error) {
		called = path
		return []RawToken{{Text: "x", Confidence: 99}}, nil
	})
	toks, err := rec.Recognize(context.Background(), "page.png")
	if err != nil || len(toks) != 1 || called != "page.png" {
		t.Errorf("RecognizerFunc: toks=%v err=%v called=%q", toks, err, called)
	}
}
