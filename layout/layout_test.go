package layout

import (
	"image"
	"testing"

	"github.com/VantageDataChat/SlideOCR/ocr"
)

func tok(text string, x, y, w, h int) ocr.Token {
	return ocr.Token{Text: text, X: x, Y: y, Width: w, Height: h, Confidence: 90}
}

func blockTexts(blocks []Block) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = b.Text()
	}
	return out
}

func TestCluster(t *testing.T) {
	tests := []struct {
		name   string
		tokens []ocr.Token
		want   []string
	}{
		{"empty", nil, nil},
		{"single", []ocr.Token{tok("Hi", 0, 0, 20, 20)}, []string{"Hi"}},
		{
			"gap above spacing splits",
			[]ocr.Token{tok("a", 0, 0, 10, 10), tok("b", 0, 50, 10, 10)},
			[]string{"a", "b"},
		},
		{
			"small gap joins",
			[]ocr.Token{tok("a", 0, 0, 10, 10), tok("b", 0, 15, 10, 10)},
			[]string{"a b"},
		},
		{
			"gap equal to spacing joins",
			[]ocr.Token{tok("a", 0, 0, 10, 10), tok("b", 0, 30, 10, 10)},
			[]string{"a b"},
		},
		{
			"gap one above spacing splits",
			[]ocr.Token{tok("a", 0, 0, 10, 10), tok("b", 0, 31, 10, 10)},
			[]string{"a", "b"},
		},
		{
			"sorted by y",
			[]ocr.Token{tok("low", 0, 100, 10, 10), tok("top", 0, 0, 10, 10), tok("mid", 0, 12, 10, 10)},
			[]string{"top mid", "low"},
		},
		{
			"equal y keeps detection order",
			[]ocr.Token{tok("right", 200, 0, 10, 10), tok("left", 0, 0, 10, 10)},
			[]string{"right left"},
		},
	}
	c := NewClusterer(DefaultSpacing)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := blockTexts(c.Cluster(tt.tokens))
			if len(got) != len(tt.want) {
				t.Fatalf("got %d blocks %q, want %d %q", len(got), got, len(tt.want), tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("block %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestClusterDoesNotModifyInput(t *testing.T) {
	in := []ocr.Token{tok("b", 0, 50, 10, 10), tok("a", 0, 0, 10, 10)}
	NewClusterer(DefaultSpacing).Cluster(in)
	if in[0].Text != "b" || in[1].Text != "a" {
		t.Errorf("input reordered: %+v", in)
	}
}

func TestClusterIdempotent(t *testing.T) {
	tokens := []ocr.Token{
		tok("t1", 0, 0, 30, 12),
		tok("t2", 40, 3, 30, 12),
		tok("t3", 0, 20, 30, 12),
		tok("t4", 0, 70, 30, 12),
		tok("t5", 0, 85, 30, 40),
		tok("t6", 0, 200, 30, 12),
	}
	c := NewClusterer(DefaultSpacing)
	first := c.Cluster(tokens)
	second := c.Cluster(Flatten(first))
	a, b := blockTexts(first), blockTexts(second)
	if len(a) != len(b) {
		t.Fatalf("block count changed: %q vs %q", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("block %d changed: %q vs %q", i, a[i], b[i])
		}
	}
}

func TestBlockBoundsAndColor(t *testing.T) {
	red := &ocr.RGB{R: 255}
	b := Block{Tokens: []ocr.Token{
		tok("a", 10, 10, 20, 10),
		{Text: "b", X: 5, Y: 25, Width: 50, Height: 8, Color: red},
	}}
	if got, want := b.Bounds(), image.Rect(5, 10, 55, 33); got != want {
		t.Errorf("Bounds() = %v, want %v", got, want)
	}
	if b.Color() != red {
		t.Errorf("Color() = %v, want first colored member", b.Color())
	}
	if b.Anchor().Text != "a" {
		t.Errorf("Anchor() = %q", b.Anchor().Text)
	}
	if (Block{}).Bounds() != (image.Rectangle{}) {
		t.Error("empty block should have empty bounds")
	}
}

func TestNewClustererNegativeSpacing(t *testing.T) {
	if c := NewClusterer(-1); c.Spacing != DefaultSpacing {
		t.Errorf("Spacing = %d, want %d", c.Spacing, DefaultSpacing)
	}
}
